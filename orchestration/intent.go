// Package orchestration routes queries to the specialist agents, runs
// them concurrently, and aggregates their outputs into a structured
// advisory prompt. Processing always completes: failed agents degrade to
// default surrogates rather than failing the request.
package orchestration

import (
	"strings"

	"github.com/krishimitra/advisor/knowledge"
)

// Agent names used in routing decisions
const (
	AgentSoil         = "soil"
	AgentWeather      = "weather"
	AgentCropPlanning = "crop_planning"
)

// IntentAnalysis is the routing decision for a query
type IntentAnalysis struct {
	Intents            []string           `json:"intents"`
	Scores             map[string]float64 `json:"intent_scores"`
	RequiredAgents     []string           `json:"required_agents"`
	Confidence         float64            `json:"confidence"`
	IsDefaultSelection bool               `json:"is_default_selection"`
}

// AnalyzeIntent scores the query against keyword patterns and decides
// which agents must run. An unclassifiable query runs everything, so a
// farmer always gets an answer.
func AnalyzeIntent(query string, previousQueries []string) IntentAnalysis {
	queryLower := strings.ToLower(query)
	words := strings.Fields(queryLower)

	scores := make(map[string]float64)
	var total float64
	for _, intent := range knowledge.IntentOrder {
		pattern := knowledge.IntentPatterns[intent]
		hits := 0
		for _, kw := range pattern.Keywords {
			if strings.Contains(queryLower, kw) {
				hits++
			}
		}
		if hits > 0 {
			score := float64(hits) * pattern.Weight
			scores[intent] = score
			total += score
		}
	}

	var intents []string
	agentSet := make(map[string]bool)
	for _, intent := range knowledge.IntentOrder {
		if scores[intent] == 0 {
			continue
		}
		intents = append(intents, intent)
		switch intent {
		case knowledge.IntentSoilAnalysis:
			agentSet[AgentSoil] = true
		case knowledge.IntentWeatherAnalysis:
			agentSet[AgentWeather] = true
		case knowledge.IntentCropPlanning, knowledge.IntentMarketInfo:
			agentSet[AgentCropPlanning] = true
			agentSet[AgentSoil] = true
			agentSet[AgentWeather] = true
		}
	}

	// Conversation continuity: a follow-up inherits context from the
	// previous question.
	if len(previousQueries) > 0 {
		prev := strings.ToLower(previousQueries[len(previousQueries)-1])
		if strings.Contains(prev, "soil") {
			agentSet[AgentSoil] = true
		}
		for _, kw := range []string{"season", "weather", "kharif", "rabi"} {
			if strings.Contains(prev, kw) {
				agentSet[AgentWeather] = true
				break
			}
		}
	}

	isDefault := false
	if len(agentSet) == 0 {
		agentSet[AgentSoil] = true
		agentSet[AgentWeather] = true
		agentSet[AgentCropPlanning] = true
		isDefault = true
	}

	var agents []string
	for _, agent := range []string{AgentSoil, AgentWeather, AgentCropPlanning} {
		if agentSet[agent] {
			agents = append(agents, agent)
		}
	}

	confidence := 0.5
	if len(words) > 0 {
		confidence = total / (float64(len(words)) * 0.5)
		if confidence > 1 {
			confidence = 1
		}
		if len(intents) > 0 && confidence < 0.6 {
			confidence = 0.6
		}
		confidence = round2(confidence)
	}

	return IntentAnalysis{
		Intents:            intents,
		Scores:             scores,
		RequiredAgents:     agents,
		Confidence:         confidence,
		IsDefaultSelection: isDefault,
	}
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

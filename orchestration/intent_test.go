package orchestration

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/krishimitra/advisor/knowledge"
)

func TestAnalyzeIntentSoilQuery(t *testing.T) {
	analysis := AnalyzeIntent("my soil has low nitrogen and high ph", nil)

	assert.Contains(t, analysis.Intents, knowledge.IntentSoilAnalysis)
	assert.Contains(t, analysis.RequiredAgents, AgentSoil)
	assert.False(t, analysis.IsDefaultSelection)
	assert.GreaterOrEqual(t, analysis.Confidence, 0.6)
}

func TestAnalyzeIntentCropPlanningPullsAllAgents(t *testing.T) {
	analysis := AnalyzeIntent("which crop should I grow for best profit", nil)

	assert.Contains(t, analysis.Intents, knowledge.IntentCropPlanning)
	assert.ElementsMatch(t, []string{AgentSoil, AgentWeather, AgentCropPlanning}, analysis.RequiredAgents)
}

func TestAnalyzeIntentWeatherOnly(t *testing.T) {
	analysis := AnalyzeIntent("how much rainfall in monsoon this year", nil)

	assert.Contains(t, analysis.Intents, knowledge.IntentWeatherAnalysis)
	assert.Contains(t, analysis.RequiredAgents, AgentWeather)
	assert.NotContains(t, analysis.RequiredAgents, AgentCropPlanning)
}

func TestAnalyzeIntentDefaultSelection(t *testing.T) {
	analysis := AnalyzeIntent("namaste", nil)

	assert.Empty(t, analysis.Intents)
	assert.True(t, analysis.IsDefaultSelection)
	assert.ElementsMatch(t, []string{AgentSoil, AgentWeather, AgentCropPlanning}, analysis.RequiredAgents)
}

func TestAnalyzeIntentEmptyQuery(t *testing.T) {
	analysis := AnalyzeIntent("", nil)

	assert.True(t, analysis.IsDefaultSelection)
	assert.Equal(t, 0.5, analysis.Confidence)
}

func TestAnalyzeIntentConversationContinuity(t *testing.T) {
	t.Run("previous soil question keeps soil agent", func(t *testing.T) {
		analysis := AnalyzeIntent("and what about pests?", []string{"tell me about my soil"})
		assert.Contains(t, analysis.RequiredAgents, AgentSoil)
	})

	t.Run("previous season question keeps weather agent", func(t *testing.T) {
		analysis := AnalyzeIntent("and what about pests?", []string{"when does kharif start"})
		assert.Contains(t, analysis.RequiredAgents, AgentWeather)
	})
}

func TestAnalyzeIntentConfidenceBounds(t *testing.T) {
	queries := []string{
		"soil",
		"crop crop crop crop",
		"what is the best crop to plant in kharif season on clay soil with low nitrogen",
	}
	for _, q := range queries {
		analysis := AnalyzeIntent(q, nil)
		assert.GreaterOrEqual(t, analysis.Confidence, 0.5, "query %q", q)
		assert.LessOrEqual(t, analysis.Confidence, 1.0, "query %q", q)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"en", "en"}, {"English", "en"}, {"", "en"},
		{"hi", "hi"}, {"Hindi", "hi"},
		{"or", "or"}, {"Odia", "or"}, {"oriya", "or"},
		{"fr", "en"}, {"  HI ", "hi"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.out, NormalizeLanguage(tt.in), "input %q", tt.in)
	}
}

package agents

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/krishimitra/advisor/core"
	"github.com/krishimitra/advisor/knowledge"
	"github.com/krishimitra/advisor/learning"
	"github.com/krishimitra/advisor/retrieval"
)

// Extraction patterns. Values are accepted only inside their physical
// ranges; everything else falls back to the location profile.
var (
	phPatterns = []*regexp.Regexp{
		regexp.MustCompile(`ph\s*(?:is|=|:)?\s*(\d+\.?\d*)`),
		regexp.MustCompile(`ph\s*level\s*(?:is|=|:)?\s*(\d+\.?\d*)`),
		regexp.MustCompile(`(\d+\.?\d*)\s*ph`),
		regexp.MustCompile(`acidity\s*(?:is|=|:)?\s*(\d+\.?\d*)`),
	}

	npkRatioPattern = regexp.MustCompile(`(?:npk|n-p-k)?\s*(\d+)\s*[-:]\s*(\d+)\s*[-:]\s*(\d+)`)

	nitrogenPatterns = []*regexp.Regexp{
		regexp.MustCompile(`nitrogen\s*(?:is|=|:)?\s*(\d+\.?\d*)`),
		regexp.MustCompile(`n\s*(?:is|=|:)?\s*(\d+\.?\d*)\s*(?:kg|%)`),
		regexp.MustCompile(`urea\s*(?:is|=|:)?\s*(\d+\.?\d*)`),
	}
	phosphorusPatterns = []*regexp.Regexp{
		regexp.MustCompile(`phosphorus\s*(?:is|=|:)?\s*(\d+\.?\d*)`),
		regexp.MustCompile(`phosphate\s*(?:is|=|:)?\s*(\d+\.?\d*)`),
		regexp.MustCompile(`p\s*(?:is|=|:)?\s*(\d+\.?\d*)\s*(?:kg|%)`),
	}
	potassiumPatterns = []*regexp.Regexp{
		regexp.MustCompile(`potassium\s*(?:is|=|:)?\s*(\d+\.?\d*)`),
		regexp.MustCompile(`potash\s*(?:is|=|:)?\s*(\d+\.?\d*)`),
		regexp.MustCompile(`k\s*(?:is|=|:)?\s*(\d+\.?\d*)\s*(?:kg|%)`),
	}

	organicMatterPattern = regexp.MustCompile(`organic\s*(?:matter|content)?\s*(?:is|=|:)?\s*(\d+\.?\d*)\s*%?`)

	micronutrientPatterns = map[string][]*regexp.Regexp{
		"zinc": {
			regexp.MustCompile(`zinc\s*(?:is|=|:)?\s*(\d+\.?\d*)`),
			regexp.MustCompile(`zn\s*(?:is|=|:)?\s*(\d+\.?\d*)`),
		},
		"iron": {
			regexp.MustCompile(`iron\s*(?:is|=|:)?\s*(\d+\.?\d*)`),
			regexp.MustCompile(`fe\s*(?:is|=|:)?\s*(\d+\.?\d*)`),
		},
		"manganese": {
			regexp.MustCompile(`manganese\s*(?:is|=|:)?\s*(\d+\.?\d*)`),
			regexp.MustCompile(`mn\s*(?:is|=|:)?\s*(\d+\.?\d*)`),
		},
		"copper": {
			regexp.MustCompile(`copper\s*(?:is|=|:)?\s*(\d+\.?\d*)`),
			regexp.MustCompile(`cu\s*(?:is|=|:)?\s*(\d+\.?\d*)`),
		},
		"boron": {
			regexp.MustCompile(`boron\s*(?:is|=|:)?\s*(\d+\.?\d*)`),
			regexp.MustCompile(`b\s*(?:is|=|:)?\s*(\d+\.?\d*)\s*ppm`),
		},
		"sulfur": {
			regexp.MustCompile(`sulfur\s*(?:is|=|:)?\s*(\d+\.?\d*)`),
			regexp.MustCompile(`sulphur\s*(?:is|=|:)?\s*(\d+\.?\d*)`),
		},
	}

	micronutrientOrder = []string{"zinc", "iron", "manganese", "copper", "boron", "sulfur"}
)

// SoilAgent extracts soil parameters from query text, merges them with
// the regional profile for the farmer's location, scores soil health,
// and persists profiles it learns from explicit user data.
type SoilAgent struct {
	store     learning.Store
	retriever retrieval.Retriever
	logger    core.Logger
}

// SoilAgentOptions configures a SoilAgent
type SoilAgentOptions struct {
	Store     learning.Store
	Retriever retrieval.Retriever
	Logger    core.Logger
}

// NewSoilAgent creates a soil agent with graceful nil handling
func NewSoilAgent(opts SoilAgentOptions) *SoilAgent {
	store := opts.Store
	if store == nil {
		store = learning.Unavailable{}
	}
	retriever := opts.Retriever
	if retriever == nil {
		retriever = retrieval.NoOp{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &SoilAgent{store: store, retriever: retriever, logger: logger}
}

// soilData is the merged extraction + location view scoring works from
type soilData struct {
	soilType           string
	ph                 float64
	npk                NPKLevels
	organicMatter      float64
	dataSources        []string
	dataFreshness      string
	locationConfidence float64
}

// soilLocation is the profile resolved for the farmer's region
type soilLocation struct {
	soilType      string
	ph            float64
	organicMatter float64
	fallbackLevel string
	confidence    float64
}

// Analyze produces a SoilResult for the query. It never returns nil and
// never raises: unexpected internal failures yield the default-filled
// result with minimal confidence.
func (a *SoilAgent) Analyze(ctx context.Context, query string, actx *Context) (result *SoilResult) {
	if actx == nil {
		actx = &Context{IrrigationAvailable: true}
	}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Soil agent panic", map[string]interface{}{
				"panic": fmt.Sprintf("%v", r),
			})
			result = defaultSoilResult(fmt.Sprintf("soil analysis failed: %v", r))
		}
	}()

	a.logger.Info("Soil agent analyzing", map[string]interface{}{
		"query_length": len(query),
		"district":     actx.District,
		"state":        actx.State,
	})

	// Retrieval is advisory; a miss changes nothing
	if _, err := a.retriever.Retrieve(ctx, "soil analysis "+query); err != nil {
		a.logger.Warn("Soil retrieval failed", map[string]interface{}{
			"operation": "soil.Analyze",
			"error":     err,
		})
	}

	loc := a.resolveLocation(ctx, actx)
	data := extractSoilParameters(query, loc)

	score, confidence := scoreSoilHealth(data)
	constraints := identifySoilConstraints(data)
	recommendations := soilRecommendations(data)
	micronutrients := extractMicronutrients(query)

	characteristics, ok := knowledge.SoilTypeCharacteristics[data.soilType]
	if !ok {
		characteristics = knowledge.SoilTypeCharacteristics["loam"]
	}

	result = &SoilResult{
		SoilType:             data.soilType,
		PHLevel:              data.ph,
		NPK:                  data.npk,
		OrganicMatterPercent: data.organicMatter,
		Micronutrients:       micronutrients,
		Characteristics:      characteristics,
		HealthScore:          score,
		HealthConfidence:     confidence,
		Constraints:          constraints,
		Recommendations:      recommendations,
		DataSources:          data.dataSources,
		DataFreshness:        data.dataFreshness,
		Location: LocationContext{
			Pincode:       actx.Pincode,
			District:      actx.District,
			State:         actx.State,
			FallbackLevel: loc.fallbackLevel,
		},
	}

	a.learnFromQuery(ctx, actx, data, confidence)

	a.logger.Info("Soil agent response", map[string]interface{}{
		"health_score": score,
		"confidence":   confidence,
		"soil_type":    data.soilType,
	})
	return result
}

// defaultSoilResult is the degraded output used when analysis itself
// fails. Downstream planning still proceeds on it.
func defaultSoilResult(errMsg string) *SoilResult {
	return &SoilResult{
		SoilType:         "unknown",
		PHLevel:          7.0,
		Characteristics:  knowledge.SoilTypeCharacteristics["loam"],
		Micronutrients:   map[string]Micronutrient{},
		HealthScore:      5,
		HealthConfidence: 0.1,
		Constraints:      []string{"Analysis failed - using default values"},
		Recommendations:  []string{"Get professional soil test", "Consult local agricultural expert"},
		DataSources:      []string{"default_fallback"},
		DataFreshness:    FreshnessUnknown,
		Location:         LocationContext{FallbackLevel: "error"},
		Err:              errMsg,
	}
}

// resolveLocation picks the soil profile for the query's region:
// learned district, learned state, static state, then default.
func (a *SoilAgent) resolveLocation(ctx context.Context, actx *Context) soilLocation {
	district := knowledge.RegionKey(actx.District)
	state := knowledge.RegionKey(actx.State)

	if district != "" {
		if learned, ok := a.store.GetSoilProfile(ctx, district); ok {
			a.logger.Info("Using learned soil profile", map[string]interface{}{
				"region": district,
				"level":  "district",
			})
			return learnedSoilLocation(learned, "learned_district", 0.75)
		}
	}
	if state != "" {
		if learned, ok := a.store.GetSoilProfile(ctx, state); ok {
			a.logger.Info("Using learned soil profile", map[string]interface{}{
				"region": state,
				"level":  "state",
			})
			return learnedSoilLocation(learned, "learned_state", 0.7)
		}
	}
	if profile, ok := knowledge.RegionalSoilProfiles[state]; ok {
		return soilLocation{
			soilType:      profile.Type,
			ph:            profile.PH,
			organicMatter: profile.OrganicMatter,
			fallbackLevel: "state",
			confidence:    0.6,
		}
	}

	def := knowledge.RegionalSoilProfiles["default"]
	return soilLocation{
		soilType:      def.Type,
		ph:            def.PH,
		organicMatter: def.OrganicMatter,
		fallbackLevel: "default",
		confidence:    0.3,
	}
}

func learnedSoilLocation(p *learning.SoilProfile, level string, defaultConf float64) soilLocation {
	conf := p.Confidence
	if conf == 0 {
		conf = defaultConf
	}
	return soilLocation{
		soilType:      p.PrimarySoil,
		ph:            p.PH(),
		organicMatter: p.OrganicMatter,
		fallbackLevel: level,
		confidence:    conf,
	}
}

// extractSoilParameters merges query-text extraction over the location
// profile. Each field tracks where its value came from.
func extractSoilParameters(query string, loc soilLocation) soilData {
	queryLower := strings.ToLower(query)
	var sources []string

	soilType := loc.soilType
	if soilType == "" {
		soilType = "unknown"
	}
	fromQuery := false
	for _, st := range knowledge.SoilTypeOrder {
		for _, kw := range knowledge.SoilTypeKeywords[st] {
			if strings.Contains(queryLower, kw) {
				soilType = st
				fromQuery = true
				break
			}
		}
		if fromQuery {
			break
		}
	}
	if fromQuery {
		sources = append(sources, "user_query")
	} else if soilType != "unknown" {
		sources = append(sources, "location_profile")
	}

	ph := loc.ph
	if ph == 0 {
		ph = 7.0
	}
	for _, pattern := range phPatterns {
		if m := pattern.FindStringSubmatch(queryLower); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil && v >= 0 && v <= 14 {
				ph = v
				sources = append(sources, "user_query_ph")
				break
			}
		}
	}

	npk := extractNPK(queryLower)
	if npk.AnyPositive() {
		sources = append(sources, "user_query_npk")
	}

	organicMatter := loc.organicMatter
	if organicMatter == 0 {
		organicMatter = 0.5
	}
	if m := organicMatterPattern.FindStringSubmatch(queryLower); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			if v > 10 {
				// Likely reported in the wrong unit
				v = v / 100
			}
			organicMatter = v
			sources = append(sources, "user_query_om")
		}
	}
	if strings.Contains(queryLower, "rich organic") || strings.Contains(queryLower, "high organic") {
		if organicMatter < 0.8 {
			organicMatter = 0.8
		}
	} else if strings.Contains(queryLower, "low organic") || strings.Contains(queryLower, "poor organic") {
		if organicMatter > 0.3 {
			organicMatter = 0.3
		}
	}

	freshness := FreshnessEstimated
	for _, s := range sources {
		if s == "user_query_ph" || s == "user_query_npk" {
			freshness = FreshnessUserProvided
			break
		}
	}

	if len(sources) == 0 {
		sources = []string{"location_profile"}
	}

	return soilData{
		soilType:           soilType,
		ph:                 ph,
		npk:                npk,
		organicMatter:      organicMatter,
		dataSources:        sources,
		dataFreshness:      freshness,
		locationConfidence: loc.confidence,
	}
}

// extractNPK reads macronutrients: composite N-P-K form first, then
// individual nutrient patterns, then qualitative floors.
func extractNPK(queryLower string) NPKLevels {
	var npk NPKLevels

	if m := npkRatioPattern.FindStringSubmatch(queryLower); m != nil {
		npk.Nitrogen, _ = strconv.ParseFloat(m[1], 64)
		npk.Phosphorus, _ = strconv.ParseFloat(m[2], 64)
		npk.Potassium, _ = strconv.ParseFloat(m[3], 64)
		return npk
	}

	for _, p := range nitrogenPatterns {
		if m := p.FindStringSubmatch(queryLower); m != nil {
			npk.Nitrogen, _ = strconv.ParseFloat(m[1], 64)
			break
		}
	}
	for _, p := range phosphorusPatterns {
		if m := p.FindStringSubmatch(queryLower); m != nil {
			npk.Phosphorus, _ = strconv.ParseFloat(m[1], 64)
			break
		}
	}
	for _, p := range potassiumPatterns {
		if m := p.FindStringSubmatch(queryLower); m != nil {
			npk.Potassium, _ = strconv.ParseFloat(m[1], 64)
			break
		}
	}

	if strings.Contains(queryLower, "nitrogen deficient") || strings.Contains(queryLower, "low nitrogen") {
		if npk.Nitrogen < 10 {
			npk.Nitrogen = 10
		}
	} else if strings.Contains(queryLower, "high nitrogen") || strings.Contains(queryLower, "rich nitrogen") {
		if npk.Nitrogen < 50 {
			npk.Nitrogen = 50
		}
	}
	return npk
}

// extractMicronutrients reads Zn/Fe/Mn/Cu/B/S values or deficiency
// indications from the query.
func extractMicronutrients(query string) map[string]Micronutrient {
	queryLower := strings.ToLower(query)
	micros := make(map[string]Micronutrient)

	for _, nutrient := range micronutrientOrder {
		matched := false
		for _, pattern := range micronutrientPatterns[nutrient] {
			if m := pattern.FindStringSubmatch(queryLower); m != nil {
				if v, err := strconv.ParseFloat(m[1], 64); err == nil {
					micros[nutrient] = Micronutrient{Value: v, Unit: "ppm", Source: "user_query"}
					matched = true
					break
				}
			}
		}
		if !matched {
			if strings.Contains(queryLower, nutrient+" deficien") || strings.Contains(queryLower, "low "+nutrient) {
				micros[nutrient] = Micronutrient{Status: "deficient", Source: "user_indication"}
			}
		}
	}
	return micros
}

var soilTypeScores = map[string]int{
	"loam": 3, "alluvial": 3, "black_cotton": 2,
	"silt": 2, "clay": 1, "red": 1,
	"sandy": 0, "laterite": 0, "chalk": -1,
	"peat": 1, "unknown": 0,
}

// scoreSoilHealth computes the 1-10 health score with confidence as the
// mean of per-factor confidences.
func scoreSoilHealth(data soilData) (int, float64) {
	score := 5
	var factors []float64

	score += soilTypeScores[data.soilType]
	if data.soilType != "unknown" {
		factors = append(factors, 0.8)
	} else {
		factors = append(factors, 0.4)
	}

	switch {
	case data.ph >= 6.0 && data.ph <= 7.5:
		score += 2
		factors = append(factors, 0.9)
	case data.ph >= 5.5 && data.ph <= 8.0:
		score++
		factors = append(factors, 0.75)
	case data.ph < 5.0 || data.ph > 8.5:
		score -= 2
		factors = append(factors, 0.8)
	default:
		factors = append(factors, 0.6)
	}

	if data.organicMatter >= 0.6 {
		score++
		factors = append(factors, 0.7)
	} else if data.organicMatter < 0.3 {
		score--
		factors = append(factors, 0.6)
	}

	if data.npk.AllAbove(30, 20, 20) {
		score++
		factors = append(factors, 0.85)
	} else if data.npk.AnyPositive() {
		factors = append(factors, 0.7)
	}

	if score < 1 {
		score = 1
	} else if score > 10 {
		score = 10
	}

	confidence := 0.5
	if len(factors) > 0 {
		var total float64
		for _, f := range factors {
			total += f
		}
		confidence = round2(total / float64(len(factors)))
	}
	return score, confidence
}

var soilTypeConstraints = map[string][]string{
	"clay":     {"Poor drainage - risk of waterlogging", "Difficult to work when wet"},
	"sandy":    {"Low nutrient retention", "Requires frequent irrigation", "Low water holding capacity"},
	"laterite": {"Low nutrient retention", "May be acidic", "Low organic matter"},
	"chalk":    {"Alkaline pH limits nutrient availability", "May cause iron chlorosis"},
	"peat":     {"Poor drainage", "May be acidic", "Slow to warm in spring"},
}

func identifySoilConstraints(data soilData) []string {
	var constraints []string
	constraints = append(constraints, soilTypeConstraints[data.soilType]...)

	if data.ph < 5.5 {
		constraints = append(constraints, fmt.Sprintf("Acidic soil (pH %g) - may require liming", data.ph))
	} else if data.ph > 8.0 {
		constraints = append(constraints, fmt.Sprintf("Alkaline soil (pH %g) - may cause micronutrient deficiency", data.ph))
	}

	if data.organicMatter < 0.3 {
		constraints = append(constraints, "Low organic matter - add compost or green manure")
	}

	if data.npk.Nitrogen < 20 {
		constraints = append(constraints, "Low nitrogen - consider nitrogen fertilization")
	}
	if data.npk.Phosphorus < 15 {
		constraints = append(constraints, "Low phosphorus - consider phosphorus supplementation")
	}
	if data.npk.Potassium < 15 {
		constraints = append(constraints, "Low potassium - consider potash application")
	}

	if len(constraints) == 0 {
		constraints = append(constraints, "No major constraints identified")
	}
	return constraints
}

var soilTypeRecommendations = map[string][]string{
	"clay": {
		"Add organic matter to improve drainage",
		"Use raised beds for better root development",
		"Avoid working soil when wet",
	},
	"sandy": {
		"Add organic matter to improve water retention",
		"Use mulching to reduce water loss",
		"Apply fertilizers in split doses",
	},
	"loam": {
		"Maintain organic matter levels with regular composting",
		"Practice crop rotation for soil health",
	},
	"laterite": {
		"Add lime to correct acidity",
		"Regular organic matter application",
		"Micronutrient supplementation recommended",
	},
	"black_cotton": {
		"Ensure proper drainage",
		"Add gypsum to improve soil structure",
		"Avoid waterlogging during monsoon",
	},
}

func soilRecommendations(data soilData) []string {
	var recs []string
	if typeRecs, ok := soilTypeRecommendations[data.soilType]; ok {
		recs = append(recs, typeRecs...)
	} else {
		recs = append(recs, "Regular soil testing recommended")
	}

	if data.ph < 5.5 {
		recs = append(recs, "Apply agricultural lime to raise pH")
	} else if data.ph > 8.0 {
		recs = append(recs, "Apply elemental sulfur or organic acids to lower pH")
	}

	if data.organicMatter < 0.4 {
		recs = append(recs, "Add farmyard manure or compost (10-15 tons/ha)")
		recs = append(recs, "Consider green manuring with dhaincha or sunhemp")
	}

	if data.npk.Nitrogen < 20 {
		recs = append(recs, "Apply urea or ammonium sulfate for nitrogen")
	}
	if data.npk.Phosphorus < 15 {
		recs = append(recs, "Apply DAP or single super phosphate")
	}
	if data.npk.Potassium < 15 {
		recs = append(recs, "Apply muriate of potash (MOP)")
	}
	return recs
}

// learnFromQuery persists a regional soil profile when the user gave us
// real data with reasonable confidence. Failures are swallowed.
func (a *SoilAgent) learnFromQuery(ctx context.Context, actx *Context, data soilData, confidence float64) {
	fromUser := false
	for _, s := range data.dataSources {
		if s == "user_query" {
			fromUser = true
			break
		}
	}
	if !fromUser || confidence < 0.5 || data.soilType == "unknown" {
		return
	}

	region := actx.District
	if region == "" {
		region = actx.State
	}
	if region == "" {
		return
	}

	profile := &learning.SoilProfile{
		PrimarySoil:   data.soilType,
		PHRange:       [2]float64{data.ph - 0.5, data.ph + 0.5},
		Confidence:    0.6,
		OrganicMatter: data.organicMatter,
		Nitrogen:      data.npk.Nitrogen,
		Phosphorus:    data.npk.Phosphorus,
		Potassium:     data.npk.Potassium,
	}
	if a.store.SaveSoilProfile(ctx, knowledge.RegionKey(region), profile, "user_query_extracted") {
		a.logger.Info("Learned soil profile from query", map[string]interface{}{
			"region": knowledge.RegionKey(region),
		})
	}
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

package agents

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/krishimitra/advisor/core"
	"github.com/krishimitra/advisor/knowledge"
	"github.com/krishimitra/advisor/retrieval"
)

// CropPlanner synthesizes soil and weather analyses into ranked crop
// recommendations with economics, varieties, schemes, risks, and
// precautions.
type CropPlanner struct {
	retriever retrieval.Retriever
	logger    core.Logger
}

// CropPlannerOptions configures a CropPlanner
type CropPlannerOptions struct {
	Retriever retrieval.Retriever
	Logger    core.Logger
}

// NewCropPlanner creates a crop planner with graceful nil handling
func NewCropPlanner(opts CropPlannerOptions) *CropPlanner {
	retriever := opts.Retriever
	if retriever == nil {
		retriever = retrieval.NoOp{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &CropPlanner{retriever: retriever, logger: logger}
}

// Plan produces a CropPlan from the soil and weather analyses. It never
// returns nil; internal failures yield a default-filled plan with
// minimal confidence.
func (p *CropPlanner) Plan(ctx context.Context, soil *SoilResult, weather *WeatherResult, query string, actx *Context) (plan *CropPlan) {
	if actx == nil {
		actx = &Context{IrrigationAvailable: true}
	}
	if soil == nil {
		soil = defaultSoilResult("missing soil analysis")
	}
	if weather == nil {
		weather = defaultWeatherResult("missing weather analysis")
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Crop planner panic", map[string]interface{}{
				"panic": fmt.Sprintf("%v", r),
			})
			plan = defaultCropPlan(weather.Season, fmt.Sprintf("crop planning failed: %v", r))
		}
	}()

	p.logger.Info("Crop planner running", map[string]interface{}{
		"soil_type":  soil.SoilType,
		"season":     weather.Season,
		"irrigation": actx.IrrigationAvailable,
	})

	// Retrieval is advisory; a miss changes nothing
	if _, err := p.retriever.Retrieve(ctx, "crop recommendations "+query); err != nil {
		p.logger.Warn("Crop retrieval failed", map[string]interface{}{
			"operation": "cropplan.Plan",
			"error":     err,
		})
	}

	candidates := selectCandidates(soil, weather, actx)
	recommendations := p.scoreCandidates(candidates, soil, weather, actx)

	alternatives := buildAlternatives(soil, weather, recommendations)
	risks := assessCropRisks(soil, weather)
	precautions := buildPrecautions(risks)

	plan = &CropPlan{
		RecommendedCrops:  recommendations,
		Alternatives:      alternatives,
		Risks:             risks,
		Precautions:       precautions,
		OverallConfidence: overallPlanConfidence(soil, weather, recommendations),
		Season:            weather.Season,
		Factors: PlanningFactors{
			SoilHealth:          soil.HealthScore,
			SoilConfidence:      soil.HealthConfidence,
			WeatherSuitability:  weather.SuitabilityScore,
			WeatherConfidence:   weather.SuitabilityConfidence,
			IrrigationAvailable: actx.IrrigationAvailable,
		},
		DataSources: []string{"rag_knowledge", "crop_database", "government_msp"},
	}

	p.logger.Info("Crop plan ready", map[string]interface{}{
		"recommendations": len(recommendations),
		"confidence":      plan.OverallConfidence,
	})
	return plan
}

// defaultCropPlan is the degraded output used when planning fails
func defaultCropPlan(season, errMsg string) *CropPlan {
	return &CropPlan{
		RecommendedCrops: []CropRecommendation{},
		Alternatives:     []Alternative{},
		Risks: []CropRisk{{
			Type:        "market",
			Severity:    RiskLow,
			Description: "Price volatility possible - consider MSP-covered crops",
			Mitigation:  "Register with local procurement agency",
		}},
		Precautions: []Precaution{{
			Action:   "Consult local agricultural extension office",
			Priority: "high",
			Timing:   "before_sowing",
		}},
		OverallConfidence: 0.1,
		Season:            season,
		DataSources:       []string{"default_fallback"},
		Err:               errMsg,
	}
}

// selectCandidates filters the crop database to crops fitting the soil
// and the water situation, ordered weather-suitable first.
func selectCandidates(soil *SoilResult, weather *WeatherResult, actx *Context) []string {
	eligible := make(map[string]bool)
	var ordered []string

	for _, name := range knowledge.CropWeatherOrder {
		crop, ok := knowledge.Crops[name]
		if !ok {
			continue
		}
		if soil.SoilType != "unknown" && !crop.SuitsSoil(soil.SoilType) {
			continue
		}
		if !actx.IrrigationAvailable &&
			(crop.WaterRequirement == "high" || crop.WaterRequirement == "very_high") {
			continue
		}
		eligible[name] = true
	}

	// Weather-fit crops lead, keeping their suitability order
	for _, wc := range weather.OptimalCrops {
		if eligible[wc.Crop] {
			ordered = append(ordered, wc.Crop)
			eligible[wc.Crop] = false
		}
	}

	remaining := 0
	for _, name := range knowledge.CropWeatherOrder {
		if eligible[name] && remaining < 3 {
			ordered = append(ordered, name)
			remaining++
		}
	}

	if len(ordered) > 5 {
		ordered = ordered[:5]
	}
	return ordered
}

// scoreCandidates ranks candidates by blended soil/weather confidence
// and assembles the full recommendation record for the top four.
func (p *CropPlanner) scoreCandidates(candidates []string, soil *SoilResult, weather *WeatherResult, actx *Context) []CropRecommendation {
	var recs []CropRecommendation

	for _, name := range candidates {
		crop := knowledge.Crops[name]
		confidence := cropConfidence(crop, soil, weather)

		recs = append(recs, CropRecommendation{
			Name:             name,
			Confidence:       confidence,
			Reasoning:        cropReasoning(name, crop, soil, weather),
			ExpectedYield:    estimateYield(crop, soil),
			DurationMonths:   knowledge.CropDuration(name),
			WaterRequirement: crop.WaterRequirement,
			MSPAvailable:     crop.MSP2024 != nil,
			Economics:        cropEconomics(crop, actx),
			Varieties:        pickVarieties(crop, soil, weather),
			Schemes:          schemeInfos(crop),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Confidence > recs[j].Confidence
	})
	if len(recs) > 4 {
		recs = recs[:4]
	}
	return recs
}

// cropConfidence blends soil and weather quality into a single score
func cropConfidence(crop *knowledge.Crop, soil *SoilResult, weather *WeatherResult) float64 {
	confidence := 0.7
	confidence *= 0.4 + 0.6*float64(soil.HealthScore)/10
	confidence *= 0.5 + 0.5*soil.HealthConfidence
	confidence *= 0.4 + 0.6*float64(weather.SuitabilityScore)/10
	confidence *= 0.5 + 0.5*weather.SuitabilityConfidence

	if crop.SuitsSoil(soil.SoilType) {
		confidence *= 1.15
	} else {
		confidence *= 0.85
	}
	if crop.MSP2024 != nil {
		confidence *= 1.05
	}

	if confidence > 1.0 {
		confidence = 1.0
	}
	return round2(confidence)
}

// cropReasoning builds the one-line explanation for a recommendation
func cropReasoning(name string, crop *knowledge.Crop, soil *SoilResult, weather *WeatherResult) string {
	var reasons []string

	if crop.SuitsSoil(soil.SoilType) {
		reasons = append(reasons, fmt.Sprintf("well-suited to %s soil", soil.SoilType))
	}
	if crop.WaterRequirement == "low" && weather.RainfallMM < 400 {
		reasons = append(reasons, "a low water requirement crop ideal for dry conditions")
	} else if crop.WaterRequirement == "high" && weather.RainfallMM > 800 {
		reasons = append(reasons, "able to use the abundant seasonal rainfall")
	}
	if crop.MSP2024 != nil {
		reasons = append(reasons, fmt.Sprintf("covered by MSP of ₹%.0f/quintal ensuring price security", *crop.MSP2024))
	}
	reasons = append(reasons, fmt.Sprintf("suitable for %s season", weather.Season))

	title := strings.ToUpper(name[:1]) + name[1:]
	return title + " is recommended because it is " + strings.Join(reasons, ", ")
}

// estimateYield adjusts database yield for soil health
func estimateYield(crop *knowledge.Crop, soil *SoilResult) YieldEstimate {
	factor := 0.7
	quality := "challenging"
	switch {
	case soil.HealthScore >= 8:
		factor, quality = 1.15, "optimal"
	case soil.HealthScore >= 6:
		factor, quality = 1.0, "good"
	case soil.HealthScore >= 4:
		factor, quality = 0.85, "moderate"
	}

	adjusted := crop.ExpectedYieldKgHa * factor
	return YieldEstimate{
		KgPerHa:          int(adjusted),
		Range:            fmt.Sprintf("%d-%d kg/ha", int(adjusted*0.85), int(adjusted*1.1)),
		QualityFactor:    quality,
		SoilHealthImpact: fmt.Sprintf("%+d%% from soil conditions", int(math.Round((factor-1)*100))),
	}
}

// cropEconomics computes cost, revenue, profit, and ROI for the farm
// size. Prices are per quintal so yield is divided by 100.
func cropEconomics(crop *knowledge.Crop, actx *Context) Economics {
	size := actx.FarmSizeHa
	if size <= 0 {
		size = 1.0
	}

	costs := CostBreakdown{
		Seeds:       crop.InputCosts.Seeds * size,
		Fertilizers: crop.InputCosts.Fertilizers * size,
		Irrigation:  crop.InputCosts.Irrigation * size,
		Pesticides:  crop.InputCosts.Pesticides * size,
		Total:       crop.InputCosts.Total() * size,
	}

	yieldKg := crop.ExpectedYieldKgHa * size
	quintals := yieldKg / 100

	revenue := MoneyEstimate{
		AtMarketMin: quintals * crop.MarketPriceRange.Min,
		AtMarketMax: quintals * crop.MarketPriceRange.Max,
	}
	profit := MoneyEstimate{
		AtMarketMin: revenue.AtMarketMin - costs.Total,
		AtMarketMax: revenue.AtMarketMax - costs.Total,
	}
	if crop.MSP2024 != nil {
		rev := quintals * *crop.MSP2024
		prof := rev - costs.Total
		revenue.AtMSP = &rev
		profit.AtMSP = &prof
	}

	roi := 0.0
	if costs.Total > 0 {
		roi = math.Round(profit.AtMarketMax/costs.Total*1000) / 10
	}

	prices := map[string]float64{
		"market_min": crop.MarketPriceRange.Min,
		"market_max": crop.MarketPriceRange.Max,
	}
	if crop.MSP2024 != nil {
		prices["msp"] = *crop.MSP2024
	}

	return Economics{
		InputCosts:      costs,
		ExpectedYieldKg: yieldKg,
		Revenue:         revenue,
		Profit:          profit,
		ROIPercent:      roi,
		MSP2024:         crop.MSP2024,
		PricePerQuintal: prices,
		FarmSizeHa:      size,
	}
}

// pickVarieties selects up to four varieties matched to the season's
// risks and the soil's capacity.
func pickVarieties(crop *knowledge.Crop, soil *SoilResult, weather *WeatherResult) []VarietyPick {
	var picks []VarietyPick
	seen := make(map[string]bool)

	add := func(trait, pickType, reason string, limit int) {
		count := 0
		for _, name := range crop.Varieties[trait] {
			if count >= limit {
				break
			}
			if seen[name] {
				continue
			}
			seen[name] = true
			picks = append(picks, VarietyPick{Name: name, Type: pickType, Reason: reason})
			count++
		}
	}

	droughtLevel := weather.Risks.Drought.Level
	if droughtLevel == RiskModerate || droughtLevel == RiskHigh {
		add(knowledge.TraitDroughtResistant, knowledge.TraitDroughtResistant,
			"Recommended due to low rainfall risk", 2)
	}

	frostLevel := weather.Risks.Frost.Level
	if frostLevel == RiskModerate || frostLevel == RiskHigh {
		trait := knowledge.TraitShortDuration
		if len(crop.Varieties[trait]) == 0 {
			trait = knowledge.TraitEarlyMaturing
		}
		add(trait, knowledge.TraitShortDuration, "Early harvest before frost", 2)
	}

	if soil.HealthScore >= 7 {
		add(knowledge.TraitHighYield, knowledge.TraitHighYield,
			"Good soil supports high-yield variety", 2)
	} else {
		trait := knowledge.TraitDiseaseResistant
		if len(crop.Varieties[trait]) == 0 {
			trait = knowledge.TraitDroughtResistant
		}
		add(trait, "resilient", "Better suited for challenging conditions", 2)
	}

	hasHighYield := false
	for _, pick := range picks {
		if pick.Type == knowledge.TraitHighYield {
			hasHighYield = true
			break
		}
	}
	if !hasHighYield {
		add(knowledge.TraitHighYield, knowledge.TraitHighYield, "High yield potential", 1)
	}

	if len(picks) > 4 {
		picks = picks[:4]
	}
	return picks
}

func schemeInfos(crop *knowledge.Crop) []SchemeInfo {
	var schemes []SchemeInfo
	for _, key := range crop.GovernmentSchemes {
		detail := knowledge.SchemeDetails(key, crop)
		schemes = append(schemes, SchemeInfo{
			Name:        detail.Name,
			Benefit:     detail.Benefit,
			Eligibility: detail.Eligibility,
		})
	}
	return schemes
}

// buildAlternatives suggests low-input seasonal crops plus soil-specific
// options not already recommended.
func buildAlternatives(soil *SoilResult, weather *WeatherResult, recs []CropRecommendation) []Alternative {
	recommended := make(map[string]bool)
	for _, rec := range recs {
		recommended[rec.Name] = true
	}

	var alternatives []Alternative
	for _, alt := range knowledge.LowInputAlternatives[weather.Season] {
		if !recommended[alt.Crop] {
			alternatives = append(alternatives, Alternative{
				Crop:   alt.Crop,
				Reason: alt.Reason,
				Type:   "low_input",
			})
		}
	}

	switch soil.SoilType {
	case "sandy":
		if !recommended["groundnut"] {
			alternatives = append(alternatives, Alternative{
				Crop:   "groundnut",
				Reason: "Ideal for sandy soil drainage",
				Type:   "soil_specific",
			})
		}
	case "clay":
		if !recommended["rice"] {
			alternatives = append(alternatives, Alternative{
				Crop:   "rice",
				Reason: "Clay soil water retention suits rice",
				Type:   "soil_specific",
			})
		}
	}

	if len(alternatives) > 5 {
		alternatives = alternatives[:5]
	}
	return alternatives
}

// assessCropRisks derives plan-level risks from soil constraints and
// weather risk channels. Market risk is always present.
func assessCropRisks(soil *SoilResult, weather *WeatherResult) []CropRisk {
	var risks []CropRisk

	for _, constraint := range soil.Constraints {
		lower := strings.ToLower(constraint)
		if strings.Contains(lower, "waterlogging") {
			risks = append(risks, CropRisk{
				Type:          "soil",
				Severity:      RiskModerate,
				Description:   "Waterlogging may damage crops needing drained soil",
				AffectedCrops: []string{"groundnut", "chickpea", "mustard"},
				Mitigation:    "Improve field drainage before sowing",
			})
		}
		if strings.Contains(lower, "low water retention") || strings.Contains(lower, "water holding") {
			risks = append(risks, CropRisk{
				Type:          "soil",
				Severity:      RiskModerate,
				Description:   "Low water retention stresses water-hungry crops",
				AffectedCrops: []string{"rice", "sugarcane"},
				Mitigation:    "Add organic matter and mulch to retain moisture",
			})
		}
	}

	if level := weather.Risks.Drought.Level; level == RiskModerate || level == RiskHigh {
		risks = append(risks, CropRisk{
			Type:          "weather",
			Severity:      level,
			Description:   "Drought conditions expected this season",
			AffectedCrops: []string{"rice", "sugarcane", "maize"},
			Mitigation:    "Plan irrigation backup and drought-resistant varieties",
		})
	}
	if level := weather.Risks.Flood.Level; level == RiskModerate || level == RiskHigh {
		risks = append(risks, CropRisk{
			Type:          "weather",
			Severity:      level,
			Description:   "Excess rainfall may flood low-lying fields",
			AffectedCrops: []string{"groundnut", "potato", "onion"},
			Mitigation:    "Prepare drainage channels and raised beds",
		})
	}
	if level := weather.Risks.DiseasePressure.Level; level == RiskModerate || level == RiskHigh {
		risks = append(risks, CropRisk{
			Type:          "disease",
			Severity:      level,
			Description:   "High humidity raises fungal disease pressure",
			AffectedCrops: []string{"rice", "potato", "tomato"},
			Mitigation:    "Plan preventive fungicide schedule",
		})
	}

	risks = append(risks, CropRisk{
		Type:        "market",
		Severity:    RiskLow,
		Description: "Price volatility possible - consider MSP-covered crops",
		Mitigation:  "Register with local procurement agency",
	})
	return risks
}

// buildPrecautions maps assessed risks to prioritized preventive
// actions, with a baseline every plan carries.
func buildPrecautions(risks []CropRisk) []Precaution {
	var precautions []Precaution
	seen := make(map[string]bool)

	addRiskType := func(riskType string, entries []Precaution) {
		for _, risk := range risks {
			matched := risk.Type == riskType ||
				(riskType == "drought" && risk.Type == "weather" && strings.Contains(strings.ToLower(risk.Description), "drought")) ||
				(riskType == "flood" && risk.Type == "weather" && strings.Contains(strings.ToLower(risk.Description), "flood"))
			if !matched {
				continue
			}
			for _, entry := range entries {
				if !seen[entry.Action] {
					seen[entry.Action] = true
					precautions = append(precautions, entry)
				}
			}
			break
		}
	}

	addRiskType("drought", []Precaution{
		{Action: "Install drip irrigation to conserve water", Priority: "high", Timing: "before_sowing"},
		{Action: "Choose drought-resistant varieties", Priority: "high", Timing: "seed_selection"},
		{Action: "Apply mulch to reduce evaporation", Priority: "medium", Timing: "after_germination"},
	})
	addRiskType("flood", []Precaution{
		{Action: "Prepare field drainage channels", Priority: "high", Timing: "before_sowing"},
		{Action: "Use raised bed planting", Priority: "medium", Timing: "field_preparation"},
		{Action: "Select flood-tolerant varieties where available", Priority: "medium", Timing: "seed_selection"},
	})
	addRiskType("disease", []Precaution{
		{Action: "Plan preventive fungicide spray schedule", Priority: "high", Timing: "before_flowering"},
		{Action: "Maintain wider plant spacing for airflow", Priority: "medium", Timing: "sowing"},
		{Action: "Remove and destroy infected plants promptly", Priority: "medium", Timing: "ongoing"},
	})
	addRiskType("soil", []Precaution{
		{Action: "Apply recommended soil amendments", Priority: "high", Timing: "before_sowing"},
		{Action: "Plan crop rotation for soil recovery", Priority: "medium", Timing: "season_planning"},
		{Action: "Increase organic matter with compost", Priority: "medium", Timing: "field_preparation"},
	})

	baseline := []Precaution{
		{Action: "Enroll in PMFBY crop insurance", Priority: "high", Timing: "before_sowing"},
		{Action: "Register for MSP procurement where applicable", Priority: "medium", Timing: "pre_harvest"},
		{Action: "Keep input purchase records for scheme claims", Priority: "low", Timing: "ongoing"},
	}
	for _, entry := range baseline {
		if !seen[entry.Action] {
			seen[entry.Action] = true
			precautions = append(precautions, entry)
		}
	}

	if len(precautions) > 10 {
		precautions = precautions[:10]
	}
	return precautions
}

// overallPlanConfidence blends agent confidences with the mean
// recommendation confidence.
func overallPlanConfidence(soil *SoilResult, weather *WeatherResult, recs []CropRecommendation) float64 {
	cropMean := 0.5
	if len(recs) > 0 {
		var total float64
		for _, rec := range recs {
			total += rec.Confidence
		}
		cropMean = total / float64(len(recs))
	}
	return round2(0.3*soil.HealthConfidence + 0.3*weather.SuitabilityConfidence + 0.4*cropMean)
}

// Package agents holds the three specialist analyzers — soil, weather,
// and crop planning — that the orchestrator fans out to. Each agent
// consumes the shared Context, returns a typed result, and never fails
// outright: internal errors produce a default-filled result with low
// confidence so downstream stages can proceed.
package agents

import "github.com/krishimitra/advisor/knowledge"

// Data freshness values carried on agent results
const (
	FreshnessUserProvided = "user_provided"
	FreshnessLive         = "live"
	FreshnessHistorical   = "historical"
	FreshnessEstimated    = "estimated"
	FreshnessDefault      = "default"
	FreshnessUnknown      = "unknown"
)

// Risk levels used across weather risks and crop risks
const (
	RiskNone     = "none"
	RiskLow      = "low"
	RiskModerate = "moderate"
	RiskHigh     = "high"
)

// Context is the shared per-request context propagated to every agent
type Context struct {
	Pincode             string  `json:"pincode,omitempty"`
	District            string  `json:"district,omitempty"`
	State               string  `json:"state,omitempty"`
	Language            string  `json:"language,omitempty"`
	FarmSizeHa          float64 `json:"farm_size_ha,omitempty"`
	IrrigationAvailable bool    `json:"irrigation_available"`
	PreviousCrop        string  `json:"previous_crop,omitempty"`
	Budget              float64 `json:"budget,omitempty"`
}

// LocationContext is the location snapshot an agent resolved with
type LocationContext struct {
	Pincode       string `json:"pincode,omitempty"`
	District      string `json:"district,omitempty"`
	State         string `json:"state,omitempty"`
	FallbackLevel string `json:"fallback_level"`
}

// NPKLevels is the macronutrient triple in kg/ha
type NPKLevels struct {
	Nitrogen   float64 `json:"nitrogen"`
	Phosphorus float64 `json:"phosphorus"`
	Potassium  float64 `json:"potassium"`
}

// AnyPositive reports whether at least one nutrient was measured
func (n NPKLevels) AnyPositive() bool {
	return n.Nitrogen > 0 || n.Phosphorus > 0 || n.Potassium > 0
}

// AllAbove reports whether every nutrient exceeds its threshold
func (n NPKLevels) AllAbove(nMin, pMin, kMin float64) bool {
	return n.Nitrogen > nMin && n.Phosphorus > pMin && n.Potassium > kMin
}

// Micronutrient is a measured or indicated micronutrient reading
type Micronutrient struct {
	Value  float64 `json:"value,omitempty"`
	Unit   string  `json:"unit,omitempty"`
	Status string  `json:"status,omitempty"`
	Source string  `json:"source"`
}

// SoilResult is the soil agent's output
type SoilResult struct {
	SoilType             string                        `json:"soil_type"`
	PHLevel              float64                       `json:"ph_level"`
	NPK                  NPKLevels                     `json:"npk_levels"`
	OrganicMatterPercent float64                       `json:"organic_matter_percent"`
	Micronutrients       map[string]Micronutrient      `json:"micronutrients"`
	Characteristics      knowledge.SoilCharacteristics `json:"soil_characteristics"`
	HealthScore          int                           `json:"health_score"`
	HealthConfidence     float64                       `json:"health_confidence"`
	Constraints          []string                      `json:"constraints"`
	Recommendations      []string                      `json:"recommendations"`
	DataSources          []string                      `json:"data_sources"`
	DataFreshness        string                        `json:"data_freshness"`
	Location             LocationContext               `json:"location_context"`
	Err                  string                        `json:"error,omitempty"`
}

// TemperatureRange is the forecast or historical temperature band
type TemperatureRange struct {
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	OptimalRange string  `json:"optimal_range"`
}

// Risk is one assessed weather risk channel
type Risk struct {
	Level   string `json:"level"`
	Details string `json:"details"`
}

// RiskAssessment covers the five weather risk channels plus a
// human-readable summary.
type RiskAssessment struct {
	Frost           Risk     `json:"frost"`
	Drought         Risk     `json:"drought"`
	Flood           Risk     `json:"flood"`
	HeatStress      Risk     `json:"heat_stress"`
	DiseasePressure Risk     `json:"disease_pressure"`
	Summary         []string `json:"summary"`
}

// IrrigationNeeds describes how much supplemental water a season needs
type IrrigationNeeds struct {
	Level     string  `json:"level"`
	Frequency string  `json:"frequency"`
	MMPerWeek float64 `json:"estimated_mm_per_week"`
	Notes     string  `json:"notes"`
}

// WeatherSuitableCrop is one weather-fit crop suggestion, not a
// recommendation — crop planning makes those.
type WeatherSuitableCrop struct {
	Crop               string   `json:"crop"`
	WeatherSuitability float64  `json:"weather_suitability"`
	Factors            []string `json:"factors"`
}

// WeatherResult is the weather agent's output
type WeatherResult struct {
	Season                string                `json:"season"`
	SeasonDates           map[string]string     `json:"season_dates"`
	Temperature           TemperatureRange      `json:"temperature_range"`
	RainfallMM            float64               `json:"rainfall_mm"`
	RainfallPattern       string                `json:"rainfall_pattern"`
	HumidityPercent       float64               `json:"humidity_percent"`
	SuitabilityScore      int                   `json:"suitability_score"`
	SuitabilityConfidence float64               `json:"suitability_confidence"`
	Risks                 RiskAssessment        `json:"risk_assessment"`
	RiskFactors           []string              `json:"risk_factors"`
	Irrigation            IrrigationNeeds       `json:"irrigation_needs"`
	OptimalCrops          []WeatherSuitableCrop `json:"optimal_crops"`
	DataSources           []string              `json:"data_sources"`
	DataFreshness         string                `json:"data_freshness"`
	Location              LocationContext       `json:"location_context"`
	Err                   string                `json:"error,omitempty"`
}

// YieldEstimate is the soil-adjusted yield projection for one crop
type YieldEstimate struct {
	KgPerHa          int    `json:"kg_per_ha"`
	Range            string `json:"range"`
	QualityFactor    string `json:"quality_factor"`
	SoilHealthImpact string `json:"soil_health_impact"`
}

// CostBreakdown is the per-input cultivation cost at the farm size
type CostBreakdown struct {
	Seeds       float64 `json:"seeds"`
	Fertilizers float64 `json:"fertilizers"`
	Irrigation  float64 `json:"irrigation"`
	Pesticides  float64 `json:"pesticides"`
	Total       float64 `json:"total"`
}

// MoneyEstimate holds an amount at market min, market max, and MSP.
// AtMSP is nil for crops without an MSP.
type MoneyEstimate struct {
	AtMarketMin float64  `json:"at_market_min"`
	AtMarketMax float64  `json:"at_market_max"`
	AtMSP       *float64 `json:"at_msp"`
}

// Economics is the full economic projection for one crop
type Economics struct {
	InputCosts      CostBreakdown      `json:"input_costs"`
	ExpectedYieldKg float64            `json:"expected_yield_kg"`
	Revenue         MoneyEstimate      `json:"revenue_estimate"`
	Profit          MoneyEstimate      `json:"profit_estimate"`
	ROIPercent      float64            `json:"roi_percent"`
	MSP2024         *float64           `json:"msp_2024"`
	PricePerQuintal map[string]float64 `json:"price_per_quintal"`
	FarmSizeHa      float64            `json:"farm_size_ha"`
}

// VarietyPick is one recommended variety with its selection reason
type VarietyPick struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// SchemeInfo mirrors knowledge.Scheme on the wire
type SchemeInfo struct {
	Name        string `json:"name"`
	Benefit     string `json:"benefit"`
	Eligibility string `json:"eligibility"`
}

// CropRecommendation is one ranked crop with its full supporting detail
type CropRecommendation struct {
	Name             string        `json:"name"`
	Confidence       float64       `json:"confidence"`
	Reasoning        string        `json:"reasoning"`
	ExpectedYield    YieldEstimate `json:"expected_yield"`
	DurationMonths   int           `json:"duration_months"`
	WaterRequirement string        `json:"water_requirement"`
	MSPAvailable     bool          `json:"msp_available"`
	Economics        Economics     `json:"economics"`
	Varieties        []VarietyPick `json:"varieties"`
	Schemes          []SchemeInfo  `json:"government_schemes"`
}

// Alternative is a fallback crop suggestion with its reason
type Alternative struct {
	Crop   string `json:"crop"`
	Reason string `json:"reason"`
	Type   string `json:"type"`
}

// CropRisk is a typed risk entry attached to the plan
type CropRisk struct {
	Type          string   `json:"type"` // soil, weather, disease, market
	Severity      string   `json:"severity"`
	Description   string   `json:"description"`
	AffectedCrops []string `json:"affected_crops,omitempty"`
	Mitigation    string   `json:"mitigation,omitempty"`
}

// Precaution is a prioritized preventive action
type Precaution struct {
	Action   string `json:"action"`
	Priority string `json:"priority"` // high, medium, low
	Timing   string `json:"timing"`
}

// PlanningFactors snapshots the inputs the plan was computed from
type PlanningFactors struct {
	SoilHealth          int     `json:"soil_health"`
	SoilConfidence      float64 `json:"soil_confidence"`
	WeatherSuitability  int     `json:"weather_suitability"`
	WeatherConfidence   float64 `json:"weather_confidence"`
	IrrigationAvailable bool    `json:"irrigation_available"`
}

// CropPlan is the crop-planning agent's output
type CropPlan struct {
	RecommendedCrops  []CropRecommendation `json:"recommended_crops"`
	Alternatives      []Alternative        `json:"alternatives"`
	Risks             []CropRisk           `json:"risks"`
	Precautions       []Precaution         `json:"precautions"`
	OverallConfidence float64              `json:"overall_confidence"`
	Season            string               `json:"season"`
	Factors           PlanningFactors      `json:"planning_factors"`
	DataSources       []string             `json:"data_sources"`
	Err               string               `json:"error,omitempty"`
}

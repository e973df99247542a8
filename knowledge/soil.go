package knowledge

// SoilProfile is a regional soil profile: dominant type, typical pH,
// fertility class, and organic matter percentage.
type SoilProfile struct {
	Type          string
	PH            float64
	Fertility     string
	OrganicMatter float64
}

// RegionalSoilProfiles maps state region keys to historical soil
// profiles. The "default" entry covers regions without data.
var RegionalSoilProfiles = map[string]SoilProfile{
	"punjab":         {Type: "loam", PH: 7.8, Fertility: "high", OrganicMatter: 0.6},
	"maharashtra":    {Type: "black_cotton", PH: 7.5, Fertility: "medium", OrganicMatter: 0.5},
	"rajasthan":      {Type: "sandy", PH: 8.2, Fertility: "low", OrganicMatter: 0.3},
	"kerala":         {Type: "laterite", PH: 5.5, Fertility: "medium", OrganicMatter: 0.7},
	"west_bengal":    {Type: "alluvial", PH: 6.8, Fertility: "high", OrganicMatter: 0.8},
	"tamil_nadu":     {Type: "red", PH: 6.5, Fertility: "medium", OrganicMatter: 0.5},
	"karnataka":      {Type: "red", PH: 6.8, Fertility: "medium", OrganicMatter: 0.5},
	"uttar_pradesh":  {Type: "alluvial", PH: 7.2, Fertility: "high", OrganicMatter: 0.6},
	"madhya_pradesh": {Type: "black_cotton", PH: 7.6, Fertility: "medium", OrganicMatter: 0.5},
	"gujarat":        {Type: "black_cotton", PH: 7.8, Fertility: "medium", OrganicMatter: 0.4},
	"default":        {Type: "loam", PH: 7.0, Fertility: "medium", OrganicMatter: 0.5},
}

// SoilCharacteristics describes the physical behavior of a soil type
type SoilCharacteristics struct {
	Drainage          string `json:"drainage"`
	WaterRetention    string `json:"water_retention"`
	Workability       string `json:"workability"`
	NutrientRetention string `json:"nutrient_retention"`
}

// SoilTypeCharacteristics maps soil types to their physical behavior
var SoilTypeCharacteristics = map[string]SoilCharacteristics{
	"clay":         {Drainage: "poor", WaterRetention: "high", Workability: "difficult", NutrientRetention: "high"},
	"sandy":        {Drainage: "excellent", WaterRetention: "low", Workability: "easy", NutrientRetention: "low"},
	"loam":         {Drainage: "good", WaterRetention: "moderate", Workability: "easy", NutrientRetention: "good"},
	"silt":         {Drainage: "moderate", WaterRetention: "high", Workability: "moderate", NutrientRetention: "good"},
	"peat":         {Drainage: "poor", WaterRetention: "very_high", Workability: "moderate", NutrientRetention: "high"},
	"chalk":        {Drainage: "excellent", WaterRetention: "low", Workability: "moderate", NutrientRetention: "low"},
	"black_cotton": {Drainage: "poor", WaterRetention: "high", Workability: "difficult", NutrientRetention: "high"},
	"red":          {Drainage: "good", WaterRetention: "moderate", Workability: "moderate", NutrientRetention: "moderate"},
	"laterite":     {Drainage: "excellent", WaterRetention: "low", Workability: "easy", NutrientRetention: "low"},
	"alluvial":     {Drainage: "good", WaterRetention: "moderate", Workability: "easy", NutrientRetention: "high"},
}

// SoilTypeKeywords maps canonical soil types to the phrases farmers use
// for them in queries. Order of map iteration does not matter because a
// query mentioning multiple types picks the first match in SoilTypeOrder.
var SoilTypeKeywords = map[string][]string{
	"clay":         {"clay", "clayey", "heavy soil"},
	"sandy":        {"sandy", "sand", "light soil"},
	"loam":         {"loam", "loamy"},
	"silt":         {"silt", "silty"},
	"peat":         {"peat", "peaty", "organic soil"},
	"chalk":        {"chalk", "chalky", "calcareous"},
	"black_cotton": {"black cotton", "black soil", "regur", "vertisol"},
	"red":          {"red soil", "red earth", "alfisol"},
	"laterite":     {"laterite", "lateritic"},
	"alluvial":     {"alluvial", "river soil", "doab"},
}

// SoilTypeOrder fixes the matching order for soil type extraction so
// results are deterministic across runs.
var SoilTypeOrder = []string{
	"clay", "sandy", "loam", "silt", "peat",
	"chalk", "black_cotton", "red", "laterite", "alluvial",
}

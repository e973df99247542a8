package knowledge

// Variety trait keys used in the crop database. Traits are arbitrary
// strings; these constants cover the ones the planner reasons about.
const (
	TraitHighYield        = "high_yield"
	TraitDroughtResistant = "drought_resistant"
	TraitShortDuration    = "short_duration"
	TraitDiseaseResistant = "disease_resistant"
	TraitEarlyMaturing    = "early_maturing"
	TraitPestResistant    = "pest_resistant"
	TraitProcessing       = "processing"
	TraitHighOil          = "high_oil"
	TraitHighSugar        = "high_sugar"
)

// InputCosts holds per-hectare cultivation costs in rupees
type InputCosts struct {
	Seeds       float64
	Fertilizers float64
	Irrigation  float64
	Pesticides  float64
}

// Total returns the summed per-hectare input cost
func (c InputCosts) Total() float64 {
	return c.Seeds + c.Fertilizers + c.Irrigation + c.Pesticides
}

// PriceRange holds a market price band in rupees per quintal
type PriceRange struct {
	Min float64
	Max float64
}

// Crop describes one entry of the crop database
type Crop struct {
	Varieties         map[string][]string
	InputCosts        InputCosts
	ExpectedYieldKgHa float64
	MarketPriceRange  PriceRange
	MSP2024           *float64 // rupees per quintal; nil when no MSP exists
	SuitableSoils     []string
	WaterRequirement  string // low, moderate, high, very_high
	GovernmentSchemes []string
	DurationMonths    int
}

// SuitsSoil reports whether the crop's suitable-soil set contains the type
func (c *Crop) SuitsSoil(soilType string) bool {
	for _, s := range c.SuitableSoils {
		if s == soilType {
			return true
		}
	}
	return false
}

func msp(v float64) *float64 { return &v }

// Crops is the static crop database: varieties by trait, economics,
// soil and water requirements, and applicable government schemes.
var Crops = map[string]*Crop{
	"rice": {
		Varieties: map[string][]string{
			TraitHighYield:        {"Pusa Basmati 1121", "IR-64", "Swarna"},
			TraitDroughtResistant: {"Sahbhagi Dhan", "DRR 44"},
			TraitShortDuration:    {"Pusa 44", "PR 126"},
		},
		InputCosts:        InputCosts{Seeds: 1500, Fertilizers: 8000, Irrigation: 15000, Pesticides: 3000},
		ExpectedYieldKgHa: 4500,
		MarketPriceRange:  PriceRange{Min: 2000, Max: 2200},
		MSP2024:           msp(2300),
		SuitableSoils:     []string{"clay", "loam", "alluvial"},
		WaterRequirement:  "high",
		GovernmentSchemes: []string{"PM-KISAN", "PMFBY", "Paddy Procurement at MSP"},
		DurationMonths:    4,
	},
	"wheat": {
		Varieties: map[string][]string{
			TraitHighYield:        {"HD 3086", "PBW 725", "WH 1105"},
			TraitDroughtResistant: {"HD 2987", "Raj 4120"},
			TraitDiseaseResistant: {"HD 3226", "DBW 187"},
		},
		InputCosts:        InputCosts{Seeds: 2000, Fertilizers: 6000, Irrigation: 8000, Pesticides: 2000},
		ExpectedYieldKgHa: 4000,
		MarketPriceRange:  PriceRange{Min: 2100, Max: 2400},
		MSP2024:           msp(2275),
		SuitableSoils:     []string{"loam", "clay", "alluvial"},
		WaterRequirement:  "moderate",
		GovernmentSchemes: []string{"PM-KISAN", "PMFBY", "Wheat Procurement"},
		DurationMonths:    5,
	},
	"maize": {
		Varieties: map[string][]string{
			TraitHighYield:        {"HQPM 1", "Vivek QPM 9", "DHM 117"},
			TraitDroughtResistant: {"PEHM 5", "Vivek 27"},
			TraitShortDuration:    {"HQPM 5", "Vivek 21"},
		},
		InputCosts:        InputCosts{Seeds: 2500, Fertilizers: 5000, Irrigation: 6000, Pesticides: 2500},
		ExpectedYieldKgHa: 5000,
		MarketPriceRange:  PriceRange{Min: 1800, Max: 2100},
		MSP2024:           msp(2090),
		SuitableSoils:     []string{"loam", "sandy", "alluvial"},
		WaterRequirement:  "moderate",
		GovernmentSchemes: []string{"PM-KISAN", "PMFBY", "e-NAM"},
		DurationMonths:    4,
	},
	"cotton": {
		Varieties: map[string][]string{
			TraitHighYield:        {"RCH 2 BG II", "Bunny BG II", "Mallika BG II"},
			TraitDroughtResistant: {"CICR 2", "Suraj"},
			TraitPestResistant:    {"Bt Cotton varieties"},
		},
		InputCosts:        InputCosts{Seeds: 4000, Fertilizers: 8000, Irrigation: 10000, Pesticides: 6000},
		ExpectedYieldKgHa: 2000,
		MarketPriceRange:  PriceRange{Min: 6000, Max: 7000},
		MSP2024:           msp(7020),
		SuitableSoils:     []string{"black_cotton", "loam"},
		WaterRequirement:  "moderate",
		GovernmentSchemes: []string{"PM-KISAN", "PMFBY", "Cotton Corporation of India Procurement"},
		DurationMonths:    6,
	},
	"soybean": {
		Varieties: map[string][]string{
			TraitHighYield:        {"JS 9560", "JS 20-34", "NRC 142"},
			TraitDroughtResistant: {"NRC 86", "JS 335"},
			TraitDiseaseResistant: {"MACS 1407", "NRC 150"},
		},
		InputCosts:        InputCosts{Seeds: 3000, Fertilizers: 4000, Irrigation: 4000, Pesticides: 2000},
		ExpectedYieldKgHa: 2200,
		MarketPriceRange:  PriceRange{Min: 4000, Max: 4500},
		MSP2024:           msp(4600),
		SuitableSoils:     []string{"loam", "black_cotton", "alluvial"},
		WaterRequirement:  "moderate",
		GovernmentSchemes: []string{"PM-KISAN", "PMFBY", "NAFED Procurement"},
		DurationMonths:    4,
	},
	"groundnut": {
		Varieties: map[string][]string{
			TraitHighYield:        {"TG 37A", "TAG 24", "GPBD 4"},
			TraitDroughtResistant: {"ICGV 91114", "TG 26"},
			TraitHighOil:          {"Girnar 3", "GJG 9"},
		},
		InputCosts:        InputCosts{Seeds: 4000, Fertilizers: 5000, Irrigation: 5000, Pesticides: 2000},
		ExpectedYieldKgHa: 2000,
		MarketPriceRange:  PriceRange{Min: 5000, Max: 5800},
		MSP2024:           msp(6377),
		SuitableSoils:     []string{"sandy", "loam", "red"},
		WaterRequirement:  "low",
		GovernmentSchemes: []string{"PM-KISAN", "PMFBY", "NAFED Procurement"},
		DurationMonths:    4,
	},
	"chickpea": {
		Varieties: map[string][]string{
			TraitHighYield:        {"JG 14", "Vijay", "JAKI 9218"},
			TraitDroughtResistant: {"JG 11", "Digvijay"},
			TraitDiseaseResistant: {"NBeG 47", "GNG 2144"},
		},
		InputCosts:        InputCosts{Seeds: 3000, Fertilizers: 3000, Irrigation: 2000, Pesticides: 1500},
		ExpectedYieldKgHa: 1800,
		MarketPriceRange:  PriceRange{Min: 4500, Max: 5500},
		MSP2024:           msp(5440),
		SuitableSoils:     []string{"loam", "black_cotton", "clay"},
		WaterRequirement:  "low",
		GovernmentSchemes: []string{"PM-KISAN", "PMFBY", "Pulses Procurement"},
		DurationMonths:    4,
	},
	"mustard": {
		Varieties: map[string][]string{
			TraitHighYield:        {"Pusa Bold", "RH 749", "NRCDR 601"},
			TraitDroughtResistant: {"NRCHB 101", "Kranti"},
			TraitEarlyMaturing:    {"Pusa Vijay", "RGN 229"},
		},
		InputCosts:        InputCosts{Seeds: 1000, Fertilizers: 4000, Irrigation: 3000, Pesticides: 1500},
		ExpectedYieldKgHa: 1500,
		MarketPriceRange:  PriceRange{Min: 5000, Max: 5800},
		MSP2024:           msp(5650),
		SuitableSoils:     []string{"loam", "sandy", "alluvial"},
		WaterRequirement:  "low",
		GovernmentSchemes: []string{"PM-KISAN", "PMFBY", "NAFED Procurement"},
		DurationMonths:    4,
	},
	"sugarcane": {
		Varieties: map[string][]string{
			TraitHighYield:        {"Co 0238", "CoJ 85", "CoLK 94184"},
			TraitDroughtResistant: {"Co 94012", "CoS 97261"},
			TraitHighSugar:        {"Co 0118", "CoM 0265"},
		},
		InputCosts:        InputCosts{Seeds: 8000, Fertilizers: 12000, Irrigation: 20000, Pesticides: 4000},
		ExpectedYieldKgHa: 70000,
		MarketPriceRange:  PriceRange{Min: 300, Max: 400},
		MSP2024:           msp(315), // Fair & Remunerative Price per quintal
		SuitableSoils:     []string{"loam", "clay", "alluvial", "black_cotton"},
		WaterRequirement:  "very_high",
		GovernmentSchemes: []string{"PM-KISAN", "Sugar Development Fund"},
		DurationMonths:    12,
	},
	"potato": {
		Varieties: map[string][]string{
			TraitHighYield:        {"Kufri Jyoti", "Kufri Pukhraj", "Kufri Badshah"},
			TraitProcessing:       {"Kufri Chipsona 1", "Kufri Frysona"},
			TraitDiseaseResistant: {"Kufri Khyati", "Kufri Himalini"},
		},
		InputCosts:        InputCosts{Seeds: 25000, Fertilizers: 8000, Irrigation: 6000, Pesticides: 4000},
		ExpectedYieldKgHa: 25000,
		MarketPriceRange:  PriceRange{Min: 800, Max: 1500},
		MSP2024:           nil, // no MSP for potato
		SuitableSoils:     []string{"loam", "sandy", "alluvial"},
		WaterRequirement:  "moderate",
		GovernmentSchemes: []string{"PM-KISAN", "PMFBY", "Cold Storage Subsidy"},
		DurationMonths:    4,
	},
}

// CropDuration returns the growing duration in months for a crop,
// including crops outside the main database, defaulting to 4.
func CropDuration(crop string) int {
	if c, ok := Crops[crop]; ok && c.DurationMonths > 0 {
		return c.DurationMonths
	}
	switch crop {
	case "barley":
		return 5
	case "millet":
		return 3
	case "sorghum":
		return 4
	}
	return 4
}

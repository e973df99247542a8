package knowledge

// SeasonProfile holds historical weather averages for a region-season
type SeasonProfile struct {
	TempMin   float64
	TempMax   float64
	Rainfall  float64 // mm over the season
	Humidity  float64
	FrostRisk string // none, low, moderate, high
}

// RegionalWeatherProfiles maps state region keys to per-season
// historical averages. The "default" entry covers unknown regions.
var RegionalWeatherProfiles = map[string]map[string]SeasonProfile{
	"punjab": {
		"kharif": {TempMin: 25, TempMax: 38, Rainfall: 650, Humidity: 70, FrostRisk: "none"},
		"rabi":   {TempMin: 5, TempMax: 22, Rainfall: 80, Humidity: 55, FrostRisk: "moderate"},
		"zaid":   {TempMin: 22, TempMax: 42, Rainfall: 50, Humidity: 45, FrostRisk: "none"},
	},
	"maharashtra": {
		"kharif": {TempMin: 22, TempMax: 32, Rainfall: 1200, Humidity: 80, FrostRisk: "none"},
		"rabi":   {TempMin: 12, TempMax: 28, Rainfall: 50, Humidity: 45, FrostRisk: "low"},
		"zaid":   {TempMin: 20, TempMax: 38, Rainfall: 100, Humidity: 50, FrostRisk: "none"},
	},
	"rajasthan": {
		"kharif": {TempMin: 26, TempMax: 40, Rainfall: 350, Humidity: 55, FrostRisk: "none"},
		"rabi":   {TempMin: 8, TempMax: 25, Rainfall: 20, Humidity: 35, FrostRisk: "moderate"},
		"zaid":   {TempMin: 25, TempMax: 45, Rainfall: 30, Humidity: 30, FrostRisk: "none"},
	},
	"kerala": {
		"kharif": {TempMin: 23, TempMax: 30, Rainfall: 2500, Humidity: 90, FrostRisk: "none"},
		"rabi":   {TempMin: 22, TempMax: 32, Rainfall: 200, Humidity: 65, FrostRisk: "none"},
		"zaid":   {TempMin: 25, TempMax: 35, Rainfall: 400, Humidity: 75, FrostRisk: "none"},
	},
	"west_bengal": {
		"kharif": {TempMin: 24, TempMax: 34, Rainfall: 1400, Humidity: 85, FrostRisk: "none"},
		"rabi":   {TempMin: 10, TempMax: 25, Rainfall: 50, Humidity: 50, FrostRisk: "low"},
		"zaid":   {TempMin: 22, TempMax: 38, Rainfall: 200, Humidity: 70, FrostRisk: "none"},
	},
	"uttar_pradesh": {
		"kharif": {TempMin: 25, TempMax: 36, Rainfall: 900, Humidity: 75, FrostRisk: "none"},
		"rabi":   {TempMin: 6, TempMax: 22, Rainfall: 60, Humidity: 50, FrostRisk: "moderate"},
		"zaid":   {TempMin: 22, TempMax: 42, Rainfall: 80, Humidity: 45, FrostRisk: "none"},
	},
	"tamil_nadu": {
		"kharif": {TempMin: 24, TempMax: 35, Rainfall: 400, Humidity: 70, FrostRisk: "none"},
		"rabi":   {TempMin: 20, TempMax: 30, Rainfall: 600, Humidity: 75, FrostRisk: "none"},
		"zaid":   {TempMin: 26, TempMax: 38, Rainfall: 100, Humidity: 60, FrostRisk: "none"},
	},
	"karnataka": {
		"kharif": {TempMin: 20, TempMax: 30, Rainfall: 900, Humidity: 80, FrostRisk: "none"},
		"rabi":   {TempMin: 15, TempMax: 28, Rainfall: 100, Humidity: 50, FrostRisk: "low"},
		"zaid":   {TempMin: 22, TempMax: 36, Rainfall: 150, Humidity: 55, FrostRisk: "none"},
	},
	"madhya_pradesh": {
		"kharif": {TempMin: 24, TempMax: 35, Rainfall: 1100, Humidity: 75, FrostRisk: "none"},
		"rabi":   {TempMin: 8, TempMax: 26, Rainfall: 40, Humidity: 45, FrostRisk: "moderate"},
		"zaid":   {TempMin: 24, TempMax: 42, Rainfall: 60, Humidity: 40, FrostRisk: "none"},
	},
	"gujarat": {
		"kharif": {TempMin: 25, TempMax: 35, Rainfall: 700, Humidity: 75, FrostRisk: "none"},
		"rabi":   {TempMin: 12, TempMax: 28, Rainfall: 30, Humidity: 40, FrostRisk: "low"},
		"zaid":   {TempMin: 26, TempMax: 42, Rainfall: 50, Humidity: 45, FrostRisk: "none"},
	},
	"default": {
		"kharif": {TempMin: 22, TempMax: 35, Rainfall: 800, Humidity: 75, FrostRisk: "none"},
		"rabi":   {TempMin: 10, TempMax: 25, Rainfall: 50, Humidity: 45, FrostRisk: "low"},
		"zaid":   {TempMin: 25, TempMax: 40, Rainfall: 200, Humidity: 55, FrostRisk: "none"},
	},
}

// CropWeatherRequirement holds the weather envelope a crop grows well in
type CropWeatherRequirement struct {
	TempMin       float64
	TempMax       float64
	RainfallMin   float64
	HumidityMin   float64
	FrostTolerant bool
}

// CropWeatherRequirements covers the crop database plus hardy crops
// that only appear as weather-suitable suggestions.
var CropWeatherRequirements = map[string]CropWeatherRequirement{
	"rice":      {TempMin: 20, TempMax: 35, RainfallMin: 1000, HumidityMin: 70, FrostTolerant: false},
	"wheat":     {TempMin: 10, TempMax: 25, RainfallMin: 50, HumidityMin: 40, FrostTolerant: true},
	"maize":     {TempMin: 18, TempMax: 32, RainfallMin: 500, HumidityMin: 50, FrostTolerant: false},
	"cotton":    {TempMin: 20, TempMax: 35, RainfallMin: 600, HumidityMin: 60, FrostTolerant: false},
	"sugarcane": {TempMin: 20, TempMax: 35, RainfallMin: 1200, HumidityMin: 70, FrostTolerant: false},
	"soybean":   {TempMin: 18, TempMax: 30, RainfallMin: 500, HumidityMin: 60, FrostTolerant: false},
	"groundnut": {TempMin: 20, TempMax: 32, RainfallMin: 400, HumidityMin: 50, FrostTolerant: false},
	"chickpea":  {TempMin: 10, TempMax: 25, RainfallMin: 40, HumidityMin: 35, FrostTolerant: true},
	"mustard":   {TempMin: 10, TempMax: 25, RainfallMin: 30, HumidityMin: 40, FrostTolerant: true},
	"barley":    {TempMin: 8, TempMax: 22, RainfallMin: 40, HumidityMin: 35, FrostTolerant: true},
	"millet":    {TempMin: 20, TempMax: 38, RainfallMin: 300, HumidityMin: 40, FrostTolerant: false},
	"sorghum":   {TempMin: 20, TempMax: 38, RainfallMin: 350, HumidityMin: 45, FrostTolerant: false},
	"potato":    {TempMin: 15, TempMax: 25, RainfallMin: 100, HumidityMin: 60, FrostTolerant: false},
	"onion":     {TempMin: 15, TempMax: 30, RainfallMin: 50, HumidityMin: 50, FrostTolerant: false},
}

// CropWeatherOrder fixes the iteration order for weather suitability
// scoring so tied crops rank deterministically.
var CropWeatherOrder = []string{
	"rice", "wheat", "maize", "cotton", "sugarcane", "soybean", "groundnut",
	"chickpea", "mustard", "barley", "millet", "sorghum", "potato", "onion",
}

// SeasonDates describes the calendar window of a growing season
type SeasonDates struct {
	Start        string `json:"start"`
	End          string `json:"end"`
	SowingWindow string `json:"sowing_window"`
}

// SeasonCalendar maps seasons to their typical dates. Unknown seasons
// fall back to kharif.
var SeasonCalendar = map[string]SeasonDates{
	"kharif": {Start: "June 15", End: "October 15", SowingWindow: "June-July"},
	"rabi":   {Start: "November 1", End: "March 31", SowingWindow: "October-November"},
	"zaid":   {Start: "March 15", End: "June 15", SowingWindow: "March-April"},
}

// SeasonKeywords maps seasons to the words that indicate them in a query
var SeasonKeywords = map[string][]string{
	"kharif": {"kharif", "monsoon", "rainy season", "june", "july", "august", "september"},
	"rabi":   {"rabi", "winter", "cold season", "november", "december", "january", "february"},
	"zaid":   {"zaid", "summer", "hot season", "march", "april", "may"},
}

// SeasonOrder fixes the matching order for season extraction
var SeasonOrder = []string{"kharif", "rabi", "zaid"}

// SeasonForMonth returns the growing season active in the given month
// (1-12): June-October kharif, November-March rabi, otherwise zaid.
func SeasonForMonth(month int) string {
	switch {
	case month >= 6 && month <= 10:
		return "kharif"
	case month >= 11 || month <= 3:
		return "rabi"
	default:
		return "zaid"
	}
}

// LowInputAlternative is a hardy, low-cost crop suggested alongside the
// main recommendations.
type LowInputAlternative struct {
	Crop   string
	Reason string
}

// LowInputAlternatives lists season-appropriate alternatives with lower
// input requirements than the main database crops.
var LowInputAlternatives = map[string][]LowInputAlternative{
	"kharif": {
		{Crop: "millet", Reason: "Low water requirement, drought resistant"},
		{Crop: "sorghum", Reason: "Hardy crop, good fodder value"},
		{Crop: "pigeonpea", Reason: "Nitrogen fixing, low input needs"},
	},
	"rabi": {
		{Crop: "lentil", Reason: "Short duration, nitrogen fixing"},
		{Crop: "pea", Reason: "Low water requirement, good market"},
		{Crop: "linseed", Reason: "Drought tolerant, dual purpose (seed + oil)"},
	},
	"zaid": {
		{Crop: "cucumber", Reason: "Short duration, good market price"},
		{Crop: "watermelon", Reason: "Heat tolerant, high value"},
		{Crop: "moong", Reason: "Short duration, nitrogen fixing"},
	},
}

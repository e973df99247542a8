package knowledge

// Intent names recognized by the query router
const (
	IntentSoilAnalysis    = "soil_analysis"
	IntentWeatherAnalysis = "weather_analysis"
	IntentCropPlanning    = "crop_planning"
	IntentMarketInfo      = "market_info"
	IntentPestDisease     = "pest_disease"
)

// IntentPattern holds the keywords and weight of one intent class
type IntentPattern struct {
	Keywords []string
	Weight   float64
}

// IntentPatterns maps intent names to their keyword patterns. Crop
// planning carries a higher weight since it is usually the farmer's
// ultimate goal.
var IntentPatterns = map[string]IntentPattern{
	IntentSoilAnalysis: {
		Keywords: []string{
			"soil", "ph", "clay", "sandy", "loam", "nitrogen", "phosphorus",
			"potassium", "npk", "fertile", "fertility", "land", "ground",
			"earth", "mitti", "organic matter", "micronutrient",
		},
		Weight: 1.0,
	},
	IntentWeatherAnalysis: {
		Keywords: []string{
			"weather", "rain", "rainfall", "season", "kharif", "rabi", "zaid",
			"temperature", "humidity", "monsoon", "winter", "summer", "climate",
			"frost", "drought", "flood", "irrigation",
		},
		Weight: 1.0,
	},
	IntentCropPlanning: {
		Keywords: []string{
			"crop", "plant", "grow", "cultivate", "farm", "recommend", "suggest",
			"what to plant", "which crop", "best crop", "sow", "harvest", "yield",
			"variety", "seed", "profit", "income", "msp", "price",
		},
		Weight: 1.2,
	},
	IntentMarketInfo: {
		Keywords: []string{
			"price", "msp", "market", "sell", "income", "profit", "cost",
			"mandi", "procurement", "subsidy", "scheme", "loan",
		},
		Weight: 0.8,
	},
	IntentPestDisease: {
		Keywords: []string{
			"pest", "disease", "insect", "fungus", "virus", "blight", "rot",
			"spray", "pesticide", "medicine", "treatment",
		},
		Weight: 0.9,
	},
}

// IntentOrder fixes the evaluation order for intent scoring
var IntentOrder = []string{
	IntentSoilAnalysis,
	IntentWeatherAnalysis,
	IntentCropPlanning,
	IntentMarketInfo,
	IntentPestDisease,
}

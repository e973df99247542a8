package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/krishimitra/advisor/core"
	"github.com/krishimitra/advisor/knowledge"
	"github.com/krishimitra/advisor/learning"
	"github.com/krishimitra/advisor/location"
	"github.com/krishimitra/advisor/weatherapi"
)

// WeatherAgent determines the growing season, blends live forecast data
// over regional historical averages, and scores weather suitability and
// risks. Live observations feed the learning store.
type WeatherAgent struct {
	resolver *location.Resolver
	fetcher  *weatherapi.Client
	store    learning.Store
	logger   core.Logger
	now      func() time.Time
}

// WeatherAgentOptions configures a WeatherAgent
type WeatherAgentOptions struct {
	Resolver *location.Resolver
	Fetcher  *weatherapi.Client
	Store    learning.Store
	Logger   core.Logger
	Now      func() time.Time
}

// NewWeatherAgent creates a weather agent. A nil fetcher disables live
// data, a nil resolver disables coordinate resolution.
func NewWeatherAgent(opts WeatherAgentOptions) *WeatherAgent {
	store := opts.Store
	if store == nil {
		store = learning.Unavailable{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &WeatherAgent{
		resolver: opts.Resolver,
		fetcher:  opts.Fetcher,
		store:    store,
		logger:   logger,
		now:      now,
	}
}

// weatherData is the blended view suitability scoring works from
type weatherData struct {
	tempMin       float64
	tempMax       float64
	rainfall      float64
	humidity      float64
	frostRisk     string
	dataSources   []string
	dataFreshness string
}

// Analyze produces a WeatherResult for the query. It never returns nil;
// internal failures yield a default-filled result with minimal
// confidence.
func (a *WeatherAgent) Analyze(ctx context.Context, query string, actx *Context) (result *WeatherResult) {
	if actx == nil {
		actx = &Context{IrrigationAvailable: true}
	}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Weather agent panic", map[string]interface{}{
				"panic": fmt.Sprintf("%v", r),
			})
			result = defaultWeatherResult(fmt.Sprintf("weather analysis failed: %v", r))
		}
	}()

	season := a.extractSeason(query)
	a.logger.Info("Weather agent analyzing", map[string]interface{}{
		"season":   season,
		"pincode":  actx.Pincode,
		"district": actx.District,
		"state":    actx.State,
	})

	hint := location.Hint{Pincode: actx.Pincode, District: actx.District, State: actx.State}
	var resolution location.Resolution
	if a.resolver != nil {
		resolution, hint = a.resolver.Resolve(ctx, hint)
	} else {
		resolution = location.Resolution{
			Latitude:      knowledge.DefaultCoordinates.Latitude,
			Longitude:     knowledge.DefaultCoordinates.Longitude,
			FallbackLevel: location.LevelDefault,
			Confidence:    0.3,
			Source:        "default_india",
		}
	}

	region, regionLevel := weatherRegion(hint.State)
	data := a.assembleWeather(ctx, season, region, regionLevel, resolution)

	score, confidence := scoreWeatherSuitability(data, season)
	risks := assessWeatherRisks(data, season)
	irrigation := irrigationNeeds(data, season)
	optimalCrops := weatherSuitableCrops(data)

	dates, ok := knowledge.SeasonCalendar[season]
	if !ok {
		dates = knowledge.SeasonCalendar["kharif"]
	}

	result = &WeatherResult{
		Season: season,
		SeasonDates: map[string]string{
			"start":         dates.Start,
			"end":           dates.End,
			"sowing_window": dates.SowingWindow,
		},
		Temperature: TemperatureRange{
			Min:          data.tempMin,
			Max:          data.tempMax,
			OptimalRange: fmt.Sprintf("%g-%g°C", data.tempMin+2, data.tempMax-5),
		},
		RainfallMM:            data.rainfall,
		RainfallPattern:       rainfallPattern(data.rainfall),
		HumidityPercent:       data.humidity,
		SuitabilityScore:      score,
		SuitabilityConfidence: confidence,
		Risks:                 risks,
		RiskFactors:           risks.Summary,
		Irrigation:            irrigation,
		OptimalCrops:          optimalCrops,
		DataSources:           data.dataSources,
		DataFreshness:         data.dataFreshness,
		Location: LocationContext{
			Pincode:       hint.Pincode,
			District:      hint.District,
			State:         hint.State,
			FallbackLevel: resolution.FallbackLevel,
		},
	}

	if data.dataFreshness == FreshnessLive && knowledge.RegionKey(hint.State) != "" {
		if a.store.SaveWeatherObservation(ctx, knowledge.RegionKey(hint.State), season,
			data.tempMin, data.tempMax, data.rainfall, data.humidity, "open_meteo_live") {
			a.logger.Info("Saved live weather observation", map[string]interface{}{
				"region": knowledge.RegionKey(hint.State),
				"season": season,
			})
		}
	}

	a.logger.Info("Weather agent response", map[string]interface{}{
		"season":      season,
		"suitability": score,
		"confidence":  confidence,
		"freshness":   data.dataFreshness,
	})
	return result
}

// defaultWeatherResult is the degraded output used when analysis fails
func defaultWeatherResult(errMsg string) *WeatherResult {
	return &WeatherResult{
		Season:                "unknown",
		SeasonDates:           map[string]string{},
		Temperature:           TemperatureRange{Min: 20, Max: 35, OptimalRange: "22-30°C"},
		RainfallMM:            500,
		RainfallPattern:       "moderate",
		HumidityPercent:       60,
		SuitabilityScore:      5,
		SuitabilityConfidence: 0.1,
		Risks: RiskAssessment{
			Frost:           Risk{Level: RiskNone},
			Drought:         Risk{Level: RiskNone},
			Flood:           Risk{Level: RiskNone},
			HeatStress:      Risk{Level: RiskNone},
			DiseasePressure: Risk{Level: RiskNone},
			Summary:         []string{"Weather analysis unavailable"},
		},
		RiskFactors:   []string{"Weather analysis unavailable"},
		Irrigation:    IrrigationNeeds{Level: "moderate", Frequency: "weekly", Notes: "Default guidance - weather data unavailable"},
		DataSources:   []string{"error_fallback"},
		DataFreshness: FreshnessUnknown,
		Location:      LocationContext{FallbackLevel: "error"},
		Err:           errMsg,
	}
}

// extractSeason reads the season from query keywords, falling back to
// the calendar month.
func (a *WeatherAgent) extractSeason(query string) string {
	queryLower := strings.ToLower(query)
	for _, season := range knowledge.SeasonOrder {
		for _, kw := range knowledge.SeasonKeywords[season] {
			if strings.Contains(queryLower, kw) {
				return season
			}
		}
	}
	return knowledge.SeasonForMonth(int(a.now().Month()))
}

// weatherRegion maps a state to the historical profile region key
func weatherRegion(state string) (string, string) {
	key := knowledge.RegionKey(state)
	if _, ok := knowledge.RegionalWeatherProfiles[key]; ok {
		return key, "state"
	}
	return "default", "default"
}

// assembleWeather blends live forecast data over the historical profile.
// Live values are adopted atomically: temperature, rainfall, and
// humidity all come from the same fetch or none do.
func (a *WeatherAgent) assembleWeather(ctx context.Context, season, region, regionLevel string, resolution location.Resolution) weatherData {
	profile := knowledge.RegionalWeatherProfiles[region][season]
	if profile == (knowledge.SeasonProfile{}) {
		profile = knowledge.RegionalWeatherProfiles["default"]["kharif"]
	}

	if a.fetcher != nil {
		if live, err := a.fetcher.Fetch(ctx, resolution.Latitude, resolution.Longitude); err == nil && live != nil {
			frost := RiskNone
			if live.TempMin < 5 {
				frost = RiskLow
			}
			return weatherData{
				tempMin:   live.TempMin,
				tempMax:   live.TempMax,
				rainfall:  live.Rainfall,
				humidity:  live.Humidity,
				frostRisk: frost,
				dataSources: []string{
					"open_meteo_live",
					resolution.Source,
					region + "_profile",
				},
				dataFreshness: FreshnessLive,
			}
		}
		a.logger.Warn("Live weather unavailable, using historical profile", map[string]interface{}{
			"region": region,
			"season": season,
		})
	}

	// A learned regional profile beats the static table when present
	if regionLevel == "state" {
		if learned, ok := a.store.GetWeatherProfile(ctx, region); ok {
			return weatherData{
				tempMin:       learned.TempMin,
				tempMax:       learned.TempMax,
				rainfall:      learned.Rainfall,
				humidity:      learned.Humidity,
				frostRisk:     profile.FrostRisk,
				dataSources:   []string{"learned_profile", region + "_profile"},
				dataFreshness: FreshnessHistorical,
			}
		}
	}

	return weatherData{
		tempMin:       profile.TempMin,
		tempMax:       profile.TempMax,
		rainfall:      profile.Rainfall,
		humidity:      profile.Humidity,
		frostRisk:     profile.FrostRisk,
		dataSources:   []string{"historical_average", region + "_profile"},
		dataFreshness: FreshnessHistorical,
	}
}

func rainfallPattern(rainfall float64) string {
	switch {
	case rainfall > 1500:
		return "very_heavy"
	case rainfall > 800:
		return "heavy"
	case rainfall > 400:
		return "moderate"
	case rainfall > 100:
		return "light"
	default:
		return "scanty"
	}
}

// scoreWeatherSuitability computes the 1-10 season suitability score
// with confidence as the mean of per-factor confidences.
func scoreWeatherSuitability(data weatherData, season string) (int, float64) {
	score := 7
	var factors []float64

	switch {
	case data.tempMin >= 18 && data.tempMax <= 35:
		score += 2
		factors = append(factors, 0.85)
	case data.tempMin >= 15 && data.tempMax <= 38:
		score++
		factors = append(factors, 0.7)
	case data.tempMin < 10 || data.tempMax > 42:
		score -= 3
		factors = append(factors, 0.8)
	default:
		factors = append(factors, 0.6)
	}

	switch season {
	case "kharif":
		switch {
		case data.rainfall >= 600 && data.rainfall <= 1200:
			score++
			factors = append(factors, 0.8)
		case data.rainfall > 2000:
			score -= 2
			factors = append(factors, 0.75)
		case data.rainfall < 400:
			score--
			factors = append(factors, 0.7)
		}
	case "rabi":
		switch {
		case data.rainfall >= 30 && data.rainfall <= 150:
			score++
			factors = append(factors, 0.8)
		case data.rainfall > 300:
			score--
			factors = append(factors, 0.7)
		}
	}

	if data.humidity >= 50 && data.humidity <= 75 {
		score++
		factors = append(factors, 0.75)
	} else if data.humidity > 85 {
		score--
		factors = append(factors, 0.7)
	}

	switch data.frostRisk {
	case RiskHigh:
		score -= 2
		factors = append(factors, 0.8)
	case RiskModerate:
		score--
		factors = append(factors, 0.75)
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

// assessWeatherRisks evaluates the five risk channels and builds the
// high-risk summary lines.
func assessWeatherRisks(data weatherData, season string) RiskAssessment {
	risks := RiskAssessment{
		Frost:           Risk{Level: RiskNone},
		Drought:         Risk{Level: RiskNone},
		Flood:           Risk{Level: RiskNone},
		HeatStress:      Risk{Level: RiskNone},
		DiseasePressure: Risk{Level: RiskNone},
	}
	var summary []string

	if data.frostRisk == RiskHigh || data.tempMin < 5 {
		risks.Frost = Risk{Level: RiskHigh, Details: fmt.Sprintf("Minimum temperature %g°C", data.tempMin)}
		summary = append(summary, "[HIGH] Frost risk - protect sensitive crops with covers")
	} else if data.frostRisk == RiskModerate || data.tempMin < 10 {
		risks.Frost = Risk{Level: RiskModerate, Details: fmt.Sprintf("Minimum temperature %g°C", data.tempMin)}
	}

	if data.tempMax > 42 {
		risks.HeatStress = Risk{Level: RiskHigh, Details: fmt.Sprintf("Maximum temperature %g°C", data.tempMax)}
		summary = append(summary, "[HIGH] Heat stress - ensure irrigation, consider shade nets")
	} else if data.tempMax > 38 {
		risks.HeatStress = Risk{Level: RiskModerate, Details: fmt.Sprintf("Maximum temperature %g°C", data.tempMax)}
	}

	if season == "kharif" && data.rainfall < 400 {
		risks.Drought = Risk{Level: RiskHigh, Details: fmt.Sprintf("Only %gmm expected in monsoon season", data.rainfall)}
		summary = append(summary, "[HIGH] Drought risk - plan irrigation backup")
	} else if data.rainfall < 200 {
		risks.Drought = Risk{Level: RiskModerate, Details: fmt.Sprintf("Low rainfall %gmm", data.rainfall)}
	}

	if data.rainfall > 2000 {
		risks.Flood = Risk{Level: RiskHigh, Details: fmt.Sprintf("Very heavy rainfall %gmm", data.rainfall)}
		summary = append(summary, "[HIGH] Flooding risk - ensure field drainage")
	} else if data.rainfall > 1500 {
		risks.Flood = Risk{Level: RiskModerate, Details: fmt.Sprintf("Heavy rainfall %gmm", data.rainfall)}
	}

	if data.humidity > 85 {
		risks.DiseasePressure = Risk{Level: RiskHigh, Details: fmt.Sprintf("Humidity %g%% favors fungal disease", data.humidity)}
		summary = append(summary, "[HIGH] Disease risk - plan preventive sprays")
	} else if data.humidity > 75 {
		risks.DiseasePressure = Risk{Level: RiskModerate, Details: fmt.Sprintf("Humidity %g%%", data.humidity)}
	}

	if len(summary) == 0 {
		summary = append(summary, "No major weather risks identified for this period")
	}
	risks.Summary = summary
	return risks
}

// irrigationNeeds estimates supplemental water demand from expected
// rainfall and a rough evapotranspiration proxy.
func irrigationNeeds(data weatherData, season string) IrrigationNeeds {
	et := (data.tempMax-20)*0.15 + (100-data.humidity)*0.05

	switch {
	case season == "kharif" && data.rainfall > 800:
		return IrrigationNeeds{
			Level:     "minimal",
			Frequency: "only_if_dry_spell",
			MMPerWeek: 0,
			Notes:     "Monsoon rainfall should be sufficient",
		}
	case data.rainfall < 100:
		return IrrigationNeeds{
			Level:     "critical",
			Frequency: "every_2_3_days",
			MMPerWeek: float64(50 + int(et*10)),
			Notes:     "Very low rainfall - regular irrigation essential",
		}
	case data.rainfall < 400:
		return IrrigationNeeds{
			Level:     "high",
			Frequency: "twice_weekly",
			MMPerWeek: float64(35 + int(et*5)),
			Notes:     "Supplemental irrigation needed",
		}
	case data.rainfall < 800:
		return IrrigationNeeds{
			Level:     "moderate",
			Frequency: "weekly",
			MMPerWeek: float64(20 + int(et*3)),
			Notes:     "Irrigation during dry spells",
		}
	default:
		return IrrigationNeeds{
			Level:     "low",
			Frequency: "as_needed",
			MMPerWeek: 10,
			Notes:     "Rainfall likely sufficient with occasional supplementation",
		}
	}
}

// weatherSuitableCrops scores every known crop against the expected
// weather and returns the top matches. These are weather-fit hints, not
// recommendations; crop planning makes those.
func weatherSuitableCrops(data weatherData) []WeatherSuitableCrop {
	var crops []WeatherSuitableCrop

	for _, name := range knowledge.CropWeatherOrder {
		req := knowledge.CropWeatherRequirements[name]
		score := 1.0
		var factorNotes []string

		if data.tempMin >= req.TempMin && data.tempMax <= req.TempMax {
			factorNotes = append(factorNotes, "temperature optimal")
		} else if data.tempMin >= req.TempMin-5 && data.tempMax <= req.TempMax+5 {
			score *= 0.7
			factorNotes = append(factorNotes, "temperature marginal")
		} else {
			score *= 0.3
			factorNotes = append(factorNotes, "temperature unsuitable")
		}

		if data.rainfall >= req.RainfallMin {
			factorNotes = append(factorNotes, "rainfall sufficient")
		} else if data.rainfall >= req.RainfallMin*0.6 {
			score *= 0.7
			factorNotes = append(factorNotes, "rainfall marginal - irrigation needed")
		} else {
			score *= 0.4
			factorNotes = append(factorNotes, "rainfall insufficient")
		}

		if data.humidity < req.HumidityMin {
			score *= 0.8
		}

		if data.frostRisk == RiskModerate || data.frostRisk == RiskHigh {
			if req.FrostTolerant {
				factorNotes = append(factorNotes, "frost tolerant")
			} else {
				score *= 0.3
				factorNotes = append(factorNotes, "frost sensitive")
			}
		}

		if score >= 0.5 {
			if len(factorNotes) > 3 {
				factorNotes = factorNotes[:3]
			}
			crops = append(crops, WeatherSuitableCrop{
				Crop:               name,
				WeatherSuitability: round2(score),
				Factors:            factorNotes,
			})
		}
	}

	sort.SliceStable(crops, func(i, j int) bool {
		return crops[i].WeatherSuitability > crops[j].WeatherSuitability
	})
	if len(crops) > 8 {
		crops = crops[:8]
	}
	return crops
}

package agents

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishimitra/advisor/weatherapi"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestWeatherAgentSeasonExtraction(t *testing.T) {
	july := fixedClock(time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC))
	december := fixedClock(time.Date(2026, 12, 10, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name   string
		query  string
		clock  func() time.Time
		season string
	}{
		{"explicit kharif", "best crop for kharif", december, "kharif"},
		{"monsoon keyword", "what to sow in monsoon", december, "kharif"},
		{"explicit rabi", "rabi season advice", july, "rabi"},
		{"winter keyword", "winter crop suggestion", july, "rabi"},
		{"summer keyword", "summer cultivation", december, "zaid"},
		{"month fallback july", "what should I plant", july, "kharif"},
		{"month fallback december", "what should I plant", december, "rabi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := NewWeatherAgent(WeatherAgentOptions{Store: newFakeStore(), Now: tt.clock})
			result := agent.Analyze(context.Background(), tt.query, &Context{IrrigationAvailable: true})
			assert.Equal(t, tt.season, result.Season)
		})
	}
}

func TestWeatherAgentHistoricalProfile(t *testing.T) {
	agent := NewWeatherAgent(WeatherAgentOptions{Store: newFakeStore()})

	result := agent.Analyze(context.Background(), "rabi season sowing in Punjab",
		&Context{State: "Punjab", IrrigationAvailable: true})

	require.NotNil(t, result)
	assert.Equal(t, "rabi", result.Season)
	assert.Equal(t, 5.0, result.Temperature.Min)
	assert.Equal(t, 22.0, result.Temperature.Max)
	assert.Equal(t, 80.0, result.RainfallMM)
	assert.Equal(t, FreshnessHistorical, result.DataFreshness)
	assert.Contains(t, result.DataSources, "historical_average")
	assert.Contains(t, result.DataSources, "punjab_profile")

	// min 5 drops temperature score, rabi rainfall and humidity add back,
	// moderate frost subtracts one
	assert.Equal(t, 5, result.SuitabilityScore)
	assert.InDelta(t, 0.78, result.SuitabilityConfidence, 0.001)

	assert.Equal(t, RiskModerate, result.Risks.Frost.Level)
	assert.Equal(t, RiskModerate, result.Risks.Drought.Level)
	assert.Equal(t, []string{"No major weather risks identified for this period"}, result.RiskFactors)

	assert.Equal(t, "critical", result.Irrigation.Level)
	assert.Equal(t, "every_2_3_days", result.Irrigation.Frequency)
	assert.Equal(t, 75.0, result.Irrigation.MMPerWeek)
}

func TestWeatherAgentOptimalCropsRespectFrost(t *testing.T) {
	agent := NewWeatherAgent(WeatherAgentOptions{Store: newFakeStore()})

	result := agent.Analyze(context.Background(), "rabi crops for Punjab",
		&Context{State: "Punjab", IrrigationAvailable: true})

	require.NotEmpty(t, result.OptimalCrops)
	assert.Equal(t, "wheat", result.OptimalCrops[0].Crop)

	names := make(map[string]bool)
	for _, crop := range result.OptimalCrops {
		names[crop.Crop] = true
		assert.GreaterOrEqual(t, crop.WeatherSuitability, 0.5)
	}
	assert.True(t, names["chickpea"])
	assert.True(t, names["mustard"])
	assert.False(t, names["rice"], "rice cannot survive a Punjab rabi")
}

func TestWeatherAgentLiveFetchAndLearning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"current": {"temperature_2m": 31.5, "relative_humidity_2m": 65, "precipitation": 0.2, "weather_code": 2},
			"daily": {
				"temperature_2m_max": [34, 35, 33, 36, 34, 35, 33],
				"temperature_2m_min": [24, 25, 23, 26, 24, 25, 23],
				"precipitation_sum": [10, 5, 0, 20, 15, 5, 5]
			}
		}`))
	}))
	defer srv.Close()

	fetcher := weatherapi.NewClient(weatherapi.ClientOptions{})
	fetcher.SetBaseURL(srv.URL)

	store := newFakeStore()
	agent := NewWeatherAgent(WeatherAgentOptions{Fetcher: fetcher, Store: store})

	result := agent.Analyze(context.Background(), "kharif crops for Punjab",
		&Context{State: "Punjab", IrrigationAvailable: true})

	assert.Equal(t, FreshnessLive, result.DataFreshness)
	assert.Contains(t, result.DataSources, "open_meteo_live")
	assert.InDelta(t, 24.3, result.Temperature.Min, 0.001)
	assert.InDelta(t, 240.0, result.RainfallMM, 0.001) // 60mm over 7 days x4
	assert.Equal(t, 65.0, result.HumidityPercent)

	require.Len(t, store.savedObs, 1)
	assert.Equal(t, "punjab", store.savedObs[0].Region)
	assert.Equal(t, "kharif", store.savedObs[0].Season)
}

func TestWeatherAgentFallsBackWhenLiveFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	fetcher := weatherapi.NewClient(weatherapi.ClientOptions{})
	fetcher.SetBaseURL(srv.URL)

	store := newFakeStore()
	agent := NewWeatherAgent(WeatherAgentOptions{Fetcher: fetcher, Store: store})

	result := agent.Analyze(context.Background(), "kharif crops for Punjab",
		&Context{State: "Punjab", IrrigationAvailable: true})

	assert.Equal(t, FreshnessHistorical, result.DataFreshness)
	assert.Contains(t, result.DataSources, "historical_average")
	assert.Empty(t, store.savedObs, "no observation from historical data")
}

func TestWeatherAgentNeverReturnsNil(t *testing.T) {
	agent := NewWeatherAgent(WeatherAgentOptions{})

	result := agent.Analyze(context.Background(), "", nil)

	require.NotNil(t, result)
	assert.GreaterOrEqual(t, result.SuitabilityScore, 1)
	assert.LessOrEqual(t, result.SuitabilityScore, 10)
	assert.NotEmpty(t, result.Season)
}

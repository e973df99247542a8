// Package weatherapi fetches current conditions and a 7-day forecast
// from the Open-Meteo forecast API. The API is free and keyless; any
// failure returns nil so callers fall back to historical profiles.
package weatherapi

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/krishimitra/advisor/core"
)

const (
	openMeteoBaseURL = "https://api.open-meteo.com/v1/forecast"
	fetchTimeout     = 5 * time.Second
	forecastDays     = 7
)

// LiveWeather is the parsed forecast: current conditions plus forecast
// averages. Rainfall is the forecast-horizon sum scaled by 4 as a rough
// monthly-equivalent estimate.
type LiveWeather struct {
	CurrentTemp          float64 `json:"current_temp"`
	CurrentHumidity      float64 `json:"current_humidity"`
	CurrentPrecipitation float64 `json:"current_precipitation"`
	TempMin              float64 `json:"temp_min"`
	TempMax              float64 `json:"temp_max"`
	Rainfall             float64 `json:"rainfall"`
	Humidity             float64 `json:"humidity"`
	WeatherCode          int     `json:"weather_code"`
	ForecastDays         int     `json:"forecast_days"`
	DataSource           string  `json:"data_source"`
	FetchedAt            string  `json:"fetched_at"`
}

// Client fetches forecasts from Open-Meteo
type Client struct {
	baseURL string
	client  *http.Client
	logger  core.Logger
	now     func() time.Time
}

// ClientOptions configures a weather client
type ClientOptions struct {
	HTTPClient *http.Client
	Logger     core.Logger
	Now        func() time.Time
}

// NewClient creates a weather client. A nil HTTPClient gets a traced
// default with the fetch timeout.
func NewClient(opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   fetchTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		baseURL: openMeteoBaseURL,
		client:  httpClient,
		logger:  logger,
		now:     now,
	}
}

// SetBaseURL overrides the forecast endpoint (tests)
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

type forecastResponse struct {
	Current struct {
		Temperature      float64 `json:"temperature_2m"`
		RelativeHumidity float64 `json:"relative_humidity_2m"`
		Precipitation    float64 `json:"precipitation"`
		WeatherCode      int     `json:"weather_code"`
	} `json:"current"`
	Daily struct {
		TempMax          []float64 `json:"temperature_2m_max"`
		TempMin          []float64 `json:"temperature_2m_min"`
		PrecipitationSum []float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

// Fetch returns live weather for coordinates, or nil with an error on
// any network or parse failure.
func (c *Client) Fetch(ctx context.Context, lat, lon float64) (*LiveWeather, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%g", lat))
	q.Set("longitude", fmt.Sprintf("%g", lon))
	q.Set("current", "temperature_2m,relative_humidity_2m,precipitation,weather_code")
	q.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_sum,precipitation_probability_max")
	q.Set("timezone", "Asia/Kolkata")
	q.Set("forecast_days", fmt.Sprintf("%d", forecastDays))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, core.NewAdvisorError("weatherapi.Fetch", "upstream", err)
	}
	req.Header.Set("User-Agent", "KrishiMitra/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("Weather API unreachable", map[string]interface{}{
			"operation": "weatherapi.Fetch",
			"latitude":  lat,
			"longitude": lon,
			"error":     err,
		})
		return nil, fmt.Errorf("weather fetch: %w", core.ErrUpstreamUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather API status %d: %w", resp.StatusCode, core.ErrUpstreamUnavailable)
	}

	var forecast forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&forecast); err != nil {
		return nil, fmt.Errorf("weather decode: %w", core.ErrUpstreamUnavailable)
	}

	avgMin := mean(forecast.Daily.TempMin, 20)
	avgMax := mean(forecast.Daily.TempMax, 30)
	totalRain := sum(forecast.Daily.PrecipitationSum)

	live := &LiveWeather{
		CurrentTemp:          forecast.Current.Temperature,
		CurrentHumidity:      forecast.Current.RelativeHumidity,
		CurrentPrecipitation: forecast.Current.Precipitation,
		TempMin:              round1(avgMin),
		TempMax:              round1(avgMax),
		Rainfall:             round1(totalRain * 4),
		Humidity:             forecast.Current.RelativeHumidity,
		WeatherCode:          forecast.Current.WeatherCode,
		ForecastDays:         len(forecast.Daily.TempMin),
		DataSource:           "open_meteo_live",
		FetchedAt:            c.now().UTC().Format(time.RFC3339),
	}

	c.logger.Info("Live weather fetched", map[string]interface{}{
		"temp_min": live.TempMin,
		"temp_max": live.TempMax,
		"rainfall": live.Rainfall,
	})
	return live, nil
}

func mean(vals []float64, fallback float64) float64 {
	if len(vals) == 0 {
		return fallback
	}
	return sum(vals) / float64(len(vals))
}

func sum(vals []float64) float64 {
	var t float64
	for _, v := range vals {
		t += v
	}
	return t
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

package weatherapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishimitra/advisor/core"
)

func TestFetchParsesForecast(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"latitude":  r.URL.Query().Get("latitude"),
			"longitude": r.URL.Query().Get("longitude"),
			"timezone":  r.URL.Query().Get("timezone"),
		}
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

	client := NewClient(ClientOptions{
		HTTPClient: srv.Client(),
		Now:        func() time.Time { return time.Date(2026, 7, 15, 10, 0, 0, 0, time.UTC) },
	})
	client.SetBaseURL(srv.URL)

	live, err := client.Fetch(context.Background(), 30.9010, 75.8573)
	require.NoError(t, err)

	assert.Equal(t, 31.5, live.CurrentTemp)
	assert.Equal(t, 65.0, live.CurrentHumidity)
	assert.Equal(t, 2, live.WeatherCode)
	assert.Equal(t, 24.3, live.TempMin) // mean of daily minimums
	assert.Equal(t, 34.3, live.TempMax)
	assert.Equal(t, 240.0, live.Rainfall) // 60mm forecast sum x4 monthly estimate
	assert.Equal(t, 7, live.ForecastDays)
	assert.Equal(t, "open_meteo_live", live.DataSource)
	assert.Equal(t, "2026-07-15T10:00:00Z", live.FetchedAt)

	assert.Equal(t, "30.901", gotQuery["latitude"])
	assert.Equal(t, "75.8573", gotQuery["longitude"])
	assert.Equal(t, "Asia/Kolkata", gotQuery["timezone"])
}

func TestFetchEmptyDailyUsesFallbackMeans(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current": {"temperature_2m": 28}, "daily": {}}`))
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{HTTPClient: srv.Client()})
	client.SetBaseURL(srv.URL)

	live, err := client.Fetch(context.Background(), 20.59, 78.96)
	require.NoError(t, err)
	assert.Equal(t, 20.0, live.TempMin)
	assert.Equal(t, 30.0, live.TempMax)
	assert.Equal(t, 0.0, live.Rainfall)
}

func TestFetchUpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{broken`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			client := NewClient(ClientOptions{HTTPClient: srv.Client()})
			client.SetBaseURL(srv.URL)

			live, err := client.Fetch(context.Background(), 20.59, 78.96)
			assert.Nil(t, live)
			assert.True(t, errors.Is(err, core.ErrUpstreamUnavailable))
		})
	}
}

func TestFetchHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{HTTPClient: srv.Client()})
	client.SetBaseURL(srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	live, err := client.Fetch(ctx, 20.59, 78.96)
	assert.Nil(t, live)
	assert.Error(t, err)
}

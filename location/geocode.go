package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/krishimitra/advisor/core"
)

const (
	nominatimBaseURL = "https://nominatim.openstreetmap.org/search"

	// Nominatim's usage policy allows at most one request per second
	politenessDelay = time.Second
)

// GeocodeResult is one geocoder hit
type GeocodeResult struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
	Source      string
}

// GeocodeClient geocodes Indian pincodes through Nominatim. It sends the
// required User-Agent and sleeps the politeness delay before each call.
type GeocodeClient struct {
	baseURL string
	client  *http.Client
	logger  core.Logger
	sleep   func(time.Duration)
}

// NewGeocodeClient creates a geocoder client. A nil httpClient gets a
// traced default; a nil sleep uses time.Sleep (tests inject a no-op).
func NewGeocodeClient(httpClient *http.Client, logger core.Logger, sleep func(time.Duration)) *GeocodeClient {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   directoryTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if sleep == nil {
		sleep = time.Sleep
	}
	return &GeocodeClient{
		baseURL: nominatimBaseURL,
		client:  httpClient,
		logger:  logger,
		sleep:   sleep,
	}
}

// SetBaseURL overrides the geocoder endpoint (tests)
func (c *GeocodeClient) SetBaseURL(url string) {
	c.baseURL = url
}

// Geocode resolves "<pincode>, India" to coordinates, or an error when
// the geocoder is unreachable or finds nothing.
func (c *GeocodeClient) Geocode(ctx context.Context, pincode string) (*GeocodeResult, error) {
	q := url.Values{}
	q.Set("q", pincode+", India")
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("countrycodes", "in")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, core.NewAdvisorError("geocode.Geocode", "upstream", err)
	}
	req.Header.Set("User-Agent", userAgent)

	c.sleep(politenessDelay)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("Geocoder unreachable", map[string]interface{}{
			"operation": "geocode.Geocode",
			"pincode":   pincode,
			"error":     err,
		})
		return nil, fmt.Errorf("geocode lookup: %w", core.ErrUpstreamUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder status %d: %w", resp.StatusCode, core.ErrUpstreamUnavailable)
	}

	var hits []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return nil, fmt.Errorf("geocoder decode: %w", core.ErrUpstreamUnavailable)
	}
	if len(hits) == 0 {
		c.logger.Warn("Pincode not found by geocoder", map[string]interface{}{
			"pincode": pincode,
		})
		return nil, fmt.Errorf("pincode %s not geocoded: %w", pincode, core.ErrUpstreamUnavailable)
	}

	lat, latErr := strconv.ParseFloat(hits[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(hits[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		return nil, fmt.Errorf("geocoder coordinates malformed: %w", core.ErrUpstreamUnavailable)
	}

	return &GeocodeResult{
		Latitude:    lat,
		Longitude:   lon,
		DisplayName: hits[0].DisplayName,
		Source:      "nominatim_geocoded",
	}, nil
}

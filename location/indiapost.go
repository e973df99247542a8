// Package location resolves a farmer's location hint (pincode, district,
// state) into coordinates through a progressive fallback ladder, learning
// unknown pincodes from the India Post directory and the Nominatim
// geocoder as it goes.
package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/krishimitra/advisor/core"
	"github.com/krishimitra/advisor/learning"
)

const (
	indiaPostBaseURL = "https://api.postalpincode.in/pincode/"
	directoryTimeout = 10 * time.Second

	userAgent = "KrishiMitra/1.0 (Agricultural Advisory)"
)

// indiaPostResponse mirrors the directory's JSON: a single-element array
// with a Status and a PostOffice list.
type indiaPostResponse struct {
	Status     string `json:"Status"`
	Message    string `json:"Message"`
	PostOffice []struct {
		Name           string `json:"Name"`
		State          string `json:"State"`
		District       string `json:"District"`
		Division       string `json:"Division"`
		Region         string `json:"Region"`
		Circle         string `json:"Circle"`
		Block          string `json:"Block"`
		BranchType     string `json:"BranchType"`
		DeliveryStatus string `json:"DeliveryStatus"`
	} `json:"PostOffice"`
}

// IndiaPostClient fetches pincode details from the India Post directory
type IndiaPostClient struct {
	baseURL string
	client  *http.Client
	logger  core.Logger
}

// NewIndiaPostClient creates a directory client. A nil httpClient gets a
// traced default with the directory timeout.
func NewIndiaPostClient(httpClient *http.Client, logger core.Logger) *IndiaPostClient {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   directoryTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &IndiaPostClient{
		baseURL: indiaPostBaseURL,
		client:  httpClient,
		logger:  logger,
	}
}

// SetBaseURL overrides the directory endpoint (tests)
func (c *IndiaPostClient) SetBaseURL(url string) {
	c.baseURL = url
}

// Fetch returns the location payload for a pincode, or an error when the
// directory is unreachable or reports the pincode unknown.
func (c *IndiaPostClient) Fetch(ctx context.Context, pincode string) (*learning.LocationPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pincode, nil)
	if err != nil {
		return nil, core.NewAdvisorError("indiapost.Fetch", "upstream", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("India Post directory unreachable", map[string]interface{}{
			"operation": "indiapost.Fetch",
			"pincode":   pincode,
			"error":     err,
		})
		return nil, fmt.Errorf("india post lookup: %w", core.ErrUpstreamUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("india post status %d: %w", resp.StatusCode, core.ErrUpstreamUnavailable)
	}

	var results []indiaPostResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("india post decode: %w", core.ErrUpstreamUnavailable)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("india post empty response: %w", core.ErrUpstreamUnavailable)
	}

	result := results[0]
	if result.Status != "Success" || len(result.PostOffice) == 0 {
		c.logger.Warn("Pincode not found in directory", map[string]interface{}{
			"pincode": pincode,
			"message": result.Message,
		})
		return nil, fmt.Errorf("pincode %s not found: %w", pincode, core.ErrUpstreamUnavailable)
	}

	primary := result.PostOffice[0]
	payload := &learning.LocationPayload{
		Pincode:         pincode,
		State:           primary.State,
		District:        primary.District,
		Division:        primary.Division,
		Region:          primary.Region,
		Circle:          primary.Circle,
		Block:           primary.Block,
		BranchType:      primary.BranchType,
		DeliveryStatus:  primary.DeliveryStatus,
		PrimaryLocation: primary.Name,
		Source:          "india_post_api",
	}
	for _, po := range result.PostOffice {
		payload.PostOffices = append(payload.PostOffices, learning.PostOffice{
			Name:           po.Name,
			BranchType:     po.BranchType,
			DeliveryStatus: po.DeliveryStatus,
			Block:          po.Block,
		})
	}

	c.logger.Info("Fetched pincode details", map[string]interface{}{
		"pincode":  pincode,
		"district": payload.District,
		"state":    payload.State,
	})
	return payload, nil
}

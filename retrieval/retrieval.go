// Package retrieval wraps the external document-retrieval service the
// soil and crop-planning agents consult. Retrieval is advisory: callers
// log failures and continue, and retrieved documents never gate output.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/krishimitra/advisor/core"
)

const (
	retrieveTimeout = 5 * time.Second
	topK            = 5
)

// Document is one retrieved knowledge fragment
type Document struct {
	ID       string                 `json:"id"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Retriever is the retrieval contract: top-K documents for a query
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]Document, error)
}

// NoOp returns no documents, for deployments without a retrieval service
type NoOp struct{}

func (NoOp) Retrieve(context.Context, string) ([]Document, error) { return nil, nil }

// HTTPRetriever calls a JSON retrieval endpoint:
// POST {url} {"query": ..., "top_k": 5} -> {"documents": [...]}
type HTTPRetriever struct {
	url    string
	client *http.Client
	logger core.Logger
}

// NewHTTPRetriever creates a retriever for the given endpoint. A nil
// httpClient gets a traced default.
func NewHTTPRetriever(url string, httpClient *http.Client, logger core.Logger) *HTTPRetriever {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   retrieveTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &HTTPRetriever{url: url, client: httpClient, logger: logger}
}

// Retrieve returns up to five documents for the query
func (r *HTTPRetriever) Retrieve(ctx context.Context, query string) ([]Document, error) {
	body, err := json.Marshal(map[string]interface{}{
		"query": query,
		"top_k": topK,
	})
	if err != nil {
		return nil, core.NewAdvisorError("retrieval.Retrieve", "upstream", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, core.NewAdvisorError("retrieval.Retrieve", "upstream", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("Retrieval service unreachable", map[string]interface{}{
			"operation": "retrieval.Retrieve",
			"error":     err,
		})
		return nil, fmt.Errorf("retrieval: %w", core.ErrUpstreamUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("retrieval status %d: %w", resp.StatusCode, core.ErrUpstreamUnavailable)
	}

	var payload struct {
		Documents []Document `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("retrieval decode: %w", core.ErrUpstreamUnavailable)
	}

	docs := payload.Documents
	if len(docs) > topK {
		docs = docs[:topK]
	}
	return docs, nil
}

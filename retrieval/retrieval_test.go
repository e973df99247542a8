package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishimitra/advisor/core"
)

func TestHTTPRetrieverSendsQueryAndParsesDocuments(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Write([]byte(`{"documents": [
			{"id": "doc-1", "score": 0.91, "metadata": {"crop": "rice"}},
			{"id": "doc-2", "score": 0.78}
		]}`))
	}))
	defer srv.Close()

	retriever := NewHTTPRetriever(srv.URL, srv.Client(), nil)

	docs, err := retriever.Retrieve(context.Background(), "rice cultivation in clay soil")
	require.NoError(t, err)

	assert.Equal(t, "rice cultivation in clay soil", gotBody["query"])
	assert.Equal(t, float64(5), gotBody["top_k"])

	require.Len(t, docs, 2)
	assert.Equal(t, "doc-1", docs[0].ID)
	assert.Equal(t, 0.91, docs[0].Score)
	assert.Equal(t, "rice", docs[0].Metadata["crop"])
}

func TestHTTPRetrieverCapsAtTopK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := struct {
			Documents []Document `json:"documents"`
		}{}
		for i := 0; i < 8; i++ {
			payload.Documents = append(payload.Documents, Document{ID: "doc", Score: 0.5})
		}
		json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	retriever := NewHTTPRetriever(srv.URL, srv.Client(), nil)

	docs, err := retriever.Retrieve(context.Background(), "anything")
	require.NoError(t, err)
	assert.Len(t, docs, 5)
}

func TestHTTPRetrieverUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	retriever := NewHTTPRetriever(srv.URL, srv.Client(), nil)

	docs, err := retriever.Retrieve(context.Background(), "anything")
	assert.Nil(t, docs)
	assert.True(t, errors.Is(err, core.ErrUpstreamUnavailable))
}

func TestNoOpRetriever(t *testing.T) {
	docs, err := NoOp{}.Retrieve(context.Background(), "anything")
	assert.NoError(t, err)
	assert.Empty(t, docs)
}

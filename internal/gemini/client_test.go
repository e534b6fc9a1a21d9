package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kostadindraganov/amazon-extractor/internal/observability"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(observability.Nop(), Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
	})
	require.NoError(t, err)

	return client, srv
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(observability.Nop(), Config{})
	assert.Error(t, err)
}

func TestExtract(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-3-flash-preview:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Contains(t, req.Contents[0].Parts[0].Text, "https://amazon.com/dp/B0TEST")
		require.Len(t, req.Tools, 1)
		assert.NotNil(t, req.Tools[0].GoogleSearch)

		resp := generateResponse{
			Candidates: []candidate{{
				Content: requestContent{Parts: []part{
					{Text: "TITLE: Ergonomic Desk Lamp\n"},
					{Text: "IMAGES: [https://m.media-amazon.com/images/I/1.jpg], [https://m.media-amazon.com/images/I/1.jpg], [https://a.com/thumbnail.jpg]"},
				}},
				GroundingMetadata: &groundingMetadata{
					GroundingChunks: []groundingChunk{
						{Web: &webSource{Title: "Amazon.com", URI: "https://amazon.com/dp/B0TEST"}},
						{Web: &webSource{URI: "https://reviews.example.com"}},
						{}, // non-web citation, dropped
					},
				},
			}},
		}
		json.NewEncoder(w).Encode(resp)
	})

	result, err := client.Extract(context.Background(), "https://amazon.com/dp/B0TEST")

	require.NoError(t, err)
	assert.Equal(t, "Ergonomic Desk Lamp", result.Title)
	assert.Equal(t, []string{"https://m.media-amazon.com/images/I/1.jpg"}, result.Images)
	require.Len(t, result.Sources, 2)
	assert.Equal(t, "Amazon.com", result.Sources[0].Title)
	assert.Equal(t, "Source", result.Sources[1].Title)
	assert.Equal(t, "https://reviews.example.com", result.Sources[1].URI)
}

func TestExtract_APIError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(generateResponse{
			Error: &apiError{Code: 429, Message: "quota exceeded", Status: "RESOURCE_EXHAUSTED"},
		})
	})

	_, err := client.Extract(context.Background(), "https://amazon.com/dp/B0TEST")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestExtract_UnparseableReply(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{
			Candidates: []candidate{{
				Content: requestContent{Parts: []part{{Text: "Sorry, I cannot help with that."}}},
			}},
		})
	})

	_, err := client.Extract(context.Background(), "https://amazon.com/dp/B0TEST")

	assert.ErrorIs(t, err, ErrUnparseableResponse)
}

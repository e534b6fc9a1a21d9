// Package gemini wraps the Gemini generateContent API with search grounding
// for product image extraction.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kostadindraganov/amazon-extractor/internal/catalog"
	"github.com/kostadindraganov/amazon-extractor/internal/observability"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-3-flash-preview"
)

// Client handles communication with the Gemini API.
type Client struct {
	httpClient *http.Client
	logger     *observability.Logger
	baseURL    string
	apiKey     string
	model      string
	minImages  int
	maxImages  int
}

// Config holds Gemini client configuration.
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string
	Timeout   time.Duration
	MinImages int
	MaxImages int
}

// NewClient creates a new Gemini client.
func NewClient(logger *observability.Logger, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MinImages <= 0 {
		cfg.MinImages = 4
	}
	if cfg.MaxImages <= 0 {
		cfg.MaxImages = 6
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		minImages:  cfg.MinImages,
		maxImages:  cfg.MaxImages,
	}, nil
}

// generateRequest is the generateContent request body.
type generateRequest struct {
	Contents []requestContent `json:"contents"`
	Tools    []tool           `json:"tools,omitempty"`
}

type requestContent struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type tool struct {
	GoogleSearch *googleSearch `json:"google_search,omitempty"`
}

type googleSearch struct{}

// generateResponse is the generateContent response body.
type generateResponse struct {
	Candidates []candidate `json:"candidates"`
	Error      *apiError   `json:"error,omitempty"`
}

type candidate struct {
	Content           requestContent     `json:"content"`
	GroundingMetadata *groundingMetadata `json:"groundingMetadata,omitempty"`
}

type groundingMetadata struct {
	GroundingChunks []groundingChunk `json:"groundingChunks"`
}

type groundingChunk struct {
	Web *webSource `json:"web,omitempty"`
}

type webSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Extract asks the model, with web search enabled, for the product title and
// high-resolution image URLs behind the given product link. The model's reply
// is free text when search grounding is on, so it is scanned defensively
// rather than decoded as JSON.
func (c *Client) Extract(ctx context.Context, productURL string) (*catalog.Extraction, error) {
	reqBody := generateRequest{
		Contents: []requestContent{
			{Parts: []part{{Text: c.buildPrompt(productURL)}}},
		},
		Tools: []tool{{GoogleSearch: &googleSearch{}}},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp generateResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != nil {
			return nil, fmt.Errorf("API error: %s (status: %s)", errResp.Error.Message, errResp.Error.Status)
		}
		return nil, fmt.Errorf("API error: status %d", resp.StatusCode)
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	text, chunks := flattenResponse(&genResp)

	title, images, err := parseExtraction(text)
	if err != nil {
		return nil, err
	}

	result := &catalog.Extraction{
		Title:   title,
		Images:  images,
		Sources: mapSources(chunks),
	}

	c.logger.Debug().
		Str("url", productURL).
		Str("title", result.Title).
		Int("images", len(result.Images)).
		Int("sources", len(result.Sources)).
		Dur("duration", time.Since(start)).
		Msg("Extraction call finished")

	return result, nil
}

// buildPrompt names the product URL and pins the two-line reply format the
// parser scans for.
func (c *Client) buildPrompt(productURL string) string {
	return fmt.Sprintf(`Search for high-resolution product images for this Amazon link: %s.
Find the official product title and at least %d-%d direct URLs to the highest quality images (prefer m.media-amazon.com links).

Provide the information strictly in the following format:
TITLE: [Product Title]
IMAGES: [URL 1], [URL 2], [URL 3], [URL 4], [URL 5], [URL 6]`, productURL, c.minImages, c.maxImages)
}

// flattenResponse joins the first candidate's text parts and returns its
// grounding chunks.
func flattenResponse(resp *generateResponse) (string, []groundingChunk) {
	if len(resp.Candidates) == 0 {
		return "", nil
	}

	cand := resp.Candidates[0]

	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}

	var chunks []groundingChunk
	if cand.GroundingMetadata != nil {
		chunks = cand.GroundingMetadata.GroundingChunks
	}

	return sb.String(), chunks
}

// mapSources keeps citations that reference a web resource.
func mapSources(chunks []groundingChunk) []catalog.Source {
	sources := make([]catalog.Source, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.Web == nil {
			continue
		}
		title := chunk.Web.Title
		if title == "" {
			title = "Source"
		}
		sources = append(sources, catalog.Source{Title: title, URI: chunk.Web.URI})
	}
	return sources
}

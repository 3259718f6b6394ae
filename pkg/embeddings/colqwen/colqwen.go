// Package colqwen implements pkg/embeddings' Generator against a ColQwen
// inference sidecar's HTTP API.
package colqwen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/papercomputeco/retina/pkg/embeddings"
)

const (
	// DefaultModel is the default late-interaction model served by the sidecar.
	DefaultModel = "vidore/colqwen2-v0.1"

	// DefaultBaseURL is the default sidecar URL.
	DefaultBaseURL = "http://localhost:7020"
)

// Generator wraps the sidecar's /embed endpoints.
type Generator struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// Config holds configuration for the ColQwen generator client.
type Config struct {
	// BaseURL is the sidecar URL (e.g., "http://localhost:7020").
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the embedding model to request.
	// Defaults to DefaultModel if empty.
	Model string
}

// embedImageRequest is the request body for the sidecar's image endpoint.
type embedImageRequest struct {
	Model  string   `json:"model"`
	Images []string `json:"images"`
}

// embedQueryRequest is the request body for the sidecar's query endpoint.
type embedQueryRequest struct {
	Model  string   `json:"model"`
	Inputs []string `json:"inputs"`
}

// embedResponse is the sidecar's response: one token-vector sequence per input.
type embedResponse struct {
	Embeddings [][][]float32 `json:"embeddings"`
}

// NewGenerator creates a generator backed by the ColQwen sidecar.
func NewGenerator(cfg Config) (*Generator, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Generator{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// EmbedImage converts raw image bytes into a token-vector sequence.
func (g *Generator) EmbedImage(ctx context.Context, image []byte) ([][]float32, error) {
	return g.embed(ctx, "/embed/images", embedImageRequest{
		Model:  g.model,
		Images: []string{base64.StdEncoding.EncodeToString(image)},
	})
}

// EmbedQuery converts query text into a token-vector sequence.
func (g *Generator) EmbedQuery(ctx context.Context, text string) ([][]float32, error) {
	return g.embed(ctx, "/embed/queries", embedQueryRequest{
		Model:  g.model,
		Inputs: []string{text},
	})
}

func (g *Generator) embed(ctx context.Context, path string, body any) ([][]float32, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", embeddings.ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", embeddings.ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", embeddings.ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: sidecar returned status %d: %s", embeddings.ErrGeneration, resp.StatusCode, string(respBody))
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", embeddings.ErrGeneration, err)
	}

	if len(embedResp.Embeddings) == 0 || len(embedResp.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", embeddings.ErrGeneration)
	}

	return embedResp.Embeddings[0], nil
}

// Close releases resources held by the generator.
func (g *Generator) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

// Ensure Generator implements embeddings.Generator
var _ embeddings.Generator = (*Generator)(nil)

// Package rasterd implements pkg/splitter's PageSplitter against a
// rasterizer sidecar's HTTP API.
package rasterd

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/papercomputeco/retina/pkg/splitter"
)

// DefaultBaseURL is the default rasterizer sidecar URL.
const DefaultBaseURL = "http://localhost:7030"

// Splitter wraps the sidecar's /split endpoint.
type Splitter struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds configuration for the rasterizer client.
type Config struct {
	// BaseURL is the sidecar URL. Defaults to DefaultBaseURL if empty.
	BaseURL string
}

type splitRequest struct {
	Document string `json:"document"`
	Format   string `json:"format"`
}

type splitResponse struct {
	Pages []string `json:"pages"`
}

// NewSplitter creates a splitter backed by the rasterizer sidecar.
func NewSplitter(cfg Config) (*Splitter, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Splitter{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// Split returns the document's pages as PNG bytes, in page order.
func (s *Splitter) Split(ctx context.Context, document []byte) ([][]byte, error) {
	jsonBody, err := json.Marshal(splitRequest{
		Document: base64.StdEncoding.EncodeToString(document),
		Format:   "png",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", splitter.ErrSplit, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/split", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", splitter.ErrSplit, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", splitter.ErrSplit, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: rasterizer returned status %d: %s", splitter.ErrSplit, resp.StatusCode, string(respBody))
	}

	var splitResp splitResponse
	if err := json.NewDecoder(resp.Body).Decode(&splitResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", splitter.ErrSplit, err)
	}

	if len(splitResp.Pages) == 0 {
		return nil, fmt.Errorf("%w: document produced no pages", splitter.ErrSplit)
	}

	pages := make([][]byte, len(splitResp.Pages))
	for i, p := range splitResp.Pages {
		decoded, err := base64.StdEncoding.DecodeString(p)
		if err != nil {
			return nil, fmt.Errorf("%w: decoding page %d: %v", splitter.ErrSplit, i+1, err)
		}
		pages[i] = decoded
	}

	return pages, nil
}

// Close releases resources held by the splitter.
func (s *Splitter) Close() error {
	return nil
}

var _ splitter.PageSplitter = (*Splitter)(nil)

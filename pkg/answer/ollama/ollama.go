// Package ollama implements pkg/answer's Synthesizer using Ollama's chat API
// with a vision-capable model.
package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/papercomputeco/retina/pkg/answer"
)

const (
	// DefaultModel is the default vision model used for answer synthesis.
	DefaultModel = "qwen2.5vl:3b"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"
)

// The model is instructed to answer from the image alone so retrieval
// quality stays observable: a wrong page yields "not related", not a
// hallucinated answer from parametric knowledge.
const promptPreamble = "Please answer the following question using only the information visible in the provided image." +
	" Do not use any of your own knowledge, training data, or external sources." +
	" Base your response solely on the content depicted within the image." +
	" If there is no relation between the question and the image," +
	" you can respond with 'Question is not related to image'.\nHere is the question: "

// Synthesizer wraps Ollama's chat API.
type Synthesizer struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// Config holds configuration for the Ollama synthesizer.
type Config struct {
	// BaseURL is the Ollama API URL. Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the vision model to use. Defaults to DefaultModel if empty.
	Model string
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// NewSynthesizer creates a synthesizer using Ollama's chat API.
func NewSynthesizer(cfg Config) (*Synthesizer, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Synthesizer{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 300 * time.Second,
		},
	}, nil
}

// Answer responds to the question using only the supplied image.
func (s *Synthesizer) Answer(ctx context.Context, question string, image []byte) (string, error) {
	reqBody := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{
				Role:    "user",
				Content: promptPreamble + question,
				Images:  []string{base64.StdEncoding.EncodeToString(image)},
			},
		},
		Stream: false,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: marshaling request: %v", answer.ErrSynthesis, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", answer.ErrSynthesis, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: sending request: %v", answer.ErrSynthesis, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: ollama returned status %d: %s", answer.ErrSynthesis, resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", answer.ErrSynthesis, err)
	}

	return chatResp.Message.Content, nil
}

// Close releases resources held by the synthesizer.
func (s *Synthesizer) Close() error {
	return nil
}

var _ answer.Synthesizer = (*Synthesizer)(nil)

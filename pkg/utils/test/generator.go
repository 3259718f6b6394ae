package testutils

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/papercomputeco/retina/pkg/embeddings"
)

// MockGenerator is a test embedding generator that returns predictable
// token-vector sequences.
type MockGenerator struct {
	// ImageEmbeddings maps payload content to a fixed sequence. Unmapped
	// payloads get Default.
	ImageEmbeddings map[string][][]float32

	// QueryEmbeddings maps query text to a fixed sequence. Unmapped queries
	// get Default.
	QueryEmbeddings map[string][][]float32

	// Default is returned for any unmapped input.
	Default [][]float32

	// FailOn causes both embed calls to return an error when the input
	// matches (payload bytes or query text).
	FailOn string

	// ImageCalls counts EmbedImage invocations, for dedup fast-path tests.
	ImageCalls atomic.Int64
}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		ImageEmbeddings: make(map[string][][]float32),
		QueryEmbeddings: make(map[string][][]float32),
		Default:         TokenRows(3, 4, 0.1),
	}
}

func (m *MockGenerator) EmbedImage(_ context.Context, image []byte) ([][]float32, error) {
	if m.FailOn != "" && string(image) == m.FailOn {
		return nil, fmt.Errorf("%w: mock failure for payload: %s", embeddings.ErrGeneration, m.FailOn)
	}

	m.ImageCalls.Add(1)

	if emb, ok := m.ImageEmbeddings[string(image)]; ok {
		return emb, nil
	}

	return m.Default, nil
}

func (m *MockGenerator) EmbedQuery(_ context.Context, text string) ([][]float32, error) {
	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("%w: mock failure for query: %s", embeddings.ErrGeneration, text)
	}

	if emb, ok := m.QueryEmbeddings[text]; ok {
		return emb, nil
	}

	return m.Default, nil
}

func (m *MockGenerator) Close() error {
	return nil
}

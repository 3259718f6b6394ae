package testutils

import (
	"context"
	"fmt"

	"github.com/papercomputeco/retina/pkg/answer"
)

// MockSynthesizer is a test answer synthesizer.
type MockSynthesizer struct {
	// Response is returned for every call. Defaults to a canned answer.
	Response string

	// Fail causes Answer to return an error.
	Fail bool

	// LastQuestion and LastImage capture the most recent call.
	LastQuestion string
	LastImage    []byte
}

func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{
		Response: "mock answer",
	}
}

func (m *MockSynthesizer) Answer(_ context.Context, question string, image []byte) (string, error) {
	if m.Fail {
		return "", fmt.Errorf("%w: mock synthesis failure", answer.ErrSynthesis)
	}

	m.LastQuestion = question
	m.LastImage = image
	return m.Response, nil
}

func (m *MockSynthesizer) Close() error {
	return nil
}

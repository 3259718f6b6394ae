package testutils

import (
	"context"
	"fmt"

	"github.com/papercomputeco/retina/pkg/splitter"
)

// MockSplitter is a test page splitter that returns configured pages.
type MockSplitter struct {
	// Pages is returned from every Split call.
	Pages [][]byte

	// Fail causes Split to return an error.
	Fail bool
}

func NewMockSplitter(pages ...[]byte) *MockSplitter {
	return &MockSplitter{Pages: pages}
}

func (m *MockSplitter) Split(_ context.Context, _ []byte) ([][]byte, error) {
	if m.Fail {
		return nil, fmt.Errorf("%w: mock split failure", splitter.ErrSplit)
	}

	return m.Pages, nil
}

func (m *MockSplitter) Close() error {
	return nil
}

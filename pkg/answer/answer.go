// Package answer defines the answer-synthesis capability invoked once a
// best-matching page has been retrieved.
package answer

import (
	"context"
	"errors"
)

// ErrSynthesis is returned when the vision model call fails or times out.
var ErrSynthesis = errors.New("answer synthesis failed")

// Synthesizer generates a grounded answer to a question from a single page
// image.
type Synthesizer interface {
	// Answer responds to the question using only the supplied image.
	Answer(ctx context.Context, question string, image []byte) (string, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

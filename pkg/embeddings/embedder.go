// Package embeddings defines the multi-vector embedding generator consumed
// by the retrieval engine.
package embeddings

import (
	"context"
	"errors"
)

// ErrGeneration is returned when the embedding generator fails or times out.
// Callers may retry: no engine state is mutated before generation succeeds.
var ErrGeneration = errors.New("embedding generation failed")

// Generator produces late-interaction embeddings: one variable-length
// sequence of fixed-width token vectors per input. The vector width is fixed
// for a given generator version; the sequence length varies per input.
//
// Model loading, device placement, batching and numeric precision are the
// generator's concern, behind this interface.
type Generator interface {
	// EmbedImage converts raw image bytes into a token-vector sequence.
	EmbedImage(ctx context.Context, image []byte) ([][]float32, error)

	// EmbedQuery converts query text into a token-vector sequence.
	EmbedQuery(ctx context.Context, text string) ([][]float32, error)

	// Close releases any resources held by the generator.
	Close() error
}

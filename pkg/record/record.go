// Package record defines the durable embedding record model shared by the
// retrieval engine and its storage drivers.
package record

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Record is one indexed document: an opaque payload plus its multi-vector
// embedding, keyed by (Namespace, ContentHash).
//
// Records are immutable once written. There is no update operation, only
// insert and delete.
type Record struct {
	// Namespace groups records into an independent retrieval corpus.
	// Queries never compare across namespaces.
	Namespace string `json:"namespace"`

	// ContentHash is the SHA-256 hex digest of Payload. It is the dedup
	// key and the record's identity within its namespace.
	ContentHash string `json:"content_hash"`

	// Payload is the raw document bytes (commonly a rasterized page image).
	Payload []byte `json:"payload"`

	// MediaType is the serialization format of Payload (e.g. "image/png").
	MediaType string `json:"media_type"`

	// Embedding is the ordered token-vector sequence produced by the
	// embedding generator: S rows of Dim columns, S varies per input.
	Embedding [][]float32 `json:"embedding"`

	// Dim is the per-token vector dimensionality. It is fixed for a given
	// generator version and stored so incompatible records can be detected
	// at query time instead of silently corrupting rankings.
	Dim int `json:"dim"`

	// CreatedAt is set by the store on first insert. Diagnostics and
	// result tie-breaking only; never used for scoring.
	CreatedAt time.Time `json:"created_at"`
}

// ContentHash computes the SHA-256 hex digest of raw payload bytes.
func ContentHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// New builds a Record from a payload and its embedding, computing the
// content hash and dimensionality.
func New(namespace string, payload []byte, mediaType string, embedding [][]float32) *Record {
	dim := 0
	if len(embedding) > 0 {
		dim = len(embedding[0])
	}

	return &Record{
		Namespace:   namespace,
		ContentHash: ContentHash(payload),
		Payload:     payload,
		MediaType:   mediaType,
		Embedding:   embedding,
		Dim:         dim,
	}
}

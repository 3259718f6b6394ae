// Package eventstream defines transport-neutral events emitted by the
// indexing pipeline, plus publisher backends.
package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeDocumentIndexed is emitted after a document is persisted to
	// the record store (or deduplicated against an existing record).
	EventTypeDocumentIndexed = "retina.document.indexed"
)

// DocumentIndexedEvent is a transport-neutral event payload for an indexed
// document.
type DocumentIndexedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	Namespace     string    `json:"namespace"`
	ContentHash   string    `json:"content_hash"`
	MediaType     string    `json:"media_type,omitempty"`
	Duplicate     bool      `json:"duplicate"`
}

// NewDocumentIndexedEvent builds a v1 event with a fresh identity.
func NewDocumentIndexedEvent(namespace, contentHash, mediaType string, duplicate bool) *DocumentIndexedEvent {
	return &DocumentIndexedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeDocumentIndexed,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Namespace:     namespace,
		ContentHash:   contentHash,
		MediaType:     mediaType,
		Duplicate:     duplicate,
	}
}

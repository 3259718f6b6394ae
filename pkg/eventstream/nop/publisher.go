// Package nop provides a no-op event publisher for deployments without an
// event stream configured.
package nop

import (
	"context"

	"github.com/papercomputeco/retina/pkg/eventstream"
)

// Publisher discards every event.
type Publisher struct{}

// NewPublisher creates a no-op publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) PublishIndexed(_ context.Context, _ *eventstream.DocumentIndexedEvent) error {
	return nil
}

func (p *Publisher) Close() error {
	return nil
}

var _ eventstream.Publisher = (*Publisher)(nil)

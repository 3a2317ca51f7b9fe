// Package ports provides domain-centric interfaces for external dependencies.
// These interfaces follow the ports and adapters (hexagonal) architecture pattern,
// allowing the relay core to remain independent of the messaging platform.
package ports

import (
	"context"
	"time"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
)

// MessageSource yields source channel messages.
type MessageSource interface {
	// Messages returns the live stream in arrival order. A finite source closes it
	// when exhausted; a live source may never close it, so consumers also stop on
	// context cancellation.
	Messages() <-chan domain.Message
	// History lists messages strictly newer than since, oldest first, at most limit entries.
	History(ctx context.Context, since time.Time, limit int) ([]domain.Message, error)
}

// Deliverer sends a message to the destination channel.
// Fallbacks are the deliverer's responsibility; a returned error means every attempt failed.
type Deliverer interface {
	Deliver(ctx context.Context, d domain.Delivery) error
}

// MediaFetcher downloads the bytes behind an opaque media payload.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, media any) ([]byte, error)
}

// Journal persists relay decisions for audit. It is never read back by the relay.
type Journal interface {
	RecordDecision(ctx context.Context, d domain.Decision) error
}

// NopJournal discards every decision.
type NopJournal struct{}

// RecordDecision implements Journal.
func (NopJournal) RecordDecision(_ context.Context, _ domain.Decision) error {
	return nil
}

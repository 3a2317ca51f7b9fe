package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
)

// Source is an in-memory implementation of ports.MessageSource.
type Source struct {
	mu      sync.Mutex
	stream  chan domain.Message
	history []domain.Message

	// HistoryFn allows overriding History behavior.
	HistoryFn func(ctx context.Context, since time.Time, limit int) ([]domain.Message, error)
}

// NewSource creates a source whose live stream holds up to buffer messages.
func NewSource(buffer int) *Source {
	return &Source{stream: make(chan domain.Message, buffer)}
}

// Messages returns the live stream.
func (s *Source) Messages() <-chan domain.Message {
	return s.stream
}

// Push enqueues a live message.
func (s *Source) Push(msg domain.Message) {
	s.stream <- msg
}

// Close ends the live stream.
func (s *Source) Close() {
	close(s.stream)
}

// SetHistory sets the messages returned by History, oldest first.
func (s *Source) SetHistory(msgs []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = msgs
}

// History returns stored history entries newer than since.
func (s *Source) History(ctx context.Context, since time.Time, limit int) ([]domain.Message, error) {
	if s.HistoryFn != nil {
		return s.HistoryFn(ctx, since, limit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Message

	for _, m := range s.history {
		if !m.Date.After(since) {
			continue
		}

		out = append(out, m)
	}

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}

	return out, nil
}

// Deliverer records deliveries.
type Deliverer struct {
	mu         sync.Mutex
	deliveries []domain.Delivery

	// DeliverFn allows overriding Deliver behavior.
	DeliverFn func(ctx context.Context, d domain.Delivery) error
}

// NewDeliverer creates a deliverer that accepts everything.
func NewDeliverer() *Deliverer {
	return &Deliverer{}
}

// Deliver records the delivery and returns DeliverFn's result when set.
func (d *Deliverer) Deliver(ctx context.Context, delivery domain.Delivery) error {
	d.mu.Lock()
	d.deliveries = append(d.deliveries, delivery)
	d.mu.Unlock()

	if d.DeliverFn != nil {
		return d.DeliverFn(ctx, delivery)
	}

	return nil
}

// Deliveries returns a copy of every attempted delivery.
func (d *Deliverer) Deliveries() []domain.Delivery {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]domain.Delivery, len(d.deliveries))
	copy(out, d.deliveries)

	return out
}

// Journal records decisions in memory.
type Journal struct {
	mu        sync.Mutex
	decisions []domain.Decision
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// RecordDecision stores the decision.
func (j *Journal) RecordDecision(_ context.Context, d domain.Decision) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.decisions = append(j.decisions, d)

	return nil
}

// Decisions returns a copy of the recorded decisions.
func (j *Journal) Decisions() []domain.Decision {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]domain.Decision, len(j.decisions))
	copy(out, j.decisions)

	return out
}

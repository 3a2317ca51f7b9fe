// Package replay runs the relay offline: messages come from a JSON lines
// file and deliveries are only logged.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
	"github.com/lueurxax/telegram-relay/internal/output/report"
)

const (
	maxLineBytes = 1024 * 1024
	previewRunes = 80
)

type record struct {
	ID    int64     `json:"id"`
	Text  string    `json:"text"`
	Date  time.Time `json:"date"`
	Media string    `json:"media"`
}

// Parse reads one message per line. Blank lines are skipped; a missing date
// is filled in when the message is emitted.
func Parse(r io.Reader) ([]domain.Message, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var (
		msgs []domain.Message
		line int
	)

	for scanner.Scan() {
		line++

		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var rec record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", line, err)
		}

		if rec.ID == 0 {
			rec.ID = int64(line)
		}

		msgs = append(msgs, toMessage(rec))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading replay input: %w", err)
	}

	if len(msgs) == 0 {
		return nil, apperrors.ErrEmptySource
	}

	return msgs, nil
}

func toMessage(rec record) domain.Message {
	msg := domain.Message{
		ID:   rec.ID,
		Text: rec.Text,
		Date: rec.Date,
	}

	switch kind := strings.ToLower(strings.TrimSpace(rec.Media)); kind {
	case "":
	case domain.MediaPhoto, domain.MediaDocument, domain.MediaWebPage:
		msg.MediaKind = kind
		msg.Media = kind
	default:
		msg.MediaKind = domain.MediaOther
		msg.Media = kind
	}

	return msg
}

// Source replays parsed messages as a live stream.
type Source struct {
	msgs   []domain.Message
	stream chan domain.Message
	now    func() time.Time
	once   sync.Once
}

// Open parses the file at path.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening replay input: %w", err)
	}
	defer f.Close()

	msgs, err := Parse(f)
	if err != nil {
		return nil, err
	}

	return NewSource(msgs, nil), nil
}

// NewSource creates a Source. A nil clock uses time.Now.
func NewSource(msgs []domain.Message, now func() time.Time) *Source {
	if now == nil {
		now = time.Now
	}

	return &Source{msgs: msgs, stream: make(chan domain.Message), now: now}
}

// Len returns the number of messages to replay.
func (s *Source) Len() int {
	return len(s.msgs)
}

// Start emits every message in file order and closes the stream. It returns
// at once; emission stops early when ctx is canceled.
func (s *Source) Start(ctx context.Context) {
	s.once.Do(func() {
		go func() {
			defer close(s.stream)

			for _, msg := range s.msgs {
				if msg.Date.IsZero() {
					msg.Date = s.now()
				}

				select {
				case s.stream <- msg:
				case <-ctx.Done():
					return
				}
			}
		}()
	})
}

// Messages returns the replay stream.
func (s *Source) Messages() <-chan domain.Message {
	return s.stream
}

// History is empty: every replayed message arrives through the stream.
func (s *Source) History(context.Context, time.Time, int) ([]domain.Message, error) {
	return nil, nil
}

// Deliverer logs deliveries instead of sending them.
type Deliverer struct {
	logger *zerolog.Logger

	mu    sync.Mutex
	count int
}

// NewDeliverer creates a logging Deliverer.
func NewDeliverer(logger *zerolog.Logger) *Deliverer {
	return &Deliverer{logger: logger}
}

// Deliver logs d.
func (d *Deliverer) Deliver(_ context.Context, delivery domain.Delivery) error {
	d.mu.Lock()
	d.count++
	d.mu.Unlock()

	text := delivery.Message.Text
	method := "forward"

	if delivery.Cleaned {
		text = delivery.Text
		method = "send"
	}

	d.logger.Info().
		Int64("msg_id", delivery.Message.ID).
		Str("method", method).
		Str("media", delivery.Message.MediaKind).
		Str("text", report.Preview(text, previewRunes)).
		Msg("Replay delivery")

	return nil
}

// Count returns the number of deliveries.
func (d *Deliverer) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.count
}

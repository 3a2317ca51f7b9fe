package botsender

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
	"github.com/lueurxax/telegram-relay/internal/platform/config"
)

var (
	errFetch = errors.New("fetch failed")
	// Smallest byte sequence DetectContentType reports as image/png.
	pngBytes = []byte("\x89PNG\r\n\x1a\n0000")
)

type fakeAPI struct {
	sent []tgbotapi.Chattable
	errs []error
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)

	if len(f.errs) == 0 {
		return tgbotapi.Message{MessageID: len(f.sent)}, nil
	}

	err := f.errs[0]
	f.errs = f.errs[1:]

	return tgbotapi.Message{}, err
}

type fakeFetcher struct {
	data []byte
	err  error
}

func (f fakeFetcher) FetchMedia(context.Context, any) ([]byte, error) {
	return f.data, f.err
}

func newTestSender(api botAPI, media fakeFetcher, retries int) *Sender {
	logger := zerolog.Nop()

	return newSender(api, Target{Username: "@target"}, media, config.ForwardConfig{MaxRetries: retries}, &logger)
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		ref      string
		expected Target
	}{
		{ref: "@news", expected: Target{Username: "@news"}},
		{ref: "news", expected: Target{Username: "@news"}},
		{ref: "-1001234567890", expected: Target{ChatID: -1001234567890}},
		{ref: "1234567890", expected: Target{ChatID: -1001234567890}},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := ParseTarget(tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := ParseTarget("  ")
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
}

func TestDeliver_Text(t *testing.T) {
	api := &fakeAPI{}
	s := newTestSender(api, fakeFetcher{}, 0)

	err := s.Deliver(context.Background(), domain.Delivery{Message: domain.Message{ID: 1, Text: "raw"}, Text: "clean", Cleaned: true})
	require.NoError(t, err)

	require.Len(t, api.sent, 1)

	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, "clean", msg.Text)
	assert.True(t, msg.DisableWebPagePreview)
	assert.Equal(t, "@target", msg.ChannelUsername)
}

func TestDeliver_NativeForward(t *testing.T) {
	api := &fakeAPI{}
	s := newTestSender(api, fakeFetcher{}, 0)

	err := s.Deliver(context.Background(), domain.Delivery{Message: domain.Message{ID: 9, ChannelID: 555, Text: "raw"}})
	require.NoError(t, err)

	fwd, ok := api.sent[0].(tgbotapi.ForwardConfig)
	require.True(t, ok)
	assert.Equal(t, int64(-1000000000555), fwd.FromChatID)
	assert.Equal(t, 9, fwd.MessageID)

	err = s.Deliver(context.Background(), domain.Delivery{Message: domain.Message{ID: 9}})
	assert.ErrorIs(t, err, apperrors.ErrDeliveryFailed)
}

func TestDeliver_PhotoWithCaption(t *testing.T) {
	api := &fakeAPI{}
	s := newTestSender(api, fakeFetcher{data: pngBytes}, 0)

	err := s.Deliver(context.Background(), domain.Delivery{
		Message: domain.Message{ID: 1, MediaKind: domain.MediaPhoto, Media: "photo"},
		Text:    "caption",
		Cleaned: true,
	})
	require.NoError(t, err)

	require.Len(t, api.sent, 1)

	photo, ok := api.sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Equal(t, "caption", photo.Caption)
}

func TestDeliver_PhotoCaptionTooLong(t *testing.T) {
	api := &fakeAPI{}
	s := newTestSender(api, fakeFetcher{data: pngBytes}, 0)

	caption := strings.Repeat("c", MaxCaptionSize+1)

	err := s.Deliver(context.Background(), domain.Delivery{
		Message: domain.Message{ID: 1, MediaKind: domain.MediaPhoto, Media: "photo"},
		Text:    caption,
		Cleaned: true,
	})
	require.NoError(t, err)

	require.Len(t, api.sent, 2)

	photo, ok := api.sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Empty(t, photo.Caption)

	msg, ok := api.sent[1].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, caption, msg.Text)
}

func TestDeliver_PhotoUnavailableFallsBackToText(t *testing.T) {
	api := &fakeAPI{}
	s := newTestSender(api, fakeFetcher{err: errFetch}, 0)

	err := s.Deliver(context.Background(), domain.Delivery{
		Message: domain.Message{ID: 1, MediaKind: domain.MediaPhoto, Media: "photo"},
		Text:    "caption",
		Cleaned: true,
	})
	require.NoError(t, err)

	require.Len(t, api.sent, 1)
	assert.IsType(t, tgbotapi.MessageConfig{}, api.sent[0])
}

func TestDeliver_ZeroRetryAfterNotRetried(t *testing.T) {
	limited := &tgbotapi.Error{Code: 429, Message: "Too Many Requests", ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 0}}
	api := &fakeAPI{errs: []error{limited}}
	s := newTestSender(api, fakeFetcher{}, 2)

	err := s.Deliver(context.Background(), domain.Delivery{Message: domain.Message{ID: 1}, Text: "hi", Cleaned: true})
	require.Error(t, err, "retry_after of zero is not retried")
	assert.Len(t, api.sent, 1)
}

func TestDeliver_CanceledContext(t *testing.T) {
	limited := &tgbotapi.Error{Code: 429, ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 1}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	api := &fakeAPI{errs: []error{limited}}
	s := newTestSender(api, fakeFetcher{}, 1)

	err := s.Deliver(ctx, domain.Delivery{Message: domain.Message{ID: 1}, Text: "hi", Cleaned: true})
	assert.ErrorIs(t, err, apperrors.ErrDeliveryFailed)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdefgh", 5))
}

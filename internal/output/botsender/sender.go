// Package botsender delivers relayed messages through the Telegram Bot API.
// The bot must be an administrator of the target channel.
package botsender

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
	"github.com/lueurxax/telegram-relay/internal/core/ports"
	"github.com/lueurxax/telegram-relay/internal/platform/config"
	"github.com/lueurxax/telegram-relay/internal/platform/observability"
)

const (
	MaxMessageSize = 4096
	MaxCaptionSize = 1024

	// Bot API chat ids of channels are the MTProto id offset by this value.
	channelIDOffset = -1000000000000

	methodForward     = "bot_forward"
	methodSendMessage = "bot_send_message"
	methodSendPhoto   = "bot_send_photo"

	fallbackCaption  = "caption_too_long"
	fallbackNoPhoto  = "photo_unavailable"
	fallbackWebPage  = "webpage_as_text"
	logFieldMimeType = "mime_type"
)

// botAPI is the part of tgbotapi.BotAPI used for delivery.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Target addresses the destination channel.
type Target struct {
	ChatID   int64
	Username string
}

// ParseTarget accepts "@name", "name", "-100123" or a bare MTProto id.
func ParseTarget(ref string) (Target, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Target{}, fmt.Errorf("%w: empty target channel", apperrors.ErrInvalidConfig)
	}

	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return Target{Username: "@" + strings.TrimPrefix(ref, "@")}, nil
	}

	if id > 0 {
		id = channelIDOffset - id
	}

	return Target{ChatID: id}, nil
}

func (t Target) base() tgbotapi.BaseChat {
	return tgbotapi.BaseChat{ChatID: t.ChatID, ChannelUsername: t.Username}
}

// Sender implements ports.Deliverer over the Bot API.
type Sender struct {
	api     botAPI
	media   ports.MediaFetcher
	target  Target
	limiter *rate.Limiter
	retries int
	logger  *zerolog.Logger
}

// New connects to the Bot API. media may be nil, in which case photos are
// relayed as text.
func New(fwd config.ForwardConfig, targetRef string, media ports.MediaFetcher, logger *zerolog.Logger) (*Sender, error) {
	target, err := ParseTarget(targetRef)
	if err != nil {
		return nil, err
	}

	api, err := tgbotapi.NewBotAPI(fwd.BotToken)
	if err != nil {
		return nil, fmt.Errorf("creating bot API: %w", err)
	}

	logger.Info().Str("bot", api.Self.UserName).Msg("Bot API authorized")

	return newSender(api, target, media, fwd, logger), nil
}

func newSender(api botAPI, target Target, media ports.MediaFetcher, fwd config.ForwardConfig, logger *zerolog.Logger) *Sender {
	limit := rate.Inf
	if fwd.RateLimitRPS > 0 {
		limit = rate.Limit(fwd.RateLimitRPS)
	}

	return &Sender{
		api:     api,
		media:   media,
		target:  target,
		limiter: rate.NewLimiter(limit, 1),
		retries: max(fwd.MaxRetries, 0),
		logger:  logger,
	}
}

// Deliver sends d to the target channel.
func (s *Sender) Deliver(ctx context.Context, d domain.Delivery) error {
	start := time.Now()
	method, err := s.deliver(ctx, d)

	observability.DeliveryDurationSeconds.WithLabelValues(method).Observe(time.Since(start).Seconds())

	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrDeliveryFailed, err)
	}

	return nil
}

func (s *Sender) deliver(ctx context.Context, d domain.Delivery) (string, error) {
	msg := d.Message

	if !d.Cleaned {
		return methodForward, s.forward(ctx, msg)
	}

	if msg.MediaKind == domain.MediaPhoto && msg.Media != nil {
		data, err := s.fetchPhoto(ctx, msg.Media)
		if err == nil {
			return methodSendPhoto, s.sendPhoto(ctx, msg.ID, data, d.Text)
		}

		observability.DeliveryFallbacks.WithLabelValues(fallbackNoPhoto).Inc()
		s.logger.Warn().Err(err).Int64("msg_id", msg.ID).Msg("Photo unavailable, relaying text only")
	}

	if msg.MediaKind == domain.MediaWebPage {
		observability.DeliveryFallbacks.WithLabelValues(fallbackWebPage).Inc()
	}

	if d.Text == "" {
		return methodForward, s.forward(ctx, msg)
	}

	return methodSendMessage, s.sendText(ctx, d.Text)
}

func (s *Sender) fetchPhoto(ctx context.Context, media any) ([]byte, error) {
	if s.media == nil {
		return nil, apperrors.ErrUnsupportedMedia
	}

	data, err := s.media.FetchMedia(ctx, media)
	if err != nil {
		return nil, err
	}

	if mimeType := http.DetectContentType(data); getImageFileName(mimeType) == "" {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedMedia, mimeType)
	}

	return data, nil
}

func (s *Sender) sendPhoto(ctx context.Context, msgID int64, data []byte, caption string) error {
	photo := tgbotapi.PhotoConfig{
		BaseFile: tgbotapi.BaseFile{
			BaseChat: s.target.base(),
			File: tgbotapi.FileBytes{
				Name:  getImageFileName(http.DetectContentType(data)),
				Bytes: data,
			},
		},
	}

	long := utf8.RuneCountInString(caption) > MaxCaptionSize
	if !long {
		photo.Caption = caption
	}

	if err := s.send(ctx, photo); err != nil {
		return err
	}

	if !long {
		return nil
	}

	observability.DeliveryFallbacks.WithLabelValues(fallbackCaption).Inc()
	s.logger.Warn().Int64("msg_id", msgID).Msg("Caption too long, sent photo and text separately")

	return s.sendText(ctx, caption)
}

func (s *Sender) sendText(ctx context.Context, text string) error {
	msg := tgbotapi.MessageConfig{
		BaseChat:              s.target.base(),
		Text:                  truncate(text, MaxMessageSize),
		DisableWebPagePreview: true,
	}

	return s.send(ctx, msg)
}

func (s *Sender) forward(ctx context.Context, msg domain.Message) error {
	if msg.ChannelID == 0 {
		return fmt.Errorf("%w: unknown source chat for native forward", apperrors.ErrUnsupportedMedia)
	}

	fwd := tgbotapi.ForwardConfig{
		BaseChat:   s.target.base(),
		FromChatID: channelIDOffset - msg.ChannelID,
		MessageID:  int(msg.ID),
	}

	return s.send(ctx, fwd)
}

// send paces c through the rate limiter and honors retry_after on 429.
func (s *Sender) send(ctx context.Context, c tgbotapi.Chattable) error {
	for attempt := 0; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		_, err := s.api.Send(c)
		if err == nil {
			return nil
		}

		var apiErr *tgbotapi.Error
		if !errors.As(err, &apiErr) || apiErr.RetryAfter <= 0 || attempt >= s.retries {
			return fmt.Errorf("bot api send: %w", err)
		}

		wait := time.Duration(apiErr.RetryAfter) * time.Second

		observability.FloodWaits.Inc()
		s.logger.Warn().Dur("wait", wait).Msg("Bot API rate limited")

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting retry_after: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
}

// getImageFileName returns the upload name for a MIME type, or "" when the
// format is not sent as a photo.
func getImageFileName(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return "photo.jpg"
	case "image/png":
		return "photo.png"
	case "image/webp":
		return "photo.webp"
	default:
		return ""
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	const ellipsis = "..."

	r := []rune(s)

	return string(r[:n-len(ellipsis)]) + ellipsis
}

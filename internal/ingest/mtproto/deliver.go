package mtproto

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
	"github.com/lueurxax/telegram-relay/internal/platform/observability"
)

const (
	maxMessageRunes = 4096
	maxCaptionRunes = 1024
	maxFloodWait    = 5 * time.Minute

	errFloodWait        = "FLOOD_WAIT"
	errCaptionTooLong   = "MEDIA_CAPTION_TOO_LONG"
	methodForward       = "forward"
	methodSendMessage   = "send_message"
	methodSendMedia     = "send_media"
	fallbackCaption     = "caption_too_long"
	fallbackWebPage     = "webpage_as_text"
	fallbackUnsupported = "unsupported_media"
)

// sender is the part of the Telegram API used for delivery.
type sender interface {
	MessagesSendMessage(ctx context.Context, req *tg.MessagesSendMessageRequest) (tg.UpdatesClass, error)
	MessagesSendMedia(ctx context.Context, req *tg.MessagesSendMediaRequest) (tg.UpdatesClass, error)
	MessagesForwardMessages(ctx context.Context, req *tg.MessagesForwardMessagesRequest) (tg.UpdatesClass, error)
}

// Deliver relays d to the target channel. Cleaned deliveries are sent anew,
// the rest are forwarded natively.
func (c *Client) Deliver(ctx context.Context, d domain.Delivery) error {
	c.mu.RLock()
	s, source, target := c.sender, c.source, c.target
	c.mu.RUnlock()

	if s == nil {
		return apperrors.ErrClientNotInitialized
	}

	start := time.Now()
	method, err := c.deliver(ctx, s, source, target, d)

	observability.DeliveryDurationSeconds.WithLabelValues(method).Observe(time.Since(start).Seconds())

	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrDeliveryFailed, err)
	}

	return nil
}

func (c *Client) deliver(ctx context.Context, s sender, source, target Channel, d domain.Delivery) (string, error) {
	msg := d.Message

	if !d.Cleaned {
		return methodForward, c.forward(ctx, s, source, target, msg.ID)
	}

	if msg.HasMedia() {
		media, err := inputMedia(msg.Media)
		if err != nil {
			observability.DeliveryFallbacks.WithLabelValues(fallbackUnsupported).Inc()
			c.logger.Warn().Err(err).Int64("msg_id", msg.ID).Msg("Media cannot be re-sent")

			if d.Text == "" {
				return methodForward, c.forward(ctx, s, source, target, msg.ID)
			}

			return methodSendMessage, c.sendText(ctx, s, target, d.Text)
		}

		return methodSendMedia, c.sendMediaWithFallback(ctx, s, target, media, d.Text, msg.ID)
	}

	if msg.MediaKind == domain.MediaWebPage {
		observability.DeliveryFallbacks.WithLabelValues(fallbackWebPage).Inc()
	}

	if d.Text == "" {
		return methodForward, c.forward(ctx, s, source, target, msg.ID)
	}

	return methodSendMessage, c.sendText(ctx, s, target, d.Text)
}

// sendMediaWithFallback sends media with its caption. A caption Telegram
// will not accept is sent as a separate message after the bare media.
func (c *Client) sendMediaWithFallback(ctx context.Context, s sender, target Channel, media tg.InputMediaClass, caption string, msgID int64) error {
	err := c.sendCaptioned(ctx, s, target, media, caption)
	if !errors.Is(err, apperrors.ErrCaptionTooLong) {
		return err
	}

	observability.DeliveryFallbacks.WithLabelValues(fallbackCaption).Inc()
	c.logger.Warn().Err(err).Int64("msg_id", msgID).Msg("Sending media and text separately")

	if err := c.sendMedia(ctx, s, target, media, ""); err != nil {
		return err
	}

	if caption == "" {
		return nil
	}

	return c.sendText(ctx, s, target, caption)
}

// sendCaptioned reports a caption that is too long, by count or by
// Telegram's verdict, as ErrCaptionTooLong.
func (c *Client) sendCaptioned(ctx context.Context, s sender, target Channel, media tg.InputMediaClass, caption string) error {
	if n := utf8.RuneCountInString(caption); n > maxCaptionRunes {
		return fmt.Errorf("%w: %d runes", apperrors.ErrCaptionTooLong, n)
	}

	err := c.sendMedia(ctx, s, target, media, caption)
	if tgerr.Is(err, errCaptionTooLong) {
		return fmt.Errorf("%w: %w", apperrors.ErrCaptionTooLong, err)
	}

	return err
}

func (c *Client) sendText(ctx context.Context, s sender, target Channel, text string) error {
	req := &tg.MessagesSendMessageRequest{
		Peer:      target.InputPeer(),
		Message:   truncateRunes(text, maxMessageRunes),
		NoWebpage: true,
		RandomID:  randomID(),
	}

	return c.call(ctx, methodSendMessage, func(ctx context.Context) error {
		_, err := s.MessagesSendMessage(ctx, req)

		return err
	})
}

func (c *Client) sendMedia(ctx context.Context, s sender, target Channel, media tg.InputMediaClass, caption string) error {
	req := &tg.MessagesSendMediaRequest{
		Peer:     target.InputPeer(),
		Media:    media,
		Message:  caption,
		RandomID: randomID(),
	}

	return c.call(ctx, methodSendMedia, func(ctx context.Context) error {
		_, err := s.MessagesSendMedia(ctx, req)

		return err
	})
}

func (c *Client) forward(ctx context.Context, s sender, source, target Channel, id int64) error {
	req := &tg.MessagesForwardMessagesRequest{
		FromPeer: source.InputPeer(),
		ID:       []int{int(id)},
		RandomID: []int64{randomID()},
		ToPeer:   target.InputPeer(),
	}

	return c.call(ctx, methodForward, func(ctx context.Context) error {
		_, err := s.MessagesForwardMessages(ctx, req)

		return err
	})
}

// call paces fn through the rate limiter and retries it after FLOOD_WAIT
// for the duration Telegram asks for. Other errors are returned at once.
func (c *Client) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	flood := &floodWaitBackOff{}
	policy := backoff.WithContext(backoff.WithMaxRetries(flood, uint64(c.retries)), ctx) //nolint:gosec // retries is validated non-negative

	return backoff.Retry(func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		if wait, ok := floodWait(err); ok {
			observability.FloodWaits.Inc()
			c.logger.Warn().Str("op", op).Dur("wait", wait).Msg("flood wait")

			flood.set(wait)

			return err
		}

		return backoff.Permanent(err)
	}, policy)
}

func floodWait(err error) (time.Duration, bool) {
	rpcErr, ok := tgerr.As(err)
	if !ok || rpcErr.Type != errFloodWait {
		return 0, false
	}

	return time.Duration(rpcErr.Argument) * time.Second, true
}

// floodWaitBackOff yields the wait of the last FLOOD_WAIT once, then stops.
type floodWaitBackOff struct {
	wait    time.Duration
	pending bool
}

func (b *floodWaitBackOff) set(wait time.Duration) {
	b.wait = wait
	b.pending = true
}

func (b *floodWaitBackOff) NextBackOff() time.Duration {
	if !b.pending || b.wait > maxFloodWait {
		return backoff.Stop
	}

	b.pending = false

	return b.wait
}

func (b *floodWaitBackOff) Reset() {}

var _ backoff.BackOff = (*floodWaitBackOff)(nil)

// Package mtproto connects to Telegram as a user account. It streams new
// posts of the source channel, lists its recent history and delivers relayed
// messages to the target channel.
package mtproto

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lueurxax/telegram-relay/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
	"github.com/lueurxax/telegram-relay/internal/platform/config"
)

const (
	streamBuffer      = 64
	historyPageSize   = 100
	dialogsPageSize   = 100
	defaultMaxRetries = 2
)

// Channel is a resolved channel peer.
type Channel struct {
	ID         int64
	AccessHash int64
	Title      string
	Username   string
}

// InputPeer returns the peer used in API requests.
func (c Channel) InputPeer() tg.InputPeerClass {
	return &tg.InputPeerChannel{ChannelID: c.ID, AccessHash: c.AccessHash}
}

// Client is the MTProto collaborator of the relay.
type Client struct {
	cfg      config.TelegramMTProtoConfig
	channels config.ChannelsConfig
	logger   *zerolog.Logger

	client  *telegram.Client
	limiter *rate.Limiter
	retries int
	stream  chan domain.Message

	mu     sync.RWMutex
	api    *tg.Client
	sender sender
	source Channel
	target Channel
}

// New creates a Client. Nothing is contacted until Run.
func New(cfg config.TelegramMTProtoConfig, channels config.ChannelsConfig, fwd config.ForwardConfig, logger *zerolog.Logger) *Client {
	limit := rate.Inf
	if fwd.RateLimitRPS > 0 {
		limit = rate.Limit(fwd.RateLimitRPS)
	}

	retries := fwd.MaxRetries
	if retries < 0 {
		retries = defaultMaxRetries
	}

	c := &Client{
		cfg:      cfg,
		channels: channels,
		logger:   logger,
		limiter:  rate.NewLimiter(limit, 1),
		retries:  retries,
		stream:   make(chan domain.Message, streamBuffer),
	}

	dispatcher := tg.NewUpdateDispatcher()
	dispatcher.OnNewChannelMessage(c.onNewChannelMessage)

	c.client = telegram.NewClient(cfg.APIID, cfg.APIHash, telegram.Options{
		SessionStorage: &telegram.FileSessionStorage{
			Path: cfg.SessionPath,
		},
		UpdateHandler: dispatcher,
	})

	return c
}

// Run connects, authenticates and resolves both channels, then calls ready.
// The connection lives until ready returns or ctx is canceled.
func (c *Client) Run(ctx context.Context, ready func(ctx context.Context) error) error {
	return c.client.Run(ctx, func(ctx context.Context) error {
		if err := c.client.Auth().IfNecessary(ctx, c.authFlow()); err != nil {
			return fmt.Errorf("authenticating: %w", err)
		}

		c.logger.Info().Msg("Successfully authenticated as user")

		api := c.client.API()

		source, err := c.resolve(ctx, api, c.channels.Source)
		if err != nil {
			return fmt.Errorf("resolving source channel: %w", err)
		}

		target, err := c.resolve(ctx, api, c.channels.Target)
		if err != nil {
			return fmt.Errorf("resolving target channel: %w", err)
		}

		c.mu.Lock()
		c.api = api
		c.sender = api
		c.source = source
		c.target = target
		c.mu.Unlock()

		c.logger.Info().
			Str("source", source.Title).
			Int64("source_id", source.ID).
			Str("target", target.Title).
			Int64("target_id", target.ID).
			Msg("Resolved relay channels")

		return ready(ctx)
	})
}

// Messages returns new posts of the source channel in arrival order.
// The stream is never closed; consumers stop on context cancellation.
func (c *Client) Messages() <-chan domain.Message {
	return c.stream
}

func (c *Client) onNewChannelMessage(ctx context.Context, _ tg.Entities, update *tg.UpdateNewChannelMessage) error {
	msg, ok := update.Message.(*tg.Message)
	if !ok {
		return nil
	}

	peer, ok := msg.PeerID.(*tg.PeerChannel)
	if !ok {
		return nil
	}

	c.mu.RLock()
	sourceID := c.source.ID
	c.mu.RUnlock()

	if sourceID == 0 || peer.ChannelID != sourceID {
		return nil
	}

	select {
	case c.stream <- toDomain(msg, sourceID):
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

// History lists source posts newer than since, oldest first, at most limit.
func (c *Client) History(ctx context.Context, since time.Time, limit int) ([]domain.Message, error) {
	c.mu.RLock()
	api, source := c.api, c.source
	c.mu.RUnlock()

	if api == nil {
		return nil, apperrors.ErrClientNotInitialized
	}

	var (
		out      []domain.Message
		offsetID int
	)

	for limit <= 0 || len(out) < limit {
		pageSize := historyPageSize
		if limit > 0 {
			pageSize = min(pageSize, limit-len(out))
		}

		var page []tg.MessageClass

		err := c.call(ctx, "history", func(ctx context.Context) error {
			res, err := api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
				Peer:     source.InputPeer(),
				OffsetID: offsetID,
				Limit:    pageSize,
			})
			if err != nil {
				return err
			}

			page = historyMessages(res)

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("getting history: %w", err)
		}

		done := len(page) < pageSize

		for _, m := range page {
			offsetID = m.GetID()

			msg, ok := m.(*tg.Message)
			if !ok {
				continue
			}

			date := time.Unix(int64(msg.Date), 0)
			if !date.After(since) {
				done = true

				break
			}

			out = append(out, toDomain(msg, source.ID))

			if limit > 0 && len(out) >= limit {
				break
			}
		}

		if done || len(page) == 0 {
			break
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func historyMessages(res tg.MessagesMessagesClass) []tg.MessageClass {
	switch h := res.(type) {
	case *tg.MessagesMessages:
		return h.Messages
	case *tg.MessagesMessagesSlice:
		return h.Messages
	case *tg.MessagesChannelMessages:
		return h.Messages
	default:
		return nil
	}
}

func (c *Client) resolve(ctx context.Context, api *tg.Client, ref string) (Channel, error) {
	username, id, err := parseChannelRef(ref)
	if err != nil {
		return Channel{}, err
	}

	if username != "" {
		resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: username})
		if err != nil {
			return Channel{}, fmt.Errorf("failed to resolve username: %w", err)
		}

		for _, chat := range resolved.Chats {
			if channel, ok := chat.(*tg.Channel); ok {
				return fromChannel(channel), nil
			}
		}

		if len(resolved.Chats) == 0 && len(resolved.Users) == 0 {
			return Channel{}, fmt.Errorf("%w: %s", apperrors.ErrChannelNotFound, ref)
		}

		return Channel{}, fmt.Errorf("%w: %s", apperrors.ErrNotAChannel, ref)
	}

	return c.resolveByID(ctx, api, id)
}

// resolveByID finds a channel among the account's dialogs, which carry the
// access hash a bare numeric id lacks.
func (c *Client) resolveByID(ctx context.Context, api *tg.Client, id int64) (Channel, error) {
	res, err := api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      dialogsPageSize,
	})
	if err != nil {
		return Channel{}, fmt.Errorf("failed to get dialogs: %w", err)
	}

	var chats []tg.ChatClass

	switch d := res.(type) {
	case *tg.MessagesDialogs:
		chats = d.Chats
	case *tg.MessagesDialogsSlice:
		chats = d.Chats
	}

	for _, chat := range chats {
		switch ch := chat.(type) {
		case *tg.Channel:
			if ch.ID == id {
				return fromChannel(ch), nil
			}
		case *tg.Chat:
			if ch.ID == id {
				return Channel{}, fmt.Errorf("%w: %d", apperrors.ErrNotAChannel, id)
			}
		}
	}

	return Channel{}, fmt.Errorf("%w: %d", apperrors.ErrChannelNotFound, id)
}

func fromChannel(ch *tg.Channel) Channel {
	return Channel{
		ID:         ch.ID,
		AccessHash: ch.AccessHash,
		Title:      ch.Title,
		Username:   ch.Username,
	}
}

func toDomain(msg *tg.Message, channelID int64) domain.Message {
	return domain.Message{
		ID:        int64(msg.ID),
		ChannelID: channelID,
		Text:      msg.Message,
		Date:      time.Unix(int64(msg.Date), 0),
		MediaKind: mediaKind(msg.Media),
		Media:     msg.Media,
		Raw:       msg,
	}
}

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/Priya8975/chatlog-relay/internal/domain"
	"github.com/Priya8975/chatlog-relay/internal/metrics"
	"github.com/Priya8975/chatlog-relay/internal/routing"
	"github.com/Priya8975/chatlog-relay/internal/webhook"
	ws "github.com/Priya8975/chatlog-relay/internal/websocket"
)

// ChannelResolver looks channels up in the session cache. *discordgo.State
// satisfies it.
type ChannelResolver interface {
	Channel(channelID string) (*discordgo.Channel, error)
}

// Submitter hands delivery jobs to the worker pool.
type Submitter interface {
	Submit(job domain.DeliveryJob) bool
}

// Broadcaster publishes relay events to live operator feeds.
type Broadcaster interface {
	Broadcast(event ws.RelayEvent)
}

// Relay decides, per inbound message, whether and where it is forwarded.
type Relay struct {
	routes   *routing.Table
	channels ChannelResolver
	parser   *webhook.Parser
	pool     Submitter
	metrics  *metrics.Recorder
	hub      Broadcaster
	logger   *slog.Logger
}

// Options carries the optional collaborators of a Relay.
type Options struct {
	Metrics *metrics.Recorder
	Hub     Broadcaster
}

func NewRelay(routes *routing.Table, channels ChannelResolver, parser *webhook.Parser, pool Submitter, logger *slog.Logger, opts Options) *Relay {
	return &Relay{
		routes:   routes,
		channels: channels,
		parser:   parser,
		pool:     pool,
		metrics:  opts.Metrics,
		hub:      opts.Hub,
		logger:   logger,
	}
}

// HandleMessage queues msg for delivery when its channel is routed. Bot
// messages are ignored. Failures are logged and never returned, so the
// caller can always continue with command processing.
func (r *Relay) HandleMessage(ctx context.Context, msg domain.InboundMessage) {
	if msg.AuthorIsBot {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("error processing message",
				"channel_id", msg.ChannelID,
				"error", fmt.Sprint(rec),
			)
		}
	}()

	entry, ok := r.routes.Lookup(msg.ChannelID)
	if !ok {
		return
	}

	if err := r.resolveLogChannel(entry.LogChannelID); err != nil {
		r.logger.Error("log channel not found",
			"channel_id", msg.ChannelID,
			"log_channel_id", entry.LogChannelID,
			"error", err,
		)
		r.skip(ctx, entry, domain.ChannelNotFound)
		return
	}

	if _, err := r.parser.Parse(entry.WebhookURL); err != nil {
		r.logger.Error("no valid webhook url for channel",
			"channel_id", msg.ChannelID,
			"endpoint", r.parser.Redact(entry.WebhookURL),
			"error", err,
		)
		r.skip(ctx, entry, domain.InvalidEndpoint)
		return
	}

	job := domain.DeliveryJob{
		ID:      uuid.NewString(),
		Entry:   entry,
		Message: msg,
	}
	r.pool.Submit(job)
}

func (r *Relay) resolveLogChannel(channelID string) error {
	ch, err := r.channels.Channel(channelID)
	if err != nil {
		return domain.NewError(domain.ChannelNotFound, "resolving log channel "+channelID, fmt.Errorf("%w: %v", domain.ErrChannelNotFound, err))
	}
	if ch == nil {
		return domain.NewError(domain.ChannelNotFound, "resolving log channel "+channelID, domain.ErrChannelNotFound)
	}
	return nil
}

func (r *Relay) skip(ctx context.Context, entry domain.RoutingEntry, kind domain.ErrorKind) {
	r.metrics.Skipped(ctx, kind.String())
	if r.hub == nil {
		return
	}
	r.hub.Broadcast(ws.RelayEvent{
		Type:            ws.EventSkipped,
		SourceChannelID: entry.SourceChannelID,
		LogChannelID:    entry.LogChannelID,
		Kind:            kind.String(),
		Timestamp:       time.Now(),
	})
}

package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Priya8975/chatlog-relay/internal/domain"
	"github.com/Priya8975/chatlog-relay/internal/metrics"
	"github.com/Priya8975/chatlog-relay/internal/webhook"
	ws "github.com/Priya8975/chatlog-relay/internal/websocket"
)

// Executor posts a payload to a webhook.
type Executor interface {
	Execute(ctx context.Context, rawURL string, params *discordgo.WebhookParams) error
}

// Broadcaster publishes relay events to live operator feeds.
type Broadcaster interface {
	Broadcast(event ws.RelayEvent)
}

// Deliverer relays one message to its log webhook. Failures are logged and
// counted, never returned.
type Deliverer struct {
	client  Executor
	cards   *webhook.CardBuilder
	redact  func(string) string
	metrics *metrics.Recorder
	hub     Broadcaster
	logger  *slog.Logger
}

// DelivererOptions carries the optional collaborators of a Deliverer.
type DelivererOptions struct {
	Redact  func(string) string
	Metrics *metrics.Recorder
	Hub     Broadcaster
}

// NewDeliverer creates a deliverer posting cards through client.
func NewDeliverer(client Executor, cards *webhook.CardBuilder, logger *slog.Logger, opts DelivererOptions) *Deliverer {
	redact := opts.Redact
	if redact == nil {
		redact = func(string) string { return "<redacted>" }
	}
	return &Deliverer{
		client:  client,
		cards:   cards,
		redact:  redact,
		metrics: opts.Metrics,
		hub:     opts.Hub,
		logger:  logger,
	}
}

// Deliver builds the card for job and posts it once.
func (d *Deliverer) Deliver(ctx context.Context, job domain.DeliveryJob) {
	start := time.Now()

	err := d.execute(ctx, job)
	elapsed := time.Since(start).Milliseconds()

	if err == nil {
		d.logger.Debug("relay delivered",
			"delivery_id", job.ID,
			"channel_id", job.Entry.SourceChannelID,
			"log_channel_id", job.Entry.LogChannelID,
			"response_time_ms", elapsed,
		)
		d.metrics.Delivery(ctx, metrics.OutcomeSuccess)
		d.publish(ws.RelayEvent{
			Type:       ws.EventDelivered,
			DeliveryID: job.ID,
			ResponseMs: elapsed,
		}, job)
		return
	}

	kind := domain.KindOf(err)
	d.logger.Error(failureMessage(kind),
		"delivery_id", job.ID,
		"channel_id", job.Entry.SourceChannelID,
		"log_channel_id", job.Entry.LogChannelID,
		"endpoint", d.redact(job.Entry.WebhookURL),
		"error", err,
	)
	d.metrics.Delivery(ctx, kind.String())
	d.publish(ws.RelayEvent{
		Type:       ws.EventFailed,
		DeliveryID: job.ID,
		Kind:       kind.String(),
		Error:      err.Error(),
		ResponseMs: elapsed,
	}, job)
}

// execute never panics past its caller.
func (d *Deliverer) execute(ctx context.Context, job domain.DeliveryJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.NewError(domain.UnexpectedFailure, "sending webhook", fmt.Errorf("panic: %v", r))
		}
	}()

	params := d.cards.Build(job.Message)
	return d.client.Execute(ctx, job.Entry.WebhookURL, params)
}

func (d *Deliverer) publish(event ws.RelayEvent, job domain.DeliveryJob) {
	if d.hub == nil {
		return
	}
	event.SourceChannelID = job.Entry.SourceChannelID
	event.LogChannelID = job.Entry.LogChannelID
	event.AuthorID = job.Message.AuthorID
	event.Endpoint = d.redact(job.Entry.WebhookURL)
	event.Timestamp = time.Now()
	d.hub.Broadcast(event)
}

func failureMessage(kind domain.ErrorKind) string {
	switch kind {
	case domain.InvalidEndpoint:
		return "invalid webhook"
	case domain.NetworkFailure:
		return "network error sending webhook"
	default:
		return "unexpected error sending webhook"
	}
}

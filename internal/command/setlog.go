package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Priya8975/chatlog-relay/internal/domain"
	"github.com/Priya8975/chatlog-relay/internal/metrics"
	"github.com/Priya8975/chatlog-relay/internal/routing"
	"github.com/Priya8975/chatlog-relay/internal/webhook"
	ws "github.com/Priya8975/chatlog-relay/internal/websocket"
)

const SetLogName = "setlog"

// Ephemeral replies of /setlog.
const (
	ReplySuccess        = "Chat log setup successfully!"
	ReplyInvalidWebhook = "Invalid webhook URL provided."
	ReplyFailedPrefix   = "Failed to validate webhook: "
	ReplyError          = "An error occurred while setting up the chat log."
	ReplyNotAdmin       = "You need the Administrator permission to use this command."
	ReplyMissingOption  = "Missing required option: "
)

const (
	optMainChannel = "main_channel"
	optLogChannel  = "log_channel"
	optWebhookURL  = "webhook_url"
)

// Validator confirms a webhook is live.
type Validator interface {
	Fetch(ctx context.Context, rawURL string) (*discordgo.Webhook, error)
}

// Responder answers interactions. *discordgo.Session satisfies it.
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Broadcaster publishes relay events to live operator feeds.
type Broadcaster interface {
	Broadcast(event ws.RelayEvent)
}

// SetLogRequest holds the /setlog options.
type SetLogRequest struct {
	MainChannelID string
	LogChannelID  string
	WebhookURL    string
}

// SetLog registers chat log routes. It is the only writer of the routing
// table.
type SetLog struct {
	routes    *routing.Table
	validator Validator
	parser    *webhook.Parser
	metrics   *metrics.Recorder
	hub       Broadcaster
	logger    *slog.Logger
}

// SetLogOptions carries the optional collaborators of SetLog.
type SetLogOptions struct {
	Metrics *metrics.Recorder
	Hub     Broadcaster
}

func NewSetLog(routes *routing.Table, validator Validator, parser *webhook.Parser, logger *slog.Logger, opts SetLogOptions) *SetLog {
	return &SetLog{
		routes:    routes,
		validator: validator,
		parser:    parser,
		metrics:   opts.Metrics,
		hub:       opts.Hub,
		logger:    logger,
	}
}

// Definition returns the slash command registered with Discord.
func (c *SetLog) Definition() *discordgo.ApplicationCommand {
	admin := int64(discordgo.PermissionAdministrator)
	dm := false
	textChannels := []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews}

	return &discordgo.ApplicationCommand{
		Name:                     SetLogName,
		Description:              "Sets up a chat log for a channel",
		DefaultMemberPermissions: &admin,
		DMPermission:             &dm,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:         discordgo.ApplicationCommandOptionChannel,
				Name:         optMainChannel,
				Description:  "The channel to log messages from",
				ChannelTypes: textChannels,
				Required:     true,
			},
			{
				Type:         discordgo.ApplicationCommandOptionChannel,
				Name:         optLogChannel,
				Description:  "The channel to send logs to",
				ChannelTypes: textChannels,
				Required:     true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        optWebhookURL,
				Description: "The webhook URL for logging",
				Required:    true,
			},
		},
	}
}

// Handle answers a /setlog interaction. Every reply is ephemeral.
func (c *SetLog) Handle(ctx context.Context, s Responder, i *discordgo.Interaction) {
	if !isAdmin(i) {
		c.respond(s, i, ReplyNotAdmin)
		return
	}

	req, missing := parseSetLog(i)
	if missing != "" {
		c.respond(s, i, ReplyMissingOption+missing+".")
		return
	}

	// validation can outlast the acknowledgement window
	err := s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		c.logger.Error("failed to acknowledge setlog", "interaction_id", i.ID, "error", err)
		return
	}

	reply := c.Register(ctx, req)
	if _, err := s.InteractionResponseEdit(i, &discordgo.WebhookEdit{Content: &reply}); err != nil {
		c.logger.Error("failed to answer setlog", "interaction_id", i.ID, "error", err)
	}
}

// Register validates the webhook and stores the route. It returns the reply
// shown to the invoking user.
func (c *SetLog) Register(ctx context.Context, req SetLogRequest) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("error setting chat log",
				"channel_id", req.MainChannelID,
				"log_channel_id", req.LogChannelID,
				"error", fmt.Sprint(r),
			)
			c.metrics.Registration(ctx, domain.UnexpectedFailure.String())
			reply = ReplyError
		}
	}()

	_, err := c.validator.Fetch(ctx, req.WebhookURL)
	if err != nil {
		kind := domain.KindOf(err)
		c.metrics.Registration(ctx, kind.String())

		switch kind {
		case domain.InvalidEndpoint:
			c.logger.Warn("setlog rejected invalid webhook",
				"channel_id", req.MainChannelID,
				"endpoint", c.parser.Redact(req.WebhookURL),
				"error", err,
			)
			return ReplyInvalidWebhook
		case domain.NetworkFailure:
			c.logger.Warn("setlog could not reach webhook",
				"channel_id", req.MainChannelID,
				"endpoint", c.parser.Redact(req.WebhookURL),
				"error", err,
			)
			return ReplyFailedPrefix + cause(err)
		default:
			c.logger.Error("error setting chat log",
				"channel_id", req.MainChannelID,
				"log_channel_id", req.LogChannelID,
				"endpoint", c.parser.Redact(req.WebhookURL),
				"error", err,
			)
			return ReplyError
		}
	}

	c.routes.Upsert(domain.RoutingEntry{
		SourceChannelID: req.MainChannelID,
		LogChannelID:    req.LogChannelID,
		WebhookURL:      req.WebhookURL,
	})
	c.logger.Info("chat log set",
		"channel_id", req.MainChannelID,
		"log_channel_id", req.LogChannelID,
	)
	c.metrics.Registration(ctx, metrics.OutcomeSuccess)
	if c.hub != nil {
		c.hub.Broadcast(ws.RelayEvent{
			Type:            ws.EventRouteSet,
			SourceChannelID: req.MainChannelID,
			LogChannelID:    req.LogChannelID,
			Endpoint:        c.parser.Redact(req.WebhookURL),
			Timestamp:       time.Now(),
		})
	}
	return ReplySuccess
}

func (c *SetLog) respond(s Responder, i *discordgo.Interaction, content string) {
	err := s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		c.logger.Error("failed to answer setlog", "interaction_id", i.ID, "error", err)
	}
}

func isAdmin(i *discordgo.Interaction) bool {
	if i.Member == nil {
		return false
	}
	return i.Member.Permissions&discordgo.PermissionAdministrator != 0
}

// parseSetLog reads the options of i, reporting the first missing one.
func parseSetLog(i *discordgo.Interaction) (SetLogRequest, string) {
	var req SetLogRequest
	for _, opt := range i.ApplicationCommandData().Options {
		value, _ := opt.Value.(string)
		switch opt.Name {
		case optMainChannel:
			req.MainChannelID = value
		case optLogChannel:
			req.LogChannelID = value
		case optWebhookURL:
			req.WebhookURL = value
		}
	}

	switch {
	case req.MainChannelID == "":
		return req, optMainChannel
	case req.LogChannelID == "":
		return req, optLogChannel
	case req.WebhookURL == "":
		return req, optWebhookURL
	}
	return req, ""
}

// cause describes err without echoing the request URL, which carries the
// webhook token.
func cause(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if errors.Is(urlErr.Err, context.DeadlineExceeded) {
			return "request timed out"
		}
		return urlErr.Err.Error()
	}
	var statusErr *webhook.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("webhook responded %d", statusErr.StatusCode)
	}
	return err.Error()
}

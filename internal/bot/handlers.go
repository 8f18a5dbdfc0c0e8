package bot

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/fatih/color"

	"github.com/Priya8975/chatlog-relay/internal/command"
	"github.com/Priya8975/chatlog-relay/internal/domain"
)

// MessageRelay forwards monitored messages.
type MessageRelay interface {
	HandleMessage(ctx context.Context, msg domain.InboundMessage)
}

// SlashCommand is an application command served by the bot.
type SlashCommand interface {
	Definition() *discordgo.ApplicationCommand
	Handle(ctx context.Context, s command.Responder, i *discordgo.Interaction)
}

// Presence updates the bot activity.
type Presence interface {
	UpdateWatchStatus(idle int, name string) error
}

// CommandRegistrar overwrites the application commands of the bot.
type CommandRegistrar interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// Config tunes the gateway handlers.
type Config struct {
	GuildID    string
	StatusText string
	Banner     bool
	// BannerOut receives the startup banner. Nil disables it.
	BannerOut io.Writer
}

// Handlers binds gateway events to the relay and the commands.
type Handlers struct {
	ctx      context.Context
	relay    MessageRelay
	router   *command.Router
	commands map[string]SlashCommand
	cfg      Config
	logger   *slog.Logger

	bannerOnce sync.Once
	syncOnce   sync.Once
	// tracks work moved off the gateway goroutine
	inflight sync.WaitGroup
}

// NewHandlers creates the handler set. ctx bounds all work started by
// gateway events.
func NewHandlers(ctx context.Context, relay MessageRelay, router *command.Router, cmds []SlashCommand, cfg Config, logger *slog.Logger) *Handlers {
	byName := make(map[string]SlashCommand, len(cmds))
	for _, c := range cmds {
		byName[c.Definition().Name] = c
	}
	return &Handlers{
		ctx:      ctx,
		relay:    relay,
		router:   router,
		commands: byName,
		cfg:      cfg,
		logger:   logger,
	}
}

// Register attaches the handlers to s. s must dispatch events synchronously
// (see NewSession) for messages of a channel to be relayed in order.
func (h *Handlers) Register(s *discordgo.Session) {
	s.AddHandler(h.Ready)
	s.AddHandler(h.MessageCreate)
	s.AddHandler(h.InteractionCreate)
}

// MessageCreate relays the message, then runs any prefix command in it. It
// runs on the gateway goroutine and only blocks while the worker queue is
// full.
func (h *Handlers) MessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	h.onMessage(s, m.Message)
}

func (h *Handlers) onMessage(s command.Replier, m *discordgo.Message) {
	msg := inbound(m)
	if msg.AuthorIsBot {
		return
	}
	h.relay.HandleMessage(h.ctx, msg)
	h.router.Dispatch(h.ctx, s, msg)
}

// InteractionCreate serves application commands by name. Commands run on
// their own goroutine since validation can block up to the delivery timeout.
func (h *Handlers) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.spawn(func() { h.onInteraction(s, i.Interaction) })
}

func (h *Handlers) onInteraction(s command.Responder, i *discordgo.Interaction) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	name := i.ApplicationCommandData().Name
	c, ok := h.commands[name]
	if !ok {
		h.logger.Warn("unknown command", "command", name, "interaction_id", i.ID)
		return
	}
	c.Handle(h.ctx, s, i)
}

// Ready sets the presence, syncs commands and prints the banner once.
func (h *Handlers) Ready(s *discordgo.Session, r *discordgo.Ready) {
	h.spawn(func() { h.onReady(s, s, r) })
}

// Wait blocks until spawned interaction and ready work has returned.
func (h *Handlers) Wait() {
	h.inflight.Wait()
}

func (h *Handlers) spawn(fn func()) {
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		fn()
	}()
}

func (h *Handlers) onReady(p Presence, reg CommandRegistrar, r *discordgo.Ready) {
	if err := p.UpdateWatchStatus(0, h.cfg.StatusText); err != nil {
		h.logger.Error("error in ready", "error", err)
	}

	h.syncOnce.Do(func() {
		appID := r.User.ID
		if r.Application != nil && r.Application.ID != "" {
			appID = r.Application.ID
		}
		h.SyncCommands(reg, appID)
	})

	if h.cfg.Banner && h.cfg.BannerOut != nil {
		h.bannerOnce.Do(func() { printBanner(h.cfg.BannerOut, r.User) })
	}

	h.logger.Info("bot connected", "user", r.User.String(), "guilds", len(r.Guilds))
}

// SyncCommands publishes the slash commands, in the configured guild when
// set. Failures are logged.
func (h *Handlers) SyncCommands(reg CommandRegistrar, appID string) {
	defs := make([]*discordgo.ApplicationCommand, 0, len(h.commands))
	for _, c := range h.commands {
		defs = append(defs, c.Definition())
	}

	synced, err := reg.ApplicationCommandBulkOverwrite(appID, h.cfg.GuildID, defs)
	if err != nil {
		h.logger.Error("error syncing slash commands", "guild_id", h.cfg.GuildID, "error", err)
		return
	}
	h.logger.Info("synchronized slash commands", "count", len(synced), "guild_id", h.cfg.GuildID)
}

var bannerLines = []string{
	"+--------------------------------------+",
	"|                                      |",
	"|        C H A T L O G   R E L A Y     |",
	"|                                      |",
	"|    channel messages, forwarded       |",
	"|                                      |",
	"+--------------------------------------+",
}

var bannerColors = []color.Attribute{
	color.FgRed, color.FgYellow, color.FgGreen, color.FgCyan,
	color.FgBlue, color.FgMagenta, color.FgWhite,
}

func printBanner(w io.Writer, user *discordgo.User) {
	color.New(color.FgCyan).Fprintln(w, "\nBot is booting up...")
	for i, line := range bannerLines {
		color.New(bannerColors[i%len(bannerColors)]).Fprintln(w, line)
	}
	color.New(color.FgGreen).Fprintf(w, "%s is now online!\n\n", user.String())
}

package command

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/Priya8975/chatlog-relay/internal/domain"
)

// Replier sends channel messages. *discordgo.Session satisfies it.
type Replier interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// HandlerFunc runs a prefix command. args excludes the command name.
type HandlerFunc func(ctx context.Context, s Replier, msg domain.InboundMessage, args []string) error

// Router dispatches prefix commands found in channel messages, such as
// "!ping". Register all commands before the first Dispatch.
type Router struct {
	prefix   string
	handlers map[string]HandlerFunc
	logger   *slog.Logger
}

// NewRouter creates a router with the built-in ping and help commands.
func NewRouter(prefix string, logger *slog.Logger) *Router {
	r := &Router{
		prefix:   prefix,
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}
	r.Register("ping", func(ctx context.Context, s Replier, msg domain.InboundMessage, _ []string) error {
		_, err := s.ChannelMessageSend(msg.ChannelID, "pong")
		return err
	})
	r.Register("help", r.help)
	return r
}

// Register adds or replaces the command name.
func (r *Router) Register(name string, fn HandlerFunc) {
	r.handlers[strings.ToLower(name)] = fn
}

// Dispatch runs the command in msg, if any, and reports whether one ran.
// Handler errors and panics are logged.
func (r *Router) Dispatch(ctx context.Context, s Replier, msg domain.InboundMessage) (ran bool) {
	if msg.AuthorIsBot || !strings.HasPrefix(msg.Content, r.prefix) {
		return false
	}

	fields := strings.Fields(strings.TrimPrefix(msg.Content, r.prefix))
	if len(fields) == 0 {
		return false
	}
	name := strings.ToLower(fields[0])
	fn, ok := r.handlers[name]
	if !ok {
		return false
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("error processing commands",
				"command", name,
				"channel_id", msg.ChannelID,
				"error", fmt.Sprint(rec),
			)
		}
	}()

	if err := fn(ctx, s, msg, fields[1:]); err != nil {
		r.logger.Error("error processing commands",
			"command", name,
			"channel_id", msg.ChannelID,
			"error", err,
		)
	}
	return true
}

func (r *Router) help(_ context.Context, s Replier, msg domain.InboundMessage, _ []string) error {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, r.prefix+name)
	}
	sort.Strings(names)
	_, err := s.ChannelMessageSend(msg.ChannelID, "Commands: "+strings.Join(names, ", ")+" and /setlog")
	return err
}

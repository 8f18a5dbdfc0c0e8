package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Intents requested from the gateway.
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

// NewSession creates a bot session that dispatches gateway events one at a
// time in arrival order. discordgo otherwise runs each handler call on its
// own goroutine, which reorders messages of the same channel.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	s.Identify.Intents = Intents
	s.StateEnabled = true
	s.SyncEvents = true
	return s, nil
}

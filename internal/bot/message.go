package bot

import (
	"github.com/bwmarrin/discordgo"

	"github.com/Priya8975/chatlog-relay/internal/domain"
)

// inbound converts a gateway message. Authors without a custom avatar get
// an empty AuthorAvatarURL.
func inbound(m *discordgo.Message) domain.InboundMessage {
	msg := domain.InboundMessage{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Content:   m.Content,
		CreatedAt: m.Timestamp,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorName = m.Author.String()
		msg.AuthorIsBot = m.Author.Bot
		if m.Author.Avatar != "" {
			msg.AuthorAvatarURL = m.Author.AvatarURL("")
		}
	}
	return msg
}

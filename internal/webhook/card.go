package webhook

import (
	"math/rand/v2"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/Priya8975/chatlog-relay/internal/domain"
)

const (
	CardTitle       = "New Message"
	NoContentText   = "No text content"
	descriptionHead = "**Message:**\n"
	maxDescription  = 4096
)

// NamedColor is a palette entry.
type NamedColor struct {
	Name  string
	Value int
}

// Palette is the set of accent colors a card is painted with.
var Palette = []NamedColor{
	{"red", 0xe74c3c},
	{"blue", 0x3498db},
	{"green", 0x2ecc71},
	{"purple", 0x9b59b6},
	{"orange", 0xe67e22},
	{"teal", 0x1abc9c},
	{"magenta", 0xe91e63},
	{"gold", 0xf1c40f},
	{"dark_red", 0x992d22},
	{"dark_blue", 0x206694},
}

// CardBuilder turns messages into webhook payloads.
type CardBuilder struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewCardBuilder returns a builder drawing colors from rng. A zero seed
// picks a time based one.
func NewCardBuilder(seed int64) *CardBuilder {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &CardBuilder{rng: rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1))}
}

func (b *CardBuilder) color() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Palette[b.rng.IntN(len(Palette))].Value
}

// Build renders msg as an embed posted under the author's name and avatar.
func (b *CardBuilder) Build(msg domain.InboundMessage) *discordgo.WebhookParams {
	content := msg.Content
	if content == "" {
		content = NoContentText
	}

	embed := &discordgo.MessageEmbed{
		Title:       CardTitle,
		Description: truncate(descriptionHead+content, maxDescription),
		Color:       b.color(),
		Author: &discordgo.MessageEmbedAuthor{
			Name:    msg.AuthorName,
			IconURL: msg.AuthorAvatarURL,
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "User ID: " + msg.AuthorID,
		},
	}
	if !msg.CreatedAt.IsZero() {
		embed.Timestamp = msg.CreatedAt.UTC().Format(time.RFC3339)
	}

	return &discordgo.WebhookParams{
		Username:  msg.AuthorName,
		AvatarURL: msg.AuthorAvatarURL,
		Embeds:    []*discordgo.MessageEmbed{embed},
		// relayed content must never ping anyone in the log channel
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	}
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}

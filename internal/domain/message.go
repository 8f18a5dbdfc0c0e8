package domain

import "time"

// InboundMessage is the platform-neutral view of a chat message the relay
// works with. It is built per event and never stored.
type InboundMessage struct {
	ID              string
	AuthorID        string
	AuthorName      string
	AuthorAvatarURL string // empty when the author has no custom avatar
	ChannelID       string
	GuildID         string
	Content         string
	CreatedAt       time.Time
	AuthorIsBot     bool
}

// DeliveryJob is a single relay of one message to one routing entry.
type DeliveryJob struct {
	ID      string
	Entry   RoutingEntry
	Message InboundMessage
}

package domain

// RoutingEntry binds a monitored source channel to its log destination.
// Entries are passed by value so a delivery can never mutate the table.
type RoutingEntry struct {
	SourceChannelID string `json:"source_channel_id"`
	LogChannelID    string `json:"log_channel_id"`
	WebhookURL      string `json:"webhook_url"`
}

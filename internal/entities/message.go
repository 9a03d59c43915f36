package entities

type Message struct {
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
	Platform  string `json:"platform"` // e.g. "chat", "telegram"
}

// Platforms known to the relay.
const (
	PlatformChat     = "chat"
	PlatformTelegram = "telegram"
)

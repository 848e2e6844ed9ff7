package webhook

import (
	"airwatch/internal/notifications/core"
)

// Platform identifies a webhook destination platform.
type Platform string

const (
	// PlatformGeneric posts the alert as-is.
	PlatformGeneric Platform = "generic"

	// PlatformSlack represents Slack incoming webhooks.
	PlatformSlack Platform = "slack"

	// PlatformDiscord represents Discord webhook endpoints.
	PlatformDiscord Platform = "discord"
)

// Formatter turns an alert into a platform-specific JSON body.
type Formatter interface {
	Platform() Platform
	Format(alert core.Alert) ([]byte, error)
}

// GenericPayload is the body sent to endpoints that match no known platform.
type GenericPayload struct {
	Event string     `json:"event"`
	Alert core.Alert `json:"alert"`
}

// SlackPayload is a minimal Slack Block Kit message.
type SlackPayload struct {
	Text   string       `json:"text"`
	Blocks []SlackBlock `json:"blocks"`
}

// SlackBlock is a single Block Kit block.
type SlackBlock struct {
	Type   string       `json:"type"`
	Text   *SlackText   `json:"text,omitempty"`
	Fields []*SlackText `json:"fields,omitempty"`
}

// SlackText is a Block Kit text object.
type SlackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// DiscordPayload is a Discord execute-webhook body with one embed.
type DiscordPayload struct {
	Content string         `json:"content"`
	Embeds  []DiscordEmbed `json:"embeds"`
}

// DiscordEmbed is a Discord rich embed.
type DiscordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp"`
}

package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	"airwatch/internal/notifications/core"
	"airwatch/internal/types"
)

// EventRiskEscalation names the generic payload event.
const EventRiskEscalation = "risk_escalation"

// GenericFormatter posts the alert under a stable envelope.
type GenericFormatter struct{}

func (GenericFormatter) Platform() Platform { return PlatformGeneric }

func (GenericFormatter) Format(alert core.Alert) ([]byte, error) {
	return json.Marshal(GenericPayload{Event: EventRiskEscalation, Alert: alert})
}

// SlackFormatter renders a header block plus a field section.
type SlackFormatter struct{}

func (SlackFormatter) Platform() Platform { return PlatformSlack }

func (SlackFormatter) Format(alert core.Alert) ([]byte, error) {
	return json.Marshal(SlackPayload{
		Text: fmt.Sprintf("%s: %s", alert.Title, alert.Body),
		Blocks: []SlackBlock{
			{Type: "header", Text: &SlackText{Type: "plain_text", Text: alert.Title}},
			{Type: "section", Text: &SlackText{Type: "mrkdwn", Text: alert.Body}},
			{Type: "section", Fields: []*SlackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Now:* %s", alert.Current)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Predicted:* %s", alert.Predicted)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Confidence:* %.0f%%", alert.Confidence*100)},
			}},
		},
	})
}

// DiscordFormatter renders a single coloured embed.
type DiscordFormatter struct{}

func (DiscordFormatter) Platform() Platform { return PlatformDiscord }

func (DiscordFormatter) Format(alert core.Alert) ([]byte, error) {
	return json.Marshal(DiscordPayload{
		Content: alert.Title,
		Embeds: []DiscordEmbed{{
			Title:       alert.Title,
			Description: alert.Body,
			Color:       levelColor(alert.Predicted),
			Timestamp:   alert.CreatedAt.Format(time.RFC3339),
		}},
	})
}

// levelColor matches the map legend: green, amber, red.
func levelColor(l types.RiskLevel) int {
	switch l {
	case types.RiskHigh:
		return 0xEF4444
	case types.RiskMedium:
		return 0xF59E0B
	default:
		return 0x10B981
	}
}

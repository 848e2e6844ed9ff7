package core

import (
	"context"

	"airwatch/internal/types"
)

// LogChannel writes alerts to the structured log. It is the local stand-in
// for a desktop notification and never fails.
type LogChannel struct {
	logger types.Logger
}

// NewLogChannel creates a LogChannel.
func NewLogChannel(logger types.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Type() types.ChannelType { return types.ChannelLog }

func (c *LogChannel) Deliver(_ context.Context, alert Alert) error {
	c.logger.Warn(alert.Title,
		"alert_id", alert.ID,
		"body", alert.Body,
		"current", string(alert.Current),
		"predicted", string(alert.Predicted),
		"confidence", alert.Confidence,
	)
	return nil
}

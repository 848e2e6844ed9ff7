// Package webhook delivers alerts as JSON POSTs to a user-configured URL.
//
// The payload shape is picked from the URL (Slack, Discord, or a generic
// envelope). Requests go through external.Client for circuit breaking and
// retries, may carry a bearer token, and are HMAC-signed when a secret is
// configured.
package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"airwatch/internal/external"
	"airwatch/internal/notifications/core"
	"airwatch/internal/types"
)

// ErrEndpointGone is returned once the endpoint has answered 410. The channel
// stays disabled for the rest of the process lifetime.
var ErrEndpointGone = errors.New("webhook endpoint gone")

// maxResponseBodyRead bounds how much of an error response is kept.
const maxResponseBodyRead = 4096

// Compile-time assertion that Channel implements core.Channel.
var _ core.Channel = (*Channel)(nil)

// Config describes the webhook destination.
type Config struct {
	URL      string
	Token    types.SecretString
	Secret   types.SecretString
	Platform string
}

// Channel implements core.Channel for webhook delivery.
type Channel struct {
	cfg       Config
	formatter Formatter
	client    *external.Client
	clock     types.Clock
	logger    types.Logger
	gone      atomic.Bool
}

// NewChannel validates cfg and builds a Channel.
func NewChannel(cfg Config, client *external.Client, clock types.Clock, logger types.Logger) (*Channel, error) {
	u := strings.ToLower(cfg.URL)
	if !strings.HasPrefix(u, "https://") && !strings.HasPrefix(u, "http://") {
		return nil, fmt.Errorf("webhook channel: url must be http(s), got %q", cfg.URL)
	}
	if client == nil {
		return nil, fmt.Errorf("webhook channel: client is nil")
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	return &Channel{
		cfg:       cfg,
		formatter: FormatterFor(Detect(cfg.URL, cfg.Platform)),
		client:    client,
		clock:     clock,
		logger:    logger,
	}, nil
}

func (c *Channel) Type() types.ChannelType { return types.ChannelWebhook }

// Platform reports the detected payload format.
func (c *Channel) Platform() Platform { return c.formatter.Platform() }

// Deliver POSTs the alert. Any non-2xx outcome is an error.
func (c *Channel) Deliver(ctx context.Context, alert core.Alert) error {
	if c.gone.Load() {
		return ErrEndpointGone
	}

	payload, err := c.formatter.Format(alert)
	if err != nil {
		return fmt.Errorf("webhook deliver: format: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("webhook deliver: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := c.cfg.Token.Unmask(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if secret := c.cfg.Secret.Unmask(); secret != "" {
		req.Header.Set(SignatureHeader, Sign(payload, secret, c.clock.Now()))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyRead))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		c.logger.Info("webhook delivered",
			"alert_id", alert.ID,
			"platform", string(c.formatter.Platform()),
			"status", resp.StatusCode,
		)
		return nil
	case resp.StatusCode == http.StatusGone:
		c.gone.Store(true)
		c.logger.Warn("webhook endpoint gone, disabling channel", "alert_id", alert.ID)
		return ErrEndpointGone
	default:
		return types.NewAppErrorWithDetails(types.ErrCodeUpstreamWebhook,
			fmt.Sprintf("webhook returned %d", resp.StatusCode), nil,
			map[string]any{"status": resp.StatusCode, "body": truncate(body, 256)})
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

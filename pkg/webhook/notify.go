package webhook

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ccollicutt/fraglog/pkg/config"
	"github.com/ccollicutt/fraglog/pkg/report"
)

// ShouldFire reports whether a webhook with the given trigger fires for rep.
func ShouldFire(trigger config.WebhookTrigger, rep *report.Report) bool {
	switch trigger {
	case config.WebhookTriggerAlways:
		return true
	case config.WebhookTriggerNever:
		return false
	default: // on_completed
		return rep.CompletedMatches() > 0
	}
}

// Notify sends rep to every webhook whose trigger fires and returns how many
// deliveries succeeded. Failures are logged, never returned.
func (c *Client) Notify(ctx context.Context, rep *report.Report, hooks []config.WebhookConfig, log logrus.FieldLogger) int {
	if log == nil {
		log = logrus.StandardLogger()
	}

	sent := 0
	for _, wh := range hooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}
		entry := log.WithField("webhook", name)

		if !ShouldFire(wh.Trigger, rep) {
			entry.WithField("trigger", wh.Trigger).Debug("webhook skipped")
			continue
		}

		resp := c.Send(ctx, rep, SendOptions{
			URL:     wh.URL,
			Token:   wh.Token,
			Timeout: wh.Timeout,
		})

		if resp.Success() {
			sent++
			entry.WithFields(logrus.Fields{
				"status":   resp.StatusCode,
				"duration": resp.Duration,
			}).Info("webhook sent")
		} else {
			entry.WithError(resp.Error).Warn("webhook failed")
		}
	}
	return sent
}

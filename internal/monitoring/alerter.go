package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-cli/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertQueueSaturation AlertType = "queue_saturation"
	AlertDeadLetters     AlertType = "dead_letters"
	AlertStoreFailures   AlertType = "store_failures"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates pipeline snapshots against configured thresholds and
// sends alerts via webhook when thresholds are breached. Counter-based
// checks fire on the delta since the previous evaluation, so a backlog
// that was already alerted on does not re-alert every interval.
type Alerter struct {
	cfg      config.MonitoringConfig
	queueCap int
	client   *http.Client

	prev Snapshot
}

// NewAlerter creates a new Alerter. queueCapacity is the indexation
// queue's maximum size, used for the saturation check; zero disables it.
func NewAlerter(cfg config.MonitoringConfig, queueCapacity int) *Alerter {
	return &Alerter{
		cfg:      cfg,
		queueCap: queueCapacity,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap Snapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if a.queueCap > 0 && a.cfg.QueueSaturationThreshold > 0 {
		saturation := float64(snap.QueueDepth) / float64(a.queueCap)
		if saturation >= a.cfg.QueueSaturationThreshold {
			alerts = append(alerts, Alert{
				Type:     AlertQueueSaturation,
				Severity: "high",
				Message: fmt.Sprintf(
					"Indexation queue %.0f%% full (%d of %d), producers are blocking",
					saturation*100, snap.QueueDepth, a.queueCap,
				),
				Details: map[string]any{
					"queue_depth": snap.QueueDepth,
					"capacity":    a.queueCap,
					"threshold":   a.cfg.QueueSaturationThreshold,
				},
				Timestamp: now,
			})
		}
	}

	if newDead := snap.DeadLettered - a.prev.DeadLettered; a.cfg.DeadLetterThreshold > 0 && newDead >= a.cfg.DeadLetterThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertDeadLetters,
			Severity: "high",
			Message: fmt.Sprintf(
				"%d product(s) dead-lettered since last check (%d total)",
				newDead, snap.DeadLettered,
			),
			Details: map[string]any{
				"new_dead_letters":   newDead,
				"total_dead_letters": snap.DeadLettered,
			},
			Timestamp: now,
		})
	}

	if newFailures := snap.StoreFailures - a.prev.StoreFailures; newFailures > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertStoreFailures,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%d bulk store failure(s) since last check (%d total)",
				newFailures, snap.StoreFailures,
			),
			Details: map[string]any{
				"new_failures":   newFailures,
				"total_failures": snap.StoreFailures,
			},
			Timestamp: now,
		})
	}

	a.prev = snap
	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}

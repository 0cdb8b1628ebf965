package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Notifier dispatches run lifecycle notifications. Dispatch is fire-and-forget:
// failures are logged and never surfaced to the triggering transition.
type Notifier interface {
	RunEvent(runID, event string)
}

// NotifyConfig configures the HTTP notifier.
type NotifyConfig struct {
	URL     string
	Timeout time.Duration
}

// HTTPNotifier posts run events to the notification collaborator.
type HTTPNotifier struct {
	client *http.Client
	url    string
	logger *zap.Logger
}

// NewHTTPNotifier constructs a notifier. An empty URL disables dispatch.
func NewHTTPNotifier(cfg NotifyConfig, logger *zap.Logger) *HTTPNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPNotifier{
		client: &http.Client{Timeout: timeout},
		url:    cfg.URL,
		logger: logger,
	}
}

// RunEvent posts {"runId": ...} to the configured endpoint in the background.
func (n *HTTPNotifier) RunEvent(runID, event string) {
	if n.url == "" {
		n.logger.Info("notify stub", zap.String("run_id", runID), zap.String("event", event))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.client.Timeout)
		defer cancel()

		payload, err := json.Marshal(map[string]string{"runId": runID, "event": event})
		if err != nil {
			n.logger.Warn("notify payload marshal failed", zap.String("run_id", runID), zap.Error(err))
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
		if err != nil {
			n.logger.Warn("notify request build failed", zap.String("run_id", runID), zap.Error(err))
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			n.logger.Warn("notify dispatch failed", zap.String("run_id", runID), zap.String("event", event), zap.Error(err))
			return
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode >= 400 {
			n.logger.Warn("notify dispatch rejected", zap.String("run_id", runID), zap.String("event", event), zap.Error(fmt.Errorf("status %d", resp.StatusCode)))
		}
	}()
}

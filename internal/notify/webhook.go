package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/callgrade/callgrade/internal/config"
	"github.com/callgrade/callgrade/internal/pipeline"
)

const deliverTimeout = 10 * time.Second

// Notifier fans a run result out to the configured webhook targets.
type Notifier struct {
	webhooks []config.WebhookConfig
	client   *http.Client
}

// New creates a Notifier. An empty webhook list is valid — Deliver becomes
// a no-op.
func New(webhooks []config.WebhookConfig) *Notifier {
	return &Notifier{
		webhooks: webhooks,
		client:   &http.Client{Timeout: deliverTimeout},
	}
}

// Deliver sends the run result to all configured targets. Errors are logged
// but do not affect the caller: notification is best-effort and the run
// outcome is already final.
func (n *Notifier) Deliver(res pipeline.Result) {
	for _, wh := range n.webhooks {
		url := wh.URL()
		if url == "" {
			slog.Warn("notify: webhook url env is unset — skipping", "type", wh.Type)
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = n.sendSlack(url, res)
		case "teams":
			err = n.sendTeams(url, res)
		case "http":
			err = n.sendHTTP(url, res)
		default:
			slog.Warn("notify: unknown webhook type — skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("notify: webhook delivery failed", "type", wh.Type, "err", err)
		} else {
			slog.Debug("notify: webhook delivered", "type", wh.Type, "success", res.Success)
		}
	}
}

func (n *Notifier) sendSlack(url string, res pipeline.Result) error {
	text := res.Report
	if !res.Success && text == "" {
		text = "SLA run failed: " + res.Error
	}
	body, _ := json.Marshal(map[string]string{"text": text})
	return n.post(url, body)
}

func (n *Notifier) sendTeams(url string, res pipeline.Result) error {
	payload := map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": resultColor(res),
		"summary":    "Call Center SLA Report",
		"title":      "Call Center SLA Report",
		"text":       res.Report,
	}
	body, _ := json.Marshal(payload)
	return n.post(url, body)
}

func (n *Notifier) sendHTTP(url string, res pipeline.Result) error {
	body, _ := json.Marshal(map[string]interface{}{"result": res})
	return n.post(url, body)
}

func (n *Notifier) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func resultColor(res pipeline.Result) string {
	if res.Success {
		return "2EB67D"
	}
	return "E01E5A"
}

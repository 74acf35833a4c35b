// Package notify forwards completed analysis results to downstream
// automation. Notification failures are reported to the caller, which logs
// and drops them.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/raysh454/observer/internal/logging"
	"github.com/raysh454/observer/internal/model"
	"github.com/raysh454/observer/internal/webclient"
)

type Notifier interface {
	Notify(ctx context.Context, result *model.AnalysisResult) error
}

type Config struct {
	// WebhookURL is the automation webhook; empty disables it.
	WebhookURL string `yaml:"webhook_url"`

	// NATSURL enables publishing on NATSSubject when set.
	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`

	Timeout time.Duration `yaml:"timeout"`
}

func DefaultConfig() Config {
	return Config{
		NATSSubject: "observer.analysis",
		Timeout:     10 * time.Second,
	}
}

// ─── Webhook ───────────────────────────────────────────────────────────

// WebhookNotifier POSTs each result as JSON.
type WebhookNotifier struct {
	url     string
	timeout time.Duration
	wc      webclient.WebClient
	logger  logging.Logger
}

func NewWebhookNotifier(url string, timeout time.Duration, wc webclient.WebClient, logger logging.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	return &WebhookNotifier{
		url:     url,
		timeout: timeout,
		wc:      wc,
		logger:  logging.OrNop(logger).With(logging.Field{Key: "notifier", Value: "webhook"}),
	}
}

func (w *WebhookNotifier) Notify(ctx context.Context, result *model.AnalysisResult) error {
	if w.wc == nil {
		return fmt.Errorf("webhook notify: webclient is nil")
	}
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("webhook notify: marshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	resp, err := w.wc.Do(ctx, &webclient.Request{
		Method:  http.MethodPost,
		URL:     w.url,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return fmt.Errorf("webhook notify: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("webhook notify: status %d", resp.StatusCode)
	}
	w.logger.Debug("analysis forwarded", logging.Field{Key: "analysis_id", Value: result.ID})
	return nil
}

// ─── NATS ──────────────────────────────────────────────────────────────

// NATSNotifier publishes each result as JSON on a subject.
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
	logger  logging.Logger
}

func NewNATSNotifier(url, subject string, logger logging.Logger) (*NATSNotifier, error) {
	conn, err := nats.Connect(url, nats.Name("observer"))
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	if subject == "" {
		subject = DefaultConfig().NATSSubject
	}
	return &NATSNotifier{
		conn:    conn,
		subject: subject,
		logger:  logging.OrNop(logger).With(logging.Field{Key: "notifier", Value: "nats"}),
	}, nil
}

func (n *NATSNotifier) Notify(ctx context.Context, result *model.AnalysisResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("nats notify: marshal: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("nats notify: publish: %w", err)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("nats notify: flush: %w", err)
	}
	return nil
}

func (n *NATSNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	err := n.conn.Drain()
	n.conn.Close()
	return err
}

// ─── Fan-out ───────────────────────────────────────────────────────────

// Multi notifies every member and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, result *model.AnalysisResult) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

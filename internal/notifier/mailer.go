package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/solarshop412/solar-shop-sub000/internal/platform/config"
	"github.com/solarshop412/solar-shop-sub000/internal/platform/jobs"
	"github.com/solarshop412/solar-shop-sub000/internal/services"
)

const defaultWebhookTimeout = 10 * time.Second

// Sender delivers a rendered Email.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// TemplateMailer renders notifications into emails and hands them to a Sender.
type TemplateMailer struct {
	sender Sender
	from   string
}

var _ Mailer = (*TemplateMailer)(nil)

// NewTemplateMailer returns a Mailer that stamps every email with from.
func NewTemplateMailer(sender Sender, from string) (*TemplateMailer, error) {
	if sender == nil {
		return nil, errors.New("notifier: sender is required")
	}
	return &TemplateMailer{sender: sender, from: strings.TrimSpace(from)}, nil
}

func (m *TemplateMailer) SendOrderConfirmation(ctx context.Context, recipient string, order services.OrderNotification, admin bool) error {
	return m.send(ctx, renderOrderConfirmation(recipient, order, admin))
}

func (m *TemplateMailer) SendOrderStatusChange(ctx context.Context, recipient string, change services.StatusChangeNotification) error {
	return m.send(ctx, renderStatusChange(recipient, change))
}

func (m *TemplateMailer) SendCompanyApproval(ctx context.Context, recipient string, company services.CompanyNotification) error {
	return m.send(ctx, renderCompanyApproval(recipient, company))
}

func (m *TemplateMailer) send(ctx context.Context, email Email) error {
	email.From = m.from
	return m.sender.Send(ctx, email)
}

// LogSender writes emails to the log. It is the default for local runs.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender returns a Sender backed by logger.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, email Email) error {
	s.logger.Info("email",
		zap.String("kind", email.Kind),
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
		zap.Int("body_bytes", len(email.Text)),
	)
	return nil
}

// WebhookSender posts emails as JSON to a transactional mail relay.
type WebhookSender struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewWebhookSender builds a sender for cfg.Endpoint. Requests carry cfg.AuthToken as a bearer token.
func NewWebhookSender(cfg config.MailerConfig) (*WebhookSender, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("notifier: webhook endpoint is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookSender{
		endpoint: endpoint,
		token:    strings.TrimSpace(cfg.AuthToken),
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// Send returns a permanent error for 4xx responses other than 408 and 429 so the message is
// not redelivered forever.
func (s *WebhookSender) Send(ctx context.Context, email Email) error {
	body, err := json.Marshal(email)
	if err != nil {
		return jobs.Permanent(fmt.Errorf("marshal email: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return jobs.Permanent(fmt.Errorf("build mail request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("mail relay request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return fmt.Errorf("mail relay responded %d", resp.StatusCode)
	default:
		return jobs.Permanent(fmt.Errorf("mail relay rejected email with %d", resp.StatusCode))
	}
}

// NewSender selects the delivery backend named by cfg.Driver.
func NewSender(cfg config.MailerConfig, logger *zap.Logger) (Sender, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", config.MailerDriverLog:
		return NewLogSender(logger), nil
	case config.MailerDriverWebhook:
		return NewWebhookSender(cfg)
	default:
		return nil, fmt.Errorf("notifier: unknown mailer driver %q", cfg.Driver)
	}
}

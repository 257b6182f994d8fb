// Package notifier delivers queued order and company notifications through a Mailer.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/solarshop412/solar-shop-sub000/internal/platform/jobs"
	"github.com/solarshop412/solar-shop-sub000/internal/services"
)

const (
	instrumentationName   = "github.com/solarshop412/solar-shop-sub000/internal/notifier"
	defaultHandlerTimeout = 30 * time.Second
)

// Source yields notifications to a handler until its context ends.
type Source interface {
	Receive(ctx context.Context, handle jobs.Handler) error
}

// Mailer sends the three customer-facing notifications.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, recipient string, order services.OrderNotification, admin bool) error
	SendOrderStatusChange(ctx context.Context, recipient string, change services.StatusChangeNotification) error
	SendCompanyApproval(ctx context.Context, recipient string, company services.CompanyNotification) error
}

// WorkerDeps bundles collaborators for the notification worker.
type WorkerDeps struct {
	Source         Source
	Mailer         Mailer
	Logger         *zap.Logger
	Meter          metric.Meter
	HandlerTimeout time.Duration
}

// Worker pulls notifications from a Source and hands them to a Mailer.
type Worker struct {
	source    Source
	mailer    Mailer
	logger    *zap.Logger
	timeout   time.Duration
	delivered metric.Int64Counter
}

// NewWorker validates deps and registers delivery metrics.
func NewWorker(deps WorkerDeps) (*Worker, error) {
	if deps.Source == nil {
		return nil, errors.New("notifier: source is required")
	}
	if deps.Mailer == nil {
		return nil, errors.New("notifier: mailer is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := deps.HandlerTimeout
	if timeout <= 0 {
		timeout = defaultHandlerTimeout
	}
	meter := deps.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(instrumentationName)
	}
	delivered, err := meter.Int64Counter(
		"notifications.delivered",
		metric.WithDescription("Count of notification deliveries by kind and outcome"),
	)
	if err != nil {
		logger.Warn("notifier metrics registration failed", zap.Error(err))
	}
	return &Worker{
		source:    deps.Source,
		mailer:    deps.Mailer,
		logger:    logger,
		timeout:   timeout,
		delivered: delivered,
	}, nil
}

// Run consumes until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("notifier worker started")
	defer w.logger.Info("notifier worker stopped")
	return w.source.Receive(ctx, w.Handle)
}

// Handle delivers one notification. Malformed messages and unknown kinds fail permanently.
func (w *Worker) Handle(ctx context.Context, message services.NotificationMessage) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	err := w.dispatch(ctx, message)
	outcome := "sent"
	switch {
	case err == nil:
		w.logger.Info("notification sent",
			zap.String("id", message.ID),
			zap.String("kind", message.Kind),
		)
	case errors.Is(err, jobs.ErrPermanent):
		outcome = "rejected"
	default:
		outcome = "failed"
	}
	if w.delivered != nil {
		w.delivered.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", message.Kind),
			attribute.String("outcome", outcome),
		))
	}
	return err
}

func (w *Worker) dispatch(ctx context.Context, message services.NotificationMessage) error {
	if message.Recipient == "" {
		return jobs.Permanent(fmt.Errorf("notification %s has no recipient", message.ID))
	}
	switch message.Kind {
	case services.NotificationOrderConfirmation, services.NotificationOrderConfirmationAdmin:
		if message.Order == nil {
			return jobs.Permanent(fmt.Errorf("notification %s: order payload missing", message.ID))
		}
		admin := message.Kind == services.NotificationOrderConfirmationAdmin
		return w.mailer.SendOrderConfirmation(ctx, message.Recipient, *message.Order, admin)
	case services.NotificationOrderStatusChanged:
		if message.StatusChange == nil {
			return jobs.Permanent(fmt.Errorf("notification %s: status change payload missing", message.ID))
		}
		return w.mailer.SendOrderStatusChange(ctx, message.Recipient, *message.StatusChange)
	case services.NotificationCompanyApproval:
		if message.Company == nil {
			return jobs.Permanent(fmt.Errorf("notification %s: company payload missing", message.ID))
		}
		return w.mailer.SendCompanyApproval(ctx, message.Recipient, *message.Company)
	default:
		return jobs.Permanent(fmt.Errorf("notification %s: unknown kind %q", message.ID, message.Kind))
	}
}

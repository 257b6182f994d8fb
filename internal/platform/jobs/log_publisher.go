package jobs

import (
	"context"

	"go.uber.org/zap"

	"github.com/solarshop412/solar-shop-sub000/internal/services"
)

// LogNotificationPublisher records notifications in the log instead of a broker. It backs local
// runs and the memory store.
type LogNotificationPublisher struct {
	logger *zap.Logger
}

var _ services.NotificationPublisher = (*LogNotificationPublisher)(nil)

// NewLogNotificationPublisher returns a publisher writing to logger.
func NewLogNotificationPublisher(logger *zap.Logger) *LogNotificationPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotificationPublisher{logger: logger}
}

func (p *LogNotificationPublisher) PublishNotification(_ context.Context, message services.NotificationMessage) (string, error) {
	p.logger.Info("notification published",
		zap.String("id", message.ID),
		zap.String("kind", message.Kind),
		zap.String("recipient", message.Recipient),
		zap.Time("occurred_at", message.OccurredAt),
	)
	return message.ID, nil
}

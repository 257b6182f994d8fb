package jobs

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// PubSubSource delivers notifications from a Pub/Sub subscription. Failed messages are nacked
// for redelivery unless the handler reports a permanent failure.
type PubSubSource struct {
	sub    *pubsub.Subscription
	logger *zap.Logger
}

// NewPubSubSource wraps sub.
func NewPubSubSource(sub *pubsub.Subscription, logger *zap.Logger) (*PubSubSource, error) {
	if sub == nil {
		return nil, errors.New("pubsub source: subscription is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PubSubSource{sub: sub, logger: logger}, nil
}

// Receive blocks until ctx is cancelled or the subscription fails.
func (s *PubSubSource) Receive(ctx context.Context, handle Handler) error {
	err := s.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		message, err := decodeNotification(msg.Data)
		if err == nil {
			err = handle(ctx, message)
		}
		switch {
		case err == nil:
			msg.Ack()
		case errors.Is(err, ErrPermanent):
			s.logger.Warn("notification dropped", zap.String("message_id", msg.ID), zap.Error(err))
			msg.Ack()
		default:
			s.logger.Error("notification handling failed", zap.String("message_id", msg.ID), zap.Error(err))
			msg.Nack()
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("pubsub receive: %w", err)
	}
	return nil
}

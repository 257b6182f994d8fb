package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/solarshop412/solar-shop-sub000/internal/services"
)

// ErrPermanent marks handler failures that redelivery cannot fix.
var ErrPermanent = errors.New("jobs: permanent failure")

// Permanent wraps err so sources acknowledge the message instead of redelivering it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Handler processes one decoded notification.
type Handler func(ctx context.Context, message services.NotificationMessage) error

func decodeNotification(data []byte) (services.NotificationMessage, error) {
	var message services.NotificationMessage
	if err := json.Unmarshal(data, &message); err != nil {
		return services.NotificationMessage{}, Permanent(fmt.Errorf("decode notification: %w", err))
	}
	if message.Kind == "" {
		return services.NotificationMessage{}, Permanent(errors.New("decode notification: kind is required"))
	}
	return message, nil
}

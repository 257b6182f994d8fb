package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/solarshop412/solar-shop-sub000/internal/services"
)

// PubSubNotificationPublisher publishes order and company notifications to a Pub/Sub topic.
type PubSubNotificationPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

var _ services.NotificationPublisher = (*PubSubNotificationPublisher)(nil)

// NewPubSubNotificationPublisher constructs a Pub/Sub backed notification publisher.
func NewPubSubNotificationPublisher(topic *pubsub.Topic) (*PubSubNotificationPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub notification publisher: topic is required")
	}
	return &PubSubNotificationPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishNotification enqueues the message and waits for the server-assigned ID.
func (p *PubSubNotificationPublisher) PublishNotification(ctx context.Context, message services.NotificationMessage) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub notification publisher: not initialised")
	}

	data, err := p.marshal(message)
	if err != nil {
		return "", fmt.Errorf("marshal notification: %w", err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: messageAttributes(message),
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish notification: %w", err)
	}
	return id, nil
}

// messageAttributes carries routing fields alongside the payload so subscribers can filter
// without decoding.
func messageAttributes(message services.NotificationMessage) map[string]string {
	attrs := make(map[string]string)
	setAttr(attrs, "notificationId", message.ID)
	setAttr(attrs, "kind", message.Kind)
	switch {
	case message.Order != nil:
		setAttr(attrs, "orderId", message.Order.OrderID)
	case message.StatusChange != nil:
		setAttr(attrs, "orderId", message.StatusChange.OrderID)
		setAttr(attrs, "axis", message.StatusChange.Axis)
	case message.Company != nil:
		setAttr(attrs, "companyId", message.Company.CompanyID)
	}
	return attrs
}

// messageKey groups messages for one aggregate onto the same partition.
func messageKey(message services.NotificationMessage) string {
	attrs := messageAttributes(message)
	if id := attrs["orderId"]; id != "" {
		return id
	}
	if id := attrs["companyId"]; id != "" {
		return id
	}
	return message.ID
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}

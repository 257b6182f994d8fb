package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/segmentio/kafka-go"

	"github.com/solarshop412/solar-shop-sub000/internal/platform/config"
	"github.com/solarshop412/solar-shop-sub000/internal/services"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotificationPublisher writes notifications to a Kafka topic keyed by order or company.
type KafkaNotificationPublisher struct {
	writer  messageWriter
	marshal func(any) ([]byte, error)
}

var _ services.NotificationPublisher = (*KafkaNotificationPublisher)(nil)

// NewKafkaNotificationPublisher builds a publisher with a kafka-go writer for cfg.
func NewKafkaNotificationPublisher(cfg config.KafkaConfig) (*KafkaNotificationPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka notification publisher: brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka notification publisher: topic is required")
	}
	return newKafkaNotificationPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}), nil
}

func newKafkaNotificationPublisher(writer messageWriter) *KafkaNotificationPublisher {
	return &KafkaNotificationPublisher{writer: writer, marshal: json.Marshal}
}

// PublishNotification writes the message synchronously. The returned ID is the notification ID
// because Kafka does not assign one.
func (p *KafkaNotificationPublisher) PublishNotification(ctx context.Context, message services.NotificationMessage) (string, error) {
	if p == nil || p.writer == nil {
		return "", errors.New("kafka notification publisher: not initialised")
	}

	data, err := p.marshal(message)
	if err != nil {
		return "", fmt.Errorf("marshal notification: %w", err)
	}

	attrs := messageAttributes(message)
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	headers := make([]kafka.Header, 0, len(keys))
	for _, key := range keys {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(attrs[key])})
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(messageKey(message)),
		Value:   data,
		Headers: headers,
	})
	if err != nil {
		return "", fmt.Errorf("publish notification: %w", err)
	}
	return message.ID, nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaNotificationPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

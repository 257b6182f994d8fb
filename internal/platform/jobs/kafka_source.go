package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/googleapis/gax-go/v2"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/solarshop412/solar-shop-sub000/internal/platform/config"
)

const defaultKafkaAttempts = 5

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSource consumes notifications from a Kafka consumer group. Kafka has no negative
// acknowledgement, so transient failures are retried in place with backoff before the offset
// is committed.
type KafkaSource struct {
	reader      messageReader
	backoff     gax.Backoff
	maxAttempts int
	logger      *zap.Logger
}

// NewKafkaSource builds a consumer-group reader for cfg.
func NewKafkaSource(cfg config.KafkaConfig, logger *zap.Logger) (*KafkaSource, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" || cfg.GroupID == "" {
		return nil, errors.New("kafka source: brokers, topic and group id are required")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MaxBytes: 10e6,
	})
	return newKafkaSource(reader, logger), nil
}

func newKafkaSource(reader messageReader, logger *zap.Logger) *KafkaSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaSource{
		reader: reader,
		backoff: gax.Backoff{
			Initial:    200 * time.Millisecond,
			Max:        10 * time.Second,
			Multiplier: 2,
		},
		maxAttempts: defaultKafkaAttempts,
		logger:      logger,
	}
}

// Receive blocks until ctx is cancelled or the reader fails.
func (s *KafkaSource) Receive(ctx context.Context, handle Handler) error {
	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka fetch: %w", err)
		}

		if !s.process(ctx, msg, handle) {
			return nil
		}

		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka commit: %w", err)
		}
	}
}

// process reports false when ctx ended before the message was settled.
func (s *KafkaSource) process(ctx context.Context, msg kafka.Message, handle Handler) bool {
	fields := []zap.Field{
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	}

	message, err := decodeNotification(msg.Value)
	if err != nil {
		s.logger.Warn("notification dropped", append(fields, zap.Error(err))...)
		return true
	}

	bo := s.backoff
	for attempt := 1; ; attempt++ {
		err := handle(ctx, message)
		if err == nil {
			return true
		}
		if errors.Is(err, ErrPermanent) {
			s.logger.Warn("notification dropped", append(fields, zap.String("id", message.ID), zap.Error(err))...)
			return true
		}
		if attempt >= s.maxAttempts {
			s.logger.Error("notification abandoned after retries",
				append(fields, zap.String("id", message.ID), zap.Int("attempts", attempt), zap.Error(err))...)
			return true
		}
		s.logger.Warn("notification handling failed; retrying",
			append(fields, zap.String("id", message.ID), zap.Int("attempt", attempt), zap.Error(err))...)
		if err := gax.Sleep(ctx, bo.Pause()); err != nil {
			return false
		}
	}
}

// Close releases the consumer group membership.
func (s *KafkaSource) Close() error {
	if s == nil || s.reader == nil {
		return nil
	}
	return s.reader.Close()
}

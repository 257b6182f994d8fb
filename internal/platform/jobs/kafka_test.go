package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/googleapis/gax-go/v2"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/solarshop412/solar-shop-sub000/internal/platform/config"
	"github.com/solarshop412/solar-shop-sub000/internal/services"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

type fakeReader struct {
	queue     chan kafka.Message
	mu        sync.Mutex
	committed []int64
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	queue := make(chan kafka.Message, len(msgs))
	for _, msg := range msgs {
		queue <- msg
	}
	return &fakeReader{queue: queue}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case msg := <-r.queue:
		return msg, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range msgs {
		r.committed = append(r.committed, msg.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) offsets() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func kafkaMessage(t *testing.T, offset int64, message services.NotificationMessage) kafka.Message {
	t.Helper()
	data, err := json.Marshal(message)
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: data}
}

func TestKafkaNotificationPublisherKeysByOrder(t *testing.T) {
	writer := &fakeWriter{}
	publisher := newKafkaNotificationPublisher(writer)

	id, err := publisher.PublishNotification(t.Context(), confirmationMessage())
	require.NoError(t, err)
	assert.Equal(t, "ntf_test", id)

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, "ord_1", string(msg.Key))

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, map[string]string{
		"kind":           services.NotificationOrderConfirmation,
		"notificationId": "ntf_test",
		"orderId":        "ord_1",
	}, headers)

	var payload services.NotificationMessage
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, "ana@example.com", payload.Recipient)

	require.NoError(t, publisher.Close())
	assert.True(t, writer.closed)
}

func TestKafkaNotificationPublisherWrapsWriteErrors(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker down")}
	publisher := newKafkaNotificationPublisher(writer)

	_, err := publisher.PublishNotification(t.Context(), confirmationMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestNewKafkaNotificationPublisherValidatesConfig(t *testing.T) {
	_, err := NewKafkaNotificationPublisher(configWithBrokers(nil, "topic"))
	assert.Error(t, err)
	_, err = NewKafkaNotificationPublisher(configWithBrokers([]string{"localhost:9092"}, ""))
	assert.Error(t, err)
}

func TestKafkaSourceRetriesThenCommits(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	core, logs := observer.New(zap.DebugLevel)
	reader := newFakeReader(
		kafkaMessage(t, 1, confirmationMessage()),
		kafka.Message{Offset: 2, Value: []byte("garbage")},
	)
	source := newKafkaSource(reader, zap.New(core))
	source.backoff = gax.Backoff{Initial: time.Millisecond, Max: time.Millisecond, Multiplier: 1}

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- source.Receive(ctx, func(_ context.Context, message services.NotificationMessage) error {
			attempts++
			if attempts < 3 {
				return errors.New("smtp timeout")
			}
			return nil
		})
	}()

	require.Eventually(t, func() bool { return len(reader.offsets()) == 2 }, 3*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int64{1, 2}, reader.offsets())
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 2, logs.FilterMessage("notification handling failed; retrying").Len())
	assert.Equal(t, 1, logs.FilterMessage("notification dropped").Len())
}

func TestKafkaSourceAbandonsAfterMaxAttempts(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	core, logs := observer.New(zap.DebugLevel)
	reader := newFakeReader(kafkaMessage(t, 7, confirmationMessage()))
	source := newKafkaSource(reader, zap.New(core))
	source.backoff = gax.Backoff{Initial: time.Millisecond, Max: time.Millisecond, Multiplier: 1}
	source.maxAttempts = 2

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- source.Receive(ctx, func(context.Context, services.NotificationMessage) error {
			return errors.New("always failing")
		})
	}()

	require.Eventually(t, func() bool { return len(reader.offsets()) == 1 }, 3*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 1, logs.FilterMessage("notification abandoned after retries").Len())
}

func TestKafkaSourcePermanentFailureSkipsRetries(t *testing.T) {
	reader := newFakeReader(kafkaMessage(t, 3, confirmationMessage()))
	source := newKafkaSource(reader, nil)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- source.Receive(ctx, func(context.Context, services.NotificationMessage) error {
			attempts++
			return Permanent(errors.New("unknown template"))
		})
	}()

	require.Eventually(t, func() bool { return len(reader.offsets()) == 1 }, 3*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 1, attempts)
}

func TestLogNotificationPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	publisher := NewLogNotificationPublisher(zap.New(core))

	id, err := publisher.PublishNotification(t.Context(), confirmationMessage())
	require.NoError(t, err)
	assert.Equal(t, "ntf_test", id)

	entries := logs.FilterMessage("notification published").All()
	require.Len(t, entries, 1)
	assert.Equal(t, services.NotificationOrderConfirmation, entries[0].ContextMap()["kind"])
}

func configWithBrokers(brokers []string, topic string) config.KafkaConfig {
	return config.KafkaConfig{Brokers: brokers, Topic: topic}
}

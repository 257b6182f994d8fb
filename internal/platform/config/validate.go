package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError lists config fields that are missing or hold an unusable value.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns the offending field names in the order they were found.
func (e *ValidationError) Fields() []string {
	return slices.Clone(e.fields)
}

// validate checks cfg against the selected drivers. Fields that failed to parse are reported
// first.
func validate(cfg Config, unparsable []string) error {
	bad := slices.Clone(unparsable)
	require := func(ok bool, field string) {
		if !ok && !slices.Contains(bad, field) {
			bad = append(bad, field)
		}
	}

	require(cfg.Server.Port != "", "Server.Port")

	switch cfg.Store.Driver {
	case StoreDriverFirestore:
		require(cfg.Firestore.ProjectID != "", "Firestore.ProjectID")
	case StoreDriverPostgres:
		require(cfg.Postgres.DSN != "", "Postgres.DSN")
		require(cfg.Postgres.MaxConns > 0, "Postgres.MaxConns")
	case StoreDriverMemory:
	default:
		require(false, "Store.Driver")
	}

	require(cfg.Stock.OperationTimeout > 0, "Stock.OperationTimeout")
	require(cfg.Stock.CompensationTimeout > 0, "Stock.CompensationTimeout")
	require(len(cfg.Orders.DefaultCurrency) == 3, "Orders.DefaultCurrency")

	switch cfg.Notifications.Driver {
	case NotifyDriverPubSub:
		require(cfg.Notifications.PubSub.ProjectID != "", "Notifications.PubSub.ProjectID")
		require(cfg.Notifications.PubSub.Topic != "", "Notifications.PubSub.Topic")
	case NotifyDriverKafka:
		require(len(cfg.Notifications.Kafka.Brokers) > 0, "Notifications.Kafka.Brokers")
		require(cfg.Notifications.Kafka.Topic != "", "Notifications.Kafka.Topic")
	case NotifyDriverLog:
	default:
		require(false, "Notifications.Driver")
	}

	switch cfg.Mailer.Driver {
	case MailerDriverWebhook:
		require(cfg.Mailer.Endpoint != "", "Mailer.Endpoint")
	case MailerDriverLog:
	default:
		require(false, "Mailer.Driver")
	}

	require(cfg.Idempotency.Header != "", "Idempotency.Header")
	require(cfg.Idempotency.TTL > 0, "Idempotency.TTL")
	require(cfg.Idempotency.CleanupInterval > 0, "Idempotency.CleanupInterval")
	require(cfg.Idempotency.CleanupBatchSize > 0, "Idempotency.CleanupBatchSize")

	if len(bad) > 0 {
		return &ValidationError{fields: bad}
	}
	return nil
}

package config

import (
	"context"
	"time"
)

const (
	defaultEnvFile              = ".env"
	defaultPort                 = "8080"
	defaultReadTimeout          = 15 * time.Second
	defaultWriteTimeout         = 30 * time.Second
	defaultIdleTimeout          = 120 * time.Second
	defaultStoreDriver          = StoreDriverFirestore
	defaultPostgresMaxConns     = 10
	defaultStockOpTimeout       = 5 * time.Second
	defaultCompensationTimeout  = 15 * time.Second
	defaultOrderNumberPrefix    = "SS"
	defaultOrderCurrency        = "EUR"
	defaultNotifyDriver         = NotifyDriverLog
	defaultPubSubTopic          = "order-notifications"
	defaultPubSubSubscription   = "order-notifications-mailer"
	defaultKafkaTopic           = "order-notifications"
	defaultKafkaGroupID         = "order-notifier"
	defaultMailerDriver         = MailerDriverLog
	defaultMailerTimeout        = 10 * time.Second
	defaultSecurityEnvironment  = "local"
	defaultIdempotencyHeader    = "Idempotency-Key"
	defaultIdempotencyTTL       = 24 * time.Hour
	defaultIdempotencyInterval  = time.Hour
	defaultIdempotencyBatchSize = 200
)

// Store drivers supported by the repository registry.
const (
	StoreDriverFirestore = "firestore"
	StoreDriverPostgres  = "postgres"
	StoreDriverMemory    = "memory"
)

// Notification transports supported by the outbound publisher.
const (
	NotifyDriverPubSub = "pubsub"
	NotifyDriverKafka  = "kafka"
	NotifyDriverLog    = "log"
)

// Mailer drivers used by the notifier worker.
const (
	MailerDriverLog     = "log"
	MailerDriverWebhook = "webhook"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server        ServerConfig
	Store         StoreConfig
	Firestore     FirestoreConfig
	Postgres      PostgresConfig
	Stock         StockConfig
	Orders        OrderConfig
	Notifications NotificationConfig
	Mailer        MailerConfig
	Security      SecurityConfig
	Secrets       SecretsConfig
	Idempotency   IdempotencyConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// PostgresConfig stores connection settings for the relational backend.
type PostgresConfig struct {
	DSN      string
	MaxConns int
}

// StockConfig tunes stock ledger behaviour.
type StockConfig struct {
	OperationTimeout    time.Duration
	CompensationTimeout time.Duration
}

// OrderConfig holds order numbering and defaults.
type OrderConfig struct {
	NumberPrefix    string
	DefaultCurrency string
	AdminEmail      string
}

// NotificationConfig selects the transport for outbound order notifications.
type NotificationConfig struct {
	Driver string
	PubSub PubSubConfig
	Kafka  KafkaConfig
}

// PubSubConfig identifies the Pub/Sub topic and worker subscription.
type PubSubConfig struct {
	ProjectID    string
	Topic        string
	Subscription string
	EmulatorHost string
}

// KafkaConfig identifies the Kafka brokers, topic and consumer group.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// MailerConfig configures how the notifier worker delivers email.
type MailerConfig struct {
	Driver    string
	Endpoint  string
	AuthToken string
	From      string
	Timeout   time.Duration
}

// SecurityConfig groups deployment environment settings.
type SecurityConfig struct {
	Environment string
}

// SecretsConfig configures Secret Manager lookups.
type SecretsConfig struct {
	ProjectID    string
	FallbackFile string
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Header           string
	TTL              time.Duration
	CleanupInterval  time.Duration
	CleanupBatchSize int
}

// Option customises Load and EnvironmentValues.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile         string
	envMap          map[string]string
	useSystemEnv    bool
	secret          SecretResolver
	requiredSecrets []string
}

func applyOptions(opts []Option) loaderOptions {
	o := loaderOptions{envFile: defaultEnvFile, useSystemEnv: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithEnvFile overrides the dotenv path. An empty path disables dotenv loading.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithEnvMap injects values that take precedence over the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) { o.envMap = values }
}

// WithoutSystemEnv ignores the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) { o.useSystemEnv = false }
}

// WithSecretResolver sets the resolver for secret:// values.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) { o.secret = resolver }
}

// WithRequiredSecrets marks secret-backed fields ("Postgres.DSN", "Mailer.AuthToken") that
// must resolve to a non-empty value.
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) { o.requiredSecrets = append(o.requiredSecrets, names...) }
}

// Load reads configuration with precedence explicit map > process env > dotenv > defaults,
// resolves secret references, and validates the result against the selected drivers.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	o := applyOptions(opts)
	src, err := newSources(o)
	if err != nil {
		return Config{}, err
	}
	r := &reader{src: src}

	cfg := Config{
		Server: ServerConfig{
			Port:         r.str("API_SERVER_PORT", defaultPort),
			ReadTimeout:  r.duration("Server.ReadTimeout", "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: r.duration("Server.WriteTimeout", "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  r.duration("Server.IdleTimeout", "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Store: StoreConfig{
			Driver: r.lower("API_STORE_DRIVER", defaultStoreDriver),
		},
		Firestore: FirestoreConfig{
			ProjectID:    r.str("API_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: r.str("API_FIRESTORE_EMULATOR_HOST", ""),
		},
		Postgres: PostgresConfig{
			DSN:      r.str("API_POSTGRES_DSN", ""),
			MaxConns: r.integer("Postgres.MaxConns", "API_POSTGRES_MAX_CONNS", defaultPostgresMaxConns),
		},
		Stock: StockConfig{
			OperationTimeout:    r.duration("Stock.OperationTimeout", "API_STOCK_OPERATION_TIMEOUT", defaultStockOpTimeout),
			CompensationTimeout: r.duration("Stock.CompensationTimeout", "API_STOCK_COMPENSATION_TIMEOUT", defaultCompensationTimeout),
		},
		Orders: OrderConfig{
			NumberPrefix:    r.upper("API_ORDER_NUMBER_PREFIX", defaultOrderNumberPrefix),
			DefaultCurrency: r.upper("API_ORDER_DEFAULT_CURRENCY", defaultOrderCurrency),
			AdminEmail:      r.str("API_ORDER_ADMIN_EMAIL", ""),
		},
		Notifications: NotificationConfig{
			Driver: r.lower("API_NOTIFY_DRIVER", defaultNotifyDriver),
			PubSub: PubSubConfig{
				ProjectID:    r.str("API_PUBSUB_PROJECT_ID", ""),
				Topic:        r.str("API_PUBSUB_TOPIC", defaultPubSubTopic),
				Subscription: r.str("API_PUBSUB_SUBSCRIPTION", defaultPubSubSubscription),
				EmulatorHost: r.str("API_PUBSUB_EMULATOR_HOST", ""),
			},
			Kafka: KafkaConfig{
				Brokers: r.list("API_KAFKA_BROKERS"),
				Topic:   r.str("API_KAFKA_TOPIC", defaultKafkaTopic),
				GroupID: r.str("API_KAFKA_GROUP_ID", defaultKafkaGroupID),
			},
		},
		Mailer: MailerConfig{
			Driver:    r.lower("API_MAILER_DRIVER", defaultMailerDriver),
			Endpoint:  r.str("API_MAILER_ENDPOINT", ""),
			AuthToken: r.str("API_MAILER_AUTH_TOKEN", ""),
			From:      r.str("API_MAILER_FROM", ""),
			Timeout:   r.duration("Mailer.Timeout", "API_MAILER_TIMEOUT", defaultMailerTimeout),
		},
		Security: SecurityConfig{
			Environment: r.lower("API_SECURITY_ENVIRONMENT", defaultSecurityEnvironment),
		},
		Secrets: SecretsConfig{
			ProjectID:    r.str("API_SECRETS_PROJECT_ID", ""),
			FallbackFile: r.str("API_SECRETS_FALLBACK_FILE", ""),
		},
		Idempotency: IdempotencyConfig{
			Header:           r.str("API_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:              r.duration("Idempotency.TTL", "API_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
			CleanupInterval:  r.duration("Idempotency.CleanupInterval", "API_IDEMPOTENCY_CLEANUP_INTERVAL", defaultIdempotencyInterval),
			CleanupBatchSize: r.integer("Idempotency.CleanupBatchSize", "API_IDEMPOTENCY_CLEANUP_BATCH", defaultIdempotencyBatchSize),
		},
	}

	// Pub/Sub and Secret Manager share the Firestore project unless configured separately.
	if cfg.Notifications.PubSub.ProjectID == "" {
		cfg.Notifications.PubSub.ProjectID = cfg.Firestore.ProjectID
	}
	if cfg.Secrets.ProjectID == "" {
		cfg.Secrets.ProjectID = cfg.Firestore.ProjectID
	}

	resolved, err := resolveSecrets(ctx, o.secret, []secretField{
		{name: "Postgres.DSN", value: &cfg.Postgres.DSN},
		{name: "Mailer.AuthToken", value: &cfg.Mailer.AuthToken},
	})
	if err != nil {
		return Config{}, err
	}
	if err := validate(cfg, r.invalid); err != nil {
		return Config{}, err
	}
	if missing := missingSecrets(o.requiredSecrets, resolved); missing != nil {
		return Config{}, missing
	}
	return cfg, nil
}

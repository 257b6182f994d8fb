package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/solarshop412/solar-shop-sub000/internal/platform/config"
	pfirestore "github.com/solarshop412/solar-shop-sub000/internal/platform/firestore"
	"github.com/solarshop412/solar-shop-sub000/internal/platform/idempotency"
	"github.com/solarshop412/solar-shop-sub000/internal/platform/jobs"
	"github.com/solarshop412/solar-shop-sub000/internal/platform/observability"
	"github.com/solarshop412/solar-shop-sub000/internal/repositories"
	firestoreRepo "github.com/solarshop412/solar-shop-sub000/internal/repositories/firestore"
	"github.com/solarshop412/solar-shop-sub000/internal/repositories/memory"
	"github.com/solarshop412/solar-shop-sub000/internal/repositories/postgres"
	"github.com/solarshop412/solar-shop-sub000/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Stock       services.StockLedger
	Coordinator services.StockCoordinator
	Orders      services.OrderService
	Companies   services.CompanyService
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config        config.Config
	Repositories  repositories.Registry
	Idempotency   idempotency.Store
	Notifications services.NotificationPublisher
	Services      Services

	closers []func(ctx context.Context) error
}

// Option customises container construction.
type Option func(*options)

type options struct {
	logger    *zap.Logger
	publisher services.NotificationPublisher
	clock     func() time.Time
}

// WithLogger sets the base logger used for service events.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithNotificationPublisher bypasses the configured notification transport.
func WithNotificationPublisher(publisher services.NotificationPublisher) Option {
	return func(o *options) { o.publisher = publisher }
}

// WithClock overrides the time source handed to services.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// NewContainer constructs the runtime dependencies. Production wiring will provide real
// implementations, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, opts ...Option) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}
	o := options{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	c := &Container{Config: cfg, Repositories: reg}

	idem, err := NewIdempotencyStore(reg)
	if err != nil {
		return nil, err
	}
	c.Idempotency = idem

	publisher := o.publisher
	if publisher == nil {
		var closer func(context.Context) error
		publisher, closer, err = NewNotificationPublisher(ctx, cfg.Notifications, o.logger)
		if err != nil {
			return nil, err
		}
		if closer != nil {
			c.closers = append(c.closers, closer)
		}
	}
	c.Notifications = publisher

	svc, err := buildServices(reg, publisher, cfg, o)
	if err != nil {
		_ = c.closeAll(ctx)
		return nil, err
	}
	c.Services = svc
	return c, nil
}

// Close releases resources such as repository clients, background workers, or caches.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	err := c.closeAll(ctx)
	if c.Repositories != nil {
		err = errors.Join(err, c.Repositories.Close(ctx))
	}
	return err
}

func (c *Container) closeAll(ctx context.Context) error {
	var err error
	for i := len(c.closers) - 1; i >= 0; i-- {
		err = errors.Join(err, c.closers[i](ctx))
	}
	c.closers = nil
	return err
}

func buildServices(reg repositories.Registry, publisher services.NotificationPublisher, cfg config.Config, o options) (Services, error) {
	var svc Services

	ledger, err := services.NewStockLedger(services.StockLedgerDeps{
		Products:         reg.Products(),
		OperationTimeout: cfg.Stock.OperationTimeout,
		Clock:            o.clock,
		Logger:           observability.EventLogger(o.logger, "stock"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build stock ledger: %w", err)
	}
	svc.Stock = ledger

	coordinator, err := services.NewStockCoordinator(services.StockCoordinatorDeps{
		Ledger:              ledger,
		CompensationTimeout: cfg.Stock.CompensationTimeout,
		Logger:              observability.EventLogger(o.logger, "stock"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build stock coordinator: %w", err)
	}
	svc.Coordinator = coordinator

	orders, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:          reg.Orders(),
		Items:           reg.OrderItems(),
		Counters:        reg.Counters(),
		Stock:           coordinator,
		UnitOfWork:      reg,
		Notifications:   publisher,
		NumberPrefix:    cfg.Orders.NumberPrefix,
		DefaultCurrency: cfg.Orders.DefaultCurrency,
		AdminEmail:      cfg.Orders.AdminEmail,
		Clock:           o.clock,
		Logger:          observability.EventLogger(o.logger, "orders"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orders

	companies, err := services.NewCompanyService(services.CompanyServiceDeps{
		Notifications: publisher,
		Clock:         o.clock,
		Logger:        observability.EventLogger(o.logger, "companies"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build company service: %w", err)
	}
	svc.Companies = companies

	return svc, nil
}

// OpenRegistry connects the repository backend selected by cfg.Store.Driver.
func OpenRegistry(ctx context.Context, cfg config.Config) (repositories.Registry, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverFirestore:
		provider := pfirestore.NewProvider(cfg.Firestore)
		if _, err := provider.Client(ctx); err != nil {
			return nil, fmt.Errorf("open firestore: %w", err)
		}
		reg, err := firestoreRepo.NewRegistry(provider)
		if err != nil {
			_ = provider.Close(ctx)
			return nil, fmt.Errorf("build firestore registry: %w", err)
		}
		return reg, nil
	case config.StoreDriverPostgres:
		store, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return store, nil
	case config.StoreDriverMemory:
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

// NewIdempotencyStore keeps idempotency records in the same backend as orders.
func NewIdempotencyStore(reg repositories.Registry) (idempotency.Store, error) {
	switch r := reg.(type) {
	case *firestoreRepo.Registry:
		store, err := idempotency.NewFirestoreStore(r.Provider())
		if err != nil {
			return nil, fmt.Errorf("build firestore idempotency store: %w", err)
		}
		return store, nil
	case *postgres.Store:
		store, err := idempotency.NewPostgresStore(r.Pool())
		if err != nil {
			return nil, fmt.Errorf("build postgres idempotency store: %w", err)
		}
		return store, nil
	default:
		return idempotency.NewMemoryStore(), nil
	}
}

// NewNotificationPublisher builds the outbound transport for cfg.Driver. The returned closer,
// when non-nil, flushes and releases the transport.
func NewNotificationPublisher(ctx context.Context, cfg config.NotificationConfig, logger *zap.Logger) (services.NotificationPublisher, func(context.Context) error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Driver {
	case config.NotifyDriverPubSub:
		client, err := jobs.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, nil, err
		}
		topic := client.Topic(cfg.PubSub.Topic)
		publisher, err := jobs.NewPubSubNotificationPublisher(topic)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return publisher, pubsubCloser(client, topic), nil
	case config.NotifyDriverKafka:
		publisher, err := jobs.NewKafkaNotificationPublisher(cfg.Kafka)
		if err != nil {
			return nil, nil, err
		}
		return publisher, func(context.Context) error { return publisher.Close() }, nil
	case config.NotifyDriverLog, "":
		return jobs.NewLogNotificationPublisher(logger.Named("notifications")), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported notification driver %q", cfg.Driver)
	}
}

func pubsubCloser(client *pubsub.Client, topic *pubsub.Topic) func(context.Context) error {
	return func(context.Context) error {
		topic.Stop()
		return client.Close()
	}
}

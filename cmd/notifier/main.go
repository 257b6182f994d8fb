package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/solarshop412/solar-shop-sub000/internal/notifier"
	"github.com/solarshop412/solar-shop-sub000/internal/platform/config"
	"github.com/solarshop412/solar-shop-sub000/internal/platform/jobs"
	"github.com/solarshop412/solar-shop-sub000/internal/platform/observability"
	"github.com/solarshop412/solar-shop-sub000/internal/platform/secrets"
)

func main() {
	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("notifier")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = observability.WithLogger(ctx, logger)

	if err := run(ctx, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("notifier stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, logger *zap.Logger) error {
	envValues, err := config.EnvironmentValues()
	if err != nil {
		return fmt.Errorf("read environment values: %w", err)
	}

	fetcherOpts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithEnvironment(envValues["API_SECURITY_ENVIRONMENT"]),
		secrets.WithDefaultProject(envValues["API_SECRETS_PROJECT_ID"]),
	}
	if path := envValues["API_SECRETS_FALLBACK_FILE"]; path != "" {
		fetcherOpts = append(fetcherOpts, secrets.WithFallbackFile(path))
	}
	fetcher, err := secrets.NewFetcher(ctx, fetcherOpts...)
	if err != nil {
		return fmt.Errorf("initialise secret fetcher: %w", err)
	}
	defer fetcher.Close()

	var required []string
	if envValues["API_MAILER_DRIVER"] == config.MailerDriverWebhook {
		required = append(required, "Mailer.AuthToken")
	}
	cfg, err := config.Load(ctx,
		config.WithSecretResolver(fetcher),
		config.WithRequiredSecrets(required...),
	)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	source, closeSource, err := openSource(ctx, cfg.Notifications, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	sender, err := notifier.NewSender(cfg.Mailer, logger.Named("mailer"))
	if err != nil {
		return err
	}
	mailer, err := notifier.NewTemplateMailer(sender, cfg.Mailer.From)
	if err != nil {
		return err
	}
	worker, err := notifier.NewWorker(notifier.WorkerDeps{
		Source: source,
		Mailer: mailer,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	logger.Info("notifier consuming", zap.String("driver", cfg.Notifications.Driver), zap.String("mailer", cfg.Mailer.Driver))
	return worker.Run(ctx)
}

// openSource subscribes to the transport the API publishes to.
func openSource(ctx context.Context, cfg config.NotificationConfig, logger *zap.Logger) (notifier.Source, func(), error) {
	switch cfg.Driver {
	case config.NotifyDriverPubSub:
		client, err := jobs.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, nil, err
		}
		source, err := jobs.NewPubSubSource(client.Subscription(cfg.PubSub.Subscription), logger.Named("pubsub"))
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return source, func() { _ = client.Close() }, nil
	case config.NotifyDriverKafka:
		source, err := jobs.NewKafkaSource(cfg.Kafka, logger.Named("kafka"))
		if err != nil {
			return nil, nil, err
		}
		return source, func() { _ = source.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("notification driver %q has no consumer; use pubsub or kafka", cfg.Driver)
	}
}

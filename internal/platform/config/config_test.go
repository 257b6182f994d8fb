package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"API_FIRESTORE_PROJECT_ID": "solar-dev",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Store.Driver != StoreDriverFirestore {
		t.Errorf("expected firestore store driver, got %s", cfg.Store.Driver)
	}
	if cfg.Stock.OperationTimeout != defaultStockOpTimeout {
		t.Errorf("unexpected stock operation timeout %s", cfg.Stock.OperationTimeout)
	}
	if cfg.Stock.CompensationTimeout != defaultCompensationTimeout {
		t.Errorf("unexpected compensation timeout %s", cfg.Stock.CompensationTimeout)
	}
	if cfg.Orders.NumberPrefix != "SS" || cfg.Orders.DefaultCurrency != "EUR" {
		t.Errorf("unexpected order defaults %+v", cfg.Orders)
	}
	if cfg.Notifications.Driver != NotifyDriverLog {
		t.Errorf("expected log notification driver, got %s", cfg.Notifications.Driver)
	}
	if cfg.Notifications.PubSub.ProjectID != "solar-dev" {
		t.Errorf("expected pubsub project to default to firestore project, got %s", cfg.Notifications.PubSub.ProjectID)
	}
	if cfg.Secrets.ProjectID != "solar-dev" {
		t.Errorf("expected secrets project to default to firestore project, got %s", cfg.Secrets.ProjectID)
	}
	if len(cfg.Notifications.Kafka.Brokers) != 0 {
		t.Errorf("expected no kafka brokers, got %v", cfg.Notifications.Kafka.Brokers)
	}
	if cfg.Mailer.Driver != MailerDriverLog {
		t.Errorf("expected log mailer, got %s", cfg.Mailer.Driver)
	}
	if cfg.Security.Environment != "local" {
		t.Errorf("expected default security environment local, got %s", cfg.Security.Environment)
	}
	if cfg.Idempotency.Header != defaultIdempotencyHeader {
		t.Errorf("expected default idempotency header, got %s", cfg.Idempotency.Header)
	}
	if cfg.Idempotency.TTL != defaultIdempotencyTTL {
		t.Errorf("unexpected default idempotency ttl: %s", cfg.Idempotency.TTL)
	}
	if cfg.Idempotency.CleanupInterval != defaultIdempotencyInterval {
		t.Errorf("unexpected default cleanup interval: %s", cfg.Idempotency.CleanupInterval)
	}
	if cfg.Idempotency.CleanupBatchSize != defaultIdempotencyBatchSize {
		t.Errorf("unexpected default cleanup batch size: %d", cfg.Idempotency.CleanupBatchSize)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"API_SERVER_PORT":                  "9090",
		"API_SERVER_IDLE_TIMEOUT":          "2m",
		"API_STORE_DRIVER":                 "POSTGRES",
		"API_POSTGRES_DSN":                 "secret://postgres/dsn",
		"API_POSTGRES_MAX_CONNS":           "25",
		"API_STOCK_OPERATION_TIMEOUT":      "2s",
		"API_STOCK_COMPENSATION_TIMEOUT":   "30s",
		"API_ORDER_NUMBER_PREFIX":          "sol",
		"API_ORDER_DEFAULT_CURRENCY":       "usd",
		"API_ORDER_ADMIN_EMAIL":            "orders@solar.example",
		"API_NOTIFY_DRIVER":                "kafka",
		"API_KAFKA_BROKERS":                "kafka-1:9092, kafka-2:9092",
		"API_KAFKA_TOPIC":                  "orders.notify",
		"API_KAFKA_GROUP_ID":               "mailer",
		"API_MAILER_DRIVER":                "webhook",
		"API_MAILER_ENDPOINT":              "https://mail.example.com/send",
		"API_MAILER_AUTH_TOKEN":            "secret://mailer/token",
		"API_SECURITY_ENVIRONMENT":         "prod",
		"API_IDEMPOTENCY_HEADER":           "X-Idem-Key",
		"API_IDEMPOTENCY_TTL":              "48h",
		"API_IDEMPOTENCY_CLEANUP_INTERVAL": "30m",
		"API_IDEMPOTENCY_CLEANUP_BATCH":    "500",
	}

	secrets := map[string]string{
		"secret://postgres/dsn": "postgres://shop:pw@db:5432/shop",
		"secret://mailer/token": "mail-token",
	}

	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if v, ok := secrets[ref]; ok {
			return v, nil
		}
		return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.IdleTimeout != 2*time.Minute {
		t.Errorf("unexpected idle timeout: %s", cfg.Server.IdleTimeout)
	}
	if cfg.Store.Driver != StoreDriverPostgres {
		t.Errorf("expected postgres driver, got %s", cfg.Store.Driver)
	}
	if cfg.Postgres.DSN != "postgres://shop:pw@db:5432/shop" {
		t.Errorf("expected resolved dsn, got %s", cfg.Postgres.DSN)
	}
	if cfg.Postgres.MaxConns != 25 {
		t.Errorf("unexpected max conns %d", cfg.Postgres.MaxConns)
	}
	if cfg.Stock.OperationTimeout != 2*time.Second || cfg.Stock.CompensationTimeout != 30*time.Second {
		t.Errorf("unexpected stock config %+v", cfg.Stock)
	}
	if cfg.Orders.NumberPrefix != "SOL" || cfg.Orders.DefaultCurrency != "USD" {
		t.Errorf("expected upper-cased order settings, got %+v", cfg.Orders)
	}
	if len(cfg.Notifications.Kafka.Brokers) != 2 || cfg.Notifications.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Fatalf("unexpected kafka brokers %v", cfg.Notifications.Kafka.Brokers)
	}
	if cfg.Notifications.Kafka.Topic != "orders.notify" || cfg.Notifications.Kafka.GroupID != "mailer" {
		t.Errorf("unexpected kafka config %+v", cfg.Notifications.Kafka)
	}
	if cfg.Mailer.AuthToken != "mail-token" {
		t.Errorf("expected resolved mailer token, got %s", cfg.Mailer.AuthToken)
	}
	if cfg.Security.Environment != "prod" {
		t.Errorf("expected security environment prod, got %s", cfg.Security.Environment)
	}
	if cfg.Idempotency.Header != "X-Idem-Key" {
		t.Errorf("unexpected idempotency header %s", cfg.Idempotency.Header)
	}
	if cfg.Idempotency.TTL != 48*time.Hour {
		t.Errorf("unexpected idempotency ttl %s", cfg.Idempotency.TTL)
	}
	if cfg.Idempotency.CleanupBatchSize != 500 {
		t.Errorf("unexpected cleanup batch size %d", cfg.Idempotency.CleanupBatchSize)
	}
}

func TestLoadDotEnvFallback(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "API_SERVER_PORT=7070\nexport API_STORE_DRIVER=memory\nAPI_ORDER_ADMIN_EMAIL=\"admin@solar.example\"\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write dotenv file: %v", err)
	}

	cfg, err := Load(context.Background(), WithEnvFile(envPath), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port from dotenv 7070, got %s", cfg.Server.Port)
	}
	if cfg.Store.Driver != StoreDriverMemory {
		t.Errorf("expected memory driver from dotenv, got %s", cfg.Store.Driver)
	}
	if cfg.Orders.AdminEmail != "admin@solar.example" {
		t.Errorf("expected unquoted admin email, got %s", cfg.Orders.AdminEmail)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	_, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	fields := validation.Fields()
	if len(fields) != 1 || fields[0] != "Firestore.ProjectID" {
		t.Fatalf("unexpected missing fields %v", fields)
	}
}

func TestLoadRejectsUnknownDrivers(t *testing.T) {
	env := map[string]string{
		"API_STORE_DRIVER":  "mysql",
		"API_NOTIFY_DRIVER": "carrier-pigeon",
		"API_MAILER_DRIVER": "webhook",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := map[string]bool{"Store.Driver": true, "Notifications.Driver": true, "Mailer.Endpoint": true}
	for _, field := range validation.Fields() {
		delete(want, field)
	}
	if len(want) != 0 {
		t.Fatalf("expected fields %v to be reported, got %v", want, validation.Fields())
	}
}

func TestLoadSecretResolverError(t *testing.T) {
	env := map[string]string{
		"API_STORE_DRIVER": "postgres",
		"API_POSTGRES_DSN": "secret://missing",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected secret resolution error, got nil")
	}
	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %T", err)
	}
	if secretErr.Ref != "secret://missing" {
		t.Errorf("unexpected secret ref %s", secretErr.Ref)
	}
}

func TestEnvironmentValuesMergesSources(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "API_FIRESTORE_PROJECT_ID=dot-project\nAPI_SECRETS_FALLBACK_FILE=.dot.local\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed writing env file: %v", err)
	}

	t.Setenv("API_FIRESTORE_PROJECT_ID", "os-project")
	t.Setenv("API_KAFKA_BROKERS", "os-kafka:9092")

	overrides := map[string]string{
		"API_FIRESTORE_PROJECT_ID": "override-project",
	}

	values, err := EnvironmentValues(WithEnvFile(envPath), WithEnvMap(overrides))
	if err != nil {
		t.Fatalf("EnvironmentValues returned error: %v", err)
	}

	if got := values["API_FIRESTORE_PROJECT_ID"]; got != "override-project" {
		t.Fatalf("expected override project, got %s", got)
	}
	if got := values["API_SECRETS_FALLBACK_FILE"]; got != ".dot.local" {
		t.Fatalf("expected dotenv fallback file, got %s", got)
	}
	if got := values["API_KAFKA_BROKERS"]; got != "os-kafka:9092" {
		t.Fatalf("expected system env brokers, got %s", got)
	}
}

func TestLoadMissingRequiredSecrets(t *testing.T) {
	env := map[string]string{
		"API_STORE_DRIVER": "memory",
	}

	_, err := Load(context.Background(),
		WithEnvMap(env),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithRequiredSecrets("Mailer.AuthToken"),
	)
	if err == nil {
		t.Fatal("expected missing secrets error, got nil")
	}
	var missing *MissingSecretsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingSecretsError, got %T", err)
	}
	expectedRedacted := redactSecretName("Mailer.AuthToken")
	if got := missing.RedactedNames(); len(got) != 1 || got[0] != expectedRedacted {
		t.Fatalf("unexpected redacted names %v", got)
	}
	if got := missing.Names(); len(got) != 1 || got[0] != "Mailer.AuthToken" {
		t.Fatalf("unexpected names %v", got)
	}
}

func TestLoadReportsUnparsableValues(t *testing.T) {
	env := map[string]string{
		"API_STORE_DRIVER":              "memory",
		"API_STOCK_OPERATION_TIMEOUT":   "five seconds",
		"API_IDEMPOTENCY_CLEANUP_BATCH": "lots",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := validation.Fields()
	if len(fields) != 2 || fields[0] != "Stock.OperationTimeout" || fields[1] != "Idempotency.CleanupBatchSize" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestLoadRequiredSecretWithoutResolver(t *testing.T) {
	env := map[string]string{
		"API_STORE_DRIVER": "memory",
		"API_POSTGRES_DSN": "secret://postgres/dsn",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(nil))
	var secretErr *SecretError
	if !errors.As(err, &secretErr) || !errors.Is(err, errSecretResolverNotConfigured) {
		t.Fatalf("expected unconfigured resolver error, got %v", err)
	}
}

func TestLoadSupportsLegacySecretScheme(t *testing.T) {
	env := map[string]string{
		"API_STORE_DRIVER":      "memory",
		"API_MAILER_AUTH_TOKEN": "sm://mailer/token",
	}

	secrets := map[string]string{
		"secret://mailer/token": "legacy-secret",
	}

	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if v, ok := secrets[ref]; ok {
			return v, nil
		}
		return "", &SecretError{Ref: ref, Err: errors.New("not found")}
	})

	cfg, err := Load(context.Background(),
		WithEnvMap(env),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithSecretResolver(resolver),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Mailer.AuthToken != "legacy-secret" {
		t.Fatalf("expected legacy secret, got %s", cfg.Mailer.AuthToken)
	}
}

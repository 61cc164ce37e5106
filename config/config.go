package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logger   LoggerConfig   `yaml:"logger"`
	Store    StoreConfig    `yaml:"store"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Checkout CheckoutConfig `yaml:"checkout"`
	Outbox   OutboxConfig   `yaml:"outbox"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

type ServerConfig struct {
	AppEnv   string `yaml:"app_env"`
	GRPCPort string `yaml:"grpc_port"`
	HTTPPort string `yaml:"http_port"`
}

type LoggerConfig struct {
	Level             string `yaml:"level"`
	Encoding          string `yaml:"encoding"`
	DisableCaller     bool   `yaml:"disable_caller"`
	DisableStacktrace bool   `yaml:"disable_stacktrace"`
}

// StoreConfig picks the unit-of-work backend: "postgres", or "memory" for
// local runs without a database.
type StoreConfig struct {
	Driver   string `yaml:"driver"`
	SeedFile string `yaml:"seed_file"` // memory only
}

type PostgresConfig struct {
	Host            string `yaml:"host"`
	Port            string `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	DBName          string `yaml:"db_name"`
	SSLMode         string `yaml:"ssl_mode"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"`  // seconds
	ConnMaxIdleTime int    `yaml:"conn_max_idle_time"` // seconds
	Migrate         bool   `yaml:"migrate"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	TopicOrderCreated  string   `yaml:"topic_order_created"`
	TopicOrderUpdated  string   `yaml:"topic_order_updated"`
	TopicLowStock      string   `yaml:"topic_low_stock"`
	TopicStatusCommand string   `yaml:"topic_status_command"`
	GroupID            string   `yaml:"group_id"`
}

type CheckoutConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialBackoff  time.Duration `yaml:"initial_backoff"`
	MaxBackoff      time.Duration `yaml:"max_backoff"`
	LockTimeout     time.Duration `yaml:"lock_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	IdempotencyTTL  time.Duration `yaml:"idempotency_ttl"`
	PendingClaimTTL time.Duration `yaml:"pending_claim_ttl"`
}

type OutboxConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	BatchSize    int           `yaml:"batch_size"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:   "dev",
			GRPCPort: ":8084",
			HTTPPort: ":9084",
		},
		Logger: LoggerConfig{
			Level:             "debug",
			Encoding:          "console",
			DisableStacktrace: true,
		},
		Store: StoreConfig{Driver: "postgres"},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            "5433",
			User:            "omnipos",
			Password:        "omnipos",
			DBName:          "omnipos_checkout",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
			ConnMaxIdleTime: 60,
			Migrate:         true,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Kafka: KafkaConfig{
			Brokers:            []string{"localhost:9092"},
			TopicOrderCreated:  "order.created",
			TopicOrderUpdated:  "order.updated",
			TopicLowStock:      "inventory.low_stock",
			TopicStatusCommand: "order.status_commands",
			GroupID:            "checkout",
		},
		Checkout: CheckoutConfig{
			MaxAttempts:     3,
			InitialBackoff:  20 * time.Millisecond,
			MaxBackoff:      200 * time.Millisecond,
			LockTimeout:     2 * time.Second,
			RequestTimeout:  5 * time.Second,
			IdempotencyTTL:  24 * time.Hour,
			PendingClaimTTL: time.Minute,
		},
		Outbox: OutboxConfig{
			PollInterval: time.Second,
			BatchSize:    100,
		},
		Tracing: TracingConfig{
			ServiceName: "omnipos-checkout-service",
		},
	}
}

// LoadEnv builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE if set, then environment variables.
func LoadEnv() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Server.AppEnv = getEnv("APP_ENV", cfg.Server.AppEnv)
	cfg.Server.GRPCPort = getEnv("GRPC_PORT", cfg.Server.GRPCPort)
	cfg.Server.HTTPPort = getEnv("HTTP_PORT", cfg.Server.HTTPPort)

	cfg.Logger.Level = getEnv("LOGGER_LEVEL", cfg.Logger.Level)
	cfg.Logger.Encoding = getEnv("LOGGER_ENCODING", cfg.Logger.Encoding)
	cfg.Logger.DisableCaller = getEnvBool("LOGGER_DISABLE_CALLER", cfg.Logger.DisableCaller)
	cfg.Logger.DisableStacktrace = getEnvBool("LOGGER_DISABLE_STACKTRACE", cfg.Logger.DisableStacktrace)

	cfg.Store.Driver = getEnv("STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.SeedFile = getEnv("STORE_SEED_FILE", cfg.Store.SeedFile)

	cfg.Postgres.Host = getEnv("POSTGRES_HOST", cfg.Postgres.Host)
	cfg.Postgres.Port = getEnv("POSTGRES_PORT", cfg.Postgres.Port)
	cfg.Postgres.User = getEnv("POSTGRES_USER", cfg.Postgres.User)
	cfg.Postgres.Password = getEnv("POSTGRES_PASSWORD", cfg.Postgres.Password)
	cfg.Postgres.DBName = getEnv("POSTGRES_DB", cfg.Postgres.DBName)
	cfg.Postgres.SSLMode = getEnv("POSTGRES_SSLMODE", cfg.Postgres.SSLMode)
	cfg.Postgres.MaxOpenConns = getEnvInt("POSTGRES_MAX_OPEN_CONNS", cfg.Postgres.MaxOpenConns)
	cfg.Postgres.MaxIdleConns = getEnvInt("POSTGRES_MAX_IDLE_CONNS", cfg.Postgres.MaxIdleConns)
	cfg.Postgres.ConnMaxLifetime = getEnvInt("POSTGRES_CONN_MAX_LIFETIME", cfg.Postgres.ConnMaxLifetime)
	cfg.Postgres.ConnMaxIdleTime = getEnvInt("POSTGRES_CONN_MAX_IDLE_TIME", cfg.Postgres.ConnMaxIdleTime)
	cfg.Postgres.Migrate = getEnvBool("POSTGRES_MIGRATE", cfg.Postgres.Migrate)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("REDIS_DB", cfg.Redis.DB)

	cfg.Kafka.Brokers = getEnvSlice("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.TopicOrderCreated = getEnv("KAFKA_TOPIC_ORDER_CREATED", cfg.Kafka.TopicOrderCreated)
	cfg.Kafka.TopicOrderUpdated = getEnv("KAFKA_TOPIC_ORDER_UPDATED", cfg.Kafka.TopicOrderUpdated)
	cfg.Kafka.TopicLowStock = getEnv("KAFKA_TOPIC_LOW_STOCK", cfg.Kafka.TopicLowStock)
	cfg.Kafka.TopicStatusCommand = getEnv("KAFKA_TOPIC_STATUS_COMMANDS", cfg.Kafka.TopicStatusCommand)
	cfg.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", cfg.Kafka.GroupID)

	cfg.Checkout.MaxAttempts = getEnvInt("CHECKOUT_MAX_ATTEMPTS", cfg.Checkout.MaxAttempts)
	cfg.Checkout.InitialBackoff = getEnvDuration("CHECKOUT_INITIAL_BACKOFF", cfg.Checkout.InitialBackoff)
	cfg.Checkout.MaxBackoff = getEnvDuration("CHECKOUT_MAX_BACKOFF", cfg.Checkout.MaxBackoff)
	cfg.Checkout.LockTimeout = getEnvDuration("CHECKOUT_LOCK_TIMEOUT", cfg.Checkout.LockTimeout)
	cfg.Checkout.RequestTimeout = getEnvDuration("CHECKOUT_REQUEST_TIMEOUT", cfg.Checkout.RequestTimeout)
	cfg.Checkout.IdempotencyTTL = getEnvDuration("CHECKOUT_IDEMPOTENCY_TTL", cfg.Checkout.IdempotencyTTL)
	cfg.Checkout.PendingClaimTTL = getEnvDuration("CHECKOUT_PENDING_CLAIM_TTL", cfg.Checkout.PendingClaimTTL)

	cfg.Outbox.PollInterval = getEnvDuration("OUTBOX_POLL_INTERVAL", cfg.Outbox.PollInterval)
	cfg.Outbox.BatchSize = getEnvInt("OUTBOX_BATCH_SIZE", cfg.Outbox.BatchSize)

	cfg.Tracing.Enabled = getEnvBool("TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.ServiceName = getEnv("TRACING_SERVICE_NAME", cfg.Tracing.ServiceName)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Checkout.MaxAttempts < 1 {
		return fmt.Errorf("checkout max attempts must be at least 1, got %d", c.Checkout.MaxAttempts)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.Split(value, ",")
	}
	return fallback
}

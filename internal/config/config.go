package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DBConfig struct {
		DBHost     string `env:"STORE_DB_HOST"`
		DBPort     string `env:"STORE_DB_PORT"`
		DBUser     string `env:"STORE_DB_USER"`
		DBPassword string `env:"STORE_DB_PASSWORD"`
		DBName     string `env:"STORE_DB_NAME"`
		DBSSLMode  string `env:"STORE_DB_SSLMODE"`
	}

	HTTPPort       int    `env:"STORE_HTTP_PORT"`
	MigrationsPath string `env:"STORE_MIGRATIONS_PATH"`

	KafkaURL                 string `env:"KAFKA_BROKER_URL"`
	KafkaOrderCompletedTopic string `env:"KAFKA_ORDER_COMPLETED_TOPIC"`

	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL"`
	OutboxPollTimeout  time.Duration `env:"OUTBOX_POLL_TIMEOUT"`

	PaymentAPIURL        string        `env:"PAYMENT_API_URL"`
	PaymentAPIKey        string        `env:"PAYMENT_API_KEY"`
	PaymentWebhookSecret string        `env:"PAYMENT_WEBHOOK_SECRET"`
	PaymentAPITimeout    time.Duration `env:"PAYMENT_API_TIMEOUT"`

	CheckoutSuccessURL string `env:"CHECKOUT_SUCCESS_URL"`
	CheckoutCancelURL  string `env:"CHECKOUT_CANCEL_URL"`

	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	cfg.DBConfig.DBHost = getEnvOrDefault("STORE_DB_HOST", "localhost")
	cfg.DBConfig.DBPort = getEnvOrDefault("STORE_DB_PORT", "5432")
	cfg.DBConfig.DBUser = getEnvOrDefault("STORE_DB_USER", "postgres")
	cfg.DBConfig.DBPassword = getEnvOrDefault("STORE_DB_PASSWORD", "postgres")
	cfg.DBConfig.DBName = getEnvOrDefault("STORE_DB_NAME", "skoolstore_db")
	cfg.DBConfig.DBSSLMode = getEnvOrDefault("STORE_DB_SSLMODE", "disable")

	portStr := getEnvOrDefault("STORE_HTTP_PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_HTTP_PORT: %w", err)
	}
	cfg.HTTPPort = port

	cfg.MigrationsPath = getEnvOrDefault("STORE_MIGRATIONS_PATH", "file:///app/migrations")

	cfg.KafkaURL = getEnvOrDefault("KAFKA_BROKER_URL", "localhost:9092")
	cfg.KafkaOrderCompletedTopic = getEnvOrDefault("KAFKA_ORDER_COMPLETED_TOPIC", "order_completed_events")

	outboxPollIntervalStr := getEnvOrDefault("OUTBOX_POLL_INTERVAL", "5s")
	interval, err := time.ParseDuration(outboxPollIntervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid OUTBOX_POLL_INTERVAL: %w", err)
	}
	cfg.OutboxPollInterval = interval

	outboxPollTimeoutStr := getEnvOrDefault("OUTBOX_POLL_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(outboxPollTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid OUTBOX_POLL_TIMEOUT: %w", err)
	}
	cfg.OutboxPollTimeout = timeout

	cfg.PaymentAPIURL = getEnvOrDefault("PAYMENT_API_URL", "https://api.payments.example.com")
	cfg.PaymentAPIKey = getEnvOrDefault("PAYMENT_API_KEY", "")
	cfg.PaymentWebhookSecret = getEnvOrDefault("PAYMENT_WEBHOOK_SECRET", "")

	paymentTimeoutStr := getEnvOrDefault("PAYMENT_API_TIMEOUT", "15s")
	paymentTimeout, err := time.ParseDuration(paymentTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PAYMENT_API_TIMEOUT: %w", err)
	}
	cfg.PaymentAPITimeout = paymentTimeout

	cfg.CheckoutSuccessURL = getEnvOrDefault("CHECKOUT_SUCCESS_URL",
		"http://localhost:5173/checkout/success?session_id={CHECKOUT_SESSION_ID}")
	cfg.CheckoutCancelURL = getEnvOrDefault("CHECKOUT_CANCEL_URL", "http://localhost:5173/cart")

	cfg.CORSAllowedOrigin = getEnvOrDefault("CORS_ALLOWED_ORIGIN", "http://localhost:5173")

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBConfig.DBHost, c.DBConfig.DBPort, c.DBConfig.DBUser, c.DBConfig.DBPassword, c.DBConfig.DBName, c.DBConfig.DBSSLMode)
}

func (c *Config) GetDBMigrationConnectionString() string {
	return fmt.Sprintf("%s:%s@%s:%s/%s?sslmode=%s",
		c.DBConfig.DBUser, c.DBConfig.DBPassword, c.DBConfig.DBHost, c.DBConfig.DBPort, c.DBConfig.DBName, c.DBConfig.DBSSLMode)
}

func (c *Config) GetKafkaBrokers() []string {
	return []string{c.KafkaURL}
}

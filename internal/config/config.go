package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string
	RunLocal    bool
	AWS         AWSConfig
	Tables      TablesConfig
	Notify      NotifyConfig
	SMTP        SMTPConfig

	MetricsNamespace string
	IdempotencyTTL   time.Duration
	AdminEmails      []string
}

// AWSConfig selects the region and, for LocalStack, an endpoint override.
type AWSConfig struct {
	Region           string
	EndpointOverride string
}

// TablesConfig names the DynamoDB tables backing each collection.
type TablesConfig struct {
	Watches     string
	Cart        string
	Orders      string
	Addresses   string
	Idempotency string
}

type NotifyConfig struct {
	QueueURL string // empty disables order notifications
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("env")
	v.SetConfigName(".env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("WATCHES_TABLE", "watches")
	v.SetDefault("CART_TABLE", "cart")
	v.SetDefault("ORDERS_TABLE", "orders")
	v.SetDefault("ADDRESSES_TABLE", "addresses")
	v.SetDefault("IDEMPOTENCY_TABLE", "idempotency")
	v.SetDefault("METRICS_NAMESPACE", "WatchStorefront")
	v.SetDefault("IDEMPOTENCY_TTL", "48h")
	v.SetDefault("SMTP_PORT", "587")

	v.AutomaticEnv()

	// .env is optional; env vars alone are enough.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	ttl, err := time.ParseDuration(v.GetString("IDEMPOTENCY_TTL"))
	if err != nil {
		return nil, fmt.Errorf("invalid IDEMPOTENCY_TTL: %w", err)
	}

	cfg := &Config{
		Port:        v.GetString("PORT"),
		Environment: v.GetString("ENVIRONMENT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		RunLocal:    v.GetBool("RUN_LOCAL"),
		AWS: AWSConfig{
			Region:           v.GetString("AWS_REGION"),
			EndpointOverride: strings.TrimSpace(v.GetString("AWS_ENDPOINT_OVERRIDE")),
		},
		Tables: TablesConfig{
			Watches:     v.GetString("WATCHES_TABLE"),
			Cart:        v.GetString("CART_TABLE"),
			Orders:      v.GetString("ORDERS_TABLE"),
			Addresses:   v.GetString("ADDRESSES_TABLE"),
			Idempotency: v.GetString("IDEMPOTENCY_TABLE"),
		},
		Notify: NotifyConfig{
			QueueURL: strings.TrimSpace(v.GetString("NOTIFY_QUEUE_URL")),
		},
		SMTP: SMTPConfig{
			Host:     strings.TrimSpace(v.GetString("SMTP_HOST")),
			Port:     v.GetString("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     strings.TrimSpace(v.GetString("SMTP_FROM")),
		},
		MetricsNamespace: v.GetString("METRICS_NAMESPACE"),
		IdempotencyTTL:   ttl,
		AdminEmails:      splitList(v.GetString("ADMIN_EMAILS")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	required := map[string]string{
		"WATCHES_TABLE":     c.Tables.Watches,
		"CART_TABLE":        c.Tables.Cart,
		"ORDERS_TABLE":      c.Tables.Orders,
		"ADDRESSES_TABLE":   c.Tables.Addresses,
		"IDEMPOTENCY_TABLE": c.Tables.Idempotency,
	}
	for key, val := range required {
		if strings.TrimSpace(val) == "" {
			return fmt.Errorf("%s is required", key)
		}
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

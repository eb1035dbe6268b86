package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/example/payment-reconciler/internal/gateway"
)

// EnvConfigFile names the environment variable holding an optional YAML
// config path.
const EnvConfigFile = "RECONCILER_CONFIG"

const (
	BackendMemory   = "memory"
	BackendS3       = "s3"
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
)

type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration

	Gateway GatewayConfig
	Webhook WebhookConfig
	SiteURL string
	SMTP    SMTPConfig
	Blob    BlobConfig
	Kafka   KafkaConfig

	DedupTTL time.Duration
	Log      LogConfig
}

type GatewayConfig struct {
	ClientID     string
	ClientSecret string
	Env          string
	BaseURL      string
	APIVersion   string
	RateLimit    float64
	Burst        int
}

type WebhookConfig struct {
	Secret  string
	MaxSkew time.Duration
}

type SMTPConfig struct {
	Host        string
	Port        string
	Username    string
	Password    string
	From        string
	NotifyEmail string
}

type BlobConfig struct {
	Backend     string
	Bucket      string
	Prefix      string
	Table       string
	DatabaseURL string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type LogConfig struct {
	Level  string
	Format string
}

var defaults = map[string]any{
	"http_addr":                ":8080",
	"shutdown_timeout":         "10s",
	"request_timeout":          "15s",
	"gateway_env":              "sandbox",
	"gateway_api_version":      gateway.DefaultAPIVersion,
	"gateway_rate_limit_rps":   10,
	"gateway_rate_limit_burst": 20,
	"webhook_max_skew":         "0s",
	"smtp_host":                "localhost",
	"smtp_port":                "1025",
	"smtp_from":                "noreply@example.com",
	"blob_backend":             BackendMemory,
	"blob_table":               "payment_blobs",
	"kafka_topic":              "payment-events",
	"dedup_ttl":                "1h",
	"log_level":                "info",
	"log_format":               "text",
}

// unsetKeys have no default; binding them keeps them in AllKeys.
var unsetKeys = []string{
	"gateway_client_id", "gateway_client_secret", "gateway_base_url",
	"webhook_secret", "site_base_url",
	"smtp_username", "smtp_password", "order_notify_email",
	"blob_bucket", "blob_prefix", "database_url",
	"kafka_brokers",
}

// Load reads defaults, then the optional YAML file at path (or
// $RECONCILER_CONFIG when path is empty), then the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	for _, k := range unsetKeys {
		if err := v.BindEnv(k); err != nil {
			return nil, err
		}
	}
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		HTTPAddr:        v.GetString("http_addr"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		RequestTimeout:  v.GetDuration("request_timeout"),
		Gateway: GatewayConfig{
			ClientID:     v.GetString("gateway_client_id"),
			ClientSecret: v.GetString("gateway_client_secret"),
			Env:          strings.ToLower(v.GetString("gateway_env")),
			BaseURL:      v.GetString("gateway_base_url"),
			APIVersion:   v.GetString("gateway_api_version"),
			RateLimit:    v.GetFloat64("gateway_rate_limit_rps"),
			Burst:        v.GetInt("gateway_rate_limit_burst"),
		},
		Webhook: WebhookConfig{
			Secret:  v.GetString("webhook_secret"),
			MaxSkew: v.GetDuration("webhook_max_skew"),
		},
		SiteURL: strings.TrimRight(v.GetString("site_base_url"), "/"),
		SMTP: SMTPConfig{
			Host:        v.GetString("smtp_host"),
			Port:        v.GetString("smtp_port"),
			Username:    v.GetString("smtp_username"),
			Password:    v.GetString("smtp_password"),
			From:        v.GetString("smtp_from"),
			NotifyEmail: v.GetString("order_notify_email"),
		},
		Blob: BlobConfig{
			Backend:     strings.ToLower(v.GetString("blob_backend")),
			Bucket:      v.GetString("blob_bucket"),
			Prefix:      v.GetString("blob_prefix"),
			Table:       v.GetString("blob_table"),
			DatabaseURL: v.GetString("database_url"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("kafka_brokers")),
			Topic:   v.GetString("kafka_topic"),
		},
		DedupTTL: v.GetDuration("dedup_ttl"),
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log_level")),
			Format: strings.ToLower(v.GetString("log_format")),
		},
	}
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks what every entry point needs: gateway credentials and a
// usable blob backend.
func (c *Config) Validate() error {
	var errs []error
	if c.Gateway.ClientID == "" || c.Gateway.ClientSecret == "" {
		errs = append(errs, errors.New("GATEWAY_CLIENT_ID and GATEWAY_CLIENT_SECRET are required"))
	}
	if c.Gateway.BaseURL == "" && c.Gateway.Env != "sandbox" && c.Gateway.Env != "production" {
		errs = append(errs, fmt.Errorf("GATEWAY_ENV must be sandbox or production, got %q", c.Gateway.Env))
	}

	switch c.Blob.Backend {
	case BackendMemory:
	case BackendS3:
		if c.Blob.Bucket == "" {
			errs = append(errs, errors.New("BLOB_BUCKET is required for the s3 backend"))
		}
	case BackendDynamoDB:
		if c.Blob.Table == "" {
			errs = append(errs, errors.New("BLOB_TABLE is required for the dynamodb backend"))
		}
	case BackendPostgres:
		if c.Blob.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown BLOB_BACKEND %q", c.Blob.Backend))
	}

	if c.DedupTTL <= 0 {
		errs = append(errs, errors.New("DEDUP_TTL must be positive"))
	}
	return errors.Join(errs...)
}

// ValidateServer adds the checks only the HTTP entry points need.
func (c *Config) ValidateServer() error {
	err := c.Validate()
	if c.SiteURL == "" {
		return errors.Join(err, errors.New("SITE_BASE_URL is required"))
	}
	if u, perr := url.Parse(c.SiteURL); perr != nil || u.Scheme == "" || u.Host == "" {
		return errors.Join(err, fmt.Errorf("SITE_BASE_URL %q is not an absolute URL", c.SiteURL))
	}
	return err
}

// GatewayBaseURL returns the override, or the URL for the configured env.
func (c *Config) GatewayBaseURL() string {
	if c.Gateway.BaseURL != "" {
		return strings.TrimRight(c.Gateway.BaseURL, "/")
	}
	return gateway.BaseURLFor(c.Gateway.Env)
}

// ReturnURL is where the gateway sends the shopper after paying. The
// gateway substitutes {order_id}.
func (c *Config) ReturnURL() string {
	return c.SiteURL + "/payment-status?order_id={order_id}"
}

// NotifyURL is the webhook target registered on every order.
func (c *Config) NotifyURL() string {
	return c.SiteURL + "/api/payment-webhook"
}

// GatewayClientConfig assembles the gateway client settings.
func (c *Config) GatewayClientConfig() gateway.Config {
	return gateway.Config{
		BaseURL:      c.GatewayBaseURL(),
		ClientID:     c.Gateway.ClientID,
		ClientSecret: c.Gateway.ClientSecret,
		APIVersion:   c.Gateway.APIVersion,
		ReturnURL:    c.ReturnURL(),
		NotifyURL:    c.NotifyURL(),
		RateLimit:    c.Gateway.RateLimit,
		Burst:        c.Gateway.Burst,
		Timeout:      c.RequestTimeout,
	}
}

// NewLogger builds the process logger.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch l.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

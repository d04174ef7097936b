package config

import (
	"fmt"
	"strings"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/client"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/signing"
)

// EnvPrefix prefixes every environment variable, e.g. OMNIKASSA_SIGNING_KEY.
const EnvPrefix = "OMNIKASSA"

// Config holds the settings shared by the API, the worker and okctl.
type Config struct {
	Environment    string        `mapstructure:"environment" validate:"oneof=production sandbox"`
	BaseURL        string        `mapstructure:"base_url" validate:"omitempty,url"`
	RefreshToken   string        `mapstructure:"refresh_token"`
	SigningKey     string        `mapstructure:"signing_key" validate:"required,base64"`
	SlugPrefix     string        `mapstructure:"slug_prefix" validate:"required"`
	ReturnURL      string        `mapstructure:"return_url" validate:"omitempty,url"`
	MaxPages       int           `mapstructure:"max_pages" validate:"gte=1"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst      int           `mapstructure:"rate_burst" validate:"gte=0"`

	AWSRegion        string        `mapstructure:"aws_region"`
	PaymentsTable    string        `mapstructure:"payments_table" validate:"required"`
	IdempotencyTable string        `mapstructure:"idempotency_table" validate:"required"`
	IdempotencyTTL   time.Duration `mapstructure:"idempotency_ttl"`
	QueueURL         string        `mapstructure:"queue_url"`

	RedisAddr string `mapstructure:"redis_addr"`
	TokenKey  string `mapstructure:"token_key"`

	HTTPAddr string `mapstructure:"http_addr"`
}

var defaults = map[string]interface{}{
	"environment":       "production",
	"base_url":          "",
	"refresh_token":     "",
	"signing_key":       "",
	"slug_prefix":       "omnikassa",
	"return_url":        "",
	"max_pages":         100,
	"request_timeout":   10 * time.Second,
	"rate_limit":        10.0,
	"rate_burst":        5,
	"aws_region":        "",
	"payments_table":    "payments",
	"idempotency_table": "idempotency",
	"idempotency_ttl":   48 * time.Hour,
	"queue_url":         "",
	"redis_addr":        "",
	"token_key":         "omnikassa:access-token",
	"http_addr":         ":8080",
}

var validate = validatorv10.New()

// Load reads defaults, then the optional YAML file at path, then OMNIKASSA_*
// environment variables, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Key decodes the base64 signing key.
func (c *Config) Key() ([]byte, error) {
	return signing.DecodeKey(c.SigningKey)
}

// ProcessorURL is BaseURL when set, otherwise the URL of Environment.
func (c *Config) ProcessorURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.Environment == "sandbox" {
		return client.SandboxURL
	}
	return client.ProductionURL
}

// ClientOptions returns the processor client settings.
func (c *Config) ClientOptions() client.Options {
	return client.Options{
		BaseURL:           c.ProcessorURL(),
		RefreshToken:      c.RefreshToken,
		Timeout:           c.RequestTimeout,
		RequestsPerSecond: c.RateLimit,
		Burst:             c.RateBurst,
	}
}

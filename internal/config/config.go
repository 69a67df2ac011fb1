// Package config loads runtime configuration from a YAML file, an optional
// .env file, and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dreamreel/dreamreel-api/internal/models"
	"github.com/dreamreel/dreamreel-api/internal/tier"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// DatabaseConfig holds persistence settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
}

// IdentityConfig holds identity-provider settings.
type IdentityConfig struct {
	ProviderURL string `yaml:"provider-url"`
	AnonKey     string `yaml:"anon-key"`
	JWTSecret   string `yaml:"jwt-secret"`
}

// PaymentsConfig holds payment-provider settings.
type PaymentsConfig struct {
	SecretKey        string  `yaml:"secret-key"`
	WebhookSecret    string  `yaml:"webhook-secret"`
	BaseURL          string  `yaml:"base-url"`
	BasicPriceID     string  `yaml:"basic-price-id"`
	BasicProductID   string  `yaml:"basic-product-id"`
	BasicPriceUSD    float64 `yaml:"basic-price-usd"`
	PremiumPriceID   string  `yaml:"premium-price-id"`
	PremiumProductID string  `yaml:"premium-product-id"`
	PremiumPriceUSD  float64 `yaml:"premium-price-usd"`
}

// StorageConfig holds object-storage settings; empty bucket disables mirroring.
type StorageConfig struct {
	Endpoint      string `yaml:"endpoint"`
	Region        string `yaml:"region"`
	AccessKey     string `yaml:"access-key"`
	SecretKey     string `yaml:"secret-key"`
	Bucket        string `yaml:"bucket"`
	PublicBaseURL string `yaml:"public-base-url"`
	UsePathStyle  bool   `yaml:"use-path-style"`
}

// GenerationConfig holds generation-provider settings.
type GenerationConfig struct {
	VideoAPIKey  string `yaml:"video-api-key"`
	VideoBaseURL string `yaml:"video-base-url"`
	ImageAPIKey  string `yaml:"image-api-key"`
	ImageBaseURL string `yaml:"image-base-url"`
}

// RedisConfig holds Redis settings; empty addr disables webhook dedup.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Config aggregates all runtime configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Log        LogConfig        `yaml:"log"`
	Identity   IdentityConfig   `yaml:"identity"`
	Payments   PaymentsConfig   `yaml:"payments"`
	Storage    StorageConfig    `yaml:"storage"`
	Generation GenerationConfig `yaml:"generation"`
	Redis      RedisConfig      `yaml:"redis"`

	// WebhookRetentionDays bounds how long processed webhook deliveries are
	// kept; zero selects the default.
	WebhookRetentionDays int `yaml:"webhook-retention-days"`

	// Tiers replaces the built-in feature table when present. Partial
	// overrides are rejected so enforcement and the public plans endpoint
	// can never disagree.
	Tiers tier.Table `yaml:"tiers"`
}

// Load reads configuration from the given YAML path (optional), a .env file
// (optional), and the environment, then validates the result.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Server: ServerConfig{Listen: ":3001"},
		Log:    LogConfig{Level: "info", MaxSizeMB: 100, MaxBackups: 5},
		Payments: PaymentsConfig{
			BasicPriceUSD:   9.99,
			PremiumPriceUSD: 19.99,
		},
	}

	if strings.TrimSpace(path) != "" {
		data, errRead := os.ReadFile(path)
		if errRead != nil && !errors.Is(errRead, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: read %s: %w", path, errRead)
		}
		if errRead == nil {
			if errDecode := yaml.Unmarshal(data, &cfg); errDecode != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, errDecode)
			}
		}
	}

	applyEnv(&cfg)

	if errValidate := cfg.Validate(); errValidate != nil {
		return Config{}, errValidate
	}
	return cfg, nil
}

// applyEnv overrides file values with environment variables.
func applyEnv(cfg *Config) {
	setString(&cfg.Server.Listen, "LISTEN_ADDR")
	setString(&cfg.Database.DSN, "DATABASE_DSN")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.File, "LOG_FILE")

	setString(&cfg.Identity.ProviderURL, "SUPABASE_URL")
	setString(&cfg.Identity.AnonKey, "SUPABASE_ANON_KEY")
	setString(&cfg.Identity.JWTSecret, "SUPABASE_JWT_SECRET")

	setString(&cfg.Payments.SecretKey, "STRIPE_SECRET_KEY")
	setString(&cfg.Payments.WebhookSecret, "STRIPE_WEBHOOK_SECRET")
	setString(&cfg.Payments.BasicPriceID, "STRIPE_BASIC_PRICE_ID")
	setString(&cfg.Payments.BasicProductID, "STRIPE_BASIC_PLAN_ID")
	setString(&cfg.Payments.PremiumPriceID, "STRIPE_PREMIUM_PRICE_ID")
	setString(&cfg.Payments.PremiumProductID, "STRIPE_PREMIUM_PLAN_ID")

	setString(&cfg.Storage.Endpoint, "S3_ENDPOINT")
	setString(&cfg.Storage.Region, "S3_REGION")
	setString(&cfg.Storage.AccessKey, "S3_ACCESS_KEY")
	setString(&cfg.Storage.SecretKey, "S3_SECRET_KEY")
	setString(&cfg.Storage.Bucket, "S3_BUCKET")
	setString(&cfg.Storage.PublicBaseURL, "S3_PUBLIC_BASE_URL")
	setBool(&cfg.Storage.UsePathStyle, "S3_USE_PATH_STYLE")

	setString(&cfg.Generation.VideoAPIKey, "RUNWAY_API_KEY")
	setString(&cfg.Generation.VideoBaseURL, "RUNWAY_BASE_URL")
	setString(&cfg.Generation.ImageAPIKey, "GEMINI_API_KEY")
	setString(&cfg.Generation.ImageBaseURL, "GEMINI_BASE_URL")

	setInt(&cfg.WebhookRetentionDays, "WEBHOOK_RETENTION_DAYS")

	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")
}

// Validate checks required settings and the tier table.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Database.DSN) == "" {
		missing = append(missing, "DATABASE_DSN")
	}
	if strings.TrimSpace(c.Identity.JWTSecret) == "" && strings.TrimSpace(c.Identity.ProviderURL) == "" {
		missing = append(missing, "SUPABASE_JWT_SECRET or SUPABASE_URL")
	}
	if strings.TrimSpace(c.Payments.SecretKey) == "" {
		missing = append(missing, "STRIPE_SECRET_KEY")
	}
	if strings.TrimSpace(c.Payments.WebhookSecret) == "" {
		missing = append(missing, "STRIPE_WEBHOOK_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required settings: %v", missing)
	}

	if c.Storage.Bucket != "" {
		if c.Storage.Region == "" || c.Storage.AccessKey == "" || c.Storage.SecretKey == "" || c.Storage.PublicBaseURL == "" {
			return fmt.Errorf("config: storage bucket set but region/credentials/public-base-url incomplete")
		}
	}

	if errTiers := c.TierTable().Validate(); errTiers != nil {
		return fmt.Errorf("config: %w", errTiers)
	}
	return nil
}

// TierTable returns the configured tier table, defaulting to the built-in one.
func (c Config) TierTable() tier.Table {
	if len(c.Tiers) == 0 {
		return tier.Default()
	}
	return c.Tiers
}

// PriceToTier builds the price-ID to tier mapping used by the synchronizer.
func (c Config) PriceToTier() map[string]string {
	mapping := map[string]string{}
	if c.Payments.BasicPriceID != "" {
		mapping[c.Payments.BasicPriceID] = models.TierBasic
	}
	if c.Payments.PremiumPriceID != "" {
		mapping[c.Payments.PremiumPriceID] = models.TierPremium
	}
	return mapping
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	parsed, errParse := strconv.ParseBool(v)
	if errParse != nil {
		return
	}
	*dst = parsed
}

func setInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	parsed, errParse := strconv.Atoi(v)
	if errParse != nil {
		return
	}
	*dst = parsed
}

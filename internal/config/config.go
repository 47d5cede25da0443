// Package config provides configuration management using viper.
// It supports loading from YAML files, an optional .env file and
// environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends understood by the kv layer.
const (
	BackendMemory   = "memory"
	BackendBolt     = "bolt"
	BackendPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Bot        BotConfig        `mapstructure:"bot"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Log        LogConfig        `mapstructure:"log"`
	Loyalty    LoyaltyConfig    `mapstructure:"loyalty"`
	Referral   ReferralConfig   `mapstructure:"referral"`
	Review     ReviewConfig     `mapstructure:"review"`
	Simulation SimulationConfig `mapstructure:"simulation"`
}

// BotConfig holds Telegram bot configuration.
// An empty token disables the bot.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// HTTPConfig holds the JSON API listener configuration.
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	RateLimit    float64       `mapstructure:"rate_limit"`
	RateBurst    int           `mapstructure:"rate_burst"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// StorageConfig selects the key-value backend.
type StorageConfig struct {
	Backend  string `mapstructure:"backend"`
	BoltPath string `mapstructure:"bolt_path"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AdminConfig holds the Telegram ids of support staff.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// LogConfig holds zerolog settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// LoyaltyConfig holds point award and withdrawal settings.
type LoyaltyConfig struct {
	PointsPerDollar int64 `mapstructure:"points_per_dollar"`
	ReviewReward    int64 `mapstructure:"review_reward"`
	ShareReward     int64 `mapstructure:"share_reward"`
	SignupBonus     int64 `mapstructure:"signup_bonus"`
}

// ReferralConfig holds referral program settings.
type ReferralConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Bonus   int64  `mapstructure:"bonus"`
	// CreditLoyalty folds the bonus into the referrer's spendable points.
	CreditLoyalty   bool   `mapstructure:"credit_loyalty"`
	QRSize          int    `mapstructure:"qr_size"`
	QRRecoveryLevel string `mapstructure:"qr_recovery_level"`
}

// ReviewConfig holds review submission limits.
type ReviewConfig struct {
	MaxPhotoBytes int `mapstructure:"max_photo_bytes"`
	MaxPhotos     int `mapstructure:"max_photos"`
}

// SimulationConfig holds the artificial delays standing in for a payment
// gateway and a mailing-list provider.
type SimulationConfig struct {
	CheckoutDelay   time.Duration `mapstructure:"checkout_delay"`
	NewsletterDelay time.Duration `mapstructure:"newsletter_delay"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. BOT_TOKEN, STORAGE_BACKEND, REFERRAL_BASE_URL
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks settings that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendPostgres:
	case BackendBolt:
		if c.Storage.BoltPath == "" {
			return fmt.Errorf("storage.bolt_path is required for the bolt backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Loyalty.PointsPerDollar <= 0 {
		return fmt.Errorf("loyalty.points_per_dollar must be positive")
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.token", "")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.rate_limit", 20)
	v.SetDefault("http.rate_burst", 40)
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "15s")

	v.SetDefault("storage.backend", BackendBolt)
	v.SetDefault("storage.bolt_path", "lovincraft.db")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "lovincraft")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "lovincraft")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("admin.ids", []int64{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)

	v.SetDefault("loyalty.points_per_dollar", 100)
	v.SetDefault("loyalty.review_reward", 50)
	v.SetDefault("loyalty.share_reward", 10)
	v.SetDefault("loyalty.signup_bonus", 0)

	v.SetDefault("referral.base_url", "https://lovincraft.com")
	v.SetDefault("referral.bonus", 100)
	v.SetDefault("referral.credit_loyalty", true)
	v.SetDefault("referral.qr_size", 256)
	v.SetDefault("referral.qr_recovery_level", "M")

	v.SetDefault("review.max_photo_bytes", 5*1024*1024)
	v.SetDefault("review.max_photos", 6)

	v.SetDefault("simulation.checkout_delay", "2s")
	v.SetDefault("simulation.newsletter_delay", "1s")
}

// IsAdmin checks if a Telegram user is support staff.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

package config

import (
	"fmt"
	"time"
)

// Config holds the full runtime configuration of the bot.
type Config struct {
	AppEnv string `mapstructure:"-"`

	App          AppConfig          `mapstructure:"app" validate:"required"`
	Logger       LoggerConfig       `mapstructure:"logger" validate:"required"`
	Bot          BotConfig          `mapstructure:"bot" validate:"required"`
	Server       ServerConfig       `mapstructure:"server" validate:"required"`
	DB           DBConfig           `mapstructure:"db" validate:"required"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Sentry       SentryConfig       `mapstructure:"sentry"`
	Providers    ProvidersConfig    `mapstructure:"providers" validate:"required"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
}

type AppConfig struct {
	Name string `mapstructure:"name" validate:"required"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"required,oneof=json text"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type BotConfig struct {
	Token       string        `mapstructure:"token" validate:"required"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DBConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     string `mapstructure:"port" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
	Name     string `mapstructure:"name" validate:"required"`
	SSLMode  string `mapstructure:"sslmode" validate:"required"`
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type RedisConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Addr            string        `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db"`
	ContextTTL      time.Duration `mapstructure:"context_ttl"`
	ProfileCacheTTL time.Duration `mapstructure:"profile_cache_ttl"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type ProvidersConfig struct {
	Weather  WeatherProviderConfig  `mapstructure:"weather" validate:"required"`
	Traffic  TrafficProviderConfig  `mapstructure:"traffic" validate:"required"`
	Currency CurrencyProviderConfig `mapstructure:"currency" validate:"required"`
	Events   EventsProviderConfig   `mapstructure:"events" validate:"required"`

	Timeout time.Duration `mapstructure:"timeout"`
}

type WeatherProviderConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	APIKey  string `mapstructure:"api_key" validate:"required"`
}

type TrafficProviderConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	APIKey  string `mapstructure:"api_key" validate:"required"`
}

type CurrencyProviderConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	APIKey  string `mapstructure:"api_key" validate:"required"`
}

type EventsProviderConfig struct {
	BaseURL         string        `mapstructure:"base_url" validate:"required,url"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

type ConversationConfig struct {
	CallTimeout   time.Duration `mapstructure:"call_timeout"`
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	CleanInterval time.Duration `mapstructure:"clean_interval"`
}

type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Limit   int           `mapstructure:"limit" validate:"required_if=Enabled true"`
	Window  time.Duration `mapstructure:"window"`
}

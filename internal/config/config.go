package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultAppName        = "SimpleBank"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultRatesBaseURL   = "https://api.freecurrencyapi.com"
	defaultRatesTimeout   = 5 * time.Second
	defaultRatesCacheTTL  = 10 * time.Minute
	defaultLockTTL        = 5 * time.Second
	defaultRateLimit      = "100-M"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
	RatesBaseURL   string
	RatesAPIKey    string
	RatesTimeout   time.Duration
	RatesCacheTTL  time.Duration
	LockTTL        time.Duration
	RateLimit      string
}

// Load reads an optional .env file, then the environment, and populates a
// Config instance. Real environment variables win over .env values.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromViper(viper.New())
}

// FromViper builds a Config from v after installing defaults and binding the
// environment.
func FromViper(v *viper.Viper) (Config, error) {
	v.SetDefault("APP_NAME", defaultAppName)
	v.SetDefault("APP_ENV", defaultAppEnv)
	v.SetDefault("PORT", defaultPort)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("SHUTDOWN_TIMEOUT", defaultShutdownDelay)
	v.SetDefault("IDEMPOTENCY_TTL", defaultIdempotencyTTL)
	v.SetDefault("RATES_BASE_URL", defaultRatesBaseURL)
	v.SetDefault("RATES_API_KEY", "")
	v.SetDefault("RATES_TIMEOUT", defaultRatesTimeout)
	v.SetDefault("RATES_CACHE_TTL", defaultRatesCacheTTL)
	v.SetDefault("LOCK_TTL", defaultLockTTL)
	v.SetDefault("RATE_LIMIT", defaultRateLimit)
	v.AutomaticEnv()

	cfg := Config{
		AppName:      v.GetString("APP_NAME"),
		AppEnv:       strings.ToLower(v.GetString("APP_ENV")),
		Port:         v.GetString("PORT"),
		LogLevel:     strings.ToLower(v.GetString("LOG_LEVEL")),
		DatabaseURL:  v.GetString("DATABASE_URL"),
		RedisURL:     v.GetString("REDIS_URL"),
		RatesBaseURL: v.GetString("RATES_BASE_URL"),
		RatesAPIKey:  v.GetString("RATES_API_KEY"),
		RateLimit:    v.GetString("RATE_LIMIT"),
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SHUTDOWN_TIMEOUT", &cfg.ShutdownPeriod},
		{"IDEMPOTENCY_TTL", &cfg.IdempotencyTTL},
		{"RATES_TIMEOUT", &cfg.RatesTimeout},
		{"RATES_CACHE_TTL", &cfg.RatesCacheTTL},
		{"LOCK_TTL", &cfg.LockTTL},
	}
	for _, d := range durations {
		value, err := duration(v, d.key)
		if err != nil {
			return Config{}, err
		}
		*d.dst = value
	}

	if !cfg.IsDevelopment() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RatesAPIKey == "" {
			return Config{}, fmt.Errorf("RATES_API_KEY must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// duration accepts Go duration strings ("90s") as well as bare seconds ("90").
func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, fmt.Errorf("%s must not be empty", key)
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return time.Duration(seconds) * time.Second, nil
}

// IsDevelopment reports whether in-memory fallbacks are allowed.
func (c Config) IsDevelopment() bool {
	switch c.AppEnv {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

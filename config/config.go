package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment variables or .env file.
//
// It is composed of smaller structs that represent different concerns of the system:
// the HTTP server, Postgres storage, the Redis history cache, the history
// provider, the live tick feed and chart defaults.
//
// Example ENV:
//
//	SERVER_PORT=8080
//	POSTGRES_HOST=localhost
//	POSTGRES_DB=candlefeed
//	REDIS_ADDR=localhost:6379
//	HISTORY_BASE_URL=https://history.internal
//	FEED_URL=wss://stream.example.com/ws
//	FEED_SYMBOLS=BTCUSDT,ETHUSDT
type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	History   HistoryConfig
	Feed      FeedConfig
	Live      LiveConfig
	MA        MAConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server settings such as the port to listen on.
type ServerConfig struct {
	Port string // The TCP port the HTTP server will listen on (e.g., "8080")
}

// PostgresConfig defines connection details for PostgreSQL.
//
// Fields:
//   - Host: hostname of the database server.
//   - Port: port number of the database server (default 5432).
//   - User: username for authentication.
//   - Password: password for authentication.
//   - DBName: target database name.
//   - SSLMode: SSL mode (e.g., "disable", "require").
//   - URL: computed DSN used by database/sql to connect.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string
}

// RedisConfig configures the history page cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// HistoryConfig selects and tunes the historical candle source.
//
// With BaseURL empty, history is served from the local Postgres candles table.
type HistoryConfig struct {
	BaseURL      string
	PageLimit    int
	FetchTimeout time.Duration
}

// FeedConfig configures the live tick websocket client. An empty URL disables it.
type FeedConfig struct {
	URL            string
	Symbols        []string
	ReconnectDelay time.Duration
}

// LiveConfig bounds the per-symbol tick buffer used to seed new chart sessions
// and the number of symbols tracked when no live feed restricts them.
type LiveConfig struct {
	TickBuffer int
	MaxSymbols int
}

// MAConfig holds moving average defaults.
type MAConfig struct {
	DefaultPeriod int
}

// RateLimitConfig is the per client IP request budget.
type RateLimitConfig struct {
	PerMinute int
}

// AppConfig is the globally accessible configuration instance.
//
// It is populated once via LoadConfig() and used throughout the application.
// All services should import this package and read from AppConfig instead of
// reloading environment variables directly.
var AppConfig Config

// LoadConfig initializes the global AppConfig by reading from .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
//
// Fatal exit:
//   - If required variables are missing or invalid, validateConfig() will
//     terminate the app with a descriptive log message.
func LoadConfig() {
	setDefaults()

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	// Read environment variables automatically
	viper.AutomaticEnv()

	AppConfig = fromViper()

	// Validate critical fields
	validateConfig()
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "candlefeed")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("HISTORY_CACHE_TTL", "5m")

	viper.SetDefault("HISTORY_BASE_URL", "")
	viper.SetDefault("HISTORY_PAGE_LIMIT", 100)
	viper.SetDefault("HISTORY_FETCH_TIMEOUT", "10s")

	viper.SetDefault("FEED_URL", "")
	viper.SetDefault("FEED_SYMBOLS", "BTCUSDT")
	viper.SetDefault("FEED_RECONNECT_DELAY", "2s")

	viper.SetDefault("LIVE_TICK_BUFFER", 10000)
	viper.SetDefault("LIVE_MAX_SYMBOLS", 100)
	viper.SetDefault("MA_DEFAULT_PERIOD", 20)
	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
}

func fromViper() Config {
	cfg := Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			CacheTTL: viper.GetDuration("HISTORY_CACHE_TTL"),
		},
		History: HistoryConfig{
			BaseURL:      strings.TrimRight(viper.GetString("HISTORY_BASE_URL"), "/"),
			PageLimit:    viper.GetInt("HISTORY_PAGE_LIMIT"),
			FetchTimeout: viper.GetDuration("HISTORY_FETCH_TIMEOUT"),
		},
		Feed: FeedConfig{
			URL:            viper.GetString("FEED_URL"),
			Symbols:        splitSymbols(viper.GetString("FEED_SYMBOLS")),
			ReconnectDelay: viper.GetDuration("FEED_RECONNECT_DELAY"),
		},
		Live: LiveConfig{
			TickBuffer: viper.GetInt("LIVE_TICK_BUFFER"),
			MaxSymbols: viper.GetInt("LIVE_MAX_SYMBOLS"),
		},
		MA:        MAConfig{DefaultPeriod: viper.GetInt("MA_DEFAULT_PERIOD")},
		RateLimit: RateLimitConfig{PerMinute: viper.GetInt("RATE_LIMIT_PER_MINUTE")},
	}

	// Construct Postgres DSN (used by database/sql)
	cfg.Postgres.URL = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
	return cfg
}

// splitSymbols parses a comma separated symbol list, upper-casing and
// dropping blanks and duplicates.
func splitSymbols(s string) []string {
	var out []string
	seen := map[string]bool{}
	for _, part := range strings.Split(s, ",") {
		sym := strings.ToUpper(strings.TrimSpace(part))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out
}

// validateConfig ensures required variables are present and terminates
// the application if they are missing.
func validateConfig() {
	if missing := missingKeys(AppConfig); len(missing) > 0 {
		log.Fatalf("❌ Missing or invalid environment variables: %v\n", missing)
	}
}

// missingKeys lists the environment keys whose values are absent or unusable.
func missingKeys(cfg Config) []string {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if cfg.Postgres.Host == "" {
		missing = append(missing, "POSTGRES_HOST")
	}
	if cfg.Postgres.Port == 0 {
		missing = append(missing, "POSTGRES_PORT")
	}
	if cfg.Postgres.User == "" {
		missing = append(missing, "POSTGRES_USER")
	}
	if cfg.Postgres.Password == "" {
		missing = append(missing, "POSTGRES_PASSWORD")
	}
	if cfg.Postgres.DBName == "" {
		missing = append(missing, "POSTGRES_DB")
	}
	if cfg.History.PageLimit <= 0 {
		missing = append(missing, "HISTORY_PAGE_LIMIT")
	}
	if cfg.Feed.URL != "" && len(cfg.Feed.Symbols) == 0 {
		missing = append(missing, "FEED_SYMBOLS")
	}
	return missing
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Env string

	Server   ServerConfig
	Database DatabaseConfig
	Stream   StreamConfig
	Mail     MailConfig
	Google   GoogleConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	SessionSecret   string
	SiteURL         string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver       string // postgres, mysql or sqlite
	DSN          string
	AutoMigrate  bool
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// StreamConfig holds live stream and pagination settings
type StreamConfig struct {
	PageSize     int
	SendBuffer   int
	WriteTimeout time.Duration
	PongWait     time.Duration
	PingPeriod   time.Duration
	ReadLimit    int64
}

// MailConfig holds SMTP settings. Mail is disabled unless every field is set.
type MailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// GoogleConfig holds the OAuth client used for "Log in with Google".
// The endpoint URLs default to Google's and are only overridden in tests.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
}

// Enabled reports whether Google login is configured
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

const devSessionSecret = "grumblr_dev_secret_change_me"

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Env: getEnv("ENV", "production"),
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			SessionSecret:   os.Getenv("SESSION_SECRET"),
			SiteURL:         getEnv("SITE_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", "postgres"),
			DSN:          getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=grumblr port=5432 sslmode=disable TimeZone=UTC"),
			AutoMigrate:  getBoolEnv("DB_AUTO_MIGRATE", true),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxLifetime:  getDurationEnv("DB_MAX_LIFETIME", time.Hour),
		},
		Stream: StreamConfig{
			PageSize:     getIntEnv("STREAM_PAGE_SIZE", 20),
			SendBuffer:   getIntEnv("STREAM_SEND_BUFFER", 16),
			WriteTimeout: getDurationEnv("STREAM_WRITE_TIMEOUT", 10*time.Second),
			PongWait:     getDurationEnv("STREAM_PONG_WAIT", 60*time.Second),
			PingPeriod:   getDurationEnv("STREAM_PING_PERIOD", 50*time.Second),
			ReadLimit:    4 << 10,
		},
		Mail: MailConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     os.Getenv("SMTP_PORT"),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			From:     os.Getenv("SMTP_FROM"),
		},
		Google: GoogleConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if cfg.Server.SessionSecret == "" && cfg.IsDevelopment() {
		cfg.Server.SessionSecret = devSessionSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsDevelopment reports whether ENV=development
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Server.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if c.Stream.PageSize <= 0 {
		return fmt.Errorf("STREAM_PAGE_SIZE must be positive")
	}
	if c.Stream.SendBuffer <= 0 {
		return fmt.Errorf("STREAM_SEND_BUFFER must be positive")
	}
	// 心跳间隔必须小于读超时，否则连接会被误判为断开
	if c.Stream.PingPeriod >= c.Stream.PongWait {
		return fmt.Errorf("STREAM_PING_PERIOD must be shorter than STREAM_PONG_WAIT")
	}
	return nil
}

// Enabled reports whether all SMTP settings are present
func (m MailConfig) Enabled() bool {
	return m.Host != "" && m.Port != "" && m.Username != "" && m.Password != "" && m.From != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

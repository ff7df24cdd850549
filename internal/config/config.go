// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Fee      FeeConfig
	Session  SessionConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Archive  ArchiveConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 2m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s).
	// The commit route is exempt; it is bounded by CommitWriteTimeout.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// CommitWriteTimeout is the write deadline of the commit route, which
	// answers only once the whole batch is persisted. It must exceed
	// IMPORT_COMMIT_TIMEOUT (default: 11m)
	CommitWriteTimeout time.Duration `env:"SERVER_COMMIT_WRITE_TIMEOUT" default:"11m"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// AutoMigrate applies the embedded schema on startup (default: false)
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" default:"false"`
}

// ImportConfig holds bulk student import settings.
type ImportConfig struct {
	// MaxFileSize is the maximum accepted upload size in bytes (default: 10MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"10485760"`

	// MaxRows is the maximum number of data rows per file (default: 5000)
	MaxRows int `env:"IMPORT_MAX_ROWS" default:"5000"`

	// MaxConcurrent is the maximum number of parallel validate/commit calls (default: 5)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for an import slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// CommitTimeout bounds a whole commit run (default: 10m)
	CommitTimeout time.Duration `env:"IMPORT_COMMIT_TIMEOUT" default:"10m"`

	// AllocatorMaxAttempts bounds enrollment number collision retries (default: 5)
	AllocatorMaxAttempts int `env:"IMPORT_ALLOCATOR_MAX_ATTEMPTS" default:"5"`

	// IntraBatchDuplicates flags rows repeating an email, phone or national id
	// already seen earlier in the same file (default: true)
	IntraBatchDuplicates bool `env:"IMPORT_INTRA_BATCH_DUPLICATES" default:"true"`

	// AcceptXLSX enables the spreadsheet parser for .xlsx uploads (default: false)
	AcceptXLSX bool `env:"IMPORT_ACCEPT_XLSX" default:"false"`

	// BcryptCost is the cost used to hash initial credentials (default: 10)
	BcryptCost int `env:"IMPORT_BCRYPT_COST" default:"10"`
}

// FeeConfig holds the registration fee created for every imported student.
type FeeConfig struct {
	// RegistrationAmount is a decimal string (default: 500.00)
	RegistrationAmount string `env:"FEE_REGISTRATION_AMOUNT" default:"500.00"`

	// RegistrationDueDays is the due date offset from commit (default: 30)
	RegistrationDueDays int `env:"FEE_REGISTRATION_DUE_DAYS" default:"30"`
}

// SessionConfig holds validation session settings.
type SessionConfig struct {
	// TTL is how long a validated upload is kept awaiting commit (default: 30m)
	TTL time.Duration `env:"IMPORT_SESSION_TTL" default:"30m"`

	// SweepSchedule is the cron spec for purging expired sessions (default: @every 1m)
	SweepSchedule string `env:"IMPORT_SESSION_SWEEP" default:"@every 1m"`

	// CookieName is the session cookie read when X-Session-ID is absent (default: session_id)
	CookieName string `env:"SESSION_COOKIE_NAME" default:"session_id"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables X-API-Key validation on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// ArchiveConfig holds the optional object storage copy of committed uploads.
// Archiving is disabled when Endpoint is empty.
type ArchiveConfig struct {
	Endpoint  string `env:"ARCHIVE_ENDPOINT"`
	AccessKey string `env:"ARCHIVE_ACCESS_KEY"`
	SecretKey string `env:"ARCHIVE_SECRET_KEY"`
	Bucket    string `env:"ARCHIVE_BUCKET" default:"enrollment-imports"`
	UseSSL    bool   `env:"ARCHIVE_USE_SSL" default:"false"`
}

// Enabled reports whether an archive endpoint is configured.
func (c ArchiveConfig) Enabled() bool {
	return c.Endpoint != ""
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Package config provides centralized configuration for the shipment service
// and the shipctl CLI. Values come from environment variables (optionally
// seeded from a .env file) and are validated once at startup.
package config

import (
	"net"
	"strconv"
	"strings"
	"time"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Store      StoreConfig
	Correction CorrectionConfig
	Import     ImportConfig
	Export     ExportConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout stays 0 so SSE streams are not cut off.
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including running imports.
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is applied by middleware to non-streaming routes.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// TrustedProxies is a comma-separated list of CIDRs or IPs whose
	// X-Real-IP / X-Forwarded-For headers are believed. Empty trusts none.
	TrustedProxies string `env:"TRUSTED_PROXIES"`
}

// StoreConfig selects and configures the persistence gateway.
type StoreConfig struct {
	// Driver is one of memory, sqlite, postgres (default: sqlite)
	Driver string `env:"STORE_DRIVER" default:"sqlite"`

	// Path is the SQLite database file (default: shipments.db)
	Path string `env:"STORE_PATH" default:"shipments.db"`

	// URL is the PostgreSQL connection string, required for the postgres driver.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// Key is the key the whole shipment collection is stored under.
	Key string `env:"STORE_KEY" default:"shipments"`

	MaxConns int `env:"DB_MAX_CONNS" default:"5"`
	MinConns int `env:"DB_MIN_CONNS" default:"1"`
}

// CorrectionConfig configures the city correction client.
type CorrectionConfig struct {
	// BaseURL of the correction service; requests go to BaseURL + /correct_city.
	BaseURL string `env:"CORRECTION_URL" default:"http://127.0.0.1:5000"`

	// Timeout is the per-request HTTP timeout (default: 10s)
	Timeout time.Duration `env:"CORRECTION_TIMEOUT" default:"10s"`

	// MaxAttempts includes the first try; transient failures are retried.
	MaxAttempts int `env:"CORRECTION_MAX_ATTEMPTS" default:"3"`

	// Backoff is the delay before the first retry, doubled after each attempt.
	Backoff time.Duration `env:"CORRECTION_BACKOFF" default:"200ms"`
}

// ImportConfig holds CSV import settings.
type ImportConfig struct {
	// RowDelay paces row processing so progress is visible (default: 500ms)
	RowDelay time.Duration `env:"IMPORT_ROW_DELAY" default:"500ms"`

	// MaxFileSize is the largest accepted CSV in bytes (default: 10MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"10485760"`

	// MaxConcurrent bounds parallel imports (default: 1)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"1"`

	// MaxWaitTime is how long a new import waits for a free slot.
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single import run (default: 30m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"30m"`
}

// ExportConfig holds CSV export settings.
type ExportConfig struct {
	// Timezone used for the Date Created column, an IANA name or "Local".
	Timezone string `env:"EXPORT_TIMEZONE" default:"Local"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// TrustedProxyList splits TrustedProxies into its non-empty entries.
func (c *ServerConfig) TrustedProxyList() []string {
	var out []string
	for _, p := range strings.Split(c.TrustedProxies, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Location resolves the export timezone. Validate guarantees it loads.
func (c *ExportConfig) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Package config provides centralized configuration management for the grid service.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Grid     GridConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
// The database is optional: without a URL only in-memory tables are served.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Enabled reports whether a database is configured.
func (c *DatabaseConfig) Enabled() bool { return c.URL != "" }

// GridConfig holds table grid settings.
type GridConfig struct {
	// Definitions is the YAML file describing the tables (default: grids.yaml)
	Definitions string `env:"GRID_DEFINITIONS" default:"grids.yaml"`

	// DataDir is where relative data paths of in-memory tables are resolved (default: .)
	DataDir string `env:"GRID_DATA_DIR" default:"."`

	// RowsPerPage is the page size used when a table sets none (default: 25)
	RowsPerPage int `env:"GRID_ROWS_PER_PAGE" default:"25"`

	// PagesToDisplay is the number of page buttons shown (default: 5)
	PagesToDisplay int `env:"GRID_PAGES_TO_DISPLAY" default:"5"`

	// DefaultLocator is used by pipeline steps declared without a locator
	DefaultLocator string `env:"GRID_DEFAULT_LOCATOR"`

	// Remote makes every table load its rows through the rows API (default: false)
	Remote bool `env:"GRID_REMOTE" default:"false"`

	// FetchTimeout bounds each pipeline and remote fetch (default: 10s)
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" default:"10s"`

	// MaxViews is the number of table views built at once (default: 8)
	MaxViews int `env:"GRID_MAX_VIEWS" default:"8"`

	// ViewWait is how long a view waits for a free slot (default: 5s)
	ViewWait time.Duration `env:"GRID_VIEW_WAIT" default:"5s"`
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

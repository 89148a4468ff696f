package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/gridengine/internal/config"
	"github.com/JonMunkholm/gridengine/internal/logging"
	"github.com/JonMunkholm/gridengine/internal/pipeline"
	"github.com/JonMunkholm/gridengine/internal/schema"
	"github.com/JonMunkholm/gridengine/internal/source"
	"github.com/JonMunkholm/gridengine/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	// Load grid definitions
	tables, err := schema.Load(cfg.Grid.Definitions)
	if err != nil {
		slog.Error("failed to load grid definitions", "path", cfg.Grid.Definitions, "error", err)
		os.Exit(1)
	}
	slog.Info("tables registered",
		"count", tables.Count(),
		"groups", len(tables.Groups()),
	)

	ctx := context.Background()

	// The database is optional; without it only memory tables are served.
	var pool *pgxpool.Pool
	if cfg.Database.Enabled() {
		pool, err = connect(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
	}

	sources, err := source.Open(tables.All(), pool, cfg.Grid.DataDir, slog.Default())
	if err != nil {
		slog.Error("failed to open table sources", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(tables, sources, web.Options{
		RowsPerPage:    cfg.Grid.RowsPerPage,
		PagesToDisplay: cfg.Grid.PagesToDisplay,
		Remote:         cfg.Grid.Remote,
		DefaultLocator: cfg.Grid.DefaultLocator,
		FetchTimeout:   cfg.Grid.FetchTimeout,
		MaxViews:       cfg.Grid.MaxViews,
		ViewWait:       cfg.Grid.ViewWait,
		Transport:      pipeline.NewHTTPTransport("", cfg.Grid.FetchTimeout),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// connect opens and verifies the connection pool.
func connect(ctx context.Context, db config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(db.URL)
	if err != nil {
		return nil, err
	}

	// Apply pool configuration from config
	poolConfig.MaxConns = int32(db.MaxConns)
	poolConfig.MinConns = int32(db.MinConns)
	poolConfig.MaxConnLifetime = db.MaxConnLifetime
	poolConfig.MaxConnIdleTime = db.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(db.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

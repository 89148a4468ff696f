package source

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/gridengine/internal/core"
	"github.com/JonMunkholm/gridengine/internal/schema"
)

// ErrNoDatabase is returned for a postgres table when no pool is configured.
var ErrNoDatabase = errors.New("no database configured")

// Open builds the source of every table. Memory tables read their data file
// relative to dataDir; a memory table without one starts empty. pool may be
// nil when no table uses postgres.
func Open(tables []schema.Table, pool *pgxpool.Pool, dataDir string, logger *slog.Logger) (map[string]Source, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sources := make(map[string]Source, len(tables))
	for _, t := range tables {
		switch t.Source {
		case schema.SourcePostgres:
			if pool == nil {
				return nil, fmt.Errorf("table %s: %w", t.Key, ErrNoDatabase)
			}
			sources[t.Key] = NewPostgres(pool, t, logger)

		default:
			if t.Data == "" {
				sources[t.Key] = NewMemory(t, []core.Row{}, logger)
				continue
			}
			path := t.Data
			if !filepath.IsAbs(path) {
				path = filepath.Join(dataDir, path)
			}
			m, err := LoadMemory(t, path, logger)
			if err != nil {
				return nil, err
			}
			sources[t.Key] = m
			logger.Debug("memory table loaded", "table", t.Key, "path", path, "rows", m.store.RowCount())
		}
	}
	return sources, nil
}

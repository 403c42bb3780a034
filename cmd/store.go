package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/emissions-dashboard/internal/config"
	"github.com/sells-group/emissions-dashboard/internal/fetcher"
	"github.com/sells-group/emissions-dashboard/internal/importer"
	"github.com/sells-group/emissions-dashboard/internal/store"
)

// initStore opens the store named by store.driver. prepare registers the
// Postgres dashboard queries on each connection and needs a migrated schema.
func initStore(ctx context.Context, prepare bool) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "emissions.db"
		}
		return store.NewSQLite(dsn)
	case config.DriverPostgres:
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
			Prepare:  prepare,
		})
	case config.DriverMemory:
		return initMemoryStore(ctx)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initMemoryStore seeds a memory store from store.seed_file, or from the
// built-in sample data when no file is set.
func initMemoryStore(ctx context.Context) (store.Store, error) {
	if cfg.Store.SeedFile == "" {
		zap.L().Info("memory store seeded with sample data")
		return store.NewMemoryFromDataset(ctx, store.SampleDataset())
	}

	ds, stats, err := importer.Parse(ctx, importer.Options{
		Source:   cfg.Store.SeedFile,
		Encoding: cfg.Import.Encoding,
		Fetch:    fetchOptions(),
	})
	if err != nil {
		return nil, eris.Wrap(err, "seed memory store")
	}
	zap.L().Info("memory store seeded from file",
		zap.String("file", cfg.Store.SeedFile),
		zap.Int("companies", stats.Companies),
		zap.Int("emissions", stats.Emissions),
	)
	return store.NewMemoryFromDataset(ctx, ds)
}

func fetchOptions() fetcher.Options {
	return fetcher.Options{
		HTTP: fetcher.HTTPOptions{
			UserAgent: cfg.Import.UserAgent,
			Timeout:   time.Duration(cfg.Import.TimeoutSecs) * time.Second,
		},
		FTP: fetcher.FTPOptions{
			Timeout: time.Duration(cfg.Import.TimeoutSecs) * time.Second,
		},
	}
}

// Package store implements the emissions query layer over PostgreSQL,
// SQLite and an in-memory dataset.
package store

import (
	"context"

	"github.com/sells-group/emissions-dashboard/internal/emissions"
	"github.com/sells-group/emissions-dashboard/internal/model"
)

// Store is an emissions database the API can query and the importer can load.
type Store interface {
	emissions.Source

	// Load upserts a dataset: companies by name, emissions by (company, year).
	Load(ctx context.Context, ds *model.Dataset) (*model.LoadResult, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

// rollupColumns whitelists the company columns a rollup may group by.
var rollupColumns = map[string]bool{
	"sector": true,
	"region": true,
}

// groupTotals is one GROUP BY row before it is typed as a sector or region rollup.
type groupTotals struct {
	key string
	model.RollupTotals
}

func sectorRollups(groups []groupTotals) []model.SectorRollup {
	out := make([]model.SectorRollup, len(groups))
	for i, g := range groups {
		out[i] = model.SectorRollup{Sector: model.Sector(g.key), RollupTotals: g.RollupTotals}
	}
	return out
}

func regionRollups(groups []groupTotals) []model.RegionRollup {
	out := make([]model.RegionRollup, len(groups))
	for i, g := range groups {
		out[i] = model.RegionRollup{Region: model.Region(g.key), RollupTotals: g.RollupTotals}
	}
	return out
}

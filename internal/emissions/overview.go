package emissions

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/sells-group/emissions-dashboard/internal/model"
)

// Overview is the dashboard landing view for one year.
type Overview struct {
	Year    int                  `json:"year" yaml:"year"`
	Stats   *model.Stats         `json:"stats" yaml:"stats"`
	Sectors []model.SectorRollup `json:"sectors" yaml:"sectors"`
	Regions []model.RegionRollup `json:"regions" yaml:"regions"`
}

// FetchOverview runs the stats, sector and region queries concurrently.
// The first failure cancels the others.
func FetchOverview(ctx context.Context, src Source, year int) (*Overview, error) {
	if year <= 0 {
		return nil, Validationf("invalid year %d", year)
	}

	ov := &Overview{Year: year}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ov.Stats, err = src.GetStats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		ov.Sectors, err = src.SectorRollup(gctx, year)
		return err
	})
	g.Go(func() error {
		var err error
		ov.Regions, err = src.RegionRollup(gctx, year)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ov, nil
}

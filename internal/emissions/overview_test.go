package emissions

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/emissions-dashboard/internal/model"
)

// overviewSource implements the three queries FetchOverview uses. Other
// Source methods panic through the nil embedded interface.
type overviewSource struct {
	Source
	statsErr  error
	sectorErr error
	years     chan int
}

func (s *overviewSource) GetStats(context.Context) (*model.Stats, error) {
	if s.statsErr != nil {
		return nil, s.statsErr
	}
	return &model.Stats{TotalCompanies: 3}, nil
}

func (s *overviewSource) SectorRollup(_ context.Context, year int) ([]model.SectorRollup, error) {
	s.years <- year
	if s.sectorErr != nil {
		return nil, s.sectorErr
	}
	return []model.SectorRollup{{Sector: "Energy"}}, nil
}

func (s *overviewSource) RegionRollup(ctx context.Context, year int) ([]model.RegionRollup, error) {
	s.years <- year
	return []model.RegionRollup{{Region: "Europe"}}, ctx.Err()
}

func TestFetchOverview(t *testing.T) {
	src := &overviewSource{years: make(chan int, 2)}

	ov, err := FetchOverview(context.Background(), src, 2021)
	require.NoError(t, err)

	assert.Equal(t, 2021, ov.Year)
	assert.Equal(t, 3, ov.Stats.TotalCompanies)
	require.Len(t, ov.Sectors, 1)
	require.Len(t, ov.Regions, 1)
	assert.Equal(t, 2021, <-src.years)
	assert.Equal(t, 2021, <-src.years)
}

func TestFetchOverview_FirstErrorWins(t *testing.T) {
	boom := errors.New("sector query failed")
	src := &overviewSource{sectorErr: boom, years: make(chan int, 2)}

	ov, err := FetchOverview(context.Background(), src, 2021)
	require.Error(t, err)
	assert.Nil(t, ov)
	assert.ErrorIs(t, err, boom)
}

func TestFetchOverview_InvalidYear(t *testing.T) {
	_, err := FetchOverview(context.Background(), &overviewSource{}, 0)
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

// Package emissions defines the read-only query layer over companies and
// their yearly emissions. Stores implement Source; the API only sees Source.
package emissions

import (
	"context"

	"github.com/sells-group/emissions-dashboard/internal/model"
)

const (
	// DefaultPeerLimit is the number of peers returned when no limit is given.
	DefaultPeerLimit = 5

	// SearchLimit caps the number of companies returned by Search.
	SearchLimit = 50
)

// PeerQuery selects a peer comparison for one company and year.
type PeerQuery struct {
	Name  string
	Year  int
	Limit int
	// Seed drives peer sampling. Equal seeds over equal data yield equal peers.
	Seed int64
}

// PeerComparison is a company's own entry for a year followed by a sample of
// same-sector companies reporting for that year.
type PeerComparison struct {
	Year      int               `json:"year"`
	Sector    model.Sector      `json:"sector"`
	Companies []model.PeerEntry `json:"companies"`
}

// SearchFilter narrows Search. Empty fields are ignored; the rest are ANDed.
type SearchFilter struct {
	Query  string `json:"q,omitempty"`
	Sector string `json:"sector,omitempty"`
	Region string `json:"region,omitempty"`
}

// Source is the query capability every store provides.
type Source interface {
	ListCompanies(ctx context.Context) ([]model.CompanyListing, error)
	GetCompany(ctx context.Context, name string) (*model.CompanyDetail, error)
	GetPeers(ctx context.Context, q PeerQuery) (*PeerComparison, error)
	SectorRollup(ctx context.Context, year int) ([]model.SectorRollup, error)
	RegionRollup(ctx context.Context, year int) ([]model.RegionRollup, error)
	Search(ctx context.Context, f SearchFilter) ([]model.Company, error)
	ListYears(ctx context.Context) ([]int, error)
	GetStats(ctx context.Context) (*model.Stats, error)
}

package store

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/emissions-dashboard/internal/model"
)

// scannable is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// rowIterator is satisfied by pgx.Rows and *sql.Rows.
type rowIterator interface {
	scannable
	Next() bool
	Err() error
}

const companyColumns = `c.id, c.name, c.sector, c.region, c.ownership,
	c.baseline_year, c.net_zero_year, c.interim_target_year, c.interim_reduction_percent,
	c.created_at`

// companyDests returns scan destinations matching companyColumns.
func companyDests(c *model.Company) []any {
	return []any{
		&c.ID, &c.Name, &c.Sector, &c.Region, &c.Ownership,
		&c.BaselineYear, &c.NetZeroYear, &c.InterimTargetYear, &c.InterimReductionPercent,
		&c.CreatedAt,
	}
}

const emissionColumns = `e.id, e.company_id, e.year, e.scope_1, e.scope_2, e.scope_3, e.created_at`

func emissionDests(e *model.EmissionRecord) []any {
	return []any{&e.ID, &e.CompanyID, &e.Year, &e.Scope1, &e.Scope2, &e.Scope3, &e.CreatedAt}
}

const peerColumns = `c.name, c.sector, c.region, c.ownership, e.year, e.scope_1, e.scope_2, e.scope_3`

func peerDests(p *model.PeerEntry) []any {
	return []any{&p.Name, &p.Sector, &p.Region, &p.Ownership, &p.Year, &p.Scope1, &p.Scope2, &p.Scope3}
}

func scanCompanies(rows rowIterator) ([]model.Company, error) {
	companies := make([]model.Company, 0)
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(companyDests(&c)...); err != nil {
			return nil, eris.Wrap(err, "store: scan company")
		}
		companies = append(companies, c)
	}
	return companies, eris.Wrap(rows.Err(), "store: iterate companies")
}

func scanListings(rows rowIterator) ([]model.CompanyListing, error) {
	listings := make([]model.CompanyListing, 0)
	for rows.Next() {
		var l model.CompanyListing
		dests := append(companyDests(&l.Company), &l.EmissionCount, &l.EarliestYear, &l.LatestYear)
		if err := rows.Scan(dests...); err != nil {
			return nil, eris.Wrap(err, "store: scan company listing")
		}
		listings = append(listings, l)
	}
	return listings, eris.Wrap(rows.Err(), "store: iterate company listings")
}

func scanEmissions(rows rowIterator) ([]model.EmissionRecord, error) {
	records := make([]model.EmissionRecord, 0)
	for rows.Next() {
		var e model.EmissionRecord
		if err := rows.Scan(emissionDests(&e)...); err != nil {
			return nil, eris.Wrap(err, "store: scan emission")
		}
		records = append(records, e)
	}
	return records, eris.Wrap(rows.Err(), "store: iterate emissions")
}

func scanPeers(rows rowIterator) ([]model.PeerEntry, error) {
	peers := make([]model.PeerEntry, 0)
	for rows.Next() {
		var p model.PeerEntry
		if err := rows.Scan(peerDests(&p)...); err != nil {
			return nil, eris.Wrap(err, "store: scan peer")
		}
		peers = append(peers, p)
	}
	return peers, eris.Wrap(rows.Err(), "store: iterate peers")
}

func scanGroups(rows rowIterator) ([]groupTotals, error) {
	groups := make([]groupTotals, 0)
	for rows.Next() {
		var g groupTotals
		if err := rows.Scan(&g.key, &g.CompanyCount, &g.TotalScope1, &g.TotalScope2,
			&g.TotalScope3, &g.TotalEmissions, &g.AvgEmissions); err != nil {
			return nil, eris.Wrap(err, "store: scan rollup")
		}
		groups = append(groups, g)
	}
	return groups, eris.Wrap(rows.Err(), "store: iterate rollup")
}

func scanYears(rows rowIterator) ([]int, error) {
	years := make([]int, 0)
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, eris.Wrap(err, "store: scan year")
		}
		years = append(years, y)
	}
	return years, eris.Wrap(rows.Err(), "store: iterate years")
}

func statsDests(s *model.Stats) []any {
	return []any{&s.TotalCompanies, &s.TotalEmissionRecords, &s.TotalSectors,
		&s.TotalRegions, &s.MinYear, &s.MaxYear}
}

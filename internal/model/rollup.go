package model

import (
	"sort"
	"strings"
)

// RollupTotals holds the aggregates shared by sector and region rollups.
// TotalScope2 counts missing scope 2 values as zero.
type RollupTotals struct {
	CompanyCount   int     `json:"company_count" yaml:"company_count"`
	TotalScope1    float64 `json:"total_scope_1" yaml:"total_scope_1"`
	TotalScope2    float64 `json:"total_scope_2" yaml:"total_scope_2"`
	TotalScope3    float64 `json:"total_scope_3" yaml:"total_scope_3"`
	TotalEmissions float64 `json:"total_emissions" yaml:"total_emissions"`
	AvgEmissions   float64 `json:"avg_emissions" yaml:"avg_emissions"`
}

// SectorRollup aggregates one year of emissions for a sector.
type SectorRollup struct {
	Sector       Sector `json:"sector" yaml:"sector"`
	RollupTotals `yaml:",inline"`
}

// RegionRollup aggregates one year of emissions for a region.
type RegionRollup struct {
	Region       Region `json:"region" yaml:"region"`
	RollupTotals `yaml:",inline"`
}

// Stats are the global counters shown on the dashboard header.
type Stats struct {
	TotalCompanies       int  `json:"total_companies" yaml:"total_companies"`
	TotalEmissionRecords int  `json:"total_emission_records" yaml:"total_emission_records"`
	TotalSectors         int  `json:"total_sectors" yaml:"total_sectors"`
	TotalRegions         int  `json:"total_regions" yaml:"total_regions"`
	MinYear              *int `json:"min_year" yaml:"min_year"`
	MaxYear              *int `json:"max_year" yaml:"max_year"`
}

// RollupAccumulator builds RollupTotals one record at a time. It is the
// in-memory equivalent of the GROUP BY used by the SQL stores.
type RollupAccumulator struct {
	totals    RollupTotals
	records   int
	companies map[int64]struct{}
}

// Add folds one record into the group.
func (a *RollupAccumulator) Add(r EmissionRecord) {
	if a.companies == nil {
		a.companies = make(map[int64]struct{})
	}
	a.companies[r.CompanyID] = struct{}{}
	a.records++
	a.totals.TotalScope1 += r.Scope1
	if r.Scope2 != nil {
		a.totals.TotalScope2 += *r.Scope2
	}
	a.totals.TotalScope3 += r.Scope3
	a.totals.TotalEmissions += TotalOf(r.Scope1, r.Scope2, r.Scope3)
}

// Totals returns the accumulated aggregates. AvgEmissions is the mean
// record total within the group.
func (a *RollupAccumulator) Totals() RollupTotals {
	t := a.totals
	t.CompanyCount = len(a.companies)
	if a.records > 0 {
		t.AvgEmissions = t.TotalEmissions / float64(a.records)
	}
	return t
}

// SortSectorRollups orders rollups by total emissions descending, then by
// sector name so equal totals have a stable order.
func SortSectorRollups(rs []SectorRollup) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].TotalEmissions != rs[j].TotalEmissions {
			return rs[i].TotalEmissions > rs[j].TotalEmissions
		}
		return strings.Compare(string(rs[i].Sector), string(rs[j].Sector)) < 0
	})
}

// SortRegionRollups orders rollups by total emissions descending, then by
// region name.
func SortRegionRollups(rs []RegionRollup) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].TotalEmissions != rs[j].TotalEmissions {
			return rs[i].TotalEmissions > rs[j].TotalEmissions
		}
		return strings.Compare(string(rs[i].Region), string(rs[j].Region)) < 0
	})
}

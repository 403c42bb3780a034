// Package model defines the company and emissions records served by the dashboard API.
package model

import "time"

// Sector is the industry grouping used for sector rollups and peer groups.
type Sector string

const (
	SectorEnergy      Sector = "Energy"
	SectorUtilities   Sector = "Utilities"
	SectorMaterials   Sector = "Materials"
	SectorIndustrials Sector = "Industrials"
	SectorTechnology  Sector = "Technology"
	SectorFinancials  Sector = "Financials"
	SectorConsumer    Sector = "Consumer"
	SectorTransport   Sector = "Transportation"
	SectorOther       Sector = "Other" // import default
)

// Region is the geographic grouping used for region rollups.
type Region string

const (
	RegionNorthAmerica Region = "North America"
	RegionEurope       Region = "Europe"
	RegionAsiaPacific  Region = "Asia Pacific"
	RegionLatinAmerica Region = "Latin America"
	RegionMiddleEast   Region = "Middle East & Africa"
	RegionUnknown      Region = "Unknown" // import default
)

// Ownership describes how a company is held.
type Ownership string

const (
	OwnershipPublic  Ownership = "Public" // import default
	OwnershipPrivate Ownership = "Private"
	OwnershipState   Ownership = "State-owned"
)

// Import defaults for blank company fields.
const (
	DefaultBaselineYear = 2020
	DefaultNetZeroYear  = 2050
)

// Years outside [MinYear, MaxYear] are rejected on import and clipped from
// trajectories.
const (
	MinYear = 1900
	MaxYear = 2200
)

// Company is the dimension row of the emissions schema. Names are unique and
// matched case-sensitively.
type Company struct {
	ID                      int64     `json:"id"`
	Name                    string    `json:"name"`
	Sector                  Sector    `json:"sector"`
	Region                  Region    `json:"region"`
	Ownership               Ownership `json:"ownership"`
	BaselineYear            int       `json:"baseline_year"`
	NetZeroYear             int       `json:"net_zero_year"`
	InterimTargetYear       *int      `json:"interim_target_year"`
	InterimReductionPercent *float64  `json:"interim_reduction_percent"`
	CreatedAt               time.Time `json:"created_at"`
}

// CompanyListing is a company plus the span of its emission records.
type CompanyListing struct {
	Company
	EmissionCount int  `json:"emission_count"`
	EarliestYear  *int `json:"earliest_year"`
	LatestYear    *int `json:"latest_year"`
}

package model

import "time"

// EmissionRecord is one company's reported emissions for one year, in tCO2e.
// Scope2 is nil when the company did not report it; Total always treats a
// missing Scope2 as zero.
type EmissionRecord struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	Year      int       `json:"year"`
	Scope1    float64   `json:"scope_1"`
	Scope2    *float64  `json:"scope_2"`
	Scope3    float64   `json:"scope_3"`
	Total     float64   `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

// TotalOf returns scope1 + scope2 + scope3 with a nil scope2 counted as 0.
func TotalOf(scope1 float64, scope2 *float64, scope3 float64) float64 {
	total := scope1 + scope3
	if scope2 != nil {
		total += *scope2
	}
	return total
}

// WithTotal returns the record with Total derived from its scopes.
func (e EmissionRecord) WithTotal() EmissionRecord {
	e.Total = TotalOf(e.Scope1, e.Scope2, e.Scope3)
	return e
}

// PeerEntry is one row of a peer comparison.
type PeerEntry struct {
	Name             string    `json:"name"`
	Sector           Sector    `json:"sector"`
	Region           Region    `json:"region"`
	Ownership        Ownership `json:"ownership"`
	Year             int       `json:"year"`
	Scope1           float64   `json:"scope_1"`
	Scope2           *float64  `json:"scope_2"`
	Scope3           float64   `json:"scope_3"`
	Total            float64   `json:"total"`
	IsCurrentCompany bool      `json:"is_current_company"`
}

// Float returns a pointer to v. Handy for optional scope values.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

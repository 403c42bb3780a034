package model

// CompanyDetail is a company with its full emissions history.
type CompanyDetail struct {
	Company   Company          `json:"company"`
	Emissions []EmissionRecord `json:"emissions"`
	Summary   Summary          `json:"summary"`
}

// Summary condenses a company's emissions history.
type Summary struct {
	TotalRecords              int      `json:"total_records"`
	BaselineEmissions         *float64 `json:"baseline_emissions"`
	LatestEmissions           *float64 `json:"latest_emissions"`
	ChangeFromBaselinePercent *float64 `json:"change_from_baseline_percent"`
}

// Summarize builds the summary for records ordered by ascending year.
// BaselineEmissions is the total of the record whose year equals the
// company's baseline year; LatestEmissions is the total of the last record.
func Summarize(c Company, records []EmissionRecord) Summary {
	s := Summary{TotalRecords: len(records)}
	for _, r := range records {
		if r.Year == c.BaselineYear {
			s.BaselineEmissions = Float(TotalOf(r.Scope1, r.Scope2, r.Scope3))
			break
		}
	}
	if n := len(records); n > 0 {
		last := records[n-1]
		s.LatestEmissions = Float(TotalOf(last.Scope1, last.Scope2, last.Scope3))
	}
	if s.BaselineEmissions != nil && s.LatestEmissions != nil && *s.BaselineEmissions != 0 {
		s.ChangeFromBaselinePercent = Float((*s.LatestEmissions - *s.BaselineEmissions) / *s.BaselineEmissions * 100)
	}
	return s
}

// NewCompanyDetail derives totals and the summary for a company's records.
// Records must already be ordered by year.
func NewCompanyDetail(c Company, records []EmissionRecord) *CompanyDetail {
	out := make([]EmissionRecord, len(records))
	for i, r := range records {
		out[i] = r.WithTotal()
	}
	return &CompanyDetail{
		Company:   c,
		Emissions: out,
		Summary:   Summarize(c, out),
	}
}

package model

// TrajectoryPoint pairs a company's reduction target for a year with the
// reported total, when one exists.
type TrajectoryPoint struct {
	Year   int      `json:"year"`
	Target *float64 `json:"target"`
	Actual *float64 `json:"actual"`
}

// BuildTrajectory returns one point per year from the earlier of the
// baseline year and the first record to the later of the net-zero year and
// the last record. The target falls linearly from the baseline total to
// zero at the net-zero year, bending through the interim target when the
// company has one. Targets are nil when there is no baseline record and
// before the baseline year. The span is clipped to [MinYear, MaxYear].
func BuildTrajectory(c Company, records []EmissionRecord) []TrajectoryPoint {
	actuals := make(map[int]float64, len(records))
	first, last := c.BaselineYear, c.NetZeroYear
	if last < first {
		last = first
	}
	for _, r := range records {
		actuals[r.Year] = TotalOf(r.Scope1, r.Scope2, r.Scope3)
		if r.Year < first {
			first = r.Year
		}
		if r.Year > last {
			last = r.Year
		}
	}

	first, last = max(first, MinYear), min(last, MaxYear)
	if first > last {
		return []TrajectoryPoint{}
	}

	baseline, hasBaseline := actuals[c.BaselineYear]
	points := make([]TrajectoryPoint, 0, last-first+1)
	for year := first; year <= last; year++ {
		p := TrajectoryPoint{Year: year}
		if v, ok := actuals[year]; ok {
			p.Actual = Float(v)
		}
		if hasBaseline && year >= c.BaselineYear {
			p.Target = Float(targetFor(c, baseline, year))
		}
		points = append(points, p)
	}
	return points
}

func targetFor(c Company, baseline float64, year int) float64 {
	if year >= c.NetZeroYear {
		return 0
	}

	startYear, startValue := c.BaselineYear, baseline
	if c.InterimTargetYear != nil && c.InterimReductionPercent != nil &&
		*c.InterimTargetYear > c.BaselineYear && *c.InterimTargetYear < c.NetZeroYear {
		interimValue := baseline * (1 - *c.InterimReductionPercent/100)
		if year <= *c.InterimTargetYear {
			return interpolate(c.BaselineYear, baseline, *c.InterimTargetYear, interimValue, year)
		}
		startYear, startValue = *c.InterimTargetYear, interimValue
	}
	return interpolate(startYear, startValue, c.NetZeroYear, 0, year)
}

func interpolate(x0 int, y0 float64, x1 int, y1 float64, x int) float64 {
	if x1 == x0 {
		return y1
	}
	return y0 + (y1-y0)*float64(x-x0)/float64(x1-x0)
}

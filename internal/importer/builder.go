package importer

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/emissions-dashboard/internal/model"
)

type emissionKey struct {
	company string
	year    int
}

// Stats counts what a Builder saw.
type Stats struct {
	Rows      int `json:"rows"`
	Dropped   int `json:"dropped"`
	Companies int `json:"companies"`
	Emissions int `json:"emissions"`
}

// Builder accumulates import rows into a Dataset. Rows without a company
// are dropped. A company's attributes come from the first row naming it;
// a repeated (company, year) pair replaces the earlier emission values.
type Builder struct {
	header    Header
	companies []model.Company
	seen      map[string]bool
	emissions []model.EmissionInput
	index     map[emissionKey]int
	stats     Stats
}

// NewBuilder returns a Builder reading rows laid out as header.
func NewBuilder(header Header) *Builder {
	return &Builder{
		header: header,
		seen:   make(map[string]bool),
		index:  make(map[emissionKey]int),
	}
}

// Add folds one data row into the dataset. line is the 1-based source line
// used in error messages.
func (b *Builder) Add(line int, row []string) error {
	b.stats.Rows++

	name := b.header.Get(row, FieldCompany)
	if name == "" {
		b.stats.Dropped++
		return nil
	}

	if !b.seen[name] {
		c, err := b.company(name, row)
		if err != nil {
			return eris.Wrapf(err, "importer: line %d", line)
		}
		b.seen[name] = true
		b.companies = append(b.companies, c)
	}

	yearStr := b.header.Get(row, FieldYear)
	if yearStr == "" {
		return nil
	}
	year, err := parseYear(yearStr)
	if err != nil {
		return eris.Wrapf(err, "importer: line %d", line)
	}

	e := model.EmissionInput{Company: name, Year: year}
	if e.Scope1, err = b.number(row, FieldScope1, 0); err != nil {
		return eris.Wrapf(err, "importer: line %d", line)
	}
	if e.Scope3, err = b.number(row, FieldScope3, 0); err != nil {
		return eris.Wrapf(err, "importer: line %d", line)
	}
	if e.Scope2, err = b.optionalNumber(row, FieldScope2); err != nil {
		return eris.Wrapf(err, "importer: line %d", line)
	}

	key := emissionKey{company: name, year: year}
	if i, ok := b.index[key]; ok {
		b.emissions[i] = e
		return nil
	}
	b.index[key] = len(b.emissions)
	b.emissions = append(b.emissions, e)
	return nil
}

func (b *Builder) company(name string, row []string) (model.Company, error) {
	c := model.Company{
		Name:         name,
		Sector:       model.Sector(b.text(row, FieldSector, string(model.SectorOther))),
		Region:       model.Region(b.text(row, FieldRegion, string(model.RegionUnknown))),
		Ownership:    model.Ownership(b.text(row, FieldOwnership, string(model.OwnershipPublic))),
		BaselineYear: model.DefaultBaselineYear,
		NetZeroYear:  model.DefaultNetZeroYear,
	}

	var err error
	if c.BaselineYear, err = b.year(row, FieldBaselineYear, model.DefaultBaselineYear); err != nil {
		return c, err
	}
	if c.NetZeroYear, err = b.year(row, FieldNetZeroYear, model.DefaultNetZeroYear); err != nil {
		return c, err
	}
	if s := b.header.Get(row, FieldInterimTargetYear); s != "" {
		y, err := parseYear(s)
		if err != nil {
			return c, err
		}
		c.InterimTargetYear = model.Int(y)
	}
	if c.InterimReductionPercent, err = b.optionalNumber(row, FieldInterimReductionPercent); err != nil {
		return c, err
	}
	return c, nil
}

func (b *Builder) text(row []string, f Field, def string) string {
	if v := b.header.Get(row, f); v != "" {
		return v
	}
	return def
}

func (b *Builder) year(row []string, f Field, def int) (int, error) {
	s := b.header.Get(row, f)
	if s == "" {
		return def, nil
	}
	return parseYear(s)
}

func (b *Builder) number(row []string, f Field, def float64) (float64, error) {
	s := b.header.Get(row, f)
	if s == "" {
		return def, nil
	}
	return parseNumber(s)
}

func (b *Builder) optionalNumber(row []string, f Field) (*float64, error) {
	s := b.header.Get(row, f)
	if s == "" {
		return nil, nil
	}
	v, err := parseNumber(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Dataset returns the accumulated dataset.
func (b *Builder) Dataset() *model.Dataset {
	return &model.Dataset{
		Companies: append([]model.Company(nil), b.companies...),
		Emissions: append([]model.EmissionInput(nil), b.emissions...),
	}
}

// Stats returns row counts so far.
func (b *Builder) Stats() Stats {
	s := b.stats
	s.Companies = len(b.companies)
	s.Emissions = len(b.emissions)
	return s
}

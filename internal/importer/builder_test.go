package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/emissions-dashboard/internal/model"
)

func newTestBuilder(t *testing.T, header ...string) *Builder {
	t.Helper()
	h, err := MapHeader(header)
	require.NoError(t, err)
	return NewBuilder(h)
}

func TestBuilder_Defaults(t *testing.T) {
	b := newTestBuilder(t, "Company", "Year", "Scope 1", "Scope 2", "Scope 3")
	require.NoError(t, b.Add(2, []string{"Acme", "2021", "10", "", ""}))

	ds := b.Dataset()
	require.Len(t, ds.Companies, 1)
	c := ds.Companies[0]
	assert.Equal(t, "Acme", c.Name)
	assert.Equal(t, model.SectorOther, c.Sector)
	assert.Equal(t, model.RegionUnknown, c.Region)
	assert.Equal(t, model.OwnershipPublic, c.Ownership)
	assert.Equal(t, model.DefaultBaselineYear, c.BaselineYear)
	assert.Equal(t, model.DefaultNetZeroYear, c.NetZeroYear)
	assert.Nil(t, c.InterimTargetYear)
	assert.Nil(t, c.InterimReductionPercent)

	require.Len(t, ds.Emissions, 1)
	e := ds.Emissions[0]
	assert.Equal(t, 2021, e.Year)
	assert.InDelta(t, 10.0, e.Scope1, 1e-9)
	assert.Nil(t, e.Scope2)
	assert.InDelta(t, 0.0, e.Scope3, 1e-9)
}

func TestBuilder_AllAttributes(t *testing.T) {
	b := newTestBuilder(t, "Company", "Sector", "Region", "Ownership", "Baseline Year",
		"Net Zero Year", "Interim Target Year", "Interim Reduction Percent", "Year", "Scope 1", "Scope 2", "Scope 3")
	require.NoError(t, b.Add(2, []string{"Acme", "Energy", "Europe", "Private", "2019", "2045", "2030", "42%", "2019", "1", "2", "3"}))

	c := b.Dataset().Companies[0]
	assert.Equal(t, model.Sector("Energy"), c.Sector)
	assert.Equal(t, model.Region("Europe"), c.Region)
	assert.Equal(t, model.Ownership("Private"), c.Ownership)
	assert.Equal(t, 2019, c.BaselineYear)
	assert.Equal(t, 2045, c.NetZeroYear)
	require.NotNil(t, c.InterimTargetYear)
	assert.Equal(t, 2030, *c.InterimTargetYear)
	require.NotNil(t, c.InterimReductionPercent)
	assert.InDelta(t, 42.0, *c.InterimReductionPercent, 1e-9)

	e := b.Dataset().Emissions[0]
	require.NotNil(t, e.Scope2)
	assert.InDelta(t, 2.0, *e.Scope2, 1e-9)
}

func TestBuilder_DropsRowsWithoutCompany(t *testing.T) {
	b := newTestBuilder(t, "Company", "Year", "Scope 1")
	require.NoError(t, b.Add(2, []string{"", "2021", "10"}))
	require.NoError(t, b.Add(3, []string{"   ", "2021", "10"}))
	require.NoError(t, b.Add(4, []string{"Acme", "2021", "10"}))

	stats := b.Stats()
	assert.Equal(t, 3, stats.Rows)
	assert.Equal(t, 2, stats.Dropped)
	assert.Equal(t, 1, stats.Companies)
	assert.Equal(t, 1, stats.Emissions)
}

func TestBuilder_BlankYearAddsCompanyOnly(t *testing.T) {
	b := newTestBuilder(t, "Company", "Year", "Scope 1")
	require.NoError(t, b.Add(2, []string{"Acme", "", "10"}))

	ds := b.Dataset()
	assert.Len(t, ds.Companies, 1)
	assert.Empty(t, ds.Emissions)
}

func TestBuilder_FirstCompanyAttributesWin(t *testing.T) {
	b := newTestBuilder(t, "Company", "Sector", "Year")
	require.NoError(t, b.Add(2, []string{"Acme", "Energy", "2020"}))
	require.NoError(t, b.Add(3, []string{"Acme", "Utilities", "2021"}))

	ds := b.Dataset()
	require.Len(t, ds.Companies, 1)
	assert.Equal(t, model.Sector("Energy"), ds.Companies[0].Sector)
	assert.Len(t, ds.Emissions, 2)
}

func TestBuilder_LastEmissionWins(t *testing.T) {
	b := newTestBuilder(t, "Company", "Year", "Scope 1")
	require.NoError(t, b.Add(2, []string{"Acme", "2020", "10"}))
	require.NoError(t, b.Add(3, []string{"Beta", "2020", "5"}))
	require.NoError(t, b.Add(4, []string{"Acme", "2020", "99"}))

	ds := b.Dataset()
	require.Len(t, ds.Emissions, 2)
	assert.Equal(t, "Acme", ds.Emissions[0].Company)
	assert.InDelta(t, 99.0, ds.Emissions[0].Scope1, 1e-9)
	assert.Equal(t, "Beta", ds.Emissions[1].Company)
}

func TestBuilder_ParseErrorNamesLine(t *testing.T) {
	b := newTestBuilder(t, "Company", "Year", "Scope 1")
	err := b.Add(7, []string{"Acme", "2020", "lots"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 7")
	assert.Contains(t, err.Error(), "lots")

	err = b.Add(8, []string{"Acme", "next year", "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 8")
}

func TestBuilder_BadCompanyAttribute(t *testing.T) {
	b := newTestBuilder(t, "Company", "Baseline Year")
	err := b.Add(2, []string{"Acme", "soon"})
	require.Error(t, err)
	assert.Empty(t, b.Dataset().Companies)
}

func TestBuilder_DatasetIsCopy(t *testing.T) {
	b := newTestBuilder(t, "Company", "Year")
	require.NoError(t, b.Add(2, []string{"Acme", "2020"}))

	ds := b.Dataset()
	ds.Companies[0].Name = "changed"
	assert.Equal(t, "Acme", b.Dataset().Companies[0].Name)
}

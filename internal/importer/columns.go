// Package importer turns a delimited or XLSX export of company emissions into
// a model.Dataset, writes it out as an SQL artifact and loads it into a store.
package importer

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"

	"github.com/sells-group/emissions-dashboard/internal/model"
)

// Field is a logical import column.
type Field string

const (
	FieldCompany                 Field = "company"
	FieldYear                    Field = "year"
	FieldSector                  Field = "sector"
	FieldRegion                  Field = "region"
	FieldOwnership               Field = "ownership"
	FieldBaselineYear            Field = "baseline_year"
	FieldNetZeroYear             Field = "net_zero_year"
	FieldInterimTargetYear       Field = "interim_target_year"
	FieldInterimReductionPercent Field = "interim_reduction_percent"
	FieldScope1                  Field = "scope_1"
	FieldScope2                  Field = "scope_2"
	FieldScope3                  Field = "scope_3"
)

// aliases lists the normalized header spellings accepted for each field.
var aliases = map[Field][]string{
	FieldCompany:                 {"company", "companyname", "name"},
	FieldYear:                    {"year", "reportingyear"},
	FieldSector:                  {"sector", "industry"},
	FieldRegion:                  {"region"},
	FieldOwnership:               {"ownership", "ownershiptype"},
	FieldBaselineYear:            {"baselineyear", "baseline"},
	FieldNetZeroYear:             {"netzeroyear", "netzerotarget", "netzero"},
	FieldInterimTargetYear:       {"interimtargetyear", "interimyear"},
	FieldInterimReductionPercent: {"interimreductionpercent", "interimreduction", "interimreductionpct"},
	FieldScope1:                  {"scope1", "scope1emissions"},
	FieldScope2:                  {"scope2", "scope2emissions"},
	FieldScope3:                  {"scope3", "scope3emissions"},
}

// normalizeCol lowercases a header and keeps only letters and digits outside
// parentheses, so "Scope 1 (tCO2e)", "scope_1" and "Scope1" all match.
// "Net-Zero Year" -> "netzeroyear"
func normalizeCol(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range strings.ToLower(s) {
		switch {
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case depth > 0:
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Header maps fields to their column index in a row.
type Header map[Field]int

// MapHeader resolves a header row. The first column matching a field wins.
// A missing Company column is an error since every row would be dropped.
func MapHeader(header []string) (Header, error) {
	byName := make(map[string]int, len(header))
	for i, col := range header {
		n := normalizeCol(col)
		if _, dup := byName[n]; !dup && n != "" {
			byName[n] = i
		}
	}

	h := make(Header, len(aliases))
	for field, names := range aliases {
		for _, n := range names {
			if idx, ok := byName[n]; ok {
				h[field] = idx
				break
			}
		}
	}
	if _, ok := h[FieldCompany]; !ok {
		return nil, eris.Errorf("importer: header has no %s column: %v", FieldCompany, header)
	}
	return h, nil
}

// Get returns the trimmed value of field in row, or "" when the column is
// absent or the row is short.
func (h Header) Get(row []string, field Field) string {
	idx, ok := h[field]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseNumber parses a spreadsheet number, tolerating thousands separators
// and a trailing percent sign. NaN and infinities are rejected.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSuffix(strings.ReplaceAll(s, ",", ""), "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, eris.Wrapf(err, "parse number %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, eris.Errorf("parse number %q: not a finite value", s)
	}
	return v, nil
}

// parseYear parses a year, accepting "2020.0" as written by some XLSX
// exports. The year must fall within [model.MinYear, model.MaxYear].
func parseYear(s string) (int, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, eris.Errorf("parse year %q", s)
	}
	if f < model.MinYear || f > model.MaxYear {
		return 0, eris.Errorf("parse year %q: outside %d-%d", s, model.MinYear, model.MaxYear)
	}
	return int(f), nil
}

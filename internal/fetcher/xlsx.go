package fetcher

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXOptions configures ReadXLSX.
type XLSXOptions struct {
	Sheet     string // sheet name, matched case-insensitively; default first sheet
	SkipBlank bool   // drop rows whose cells are all empty
}

// ReadXLSX loads one sheet of the workbook at path. Record.Line is the
// spreadsheet row number. Trailing empty cells are dropped.
func ReadXLSX(path string, opts XLSXOptions) ([]Record, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheet, err := findSheet(f, opts.Sheet)
	if err != nil {
		return nil, err
	}

	var recs []Record
	for i, row := range sheet.Rows {
		if row == nil {
			continue
		}
		rec := Record{Line: i + 1, Fields: cellStrings(row)}
		if opts.SkipBlank && rec.Blank() {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func findSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}
	if name == "" {
		return f.Sheets[0], nil
	}
	if sheet, ok := f.Sheet[name]; ok {
		return sheet, nil
	}
	want := strings.TrimSpace(name)
	for _, sheet := range f.Sheets {
		if strings.EqualFold(strings.TrimSpace(sheet.Name), want) {
			return sheet, nil
		}
	}

	names := make([]string, 0, len(f.Sheets))
	for _, sheet := range f.Sheets {
		names = append(names, sheet.Name)
	}
	sort.Strings(names)
	return nil, eris.Errorf("xlsx: sheet %q not found (have %s)", name, strings.Join(names, ", "))
}

func cellStrings(row *xlsx.Row) []string {
	n := len(row.Cells)
	for n > 0 && strings.TrimSpace(row.Cells[n-1].String()) == "" {
		n--
	}
	cells := make([]string, n)
	for j := 0; j < n; j++ {
		cells[j] = row.Cells[j].String()
	}
	return cells
}

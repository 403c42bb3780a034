package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// utf8BOM is stripped from the first field of the first record; spreadsheet
// exports often prepend it.
const utf8BOM = "\ufeff"

// Record is one row of a tabular source. Line is the 1-based line (CSV) or
// row number (XLSX) the record starts on, so errors can point at the file.
type Record struct {
	Line   int
	Fields []string
}

// Blank reports whether every field is empty after trimming.
func (r Record) Blank() bool {
	for _, f := range r.Fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// CSVOptions configures StreamCSV.
type CSVOptions struct {
	Delimiter  rune // default ','
	LazyQuotes bool
	TrimSpace  bool
	SkipBlank  bool // drop records whose fields are all empty, e.g. ",,,"
}

// StreamCSV parses r in a goroutine and sends records on the returned
// channel. The first record, usually the header, is sent like any other.
// At most one error is sent; both channels close when parsing stops.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan Record, <-chan error) {
	recCh := make(chan Record, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(recCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1

		first := true
		for {
			if err := ctx.Err(); err != nil {
				errCh <- eris.Wrap(err, "csv: context cancelled")
				return
			}

			fields, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read record")
				return
			}
			line, _ := reader.FieldPos(0)

			if first && len(fields) > 0 {
				fields[0] = strings.TrimPrefix(fields[0], utf8BOM)
			}
			first = false
			if opts.TrimSpace {
				for i := range fields {
					fields[i] = strings.TrimSpace(fields[i])
				}
			}

			rec := Record{Line: line, Fields: fields}
			if opts.SkipBlank && rec.Blank() {
				continue
			}

			select {
			case recCh <- rec:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return recCh, errCh
}

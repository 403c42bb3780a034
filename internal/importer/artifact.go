package importer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/emissions-dashboard/internal/model"
)

// RenderSQL writes ds as a standalone SQL script that upserts companies by
// name and emissions by (company, year) in one transaction. The script runs
// unchanged on PostgreSQL and SQLite.
func RenderSQL(w io.Writer, ds *model.Dataset) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...any) {
		fmt.Fprintf(bw, format, args...) //nolint:errcheck
	}

	p("-- emissions import: %d companies, %d emission records\n", len(ds.Companies), len(ds.Emissions))
	p("BEGIN;\n\n")

	for _, c := range ds.Companies {
		p("INSERT INTO companies (name, sector, region, ownership, baseline_year, net_zero_year, interim_target_year, interim_reduction_percent)\n")
		p("VALUES (%s, %s, %s, %s, %d, %d, %s, %s)\n",
			quote(c.Name), quote(string(c.Sector)), quote(string(c.Region)), quote(string(c.Ownership)),
			c.BaselineYear, c.NetZeroYear, sqlInt(c.InterimTargetYear), sqlFloat(c.InterimReductionPercent))
		p("ON CONFLICT (name) DO UPDATE SET sector = excluded.sector, region = excluded.region, ownership = excluded.ownership, ")
		p("baseline_year = excluded.baseline_year, net_zero_year = excluded.net_zero_year, ")
		p("interim_target_year = excluded.interim_target_year, interim_reduction_percent = excluded.interim_reduction_percent;\n")
	}
	if len(ds.Companies) > 0 {
		p("\n")
	}

	for _, e := range ds.Emissions {
		p("INSERT INTO emissions (company_id, year, scope_1, scope_2, scope_3)\n")
		p("SELECT id, %d, %s, %s, %s FROM companies WHERE name = %s\n",
			e.Year, formatFloat(e.Scope1), sqlFloat(e.Scope2), formatFloat(e.Scope3), quote(e.Company))
		p("ON CONFLICT (company_id, year) DO UPDATE SET scope_1 = excluded.scope_1, scope_2 = excluded.scope_2, scope_3 = excluded.scope_3;\n")
	}

	p("\nCOMMIT;\n")
	return eris.Wrap(bw.Flush(), "importer: write sql")
}

// WriteArtifact renders ds to a new import-<uuid>.sql file in dir and
// returns its path.
func WriteArtifact(dir string, ds *model.Dataset) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrap(err, "importer: create artifact dir")
	}

	path := filepath.Join(dir, fmt.Sprintf("import-%s.sql", uuid.New().String()))
	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrap(err, "importer: create artifact")
	}
	if err := RenderSQL(f, ds); err != nil {
		f.Close() //nolint:errcheck
		return path, err
	}
	return path, eris.Wrap(f.Close(), "importer: close artifact")
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func sqlFloat(v *float64) string {
	if v == nil {
		return "NULL"
	}
	return formatFloat(*v)
}

func sqlInt(v *int) string {
	if v == nil {
		return "NULL"
	}
	return strconv.Itoa(*v)
}

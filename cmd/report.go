package main

import (
	"encoding/json"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/emissions-dashboard/internal/emissions"
)

var (
	reportYear   int
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print stats and sector/region rollups for a year",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("report"); err != nil {
			return err
		}

		st, err := initStore(ctx, false)
		if err != nil {
			return eris.Wrap(err, "report: init store")
		}
		defer st.Close() //nolint:errcheck

		year := reportYear
		if year == 0 {
			year = time.Now().Year()
		}

		ov, err := emissions.FetchOverview(ctx, st, year)
		if err != nil {
			return eris.Wrap(err, "report")
		}
		return writeReport(cmd.OutOrStdout(), ov, reportFormat)
	},
}

func writeReport(w io.Writer, ov *emissions.Overview, format string) error {
	switch format {
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(ov); err != nil {
			return eris.Wrap(err, "report: encode yaml")
		}
		return eris.Wrap(enc.Close(), "report: encode yaml")
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(ov), "report: encode json")
	default:
		return eris.Errorf("report: unsupported format %q", format)
	}
}

func init() {
	reportCmd.Flags().IntVar(&reportYear, "year", 0, "reporting year (default current year)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "yaml", "output format: yaml or json")
	rootCmd.AddCommand(reportCmd)
}

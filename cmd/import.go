package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/emissions-dashboard/internal/importer"
)

var importFlags struct {
	source       string
	format       string
	encoding     string
	delimiter    string
	sheet        string
	artifactDir  string
	keepArtifact bool
	migrate      bool
	dryRun       bool
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import company emissions from a CSV or XLSX file",
	Long: "Fetches a CSV or XLSX export (local path, http(s):// or ftp:// URL), maps its columns, " +
		"writes an SQL artifact and upserts companies and emissions into the configured store.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("import"); err != nil {
			return err
		}

		opts, err := importOptions()
		if err != nil {
			return err
		}

		if cfg.Import.TimeoutSecs > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Import.TimeoutSecs)*time.Second)
			defer cancel()
		}

		if importFlags.migrate && !importFlags.dryRun {
			if err := runMigrate(ctx); err != nil {
				return err
			}
		}

		var loader importer.Loader
		if !importFlags.dryRun {
			st, err := initStore(ctx, false)
			if err != nil {
				return eris.Wrap(err, "import: init store")
			}
			defer st.Close() //nolint:errcheck
			loader = st
		}

		res, err := importer.Run(ctx, loader, opts)
		if err != nil {
			return eris.Wrap(err, "import")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

// importOptions merges flags over the import config.
func importOptions() (importer.Options, error) {
	opts := importer.Options{
		Source:       importFlags.source,
		Format:       importFlags.format,
		Encoding:     cfg.Import.Encoding,
		Sheet:        importFlags.sheet,
		ArtifactDir:  cfg.Import.ArtifactDir,
		KeepArtifact: importFlags.keepArtifact,
		DryRun:       importFlags.dryRun,
		Fetch:        fetchOptions(),
	}
	if importFlags.encoding != "" {
		opts.Encoding = importFlags.encoding
	}
	if importFlags.artifactDir != "" {
		opts.ArtifactDir = importFlags.artifactDir
	}
	switch r := []rune(importFlags.delimiter); {
	case len(r) == 0:
	case len(r) == 1:
		opts.Delimiter = r[0]
	case importFlags.delimiter == `\t`:
		opts.Delimiter = '\t'
	default:
		return opts, eris.Errorf("import: delimiter must be one character, got %q", importFlags.delimiter)
	}
	return opts, nil
}

func init() {
	f := importCmd.Flags()
	f.StringVar(&importFlags.source, "source", "", "path or URL of the file to import (required)")
	f.StringVar(&importFlags.format, "format", "", "csv or xlsx (default from file extension)")
	f.StringVar(&importFlags.encoding, "encoding", "", "CSV character set, e.g. windows-1252 (default from config)")
	f.StringVar(&importFlags.delimiter, "delimiter", "", `CSV delimiter (default ","; use \t for tab)`)
	f.StringVar(&importFlags.sheet, "sheet", "", "XLSX sheet name (default first sheet)")
	f.StringVar(&importFlags.artifactDir, "artifact-dir", "", "directory for the SQL artifact (default from config)")
	f.BoolVar(&importFlags.keepArtifact, "keep-artifact", false, "keep the SQL artifact after a successful load")
	f.BoolVar(&importFlags.migrate, "migrate", false, "apply the schema before loading")
	f.BoolVar(&importFlags.dryRun, "dry-run", false, "parse and write the artifact without loading")
	_ = importCmd.MarkFlagRequired("source")
	rootCmd.AddCommand(importCmd)
}

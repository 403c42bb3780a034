package importer

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/emissions-dashboard/internal/fetcher"
	"github.com/sells-group/emissions-dashboard/internal/model"
)

// Source file formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Loader persists a dataset. store.Store satisfies it.
type Loader interface {
	Load(ctx context.Context, ds *model.Dataset) (*model.LoadResult, error)
}

// Options configures one import run.
type Options struct {
	Source       string // local path, file://, http(s):// or ftp:// URL
	Format       string // csv or xlsx; inferred from the source extension when empty
	Encoding     string // CSV character set label, default utf-8
	Delimiter    rune   // CSV delimiter, default ','
	Sheet        string // XLSX sheet name, default first sheet
	ArtifactDir  string
	KeepArtifact bool
	DryRun       bool // build and write the artifact without loading
	Fetch        fetcher.Options
}

// Result summarizes an import run.
type Result struct {
	Source   string            `json:"source"`
	Format   string            `json:"format"`
	Stats    Stats             `json:"stats"`
	Artifact string            `json:"artifact,omitempty"`
	Loaded   *model.LoadResult `json:"loaded,omitempty"`
	Elapsed  time.Duration     `json:"elapsed"`
}

// Run fetches opts.Source, parses it into a dataset, writes the SQL
// artifact and loads the dataset through l. The artifact is removed after
// a successful load unless KeepArtifact is set; on failure it is kept and
// its path logged.
func Run(ctx context.Context, l Loader, opts Options) (*Result, error) {
	start := time.Now()
	log := zap.L().With(zap.String("source", opts.Source))

	format, err := resolveFormat(opts)
	if err != nil {
		return nil, err
	}

	ds, stats, err := Parse(ctx, opts)
	if err != nil {
		return nil, err
	}
	log.Info("importer: parsed source",
		zap.String("format", format),
		zap.Int("rows", stats.Rows),
		zap.Int("dropped", stats.Dropped),
		zap.Int("companies", stats.Companies),
		zap.Int("emissions", stats.Emissions),
	)

	res := &Result{Source: opts.Source, Format: format, Stats: stats}

	artifact, err := WriteArtifact(opts.ArtifactDir, ds)
	if err != nil {
		return nil, err
	}
	res.Artifact = artifact

	if opts.DryRun {
		res.Elapsed = time.Since(start)
		log.Info("importer: dry run, artifact written", zap.String("artifact", artifact))
		return res, nil
	}

	loaded, err := l.Load(ctx, ds)
	if err != nil {
		log.Error("importer: load failed, artifact kept", zap.String("artifact", artifact), zap.Error(err))
		return res, eris.Wrap(err, "importer: load")
	}
	res.Loaded = loaded

	if !opts.KeepArtifact {
		if err := os.Remove(artifact); err != nil {
			log.Warn("importer: remove artifact", zap.String("artifact", artifact), zap.Error(err))
		} else {
			res.Artifact = ""
		}
	}

	res.Elapsed = time.Since(start)
	log.Info("importer: load complete",
		zap.Int("companies", loaded.Companies),
		zap.Int("emissions", loaded.Emissions),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// Parse fetches and parses opts.Source into a dataset without loading it.
func Parse(ctx context.Context, opts Options) (*model.Dataset, Stats, error) {
	format, err := resolveFormat(opts)
	if err != nil {
		return nil, Stats{}, err
	}

	f, err := fetcher.ForSource(opts.Source, opts.Fetch)
	if err != nil {
		return nil, Stats{}, err
	}

	tmpDir, err := os.MkdirTemp("", "emissions-import-*")
	if err != nil {
		return nil, Stats{}, eris.Wrap(err, "importer: create temp dir")
	}
	defer os.RemoveAll(tmpDir) //nolint:errcheck

	local := filepath.Join(tmpDir, "source."+format)
	if _, err := f.DownloadToFile(ctx, opts.Source, local); err != nil {
		return nil, Stats{}, eris.Wrapf(err, "importer: fetch %s", opts.Source)
	}

	var b *Builder
	switch format {
	case FormatXLSX:
		b, err = parseXLSX(local, opts.Sheet)
	default:
		b, err = parseCSVFile(ctx, local, opts.Encoding, opts.Delimiter)
	}
	if err != nil {
		return nil, Stats{}, err
	}
	return b.Dataset(), b.Stats(), nil
}

func resolveFormat(opts Options) (string, error) {
	format := strings.ToLower(opts.Format)
	if format == "" {
		source := opts.Source
		if i := strings.IndexAny(source, "?#"); i >= 0 {
			source = source[:i]
		}
		switch strings.ToLower(filepath.Ext(source)) {
		case ".xlsx":
			format = FormatXLSX
		default:
			format = FormatCSV
		}
	}
	switch format {
	case FormatCSV, FormatXLSX:
		return format, nil
	default:
		return "", eris.Errorf("importer: unsupported format %q", opts.Format)
	}
}

func parseCSVFile(ctx context.Context, path, encoding string, delim rune) (*Builder, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "importer: open source")
	}
	defer file.Close() //nolint:errcheck

	r, err := decodeCharset(file, encoding)
	if err != nil {
		return nil, err
	}
	return ParseCSV(ctx, r, delim)
}

// decodeCharset wraps r so it yields UTF-8 from the named WHATWG encoding.
func decodeCharset(r io.Reader, encoding string) (io.Reader, error) {
	if encoding == "" {
		encoding = "utf-8"
	}
	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: unsupported encoding %q", encoding)
	}
	return enc.NewDecoder().Reader(r), nil
}

// ParseCSV reads a header record followed by data records from r.
// Records whose fields are all empty are skipped.
func ParseCSV(ctx context.Context, r io.Reader, delim rune) (*Builder, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		Delimiter:  delim,
		LazyQuotes: true,
		SkipBlank:  true,
	})

	var b *Builder
	for rec := range recCh {
		if b == nil {
			h, err := MapHeader(rec.Fields)
			if err != nil {
				return nil, err
			}
			b = NewBuilder(h)
			continue
		}
		if err := b.Add(rec.Line, rec.Fields); err != nil {
			return nil, err
		}
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "importer: read csv")
	}
	if b == nil {
		return nil, eris.New("importer: source is empty")
	}
	return b, nil
}

func parseXLSX(path, sheet string) (*Builder, error) {
	recs, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{Sheet: sheet, SkipBlank: true})
	if err != nil {
		return nil, eris.Wrap(err, "importer: read xlsx")
	}
	return parseRecords(recs)
}

func parseRecords(recs []fetcher.Record) (*Builder, error) {
	if len(recs) == 0 {
		return nil, eris.New("importer: source is empty")
	}
	h, err := MapHeader(recs[0].Fields)
	if err != nil {
		return nil, err
	}
	b := NewBuilder(h)
	for _, rec := range recs[1:] {
		if err := b.Add(rec.Line, rec.Fields); err != nil {
			return nil, err
		}
	}
	return b, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/emissions-dashboard/internal/emissions"
	"github.com/sells-group/emissions-dashboard/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
// The pool is pinned to a single connection so the pragmas, foreign_keys in
// particular, hold for every statement.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id                        INTEGER PRIMARY KEY AUTOINCREMENT,
	name                      TEXT NOT NULL UNIQUE,
	sector                    TEXT NOT NULL DEFAULT 'Other',
	region                    TEXT NOT NULL DEFAULT 'Unknown',
	ownership                 TEXT NOT NULL DEFAULT 'Public',
	baseline_year             INTEGER NOT NULL DEFAULT 2020,
	net_zero_year             INTEGER NOT NULL DEFAULT 2050,
	interim_target_year       INTEGER,
	interim_reduction_percent REAL,
	created_at                DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS emissions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	company_id INTEGER NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	year       INTEGER NOT NULL,
	scope_1    REAL NOT NULL DEFAULT 0,
	scope_2    REAL,
	scope_3    REAL NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (company_id, year)
);

CREATE INDEX IF NOT EXISTS idx_emissions_year ON emissions(year);
CREATE INDEX IF NOT EXISTS idx_companies_sector ON companies(sector);
CREATE INDEX IF NOT EXISTS idx_companies_region ON companies(region);
`

const (
	sqliteListCompanies = `SELECT ` + companyColumns + `, COUNT(e.id), MIN(e.year), MAX(e.year)
		FROM companies c
		LEFT JOIN emissions e ON e.company_id = c.id
		GROUP BY c.id
		ORDER BY c.name`
	sqliteGetCompany       = `SELECT ` + companyColumns + ` FROM companies c WHERE c.name = ?`
	sqliteCompanyEmissions = `SELECT ` + emissionColumns + ` FROM emissions e WHERE e.company_id = ? ORDER BY e.year`
	sqliteSectorPeers      = `SELECT ` + peerColumns + `
		FROM emissions e
		JOIN companies c ON c.id = e.company_id
		WHERE c.sector = ? AND e.year = ?
		ORDER BY c.name`
	sqliteListYears = `SELECT DISTINCT year FROM emissions ORDER BY year DESC`
	sqliteStats     = `SELECT
		(SELECT COUNT(*) FROM companies),
		(SELECT COUNT(*) FROM emissions),
		(SELECT COUNT(DISTINCT sector) FROM companies),
		(SELECT COUNT(DISTINCT region) FROM companies),
		(SELECT MIN(year) FROM emissions),
		(SELECT MAX(year) FROM emissions)`
	sqliteUpsertCompany = `INSERT INTO companies (
			name, sector, region, ownership, baseline_year, net_zero_year,
			interim_target_year, interim_reduction_percent, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			sector = excluded.sector,
			region = excluded.region,
			ownership = excluded.ownership,
			baseline_year = excluded.baseline_year,
			net_zero_year = excluded.net_zero_year,
			interim_target_year = excluded.interim_target_year,
			interim_reduction_percent = excluded.interim_reduction_percent
		RETURNING id`
	sqliteUpsertEmission = `INSERT INTO emissions (company_id, year, scope_1, scope_2, scope_3, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (company_id, year) DO UPDATE SET
			scope_1 = excluded.scope_1,
			scope_2 = excluded.scope_2,
			scope_3 = excluded.scope_3`
)

// sqliteRollupSQL mirrors pgRollupSQL with SQLite placeholders.
func sqliteRollupSQL(column string) string {
	return fmt.Sprintf(`SELECT c.%[1]s AS group_key,
			COUNT(DISTINCT c.id),
			TOTAL(e.scope_1),
			TOTAL(COALESCE(e.scope_2, 0)),
			TOTAL(e.scope_3),
			TOTAL(e.scope_1 + COALESCE(e.scope_2, 0) + e.scope_3) AS total_emissions,
			AVG(e.scope_1 + COALESCE(e.scope_2, 0) + e.scope_3)
		FROM emissions e
		JOIN companies c ON c.id = e.company_id
		WHERE e.year = ?
		GROUP BY c.%[1]s
		ORDER BY total_emissions DESC, group_key ASC`, column)
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) ListCompanies(ctx context.Context) ([]model.CompanyListing, error) {
	rows, err := s.db.QueryContext(ctx, sqliteListCompanies)
	if err != nil {
		return nil, emissions.Internal(err, "sqlite: list companies")
	}
	defer rows.Close() //nolint:errcheck

	listings, err := scanListings(rows)
	if err != nil {
		return nil, emissions.Internal(err, "sqlite: list companies")
	}
	return listings, nil
}

func (s *SQLiteStore) company(ctx context.Context, name string) (*model.Company, error) {
	var c model.Company
	err := s.db.QueryRowContext(ctx, sqliteGetCompany, name).Scan(companyDests(&c)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, emissions.CompanyNotFound()
		}
		return nil, emissions.Internal(err, fmt.Sprintf("sqlite: get company %q", name))
	}
	return &c, nil
}

func (s *SQLiteStore) GetCompany(ctx context.Context, name string) (*model.CompanyDetail, error) {
	c, err := s.company(ctx, name)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, sqliteCompanyEmissions, c.ID)
	if err != nil {
		return nil, emissions.Internal(err, "sqlite: company emissions")
	}
	defer rows.Close() //nolint:errcheck

	records, err := scanEmissions(rows)
	if err != nil {
		return nil, emissions.Internal(err, "sqlite: company emissions")
	}
	return model.NewCompanyDetail(*c, records), nil
}

func (s *SQLiteStore) GetPeers(ctx context.Context, q emissions.PeerQuery) (*emissions.PeerComparison, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	c, err := s.company(ctx, q.Name)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, sqliteSectorPeers, string(c.Sector), q.Year)
	if err != nil {
		return nil, emissions.Internal(err, "sqlite: sector peers")
	}
	defer rows.Close() //nolint:errcheck

	peers, err := scanPeers(rows)
	if err != nil {
		return nil, emissions.Internal(err, "sqlite: sector peers")
	}
	return emissions.ComparePeers(*c, peers, q), nil
}

func (s *SQLiteStore) rollup(ctx context.Context, column string, year int) ([]groupTotals, error) {
	if !rollupColumns[column] {
		return nil, emissions.Validationf("unsupported rollup column %q", column)
	}
	rows, err := s.db.QueryContext(ctx, sqliteRollupSQL(column), year)
	if err != nil {
		return nil, emissions.Internal(err, "sqlite: rollup by "+column)
	}
	defer rows.Close() //nolint:errcheck

	groups, err := scanGroups(rows)
	if err != nil {
		return nil, emissions.Internal(err, "sqlite: rollup by "+column)
	}
	return groups, nil
}

func (s *SQLiteStore) SectorRollup(ctx context.Context, year int) ([]model.SectorRollup, error) {
	groups, err := s.rollup(ctx, "sector", year)
	if err != nil {
		return nil, err
	}
	return sectorRollups(groups), nil
}

func (s *SQLiteStore) RegionRollup(ctx context.Context, year int) ([]model.RegionRollup, error) {
	groups, err := s.rollup(ctx, "region", year)
	if err != nil {
		return nil, err
	}
	return regionRollups(groups), nil
}

func (s *SQLiteStore) Search(ctx context.Context, f emissions.SearchFilter) ([]model.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies c WHERE 1 = 1`
	var args []any

	// instr is case-sensitive, unlike LIKE for ASCII.
	if f.Query != "" {
		query += ` AND instr(c.name, ?) > 0`
		args = append(args, f.Query)
	}
	if f.Sector != "" {
		query += ` AND c.sector = ?`
		args = append(args, f.Sector)
	}
	if f.Region != "" {
		query += ` AND c.region = ?`
		args = append(args, f.Region)
	}
	query += ` ORDER BY c.name LIMIT ?`
	args = append(args, emissions.SearchLimit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, emissions.Internal(err, "sqlite: search companies")
	}
	defer rows.Close() //nolint:errcheck

	companies, err := scanCompanies(rows)
	if err != nil {
		return nil, emissions.Internal(err, "sqlite: search companies")
	}
	return companies, nil
}

func (s *SQLiteStore) ListYears(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, sqliteListYears)
	if err != nil {
		return nil, emissions.Internal(err, "sqlite: list years")
	}
	defer rows.Close() //nolint:errcheck

	years, err := scanYears(rows)
	if err != nil {
		return nil, emissions.Internal(err, "sqlite: list years")
	}
	return years, nil
}

func (s *SQLiteStore) GetStats(ctx context.Context) (*model.Stats, error) {
	var st model.Stats
	if err := s.db.QueryRowContext(ctx, sqliteStats).Scan(statsDests(&st)...); err != nil {
		return nil, emissions.Internal(err, "sqlite: stats")
	}
	return &st, nil
}

// Load upserts the dataset in a single transaction.
func (s *SQLiteStore) Load(ctx context.Context, ds *model.Dataset) (*model.LoadResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	ids := make(map[string]int64, len(ds.Companies))
	for _, c := range ds.Companies {
		var id int64
		err := tx.QueryRowContext(ctx, sqliteUpsertCompany,
			c.Name, string(c.Sector), string(c.Region), string(c.Ownership),
			c.BaselineYear, c.NetZeroYear, c.InterimTargetYear, c.InterimReductionPercent, now,
		).Scan(&id)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: load: upsert company %q", c.Name)
		}
		ids[c.Name] = id
	}

	stmt, err := tx.PrepareContext(ctx, sqliteUpsertEmission)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load: prepare emissions")
	}
	defer stmt.Close() //nolint:errcheck

	for _, e := range ds.Emissions {
		id, ok := ids[e.Company]
		if !ok {
			return nil, eris.Errorf("sqlite: load: emission for unknown company %q", e.Company)
		}
		if _, err := stmt.ExecContext(ctx, id, e.Year, e.Scope1, e.Scope2, e.Scope3, now); err != nil {
			return nil, eris.Wrapf(err, "sqlite: load: upsert emission %q %d", e.Company, e.Year)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: load: commit tx")
	}
	return &model.LoadResult{Companies: len(ids), Emissions: len(ds.Emissions)}, nil
}

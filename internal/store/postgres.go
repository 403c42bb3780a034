package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/emissions-dashboard/internal/db"
	"github.com/sells-group/emissions-dashboard/internal/emissions"
	"github.com/sells-group/emissions-dashboard/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool     db.Pool
	closeFn  func()
	prepared bool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
	// Prepare registers the fixed queries as named statements on each
	// connection. The schema must already be migrated.
	Prepare bool `yaml:"prepare" mapstructure:"prepare"`
}

const (
	pgListCompanies = `SELECT ` + companyColumns + `, COUNT(e.id), MIN(e.year), MAX(e.year)
		FROM companies c
		LEFT JOIN emissions e ON e.company_id = c.id
		GROUP BY c.id
		ORDER BY c.name`
	pgGetCompany       = `SELECT ` + companyColumns + ` FROM companies c WHERE c.name = $1`
	pgCompanyEmissions = `SELECT ` + emissionColumns + ` FROM emissions e WHERE e.company_id = $1 ORDER BY e.year`
	pgSectorPeers      = `SELECT ` + peerColumns + `
		FROM emissions e
		JOIN companies c ON c.id = e.company_id
		WHERE c.sector = $1 AND e.year = $2
		ORDER BY c.name`
	pgListYears = `SELECT DISTINCT year FROM emissions ORDER BY year DESC`
	pgStats     = `SELECT
		(SELECT COUNT(*) FROM companies),
		(SELECT COUNT(*) FROM emissions),
		(SELECT COUNT(DISTINCT sector) FROM companies),
		(SELECT COUNT(DISTINCT region) FROM companies),
		(SELECT MIN(year) FROM emissions),
		(SELECT MAX(year) FROM emissions)`
	pgUpsertCompany = `INSERT INTO companies (
			name, sector, region, ownership, baseline_year, net_zero_year,
			interim_target_year, interim_reduction_percent
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (name) DO UPDATE SET
			sector = EXCLUDED.sector,
			region = EXCLUDED.region,
			ownership = EXCLUDED.ownership,
			baseline_year = EXCLUDED.baseline_year,
			net_zero_year = EXCLUDED.net_zero_year,
			interim_target_year = EXCLUDED.interim_target_year,
			interim_reduction_percent = EXCLUDED.interim_reduction_percent
		RETURNING id`
)

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the dashboard's fixed queries.
var preparedStatements = map[string]string{
	"list_companies":    pgListCompanies,
	"get_company":       pgGetCompany,
	"company_emissions": pgCompanyEmissions,
	"sector_peers":      pgSectorPeers,
	"list_years":        pgListYears,
	"stats":             pgStats,
}

// pgRollupSQL groups one year of emissions by a whitelisted company column.
func pgRollupSQL(column string) string {
	return fmt.Sprintf(`SELECT c.%[1]s AS group_key,
			COUNT(DISTINCT c.id),
			SUM(e.scope_1),
			SUM(COALESCE(e.scope_2, 0)),
			SUM(e.scope_3),
			SUM(e.scope_1 + COALESCE(e.scope_2, 0) + e.scope_3) AS total_emissions,
			AVG(e.scope_1 + COALESCE(e.scope_2, 0) + e.scope_3)
		FROM emissions e
		JOIN companies c ON c.id = e.company_id
		WHERE e.year = $1
		GROUP BY c.%[1]s
		ORDER BY total_emissions DESC, group_key ASC`, column)
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute
	prepared := poolCfg != nil && poolCfg.Prepare
	if prepared {
		Prepare(pgxCfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close, prepared: prepared}, nil
}

// NewPostgresFromPool wraps an existing pool. The caller keeps ownership of it.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Prepare registers the fixed dashboard queries as named statements on
// every new connection. Call it on the pgxpool.Config before the pool is
// created; the tables must already exist.
func Prepare(cfg *pgxpool.Config) {
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id                        BIGSERIAL PRIMARY KEY,
	name                      TEXT NOT NULL UNIQUE,
	sector                    TEXT NOT NULL DEFAULT 'Other',
	region                    TEXT NOT NULL DEFAULT 'Unknown',
	ownership                 TEXT NOT NULL DEFAULT 'Public',
	baseline_year             INTEGER NOT NULL DEFAULT 2020,
	net_zero_year             INTEGER NOT NULL DEFAULT 2050,
	interim_target_year       INTEGER,
	interim_reduction_percent DOUBLE PRECISION,
	created_at                TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS emissions (
	id         BIGSERIAL PRIMARY KEY,
	company_id BIGINT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	year       INTEGER NOT NULL,
	scope_1    DOUBLE PRECISION NOT NULL DEFAULT 0,
	scope_2    DOUBLE PRECISION,
	scope_3    DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (company_id, year)
);

CREATE INDEX IF NOT EXISTS idx_emissions_year ON emissions(year);
CREATE INDEX IF NOT EXISTS idx_companies_sector ON companies(sector);
CREATE INDEX IF NOT EXISTS idx_companies_region ON companies(region);
`

// query returns the statement name when connections carry prepared
// statements, else the SQL text.
func (s *PostgresStore) query(name string) string {
	if s.prepared {
		return name
	}
	return preparedStatements[name]
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ListCompanies(ctx context.Context) ([]model.CompanyListing, error) {
	rows, err := s.pool.Query(ctx, s.query("list_companies"))
	if err != nil {
		return nil, emissions.Internal(err, "postgres: list companies")
	}
	defer rows.Close()

	listings, err := scanListings(rows)
	if err != nil {
		return nil, emissions.Internal(err, "postgres: list companies")
	}
	return listings, nil
}

// company looks up a company by exact, case-sensitive name.
func (s *PostgresStore) company(ctx context.Context, name string) (*model.Company, error) {
	var c model.Company
	err := s.pool.QueryRow(ctx, s.query("get_company"), name).Scan(companyDests(&c)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, emissions.CompanyNotFound()
		}
		return nil, emissions.Internal(err, fmt.Sprintf("postgres: get company %q", name))
	}
	return &c, nil
}

func (s *PostgresStore) GetCompany(ctx context.Context, name string) (*model.CompanyDetail, error) {
	c, err := s.company(ctx, name)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, s.query("company_emissions"), c.ID)
	if err != nil {
		return nil, emissions.Internal(err, "postgres: company emissions")
	}
	defer rows.Close()

	records, err := scanEmissions(rows)
	if err != nil {
		return nil, emissions.Internal(err, "postgres: company emissions")
	}
	return model.NewCompanyDetail(*c, records), nil
}

func (s *PostgresStore) GetPeers(ctx context.Context, q emissions.PeerQuery) (*emissions.PeerComparison, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	c, err := s.company(ctx, q.Name)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, s.query("sector_peers"), string(c.Sector), q.Year)
	if err != nil {
		return nil, emissions.Internal(err, "postgres: sector peers")
	}
	defer rows.Close()

	peers, err := scanPeers(rows)
	if err != nil {
		return nil, emissions.Internal(err, "postgres: sector peers")
	}
	return emissions.ComparePeers(*c, peers, q), nil
}

func (s *PostgresStore) rollup(ctx context.Context, column string, year int) ([]groupTotals, error) {
	if !rollupColumns[column] {
		return nil, emissions.Validationf("unsupported rollup column %q", column)
	}
	rows, err := s.pool.Query(ctx, pgRollupSQL(column), year)
	if err != nil {
		return nil, emissions.Internal(err, "postgres: rollup by "+column)
	}
	defer rows.Close()

	groups, err := scanGroups(rows)
	if err != nil {
		return nil, emissions.Internal(err, "postgres: rollup by "+column)
	}
	return groups, nil
}

func (s *PostgresStore) SectorRollup(ctx context.Context, year int) ([]model.SectorRollup, error) {
	groups, err := s.rollup(ctx, "sector", year)
	if err != nil {
		return nil, err
	}
	return sectorRollups(groups), nil
}

func (s *PostgresStore) RegionRollup(ctx context.Context, year int) ([]model.RegionRollup, error) {
	groups, err := s.rollup(ctx, "region", year)
	if err != nil {
		return nil, err
	}
	return regionRollups(groups), nil
}

func (s *PostgresStore) Search(ctx context.Context, f emissions.SearchFilter) ([]model.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies c WHERE true`
	args := []any{}
	argIdx := 1

	// strpos keeps the match a literal, case-sensitive substring.
	if f.Query != "" {
		query += fmt.Sprintf(` AND strpos(c.name, $%d) > 0`, argIdx)
		args = append(args, f.Query)
		argIdx++
	}
	if f.Sector != "" {
		query += fmt.Sprintf(` AND c.sector = $%d`, argIdx)
		args = append(args, f.Sector)
		argIdx++
	}
	if f.Region != "" {
		query += fmt.Sprintf(` AND c.region = $%d`, argIdx)
		args = append(args, f.Region)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY c.name LIMIT $%d`, argIdx)
	args = append(args, emissions.SearchLimit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, emissions.Internal(err, "postgres: search companies")
	}
	defer rows.Close()

	companies, err := scanCompanies(rows)
	if err != nil {
		return nil, emissions.Internal(err, "postgres: search companies")
	}
	return companies, nil
}

func (s *PostgresStore) ListYears(ctx context.Context) ([]int, error) {
	rows, err := s.pool.Query(ctx, s.query("list_years"))
	if err != nil {
		return nil, emissions.Internal(err, "postgres: list years")
	}
	defer rows.Close()

	years, err := scanYears(rows)
	if err != nil {
		return nil, emissions.Internal(err, "postgres: list years")
	}
	return years, nil
}

func (s *PostgresStore) GetStats(ctx context.Context) (*model.Stats, error) {
	var st model.Stats
	if err := s.pool.QueryRow(ctx, s.query("stats")).Scan(statsDests(&st)...); err != nil {
		return nil, emissions.Internal(err, "postgres: stats")
	}
	return &st, nil
}

// emissionsMerge loads emission rows through a staging table keyed on the
// (company_id, year) unique constraint.
var emissionsMerge = db.Merge{
	Table:   "emissions",
	Columns: []string{"company_id", "year", "scope_1", "scope_2", "scope_3"},
	Key:     []string{"company_id", "year"},
}

// Load upserts companies one by one to learn their ids, then bulk-upserts
// emissions with COPY, all in one transaction.
func (s *PostgresStore) Load(ctx context.Context, ds *model.Dataset) (*model.LoadResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	ids := make(map[string]int64, len(ds.Companies))
	for _, c := range ds.Companies {
		var id int64
		err := tx.QueryRow(ctx, pgUpsertCompany,
			c.Name, string(c.Sector), string(c.Region), string(c.Ownership),
			c.BaselineYear, c.NetZeroYear, c.InterimTargetYear, c.InterimReductionPercent,
		).Scan(&id)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: load: upsert company %q", c.Name)
		}
		ids[c.Name] = id
	}

	rows := make([][]any, 0, len(ds.Emissions))
	for _, e := range ds.Emissions {
		id, ok := ids[e.Company]
		if !ok {
			return nil, eris.Errorf("postgres: load: emission for unknown company %q", e.Company)
		}
		rows = append(rows, []any{id, e.Year, e.Scope1, e.Scope2, e.Scope3})
	}

	n, err := emissionsMerge.Run(ctx, tx, rows)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load emissions")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: load: commit tx")
	}
	return &model.LoadResult{Companies: len(ids), Emissions: int(n)}, nil
}

package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Merge folds rows into Table through a COPY-loaded staging table:
//
//	CREATE TEMP TABLE <table>_staging (LIKE <table> INCLUDING DEFAULTS) ON COMMIT DROP
//	COPY <table>_staging (columns) FROM STDIN
//	INSERT INTO <table> (columns) SELECT columns FROM <table>_staging
//	  ON CONFLICT (key) DO UPDATE SET col = EXCLUDED.col, ...
//
// Rows must not repeat a key; Postgres rejects an upsert that touches the
// same target row twice.
type Merge struct {
	Table   string   // may be schema-qualified
	Columns []string // COPY column order
	Key     []string // columns of the unique constraint
	Update  []string // columns overwritten on conflict; nil means every non-key column
}

func (m Merge) check() error {
	if m.Table == "" {
		return eris.New("db: merge: no table")
	}
	if len(m.Columns) == 0 {
		return eris.Errorf("db: merge %s: no columns", m.Table)
	}
	if len(m.Key) == 0 {
		return eris.Errorf("db: merge %s: no key columns", m.Table)
	}
	return nil
}

// Staging is the unqualified name of the temp table rows are copied into.
func (m Merge) Staging() string {
	name := m.Table
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name + "_staging"
}

func (m Merge) updateColumns() []string {
	if m.Update != nil {
		return m.Update
	}
	key := make(map[string]struct{}, len(m.Key))
	for _, k := range m.Key {
		key[k] = struct{}{}
	}
	var cols []string
	for _, c := range m.Columns {
		if _, ok := key[c]; !ok {
			cols = append(cols, c)
		}
	}
	return cols
}

// statements returns the staging DDL and the merge INSERT.
func (m Merge) statements() (stage, merge string) {
	target := qualified(m.Table)
	staging := pgx.Identifier{m.Staging()}.Sanitize()
	cols := columnList(m.Columns)

	stage = "CREATE TEMP TABLE " + staging + " (LIKE " + target + " INCLUDING DEFAULTS) ON COMMIT DROP"

	var b strings.Builder
	b.WriteString("INSERT INTO " + target + " (" + cols + ") SELECT " + cols + " FROM " + staging)
	b.WriteString(" ON CONFLICT (" + columnList(m.Key) + ")")
	update := m.updateColumns()
	if len(update) == 0 {
		b.WriteString(" DO NOTHING")
		return stage, b.String()
	}
	b.WriteString(" DO UPDATE SET ")
	for i, c := range update {
		if i > 0 {
			b.WriteString(", ")
		}
		id := pgx.Identifier{c}.Sanitize()
		b.WriteString(id + " = EXCLUDED." + id)
	}
	return stage, b.String()
}

// Run merges rows inside tx and returns the number of target rows
// inserted or updated. The staging table is dropped when tx commits.
func (m Merge) Run(ctx context.Context, tx pgx.Tx, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := m.check(); err != nil {
		return 0, err
	}

	stage, merge := m.statements()
	if _, err := tx.Exec(ctx, stage); err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: create staging table", m.Table)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{m.Staging()}, m.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: copy %d rows", m.Table, len(rows))
	}
	tag, err := tx.Exec(ctx, merge)
	if err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: upsert", m.Table)
	}
	return tag.RowsAffected(), nil
}

func qualified(table string) string {
	return pgx.Identifier(strings.SplitN(table, ".", 2)).Sanitize()
}

func columnList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}

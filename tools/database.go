package tools

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MaxRows caps the rows returned by a query.
const MaxRows = 500

// Database is the SQL backend behind the database tools.
type Database interface {
	ListTables(ctx context.Context) ([]Table, error)
	Query(ctx context.Context, stmt string) ([]map[string]any, error)
	Execute(ctx context.Context, stmt string) (int64, error)
}

type Table struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
}

var _ Database = (*Postgres)(nil)

// Postgres runs statements on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("[NewPostgres] %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("[NewPostgres] ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) ListTables(ctx context.Context) ([]Table, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY table_schema, table_name`)
	if err != nil {
		return nil, fmt.Errorf("[Postgres ListTables] %w", err)
	}
	tables, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Table, error) {
		var t Table
		err := row.Scan(&t.Schema, &t.Name)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("[Postgres ListTables] %w", err)
	}
	return tables, nil
}

// Query runs stmt inside a read-only transaction.
func (p *Postgres) Query(ctx context.Context, stmt string) ([]map[string]any, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("[Postgres Query] %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("[Postgres Query] %w", err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() && len(out) < MaxRows {
		row, err := pgx.RowToMap(rows)
		if err != nil {
			return nil, fmt.Errorf("[Postgres Query] %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("[Postgres Query] %w", err)
	}
	return out, nil
}

func (p *Postgres) Execute(ctx context.Context, stmt string) (int64, error) {
	tag, err := p.pool.Exec(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("[Postgres Execute] %w", err)
	}
	return tag.RowsAffected(), nil
}

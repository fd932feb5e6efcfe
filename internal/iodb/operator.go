// Package iodb connects gntree to PostgreSQL. One pgxpool serves raw SQL
// (subtree moves, job claims) and a GORM session opened on the same pool.
package iodb

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gnames/gntree/pkg/config"
	"github.com/gnames/gntree/pkg/db"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	minConns = 2
	maxConns = 16
)

type pgxOperator struct {
	pool *pgxpool.Pool

	gormOnce sync.Once
	gormDB   *gorm.DB
	gormErr  error
}

// NewPgxOperator creates an operator that is not connected yet.
func NewPgxOperator() db.Operator {
	return &pgxOperator{}
}

// DSN builds a connection URL. User and password are escaped.
func DSN(cfg *config.DatabaseConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     "/" + cfg.Database,
		RawQuery: url.Values{"sslmode": {cfg.SSLMode}}.Encode(),
	}
	return u.String()
}

// Connect opens the pool and pings the server.
func (p *pgxOperator) Connect(ctx context.Context, cfg *config.DatabaseConfig) error {
	connErr := func(err error) error {
		return ConnectionError(cfg.Host, cfg.Port, cfg.Database, cfg.User, err)
	}

	poolConfig, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return connErr(err)
	}
	// worker goroutines, import workers and the sweep share the pool
	poolConfig.MinConns = minConns
	poolConfig.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return connErr(err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return connErr(err)
	}

	p.pool = pool
	return nil
}

// Close releases all connections.
func (p *pgxOperator) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

// Pool returns the connection pool, nil before Connect.
func (p *pgxOperator) Pool() *pgxpool.Pool {
	return p.pool
}

// GORM opens a GORM session on top of the pool once and returns it on
// subsequent calls.
func (p *pgxOperator) GORM() (*gorm.DB, error) {
	if p.pool == nil {
		return nil, NotConnectedError()
	}
	p.gormOnce.Do(func() {
		sqlDB := stdlib.OpenDBFromPool(p.pool)
		p.gormDB, p.gormErr = gorm.Open(
			postgres.New(postgres.Config{Conn: sqlDB}),
			&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
		)
		if p.gormErr != nil {
			p.gormErr = GORMError(p.gormErr)
		}
	})
	return p.gormDB, p.gormErr
}

// TableExists checks for a table in the public schema.
func (p *pgxOperator) TableExists(ctx context.Context, table string) (bool, error) {
	if p.pool == nil {
		return false, NotConnectedError()
	}

	var exists bool
	err := p.pool.QueryRow(ctx, `SELECT EXISTS (
		SELECT FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = $1)`, table).
		Scan(&exists)
	if err != nil {
		return false, TableExistsCheckError(table, err)
	}
	return exists, nil
}

// HasTables checks if the public schema has any tables.
func (p *pgxOperator) HasTables(ctx context.Context) (bool, error) {
	if p.pool == nil {
		return false, NotConnectedError()
	}

	var res bool
	err := p.pool.QueryRow(ctx, `SELECT EXISTS (
		SELECT FROM information_schema.tables
		WHERE table_schema = 'public')`).Scan(&res)
	if err != nil {
		return false, TableCheckError(err)
	}
	return res, nil
}

// DropAllTables drops every table of the public schema in one statement.
func (p *pgxOperator) DropAllTables(ctx context.Context) error {
	if p.pool == nil {
		return NotConnectedError()
	}

	rows, err := p.pool.Query(ctx,
		`SELECT tablename FROM pg_tables WHERE schemaname = 'public'`)
	if err != nil {
		return QueryTablesError(err)
	}
	tables, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return ScanTableError(err)
	}
	if len(tables) == 0 {
		return nil
	}

	quoted := make([]string, len(tables))
	for i, v := range tables {
		quoted[i] = pgx.Identifier{v}.Sanitize()
	}
	q := "DROP TABLE IF EXISTS " + strings.Join(quoted, ", ") + " CASCADE"
	if _, err = p.pool.Exec(ctx, q); err != nil {
		return DropTableError(strings.Join(tables, ", "), err)
	}
	return nil
}

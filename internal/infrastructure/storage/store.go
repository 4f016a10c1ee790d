package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"NewsLens/internal/ports"
)

//go:embed schema.sql
var schema string

// Store persists items, features, users, feedback, the topic vocabulary and
// the enrichment queue in one SQL database (SQLite or Postgres).
type Store struct {
	db  *sql.DB
	sb  sq.StatementBuilderType
	now func() time.Time
}

var (
	_ ports.ItemRepository     = (*Store)(nil)
	_ ports.TopicRepository    = (*Store)(nil)
	_ ports.UserRepository     = (*Store)(nil)
	_ ports.FeedbackRepository = (*Store)(nil)
	_ ports.WorkQueue          = (*Store)(nil)
)

// Open connects to the database, verifies the connection and applies the schema.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite3" {
		// SQLite allows a single writer; serializing avoids SQLITE_BUSY under the worker pool.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	s := New(db, driver)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection. Postgres uses $n placeholders, everything
// else uses ?.
func New(db *sql.DB, driver string) *Store {
	var format sq.PlaceholderFormat = sq.Question
	if driver == "postgres" {
		format = sq.Dollar
	}
	return &Store{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(format).RunWith(db),
		now: time.Now,
	}
}

// Migrate creates missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) unixNow() int64 {
	return s.now().Unix()
}

func closeRows(rows *sql.Rows, err error) error {
	if rowsErr := rows.Err(); rowsErr != nil && err == nil {
		err = fmt.Errorf("rows iteration: %w", rowsErr)
	}
	if closeErr := rows.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("close rows: %w", closeErr)
	}
	return err
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	x := v.Float64
	return &x
}

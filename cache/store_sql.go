package cache

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var tableNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// sqlDialect holds the statements for one database flavour. Statements use
// %[1]s for the table name.
type sqlDialect struct {
	driver   string
	schema   []string
	contains string
	get      string
	set      string
	delete   string
	clear    string
}

var sqliteDialect = sqlDialect{
	driver: "sqlite",
	schema: []string{
		`PRAGMA journal_mode=WAL`,
		`PRAGMA busy_timeout=5000`,
		`CREATE TABLE IF NOT EXISTS %[1]s (
			cache_key TEXT PRIMARY KEY,
			cache_value BLOB NOT NULL
		)`,
	},
	contains: `SELECT 1 FROM %[1]s WHERE cache_key = ?`,
	get:      `SELECT cache_value FROM %[1]s WHERE cache_key = ?`,
	set: `INSERT INTO %[1]s (cache_key, cache_value) VALUES (?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET cache_value = excluded.cache_value`,
	delete: `DELETE FROM %[1]s WHERE cache_key = ?`,
	clear:  `DELETE FROM %[1]s`,
}

var postgresDialect = sqlDialect{
	driver: "postgres",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS %[1]s (
			cache_key TEXT PRIMARY KEY,
			cache_value BYTEA NOT NULL
		)`,
	},
	contains: `SELECT 1 FROM %[1]s WHERE cache_key = $1`,
	get:      `SELECT cache_value FROM %[1]s WHERE cache_key = $1`,
	set: `INSERT INTO %[1]s (cache_key, cache_value) VALUES ($1, $2)
		ON CONFLICT (cache_key) DO UPDATE SET cache_value = EXCLUDED.cache_value`,
	delete: `DELETE FROM %[1]s WHERE cache_key = $1`,
	clear:  `DELETE FROM %[1]s`,
}

// SQLStore is a Store backed by a SQL database, one row per key.
type SQLStore struct {
	db      *sql.DB
	cfg     storeConfig
	queries sqlDialect
}

var _ Store = (*SQLStore)(nil)

// NewSQLiteStore returns a Store backed by SQLite (pure Go, no CGO).
// If path is empty or ":memory:", an in-memory database is used.
func NewSQLiteStore(ctx context.Context, path string, opts ...StoreOption) (*SQLStore, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open(sqliteDialect.driver, path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)
	return newSQLStore(ctx, db, sqliteDialect, opts)
}

// NewPostgresStore returns a Store backed by the Postgres database at dsn.
func NewPostgresStore(ctx context.Context, dsn string, opts ...StoreOption) (*SQLStore, error) {
	db, err := sql.Open(postgresDialect.driver, dsn)
	if err != nil {
		return nil, err
	}
	return newSQLStore(ctx, db, postgresDialect, opts)
}

func newSQLStore(ctx context.Context, db *sql.DB, dialect sqlDialect, opts []StoreOption) (*SQLStore, error) {
	cfg := applyStoreOptions(opts)
	if !tableNameRegex.MatchString(cfg.table) {
		db.Close()
		return nil, errors.Newf("cache: invalid table name %q", cfg.table)
	}
	s := &SQLStore{db: db, cfg: cfg, queries: dialect.forTable(cfg.table)}
	qctx, cancel := cfg.queryCtx(ctx)
	defer cancel()
	for _, stmt := range s.queries.schema {
		if _, err := db.ExecContext(qctx, stmt); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "cache: failed to prepare %s schema", dialect.driver)
		}
	}
	return s, nil
}

func (d sqlDialect) forTable(table string) sqlDialect {
	render := func(stmt string) string {
		if !strings.Contains(stmt, "%[1]s") {
			return stmt
		}
		return fmt.Sprintf(stmt, table)
	}
	out := d
	out.schema = make([]string, len(d.schema))
	for i, stmt := range d.schema {
		out.schema[i] = render(stmt)
	}
	out.contains = render(d.contains)
	out.get = render(d.get)
	out.set = render(d.set)
	out.delete = render(d.delete)
	out.clear = render(d.clear)
	return out
}

func (s *SQLStore) Contains(ctx context.Context, key string) (bool, error) {
	qctx, cancel := s.cfg.queryCtx(ctx)
	defer cancel()
	var one int
	err := s.db.QueryRowContext(qctx, s.queries.contains, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	qctx, cancel := s.cfg.queryCtx(ctx)
	defer cancel()
	var data []byte
	err := s.db.QueryRowContext(qctx, s.queries.get, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value string) error {
	qctx, cancel := s.cfg.queryCtx(ctx)
	defer cancel()
	_, err := s.db.ExecContext(qctx, s.queries.set, key, []byte(value))
	return err
}

func (s *SQLStore) Delete(ctx context.Context, key string) (bool, error) {
	qctx, cancel := s.cfg.queryCtx(ctx)
	defer cancel()
	result, err := s.db.ExecContext(qctx, s.queries.delete, key)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *SQLStore) Clear(ctx context.Context) error {
	qctx, cancel := s.cfg.queryCtx(ctx)
	defer cancel()
	_, err := s.db.ExecContext(qctx, s.queries.clear)
	return err
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

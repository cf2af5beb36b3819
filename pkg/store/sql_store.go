package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

// Dialect selects the SQL flavour and driver of a SQLStore.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driver() (string, error) {
	switch d {
	case DialectSQLite:
		return "sqlite", nil
	case DialectPostgres:
		return "pgx", nil
	default:
		return "", fmt.Errorf("store: unsupported dialect %q", d)
	}
}

// SQLStore persists records as JSON in a single characters table.
type SQLStore[T any] struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQLStore opens dsn with the driver for dialect, pings it and applies
// the embedded migrations.
func OpenSQLStore[T any](ctx context.Context, dialect Dialect, dsn string) (*SQLStore[T], error) {
	driver, err := dialect.driver()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("store: dsn is required")
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s database: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping %s database: %w", dialect, err)
	}
	s, err := NewSQLStore[T](ctx, db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database and applies the embedded migrations.
func NewSQLStore[T any](ctx context.Context, db *sql.DB, dialect Dialect) (*SQLStore[T], error) {
	if db == nil {
		return nil, fmt.Errorf("store: database is required")
	}
	if _, err := dialect.driver(); err != nil {
		return nil, err
	}
	s := &SQLStore[T]{db: db, dialect: dialect}
	if err := s.applyMigrations(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the database handle.
func (s *SQLStore[T]) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore[T]) bind(pos int) string {
	if s.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", pos)
	}
	return "?"
}

func (s *SQLStore[T]) Load(ctx context.Context, ref Ref) (T, Meta, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, Meta{}, false, err
	}
	key, err := ref.Identifier()
	if err != nil {
		return zero, Meta{}, false, err
	}

	query := fmt.Sprintf("SELECT payload, etag, snapshot_id, updated_at, extra FROM characters WHERE record_key = %s", s.bind(1))
	var (
		payload   string
		meta      Meta
		updatedAt int64
		extra     sql.NullString
	)
	err = s.db.QueryRowContext(ctx, query, key).Scan(&payload, &meta.ETag, &meta.SnapshotID, &updatedAt, &extra)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, Meta{}, false, nil
	}
	if err != nil {
		return zero, Meta{}, false, fmt.Errorf("store: load %s: %w", key, err)
	}
	meta.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	if extra.Valid && extra.String != "" {
		if err := json.Unmarshal([]byte(extra.String), &meta.Extra); err != nil {
			return zero, Meta{}, false, fmt.Errorf("store: decode meta for %s: %w", key, err)
		}
	}
	var snapshot T
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		return zero, Meta{}, false, fmt.Errorf("store: decode %s: %w", key, err)
	}
	return snapshot, meta, true, nil
}

func (s *SQLStore[T]) Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error) {
	if err := ctx.Err(); err != nil {
		return Meta{}, err
	}
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}
	payload, saved, err := stamp(snapshot, meta, time.Now())
	if err != nil {
		return Meta{}, err
	}
	var extra sql.NullString
	if saved.Extra != nil {
		encoded, err := json.Marshal(saved.Extra)
		if err != nil {
			return Meta{}, fmt.Errorf("store: encode meta: %w", err)
		}
		extra = sql.NullString{String: string(encoded), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Meta{}, fmt.Errorf("store: begin save %s: %w", key, err)
	}
	defer func() { _ = tx.Rollback() }()

	current := fmt.Sprintf("SELECT etag FROM characters WHERE record_key = %s", s.bind(1))
	if s.dialect == DialectPostgres {
		current += " FOR UPDATE"
	}
	var currentETag string
	exists := true
	if err := tx.QueryRowContext(ctx, current, key).Scan(&currentETag); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return Meta{}, fmt.Errorf("store: read etag %s: %w", key, err)
		}
		exists = false
	}
	if err := checkETag(meta.ETag, currentETag, exists); err != nil {
		return Meta{}, err
	}

	upsert := fmt.Sprintf(`INSERT INTO characters (record_key, payload, etag, snapshot_id, updated_at, extra)
		VALUES (%s, %s, %s, %s, %s, %s)
		ON CONFLICT (record_key) DO UPDATE SET
			payload = excluded.payload,
			etag = excluded.etag,
			snapshot_id = excluded.snapshot_id,
			updated_at = excluded.updated_at,
			extra = excluded.extra`,
		s.bind(1), s.bind(2), s.bind(3), s.bind(4), s.bind(5), s.bind(6))
	if _, err := tx.ExecContext(ctx, upsert, key, string(payload), saved.ETag, saved.SnapshotID, saved.UpdatedAt.UnixMilli(), extra); err != nil {
		return Meta{}, fmt.Errorf("store: save %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return Meta{}, fmt.Errorf("store: commit %s: %w", key, err)
	}
	// Millisecond precision matches what Load returns.
	saved.UpdatedAt = time.UnixMilli(saved.UpdatedAt.UnixMilli()).UTC()
	return saved, nil
}

func (s *SQLStore[T]) applyMigrations(ctx context.Context) error {
	create := `CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at BIGINT NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("store: create schema_migrations: %w", err)
	}

	applied := map[string]bool{}
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("store: read schema_migrations: %w", err)
	}
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("store: scan schema migration: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("store: iterate schema migrations: %w", err)
	}
	rows.Close()

	files, err := fs.Glob(migrationFS, fmt.Sprintf("migrations/%s/*.sql", s.dialect))
	if err != nil {
		return fmt.Errorf("store: glob migrations: %w", err)
	}
	sort.Strings(files)
	record := fmt.Sprintf("INSERT INTO schema_migrations (version, applied_at) VALUES (%s, %s)", s.bind(1), s.bind(2))
	for _, file := range files {
		version := path.Base(file)
		if applied[version] {
			continue
		}
		statement, err := migrationFS.ReadFile(file)
		if err != nil {
			return fmt.Errorf("store: read migration %s: %w", file, err)
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("store: begin migration %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, string(statement)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store: apply migration %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, record, version, time.Now().UTC().UnixMilli()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store: record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("store: commit migration %s: %w", file, err)
		}
	}
	return nil
}

// Package sqlite provides the reference BigramStore implementation backed
// by a SQLite archetype bigram table: rebuilt offline by a separate
// pipeline, opened here, and served strictly read-only at request time.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, no cgo

	"github.com/ramonehamilton/asi-engine/internal/asi/deck"
	"github.com/ramonehamilton/asi-engine/internal/asi/format"
	"github.com/ramonehamilton/asi-engine/internal/asierr"
	"github.com/ramonehamilton/asi-engine/internal/store"
)

// Store implements store.BigramStore against a SQLite-backed archetype
// bigram table, indexed on (format, card_a, card_b).
type Store struct {
	conn *sql.DB
	path string
}

// Config holds connection settings for opening the bigram store.
type Config struct {
	// Path is the file path to the SQLite database. Use ":memory:" for an
	// in-memory database (tests).
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration

	// JournalMode and Synchronous tune SQLite for a read-mostly workload.
	JournalMode string
	Synchronous string

	// AutoMigrate runs pending schema migrations on Open.
	AutoMigrate bool

	// ReadOnly puts the serving connection into SQLite's query_only mode
	// once migrations have run, so a request-serving process can never
	// mutate the archetype_bigrams table it only ever reads from —
	// enforcing at the connection level that the store is strictly
	// read-only at serve time. query_only does not cover the temp
	// database, so Lookup's temp-table staging is unaffected. The offline
	// rebuild pipeline and fixture loaders set this false.
	ReadOnly bool
}

// DefaultConfig returns sensible defaults for a read-mostly serving store.
func DefaultConfig(path string) *Config {
	return &Config{
		Path:            path,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		BusyTimeout:     5 * time.Second,
		JournalMode:     "WAL",
		Synchronous:     "NORMAL",
		ReadOnly:        true,
	}
}

// Open connects to the bigram store, configures pooling, optionally runs
// pending migrations, and — unless cfg.ReadOnly is false — puts the
// resulting connection into query_only mode before returning it.
func Open(cfg *Config) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	conn, err := openConn(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := conn.Close(); err != nil {
			return nil, fmt.Errorf("close database for migration: %w", err)
		}

		mgr, err := NewMigrationManager(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("create migration manager: %w", err)
		}
		migrateErr := mgr.Up()
		closeErr := mgr.Close()
		if migrateErr != nil {
			return nil, fmt.Errorf("apply migrations: %w", migrateErr)
		}
		if closeErr != nil {
			return nil, fmt.Errorf("close migration manager: %w", closeErr)
		}

		conn, err = openConn(cfg)
		if err != nil {
			return nil, fmt.Errorf("reopen database after migrations: %w", err)
		}
	}

	if cfg.ReadOnly {
		if _, err := conn.Exec(`PRAGMA query_only = ON`); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("enable read-only mode: %w", err)
		}
	}

	return &Store{conn: conn, path: cfg.Path}, nil
}

func openConn(cfg *Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=%s&_synchronous=%s&_foreign_keys=on",
		cfg.Path,
		cfg.BusyTimeout.Milliseconds(),
		cfg.JournalMode,
		cfg.Synchronous,
	)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return conn, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Conn returns the underlying *sql.DB, for fixture loading and tests that
// need to seed data directly.
func (s *Store) Conn() *sql.DB {
	return s.conn
}

// Path returns the database file path this store was opened against.
func (s *Store) Path() string {
	return s.path
}

// Ping verifies the connection is alive.
func (s *Store) Ping() error {
	return s.conn.Ping()
}

// Backend names the concrete storage engine for the response meta block.
func (s *Store) Backend() string {
	return "sqlite"
}

// Database names the active database file for the response meta block.
func (s *Store) Database() string {
	return s.path
}

// Lookup restricts the archetype_bigrams table to the candidate pairs by
// staging them in a request-scoped temp table and joining against it, so
// the query cost tracks len(candidates) rather than the full corpus.
func (s *Store) Lookup(ctx context.Context, f format.Format, candidates []deck.Bigram) (*store.QueryResult, error) {
	start := time.Now()

	if len(candidates) == 0 {
		return &store.QueryResult{QueryMillis: 0}, nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin lookup transaction: %v", store.ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `CREATE TEMP TABLE IF NOT EXISTS query_pairs (card_a TEXT NOT NULL, card_b TEXT NOT NULL)`); err != nil {
		return nil, fmt.Errorf("%w: create temp table: %v", store.ErrUnavailable, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM query_pairs`); err != nil {
		return nil, fmt.Errorf("%w: clear temp table: %v", store.ErrUnavailable, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO query_pairs (card_a, card_b) VALUES (?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("%w: prepare insert: %v", store.ErrUnavailable, err)
	}
	for _, b := range candidates {
		if _, err := stmt.ExecContext(ctx, b.CardA, b.CardB); err != nil {
			_ = stmt.Close()
			return nil, fmt.Errorf("%w: stage candidate pair: %v", store.ErrUnavailable, err)
		}
	}
	_ = stmt.Close()

	rows, err := tx.QueryContext(ctx, `
		SELECT ab.archetype, ab.card_a, ab.card_b, ab.k1, ab.k2
		FROM archetype_bigrams ab
		JOIN query_pairs qp ON qp.card_a = ab.card_a AND qp.card_b = ab.card_b
		WHERE ab.format = ?
	`, string(f))
	if err != nil {
		return nil, fmt.Errorf("%w: query bigrams: %v", store.ErrUnavailable, err)
	}

	var result []store.Row
	for rows.Next() {
		var r store.Row
		if err := rows.Scan(&r.Archetype, &r.CardA, &r.CardB, &r.K1, &r.K2); err != nil {
			_ = rows.Close()
			return nil, asierr.SchemaMismatch(err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("%w: iterate bigram rows: %v", store.ErrUnavailable, err)
	}
	_ = rows.Close()

	if _, err := tx.ExecContext(ctx, `DELETE FROM query_pairs`); err != nil {
		return nil, fmt.Errorf("%w: clean up temp table: %v", store.ErrUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit lookup transaction: %v", store.ErrUnavailable, err)
	}

	return &store.QueryResult{
		Rows:        result,
		RowsScanned: len(candidates),
		QueryMillis: float64(time.Since(start).Microseconds()) / 1000.0,
	}, nil
}

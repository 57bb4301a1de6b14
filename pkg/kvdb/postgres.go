// Copyright 2025 Certen Protocol
//
// Postgres-backed KV, for deployments that point event_store_conn at a
// durable cluster instead of the embedded GoLevelDB. Connection handling
// (sql.Open("postgres", ...), pool sizing, startup ping) follows the
// teacher's pkg/database/client.go; the schema is a single flat keyspace
// since every caller (eventlog.Store, the DNA book, the rate guard) already
// addresses it through the kvdb.KV interface rather than SQL directly.

package kvdb

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Postgres implements KV over a single `kv_store(key, value)` table.
type Postgres struct {
	db *sql.DB
}

// PostgresOption is a functional option for configuring the pool, mirroring
// the teacher's database.ClientOption shape.
type PostgresOption func(*sql.DB)

// WithMaxOpenConns caps the pool's open connections.
func WithMaxOpenConns(n int) PostgresOption {
	return func(db *sql.DB) { db.SetMaxOpenConns(n) }
}

// WithMaxIdleConns caps the pool's idle connections.
func WithMaxIdleConns(n int) PostgresOption {
	return func(db *sql.DB) { db.SetMaxIdleConns(n) }
}

// NewPostgres opens a connection pool against dsn, verifies it with a ping,
// and ensures the backing table exists.
func NewPostgres(dsn string, opts ...PostgresOption) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("kvdb: postgres dsn is empty")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("kvdb: open postgres: %w", err)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	for _, opt := range opts {
		opt(db)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("kvdb: ping postgres: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS kv_store (
	key   BYTEA PRIMARY KEY,
	value BYTEA NOT NULL
)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("kvdb: ensure kv_store table: %w", err)
	}

	return &Postgres{db: db}, nil
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) Get(key []byte) ([]byte, error) {
	var value []byte
	err := p.db.QueryRow(`SELECT value FROM kv_store WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("kvdb: postgres get: %w", err)
	}
	return value, nil
}

// Set upserts key. Durability is Postgres's own WAL fsync, the SQL
// equivalent of the GoLevelDB adapter's SetSync.
func (p *Postgres) Set(key, value []byte) error {
	_, err := p.db.Exec(`
INSERT INTO kv_store (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	if err != nil {
		return fmt.Errorf("kvdb: postgres set: %w", err)
	}
	return nil
}

func (p *Postgres) Delete(key []byte) error {
	if _, err := p.db.Exec(`DELETE FROM kv_store WHERE key = $1`, key); err != nil {
		return fmt.Errorf("kvdb: postgres delete: %w", err)
	}
	return nil
}

// Iterate scans keys in [prefix, prefixRange-end) order, matching the
// Adapter's GoLevelDB semantics so callers can switch backends freely.
func (p *Postgres) Iterate(prefix []byte, fn func(key, value []byte) (stop bool, err error)) error {
	start, end := prefixRange(prefix)

	var rows *sql.Rows
	var err error
	if end == nil {
		rows, err = p.db.Query(`SELECT key, value FROM kv_store WHERE key >= $1 ORDER BY key`, start)
	} else {
		rows, err = p.db.Query(`SELECT key, value FROM kv_store WHERE key >= $1 AND key < $2 ORDER BY key`, start, end)
	}
	if err != nil {
		return fmt.Errorf("kvdb: postgres iterate: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("kvdb: postgres scan: %w", err)
		}
		stop, err := fn(key, value)
		if err != nil {
			return err
		}
		if stop {
			break
		}
	}
	return rows.Err()
}

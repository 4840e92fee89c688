// Package cache provides the optional ParseCache the include resolver
// consults before re-reading an included file from disk (SPEC_FULL.md
// §4.K), keyed by resolved path and content hash so that repeated
// parses across processes in a build farm can skip identical includes.
package cache

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Key identifies one cached include by its resolved filesystem path
// and the blake2b-256 hash of its content (see internal/includes).
type Key struct {
	Path string
	Hash [32]byte
}

// ParseCache is the interface the include resolver depends on. Tests
// and single-process runs use an in-memory fake; a build farm can
// supply a Postgres-backed one to share state across workers.
type ParseCache interface {
	// Seen reports whether key has already been recorded.
	Seen(key Key) (bool, error)
	// Record marks key as seen.
	Record(key Key) error
}

// MemCache is an in-memory ParseCache, the default for tests and for
// single-process runs with no shared build farm.
type MemCache struct {
	seen map[[32]byte]map[string]bool
}

// NewMemCache returns an empty in-memory cache.
func NewMemCache() *MemCache {
	return &MemCache{seen: make(map[[32]byte]map[string]bool)}
}

func (c *MemCache) Seen(key Key) (bool, error) {
	paths, ok := c.seen[key.Hash]
	if !ok {
		return false, nil
	}
	return paths[key.Path], nil
}

func (c *MemCache) Record(key Key) error {
	paths, ok := c.seen[key.Hash]
	if !ok {
		paths = make(map[string]bool)
		c.seen[key.Hash] = paths
	}
	paths[key.Path] = true
	return nil
}

// PostgresCache is a ParseCache backed by a Postgres table, opened via
// github.com/lib/pq through database/sql.
type PostgresCache struct {
	db *sql.DB
}

// OpenPostgresCache opens db (a "postgres://..." DSN) and ensures the
// backing table exists.
func OpenPostgresCache(dsn string) (*PostgresCache, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open parse cache: %w", err)
	}
	c := &PostgresCache{db: db}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS include_cache (
			path TEXT NOT NULL,
			content_hash BYTEA NOT NULL,
			PRIMARY KEY (path, content_hash)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create parse cache schema: %w", err)
	}
	return c, nil
}

func (c *PostgresCache) Seen(key Key) (bool, error) {
	var exists bool
	err := c.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM include_cache WHERE path = $1 AND content_hash = $2)`,
		key.Path, key.Hash[:],
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query parse cache: %w", err)
	}
	return exists, nil
}

func (c *PostgresCache) Record(key Key) error {
	_, err := c.db.Exec(
		`INSERT INTO include_cache (path, content_hash) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		key.Path, key.Hash[:],
	)
	if err != nil {
		return fmt.Errorf("record parse cache entry: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (c *PostgresCache) Close() error { return c.db.Close() }

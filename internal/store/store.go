// Package store implements the persistence core: a single-file,
// WAL-mode SQLite store with a self-signing integrity discipline
// (single-connection pool, WAL + synchronous=NORMAL pragmas,
// schema-on-open, content-addressed integrity hashing over row content).
package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrCorrupted is returned by Open when the recomputed row-content digest
// disagrees with Metadata.integrity_hash. There is no automatic repair.
var ErrCorrupted = errors.New("store: integrity hash mismatch, store is corrupted")

// Store is a single open handle to the on-disk SQLite file. All mutating
// access happens inside WithWriteTx, which re-signs Metadata on commit.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the store file at path, applies pending
// migrations, and validates its integrity hash. A brand-new file (whose
// Metadata row migrate has just created with an empty integrity_hash)
// skips validation and is signed on its first WithWriteTx commit.
func Open(path string) (*Store, error) {
	db, err := openConn(path)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, path: path}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	if err := s.verifyIntegrity(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// openConn opens the sqlite file at path with the pool/pragma discipline
// every Open requires.
func openConn(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: set WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA synchronous = NORMAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: set synchronous = NORMAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable foreign keys: %w", err)
	}
	return db, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the on-disk file path backing this store.
func (s *Store) Path() string { return s.path }

// DB exposes the underlying *sql.DB for read-only queries that do not
// require the write-transaction signing discipline.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) verifyIntegrity() error {
	meta, found, err := readMetadata(s.db)
	if err != nil {
		return fmt.Errorf("store: reading metadata: %w", err)
	}
	if !found || meta.IntegrityHash == "" {
		return nil
	}

	digest, err := canonicalDigest(s.db)
	if err != nil {
		return fmt.Errorf("store: computing integrity digest: %w", err)
	}
	if digest != meta.IntegrityHash {
		return ErrCorrupted
	}
	return nil
}

// WithWriteTx runs fn inside a single SQL transaction. If fn succeeds, the
// transaction's writes are committed, the canonical content digest of
// every table (see canonicalDigest) is recomputed over the now-committed
// rows, and the digest is written into Metadata in a second short
// transaction. Metadata.integrity_hash therefore always describes the
// store's row content exactly as it stood the moment the caller's
// write-transaction committed; signing never depends on a destructor or
// finalizer running.
func (s *Store) WithWriteTx(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}

	digest, err := canonicalDigest(s.db)
	if err != nil {
		return fmt.Errorf("store: computing post-commit digest: %w", err)
	}

	signTx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin signing tx: %w", err)
	}
	if err := writeMetadataIntegrityHash(signTx, digest); err != nil {
		signTx.Rollback()
		return fmt.Errorf("store: writing integrity hash: %w", err)
	}
	if err := signTx.Commit(); err != nil {
		return fmt.Errorf("store: commit signing tx: %w", err)
	}
	return nil
}

// newDBUUID generates a fresh db_uuid, used at store creation and on Export.
func newDBUUID() string {
	return uuid.New().String()
}

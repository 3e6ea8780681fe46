package store

import (
	"database/sql"
	"fmt"
)

// CurrentMigrationVersion is the schema version this build expects.
const CurrentMigrationVersion = 1

// migrationOrder is the fixed per-table order migrations run in.
var migrationOrder = []string{"credentials", "dumps", "identities", "metadata", "npi", "rainbow", "seed"}

var tableDDL = map[string]string{
	"identities": `
CREATE TABLE IF NOT EXISTS identities (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	hash       TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL,
	last_seen  TEXT NOT NULL
)`,
	"credentials": `
CREATE TABLE IF NOT EXISTS credentials (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	identity_ref    INTEGER NOT NULL REFERENCES identities(id) ON DELETE CASCADE,
	credential_hash TEXT NOT NULL,
	created_at      TEXT NOT NULL,
	last_seen       TEXT NOT NULL,
	UNIQUE(identity_ref, credential_hash)
)`,
	"npi": `
CREATE TABLE IF NOT EXISTS npi (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	npi_type   TEXT NOT NULL,
	value_hash TEXT NOT NULL,
	created_at TEXT NOT NULL,
	last_seen  TEXT NOT NULL,
	UNIQUE(npi_type, value_hash)
)`,
	"dumps": `
CREATE TABLE IF NOT EXISTS dumps (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	file_name     TEXT NOT NULL,
	breach_date   TEXT,
	breach_target TEXT,
	content_hash  TEXT NOT NULL UNIQUE,
	created_at    TEXT NOT NULL,
	last_seen     TEXT NOT NULL
)`,
	"rainbow": `
CREATE TABLE IF NOT EXISTS rainbow (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	hash_algo  TEXT NOT NULL,
	hash_value TEXT NOT NULL,
	UNIQUE(hash_algo, hash_value)
)`,
	"seed": `
CREATE TABLE IF NOT EXISTS seed (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	file_name TEXT NOT NULL,
	signature TEXT NOT NULL UNIQUE
)`,
	"metadata": `
CREATE TABLE IF NOT EXISTS metadata (
	id                 INTEGER PRIMARY KEY CHECK (id = 0),
	db_uuid            TEXT NOT NULL,
	integrity_hash     TEXT NOT NULL DEFAULT '',
	migration_version  INTEGER NOT NULL
)`,
}

var tableIndexes = map[string][]string{
	"npi": {
		`CREATE INDEX IF NOT EXISTS idx_npi_type ON npi (npi_type)`,
		`CREATE INDEX IF NOT EXISTS idx_npi_hash ON npi (value_hash)`,
	},
}

// migrate runs create/upgrade against the store's current
// Metadata.migration_version, inside a single transaction.
func (s *Store) migrate() error {
	version, err := readMigrationVersion(s.db)
	if err != nil {
		return fmt.Errorf("reading migration version: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}

	if version == 0 {
		if err := create(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("create: %w", err)
		}
	} else if version < CurrentMigrationVersion {
		if err := upgrade(tx, version); err != nil {
			tx.Rollback()
			return fmt.Errorf("upgrade from %d: %w", version, err)
		}
	}

	return tx.Commit()
}

// create builds the full fresh schema, table by table in migrationOrder.
func create(tx *sql.Tx) error {
	for _, table := range migrationOrder {
		if _, err := tx.Exec(tableDDL[table]); err != nil {
			return fmt.Errorf("creating %s: %w", table, err)
		}
		for _, idx := range tableIndexes[table] {
			if _, err := tx.Exec(idx); err != nil {
				return fmt.Errorf("indexing %s: %w", table, err)
			}
		}
	}
	_, err := tx.Exec(
		`INSERT INTO metadata (id, db_uuid, integrity_hash, migration_version) VALUES (0, ?, '', ?)`,
		newDBUUID(), CurrentMigrationVersion,
	)
	return err
}

// upgrade advances the schema from an older version to
// CurrentMigrationVersion, table by table in migrationOrder. There is
// currently only one schema generation, so upgrade only needs to bring
// migration_version forward.
func upgrade(tx *sql.Tx, from int) error {
	for _, table := range migrationOrder {
		if _, err := tx.Exec(tableDDL[table]); err != nil {
			return fmt.Errorf("ensuring %s exists: %w", table, err)
		}
	}
	_, err := tx.Exec(`UPDATE metadata SET migration_version = ? WHERE id = 0`, CurrentMigrationVersion)
	return err
}

// downgrade drops every table. It exists for testing only.
func downgrade(tx *sql.Tx) error {
	for i := len(migrationOrder) - 1; i >= 0; i-- {
		table := migrationOrder[i]
		if _, err := tx.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table)); err != nil {
			return fmt.Errorf("dropping %s: %w", table, err)
		}
	}
	return nil
}

// Downgrade runs downgrade inside its own transaction. It exists to
// support test teardown of a store's schema.
func (s *Store) Downgrade() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin downgrade tx: %w", err)
	}
	if err := downgrade(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func readMigrationVersion(db *sql.DB) (int, error) {
	var exists int
	err := db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='metadata'`).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if exists == 0 {
		return 0, nil
	}
	var version int
	err = db.QueryRow(`SELECT migration_version FROM metadata WHERE id = 0`).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return version, err
}

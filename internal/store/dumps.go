package store

import (
	"database/sql"
	"time"
)

// Dump is one ingested source file. A re-ingest of the same
// bytes (same content_hash) updates last_seen only.
type Dump struct {
	ID           int64
	FileName     string
	BreachDate   sql.NullString
	BreachTarget sql.NullString
	ContentHash  string
	CreatedAt    time.Time
	LastSeen     time.Time
}

// UpsertDump inserts fileName/contentHash or, on conflict by
// content_hash, advances last_seen only. Returns the row's id and whether
// it was a fresh insert.
func (s *Store) UpsertDump(fileName, breachDate, breachTarget, contentHash string, now time.Time) (id int64, fresh bool, err error) {
	ts := now.UTC().Format(time.RFC3339Nano)
	err = s.WithWriteTx(func(tx *sql.Tx) error {
		var existingID int64
		scanErr := tx.QueryRow(`SELECT id FROM dumps WHERE content_hash = ?`, contentHash).Scan(&existingID)
		switch scanErr {
		case sql.ErrNoRows:
			res, execErr := tx.Exec(
				`INSERT INTO dumps (file_name, breach_date, breach_target, content_hash, created_at, last_seen)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				fileName, nullableString(breachDate), nullableString(breachTarget), contentHash, ts, ts,
			)
			if execErr != nil {
				return execErr
			}
			id, err = res.LastInsertId()
			fresh = true
			return err
		case nil:
			id = existingID
			_, execErr := tx.Exec(`UPDATE dumps SET last_seen = ? WHERE id = ?`, ts, existingID)
			return execErr
		default:
			return scanErr
		}
	})
	return id, fresh, err
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// ListDumps returns every dump row, ordered by id, for Import/Export use.
func (s *Store) ListDumps() ([]Dump, error) {
	rows, err := s.db.Query(`SELECT id, file_name, breach_date, breach_target, content_hash, created_at, last_seen FROM dumps ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Dump
	for rows.Next() {
		var d Dump
		var createdAt, lastSeen string
		if err := rows.Scan(&d.ID, &d.FileName, &d.BreachDate, &d.BreachTarget, &d.ContentHash, &createdAt, &lastSeen); err != nil {
			return nil, err
		}
		d.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		d.LastSeen, _ = time.Parse(time.RFC3339Nano, lastSeen)
		out = append(out, d)
	}
	return out, rows.Err()
}

// ClearDumps deletes every row in the dumps table. Used by Export when
// producing an archival copy.
func (s *Store) ClearDumps() error {
	return s.WithWriteTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM dumps`)
		return err
	})
}

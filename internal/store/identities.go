package store

import (
	"database/sql"
	"time"
)

// Identity is a canonical user-identifier hash. Identity values are never
// stored in plaintext, only their canonicalized SHA-256.
type Identity struct {
	ID        int64
	Hash      string
	CreatedAt time.Time
	LastSeen  time.Time
}

// upsertIdentity inserts hash or, if it already exists, advances
// last_seen only (write semantics). Returns the row's id.
func upsertIdentity(tx *sql.Tx, hash string, now time.Time) (int64, error) {
	ts := now.UTC().Format(time.RFC3339Nano)
	_, err := tx.Exec(
		`INSERT INTO identities (hash, created_at, last_seen) VALUES (?, ?, ?)
		 ON CONFLICT(hash) DO UPDATE SET last_seen = excluded.last_seen`,
		hash, ts, ts,
	)
	if err != nil {
		return 0, err
	}
	var id int64
	err = tx.QueryRow(`SELECT id FROM identities WHERE hash = ?`, hash).Scan(&id)
	return id, err
}

// WriteIdentities bulk-inserts hashes in one transaction, returning each
// hash's resolved identity id in order.
func (s *Store) WriteIdentities(hashes []string, now time.Time) ([]int64, error) {
	ids := make([]int64, len(hashes))
	err := s.WithWriteTx(func(tx *sql.Tx) error {
		for i, h := range hashes {
			id, err := upsertIdentity(tx, h, now)
			if err != nil {
				return err
			}
			ids[i] = id
		}
		return nil
	})
	return ids, err
}

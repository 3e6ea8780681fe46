package store

import (
	"database/sql"
	"time"
)

// NPIEntry is a classified PII/NPI observation. Inserting a
// row is only valid when the detector that produced it achieved
// confidence >= 0.8 on at least one observation;
// the Detection Engine enforces this before calling WriteNPIEntries.
type NPIEntry struct {
	ID        int64
	NPIType   string
	ValueHash string
	CreatedAt time.Time
	LastSeen  time.Time
}

func upsertNPIEntry(tx *sql.Tx, npiType, valueHash string, now time.Time) error {
	ts := now.UTC().Format(time.RFC3339Nano)
	_, err := tx.Exec(
		`INSERT INTO npi (npi_type, value_hash, created_at, last_seen) VALUES (?, ?, ?, ?)
		 ON CONFLICT(npi_type, value_hash) DO UPDATE SET last_seen = excluded.last_seen`,
		npiType, valueHash, ts, ts,
	)
	return err
}

// NPIObservation pairs a classified type with its value hash, for bulk
// insertion.
type NPIObservation struct {
	NPIType   string
	ValueHash string
}

// WriteNPIEntries bulk-inserts observations in one transaction
// mirroring the write_all convention used across the other tables.
func (s *Store) WriteNPIEntries(observations []NPIObservation, now time.Time) error {
	return s.WithWriteTx(func(tx *sql.Tx) error {
		for _, obs := range observations {
			if err := upsertNPIEntry(tx, obs.NPIType, obs.ValueHash, now); err != nil {
				return err
			}
		}
		return nil
	})
}

package store

import (
	"database/sql"
	"time"
)

// Credential is a fingerprinted credential value observed for an
// identity. Deleting an identity cascades to its credentials.
type Credential struct {
	ID             int64
	IdentityRef    int64
	CredentialHash string
	CreatedAt      time.Time
	LastSeen       time.Time
}

func upsertCredential(tx *sql.Tx, identityRef int64, credentialHash string, now time.Time) error {
	ts := now.UTC().Format(time.RFC3339Nano)
	_, err := tx.Exec(
		`INSERT INTO credentials (identity_ref, credential_hash, created_at, last_seen) VALUES (?, ?, ?, ?)
		 ON CONFLICT(identity_ref, credential_hash) DO UPDATE SET last_seen = excluded.last_seen`,
		identityRef, credentialHash, ts, ts,
	)
	return err
}

// CredentialObservation pairs an identity id with an observed credential
// fingerprint, for bulk insertion.
type CredentialObservation struct {
	IdentityRef    int64
	CredentialHash string
}

// WriteCredentials bulk-inserts observations in one transaction
// mirroring the write_all convention used across the other tables.
func (s *Store) WriteCredentials(observations []CredentialObservation, now time.Time) error {
	return s.WithWriteTx(func(tx *sql.Tx) error {
		for _, obs := range observations {
			if err := upsertCredential(tx, obs.IdentityRef, obs.CredentialHash, now); err != nil {
				return err
			}
		}
		return nil
	})
}

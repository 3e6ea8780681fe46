package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/corpusvault/corpusvault/internal/rainbow"
)

// Export checkpoints the WAL, closes the pool, byte-copies the file to
// dest, reopens both the source and the copy, assigns the copy a fresh
// db_uuid, clears its dumps table, and re-signs it. The original store at
// s.Path() is left untouched and still open-able; callers must Close s
// themselves if they are done with it; Export only closes the pool
// transiently to get a consistent copy.
func (s *Store) Export(dest string) (*Store, error) {
	if _, err := s.db.Exec(`PRAGMA wal_checkpoint(FULL)`); err != nil {
		return nil, fmt.Errorf("store: checkpointing wal for export: %w", err)
	}
	if err := s.db.Close(); err != nil {
		return nil, fmt.Errorf("store: closing pool for export: %w", err)
	}

	if err := copyFile(s.path, dest); err != nil {
		return nil, fmt.Errorf("store: copying to %s: %w", dest, err)
	}

	reopened, err := Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("store: reopening source after export: %w", err)
	}
	s.db = reopened.db

	exported, err := Open(dest)
	if err != nil {
		return nil, fmt.Errorf("store: opening exported copy: %w", err)
	}

	if err := exported.WithWriteTx(func(tx *sql.Tx) error {
		if err := overwriteDBUUID(tx, newDBUUID()); err != nil {
			return err
		}
		_, err := tx.Exec(`DELETE FROM dumps`)
		return err
	}); err != nil {
		exported.Close()
		return nil, fmt.Errorf("store: finalizing exported copy: %w", err)
	}

	return exported, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Import pulls rows from src in dependency order (dumps, identities,
// credentials with remapped identity ids, npi, rainbow, seed) and writes
// them into s via the ordinary write_all APIs. A mapping
// from src identity id -> s identity id is built because local ids are
// assigned on insert and may not match the source's.
func (s *Store) Import(src *Store, now time.Time) error {
	dumps, err := src.ListDumps()
	if err != nil {
		return fmt.Errorf("listing source dumps: %w", err)
	}
	for _, d := range dumps {
		if _, _, err := s.UpsertDump(d.FileName, d.BreachDate.String, d.BreachTarget.String, d.ContentHash, now); err != nil {
			return fmt.Errorf("importing dump %s: %w", d.FileName, err)
		}
	}

	srcIdentities, err := listIdentities(src.db)
	if err != nil {
		return fmt.Errorf("listing source identities: %w", err)
	}
	idRemap := make(map[int64]int64, len(srcIdentities))
	hashes := make([]string, len(srcIdentities))
	for i, ident := range srcIdentities {
		hashes[i] = ident.Hash
	}
	localIDs, err := s.WriteIdentities(hashes, now)
	if err != nil {
		return fmt.Errorf("importing identities: %w", err)
	}
	for i, ident := range srcIdentities {
		idRemap[ident.ID] = localIDs[i]
	}

	srcCredentials, err := listCredentials(src.db)
	if err != nil {
		return fmt.Errorf("listing source credentials: %w", err)
	}
	observations := make([]CredentialObservation, 0, len(srcCredentials))
	for _, c := range srcCredentials {
		localRef, ok := idRemap[c.IdentityRef]
		if !ok {
			continue
		}
		observations = append(observations, CredentialObservation{IdentityRef: localRef, CredentialHash: c.CredentialHash})
	}
	if err := s.WriteCredentials(observations, now); err != nil {
		return fmt.Errorf("importing credentials: %w", err)
	}

	srcNPI, err := listNPIEntries(src.db)
	if err != nil {
		return fmt.Errorf("listing source npi entries: %w", err)
	}
	npiObs := make([]NPIObservation, len(srcNPI))
	for i, n := range srcNPI {
		npiObs[i] = NPIObservation{NPIType: n.NPIType, ValueHash: n.ValueHash}
	}
	if err := s.WriteNPIEntries(npiObs, now); err != nil {
		return fmt.Errorf("importing npi entries: %w", err)
	}

	rainbowAdapter := NewRainbowAdapter(s)
	srcRainbow, err := listRainbowEntries(src.db)
	if err != nil {
		return fmt.Errorf("listing source rainbow entries: %w", err)
	}
	if err := rainbowAdapter.InsertEntries(context.Background(), srcRainbow); err != nil {
		return fmt.Errorf("importing rainbow entries: %w", err)
	}

	srcSeeds, err := listSeeds(src.db)
	if err != nil {
		return fmt.Errorf("listing source seeds: %w", err)
	}
	for name, sig := range srcSeeds {
		if err := rainbowAdapter.RecordSeed(context.Background(), name, sig); err != nil {
			return fmt.Errorf("importing seed %s: %w", name, err)
		}
	}

	return nil
}

func listIdentities(db *sql.DB) ([]Identity, error) {
	rows, err := db.Query(`SELECT id, hash, created_at, last_seen FROM identities ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Identity
	for rows.Next() {
		var ident Identity
		var createdAt, lastSeen string
		if err := rows.Scan(&ident.ID, &ident.Hash, &createdAt, &lastSeen); err != nil {
			return nil, err
		}
		ident.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		ident.LastSeen, _ = time.Parse(time.RFC3339Nano, lastSeen)
		out = append(out, ident)
	}
	return out, rows.Err()
}

func listCredentials(db *sql.DB) ([]Credential, error) {
	rows, err := db.Query(`SELECT id, identity_ref, credential_hash, created_at, last_seen FROM credentials ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Credential
	for rows.Next() {
		var c Credential
		var createdAt, lastSeen string
		if err := rows.Scan(&c.ID, &c.IdentityRef, &c.CredentialHash, &createdAt, &lastSeen); err != nil {
			return nil, err
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		c.LastSeen, _ = time.Parse(time.RFC3339Nano, lastSeen)
		out = append(out, c)
	}
	return out, rows.Err()
}

func listNPIEntries(db *sql.DB) ([]NPIEntry, error) {
	rows, err := db.Query(`SELECT id, npi_type, value_hash, created_at, last_seen FROM npi ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []NPIEntry
	for rows.Next() {
		var n NPIEntry
		var createdAt, lastSeen string
		if err := rows.Scan(&n.ID, &n.NPIType, &n.ValueHash, &createdAt, &lastSeen); err != nil {
			return nil, err
		}
		n.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		n.LastSeen, _ = time.Parse(time.RFC3339Nano, lastSeen)
		out = append(out, n)
	}
	return out, rows.Err()
}

func listRainbowEntries(db *sql.DB) ([]rainbow.Entry, error) {
	rows, err := db.Query(`SELECT hash_algo, hash_value FROM rainbow ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rainbow.Entry
	for rows.Next() {
		var e rainbow.Entry
		var algo string
		if err := rows.Scan(&algo, &e.Hash); err != nil {
			return nil, err
		}
		e.Algo = rainbow.HashAlgo(algo)
		out = append(out, e)
	}
	return out, rows.Err()
}

func listSeeds(db *sql.DB) (map[string]string, error) {
	rows, err := db.Query(`SELECT file_name, signature FROM seed`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var name, sig string
		if err := rows.Scan(&name, &sig); err != nil {
			return nil, err
		}
		out[name] = sig
	}
	return out, rows.Err()
}

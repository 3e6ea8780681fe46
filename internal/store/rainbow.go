package store

import (
	"context"
	"database/sql"

	"github.com/corpusvault/corpusvault/internal/rainbow"
)

// RainbowAdapter wraps a Store to satisfy rainbow.Store, keeping the
// rainbow package free of a direct dependency on database/sql.
type RainbowAdapter struct {
	store *Store
}

// NewRainbowAdapter returns a rainbow.Store backed by s's rainbow/seed tables.
func NewRainbowAdapter(s *Store) *RainbowAdapter {
	return &RainbowAdapter{store: s}
}

func (a *RainbowAdapter) InsertEntries(ctx context.Context, entries []rainbow.Entry) error {
	return a.store.WithWriteTx(func(tx *sql.Tx) error {
		for _, e := range entries {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO rainbow (hash_algo, hash_value) VALUES (?, ?)
				 ON CONFLICT(hash_algo, hash_value) DO NOTHING`,
				string(e.Algo), e.Hash,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (a *RainbowAdapter) IsWeak(ctx context.Context, hash string) (bool, error) {
	var count int
	err := a.store.db.QueryRowContext(ctx, `SELECT count(*) FROM rainbow WHERE hash_value = ?`, hash).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (a *RainbowAdapter) SeedSignature(ctx context.Context, fileName string) (string, bool, error) {
	var sig string
	err := a.store.db.QueryRowContext(ctx, `SELECT signature FROM seed WHERE file_name = ?`, fileName).Scan(&sig)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return sig, true, nil
}

func (a *RainbowAdapter) RecordSeed(ctx context.Context, fileName, signature string) error {
	return a.store.WithWriteTx(func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO seed (file_name, signature) VALUES (?, ?)
			 ON CONFLICT(signature) DO UPDATE SET file_name = excluded.file_name`,
			fileName, signature,
		)
		return err
	})
}

func (a *RainbowAdapter) RemoveSeed(ctx context.Context, fileName string) error {
	return a.store.WithWriteTx(func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM seed WHERE file_name = ?`, fileName)
		return err
	})
}

func (a *RainbowAdapter) ListSeeds(ctx context.Context) (map[string]string, error) {
	rows, err := a.store.db.QueryContext(ctx, `SELECT file_name, signature FROM seed`)
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

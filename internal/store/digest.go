package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
)

// digestColumns lists, per table in migrationOrder, the exact columns
// folded into the store's integrity digest, in a fixed order.
// metadata.integrity_hash is deliberately left out of the metadata row:
// the digest is written into that column, so hashing it would mean no
// digest computed before the write could ever match the digest computed
// after it, and every honest reopen would read back as corrupted.
var digestColumns = map[string]string{
	"credentials": `SELECT identity_ref, credential_hash, created_at, last_seen FROM credentials ORDER BY id`,
	"dumps":       `SELECT file_name, breach_date, breach_target, content_hash, created_at, last_seen FROM dumps ORDER BY id`,
	"identities":  `SELECT hash, created_at, last_seen FROM identities ORDER BY id`,
	"metadata":    `SELECT db_uuid, migration_version FROM metadata ORDER BY id`,
	"npi":         `SELECT npi_type, value_hash, created_at, last_seen FROM npi ORDER BY id`,
	"rainbow":     `SELECT hash_algo, hash_value FROM rainbow ORDER BY id`,
	"seed":        `SELECT file_name, signature FROM seed ORDER BY id`,
}

// canonicalDigest computes the SHA-256 of a deterministic serialization of
// every table's rows, table by table in migrationOrder, row by row in
// primary-key order. Unlike hashing the raw database file, this digest is
// stable across WAL checkpoints, page rewrites, and VACUUMs, and it never
// depends on the value of the column it is itself about to be written
// into (see digestColumns above).
func canonicalDigest(db *sql.DB) (string, error) {
	h := sha256.New()
	for _, table := range migrationOrder {
		fmt.Fprintf(h, "\x02%s\x02", table)
		if err := hashTableRows(h, db, digestColumns[table]); err != nil {
			return "", fmt.Errorf("hashing %s: %w", table, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashTableRows(h io.Writer, db *sql.DB, query string) error {
	rows, err := db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	vals := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		for _, v := range vals {
			writeDigestValue(h, v)
		}
		h.Write([]byte{0x01})
	}
	return rows.Err()
}

func writeDigestValue(h io.Writer, v interface{}) {
	switch x := v.(type) {
	case nil:
	case []byte:
		h.Write(x)
	case string:
		h.Write([]byte(x))
	default:
		fmt.Fprintf(h, "%v", x)
	}
	h.Write([]byte{0x00})
}

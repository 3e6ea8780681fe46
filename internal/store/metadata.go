package store

import "database/sql"

// Metadata is the singleton row describing this store file.
type Metadata struct {
	DBUUID           string
	IntegrityHash    string
	MigrationVersion int
}

func readMetadata(db *sql.DB) (Metadata, bool, error) {
	var m Metadata
	err := db.QueryRow(`SELECT db_uuid, integrity_hash, migration_version FROM metadata WHERE id = 0`).
		Scan(&m.DBUUID, &m.IntegrityHash, &m.MigrationVersion)
	if err == sql.ErrNoRows {
		return Metadata{}, false, nil
	}
	if err != nil {
		return Metadata{}, false, err
	}
	return m, true, nil
}

// ReadMetadata returns the store's singleton Metadata row.
func (s *Store) ReadMetadata() (Metadata, error) {
	m, _, err := readMetadata(s.db)
	return m, err
}

func writeMetadataIntegrityHash(tx *sql.Tx, digest string) error {
	_, err := tx.Exec(`UPDATE metadata SET integrity_hash = ? WHERE id = 0`, digest)
	return err
}

// overwriteDBUUID assigns a fresh db_uuid, used by Export.
func overwriteDBUUID(tx *sql.Tx, uuid string) error {
	_, err := tx.Exec(`UPDATE metadata SET db_uuid = ? WHERE id = 0`, uuid)
	return err
}

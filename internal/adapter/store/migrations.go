package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"
)

// CurrentSchemaVersion is the current schema version of the bolt log store.
// Increment this when making breaking changes to the storage format.
//
// v1 stored records in the logs bucket only. v2 adds the logids index.
const CurrentSchemaVersion = 2

var keySchemaVersion = []byte("schema_version")

// SchemaVersion returns the stored schema version, 0 for a fresh database.
func (s *BoltLogStore) SchemaVersion() (int, error) {
	var version int
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keySchemaVersion)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &version)
	})
	return version, err
}

func (s *BoltLogStore) setSchemaVersion(tx *bbolt.Tx, version int) error {
	data, err := json.Marshal(version)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketMeta).Put(keySchemaVersion, data)
}

// Migrate upgrades the database to CurrentSchemaVersion. A database written
// by a newer version is refused.
func (s *BoltLogStore) Migrate() error {
	version, err := s.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > CurrentSchemaVersion {
		return fmt.Errorf("log store created by newer version (v%d > v%d)", version, CurrentSchemaVersion)
	}

	for v := version; v < CurrentSchemaVersion; v++ {
		err := s.db.Update(func(tx *bbolt.Tx) error {
			if err := runMigration(tx, v, v+1); err != nil {
				return err
			}
			return s.setSchemaVersion(tx, v+1)
		})
		if err != nil {
			return fmt.Errorf("migration from v%d to v%d failed: %w", v, v+1, err)
		}
	}
	return nil
}

func runMigration(tx *bbolt.Tx, from, to int) error {
	switch {
	case from == 0 && to == 1:
		return nil
	case from == 1 && to == 2:
		// rebuild the per-logid index from existing records
		if err := tx.DeleteBucket(bucketLogIDs); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		return tx.Bucket(bucketLogs).ForEach(func(k, v []byte) error {
			rec, err := decodeRecord(k, v)
			if err != nil {
				return err
			}
			return indexLogID(tx, rec.LogID, k)
		})
	default:
		return nil
	}
}

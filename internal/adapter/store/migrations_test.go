package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func TestBoltMigrate_FreshDatabaseAtCurrentVersion(t *testing.T) {
	s, err := NewBoltLogStore(filepath.Join(t.TempDir(), "logs.db"))
	require.NoError(t, err)
	defer s.Close()

	v, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v)
}

func TestBoltMigrate_RebuildsLogIDIndexFromV1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.db")

	// lay down a v1 database: records only, no logids index
	db, err := bbolt.Open(path, 0600, nil)
	require.NoError(t, err)
	err = db.Update(func(tx *bbolt.Tx) error {
		logs, err := tx.CreateBucketIfNotExists(bucketLogs)
		if err != nil {
			return err
		}
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		for _, id := range []string{"a", "b", "a"} {
			seq, _ := logs.NextSequence()
			data, _ := json.Marshal(storedRecord{LogID: id, Question: "q", Answer: "a", Date: base})
			if err := logs.Put(itob(seq), data); err != nil {
				return err
			}
		}
		return meta.Put(keySchemaVersion, []byte("1"))
	})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := NewBoltLogStore(path)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	ids, err := s.ListIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	recs, err := s.ListByID(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, uint64(1), recs[0].ID)
	assert.Equal(t, uint64(3), recs[1].ID)
}

func TestBoltMigrate_RefusesNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.db")

	db, err := bbolt.Open(path, 0600, nil)
	require.NoError(t, err)
	err = db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketLogs); err != nil {
			return err
		}
		return meta.Put(keySchemaVersion, []byte("99"))
	})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = NewBoltLogStore(path)
	assert.ErrorContains(t, err, "newer version")
}

func TestSQLiteMigrate_RecordsAppliedVersions(t *testing.T) {
	s, err := NewSQLiteLogStore(filepath.Join(t.TempDir(), "logs.sqlite"))
	require.NoError(t, err)
	defer s.Close()

	var version int
	require.NoError(t, s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 2, version)
}

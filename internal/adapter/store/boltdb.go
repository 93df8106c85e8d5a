package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"qalog/internal/domain"
	"qalog/internal/port"
)

var _ port.LogStore = (*BoltLogStore)(nil)

var (
	bucketLogs   = []byte("logs")
	bucketLogIDs = []byte("logids")
	bucketMeta   = []byte("meta")
)

// BoltLogStore keeps log records in a single bbolt file. Records live in the
// logs bucket under their big-endian sequence number. The logids bucket holds
// one nested bucket per log id listing that id's sequence numbers, so reads
// by id walk the nested bucket in insertion order.
type BoltLogStore struct {
	db *bbolt.DB
}

type storedRecord struct {
	LogID    string    `json:"logid"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Date     time.Time `json:"date"`
}

func NewBoltLogStore(path string) (*BoltLogStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketLogs, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &BoltLogStore{db: db}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *BoltLogStore) Get(ctx context.Context, logID string) (domain.LogRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.LogRecord{}, err
	}

	var rec domain.LogRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		ids := logIDBucket(tx, logID)
		if ids == nil {
			return fmt.Errorf("log %q: %w", logID, domain.ErrNotFound)
		}
		key, _ := ids.Cursor().Last()
		if key == nil {
			return fmt.Errorf("log %q: %w", logID, domain.ErrNotFound)
		}

		var err error
		rec, err = readRecord(tx.Bucket(bucketLogs), key)
		return err
	})
	return rec, err
}

func (s *BoltLogStore) List(ctx context.Context) ([]domain.LogRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := []domain.LogRecord{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketLogs).ForEach(func(k, v []byte) error {
			rec, err := decodeRecord(k, v)
			if err != nil {
				return err
			}
			records = append(records, rec)
			return nil
		})
	})
	return records, err
}

func (s *BoltLogStore) ListIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ids []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketLogIDs)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			// nested buckets have nil values
			if v == nil {
				ids = append(ids, string(k))
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("log ids: %w", domain.ErrNotFound)
	}
	return ids, nil
}

func (s *BoltLogStore) ListByID(ctx context.Context, logID string) ([]domain.LogRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := []domain.LogRecord{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		ids := logIDBucket(tx, logID)
		if ids == nil {
			return nil
		}
		logs := tx.Bucket(bucketLogs)
		return ids.ForEach(func(k, _ []byte) error {
			rec, err := readRecord(logs, k)
			if err != nil {
				return err
			}
			records = append(records, rec)
			return nil
		})
	})
	return records, err
}

func (s *BoltLogStore) Append(ctx context.Context, rec domain.LogRecord) (domain.LogRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.LogRecord{}, err
	}
	if err := requireLogID(rec); err != nil {
		return domain.LogRecord{}, err
	}

	data, err := json.Marshal(storedRecord{
		LogID:    rec.LogID,
		Question: rec.Question,
		Answer:   rec.Answer,
		Date:     rec.Date.UTC(),
	})
	if err != nil {
		return domain.LogRecord{}, err
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		logs := tx.Bucket(bucketLogs)
		seq, err := logs.NextSequence()
		if err != nil {
			return err
		}
		key := itob(seq)
		if err := logs.Put(key, data); err != nil {
			return err
		}
		if err := indexLogID(tx, rec.LogID, key); err != nil {
			return err
		}
		rec.ID = seq
		return nil
	})
	if err != nil {
		return domain.LogRecord{}, fmt.Errorf("failed to append log: %w", err)
	}
	rec.Date = rec.Date.UTC()
	return rec, nil
}

func (s *BoltLogStore) Close() error {
	return s.db.Close()
}

func logIDBucket(tx *bbolt.Tx, logID string) *bbolt.Bucket {
	root := tx.Bucket(bucketLogIDs)
	if root == nil || logID == "" {
		return nil
	}
	return root.Bucket([]byte(logID))
}

func indexLogID(tx *bbolt.Tx, logID string, key []byte) error {
	root, err := tx.CreateBucketIfNotExists(bucketLogIDs)
	if err != nil {
		return err
	}
	ids, err := root.CreateBucketIfNotExists([]byte(logID))
	if err != nil {
		return err
	}
	return ids.Put(key, nil)
}

func readRecord(logs *bbolt.Bucket, key []byte) (domain.LogRecord, error) {
	data := logs.Get(key)
	if data == nil {
		return domain.LogRecord{}, fmt.Errorf("log record %d missing from logs bucket", binary.BigEndian.Uint64(key))
	}
	return decodeRecord(key, data)
}

func decodeRecord(key, data []byte) (domain.LogRecord, error) {
	var stored storedRecord
	if err := json.Unmarshal(data, &stored); err != nil {
		return domain.LogRecord{}, fmt.Errorf("corrupt log record %x: %w", key, err)
	}
	return domain.LogRecord{
		ID:       binary.BigEndian.Uint64(key),
		LogID:    stored.LogID,
		Question: stored.Question,
		Answer:   stored.Answer,
		Date:     stored.Date,
	}, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

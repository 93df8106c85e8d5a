package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qalog/internal/domain"
	"qalog/internal/port"
)

type openFunc func(t *testing.T, path string) port.LogStore

var backends = map[string]struct {
	file string
	open openFunc
}{
	DriverBolt: {"logs.db", func(t *testing.T, path string) port.LogStore {
		s, err := NewBoltLogStore(path)
		require.NoError(t, err)
		return s
	}},
	DriverSQLite: {"logs.sqlite", func(t *testing.T, path string) port.LogStore {
		s, err := NewSQLiteLogStore(path)
		require.NoError(t, err)
		return s
	}},
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s port.LogStore)) {
	for name, b := range backends {
		t.Run(name, func(t *testing.T) {
			s := b.open(t, filepath.Join(t.TempDir(), b.file))
			t.Cleanup(func() { assert.NoError(t, s.Close()) })
			fn(t, s)
		})
	}
}

func record(t *testing.T, logID, question, answer string, date time.Time) domain.LogRecord {
	t.Helper()
	rec, err := domain.NewLogRecord(logID, question, answer, date)
	require.NoError(t, err)
	return rec
}

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestLogStore_EmptyStore(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s port.LogStore) {
		ctx := context.Background()

		all, err := s.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, all)
		assert.Empty(t, all)

		_, err = s.ListIDs(ctx)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = s.Get(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		byID, err := s.ListByID(ctx, "nope")
		require.NoError(t, err)
		assert.NotNil(t, byID)
		assert.Empty(t, byID)
	})
}

func TestLogStore_AppendAssignsIncreasingIDs(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s port.LogStore) {
		ctx := context.Background()

		first, err := s.Append(ctx, record(t, "a", "q1", "ans1", base))
		require.NoError(t, err)
		second, err := s.Append(ctx, record(t, "b", "q2", "ans2", base.Add(time.Second)))
		require.NoError(t, err)

		assert.NotZero(t, first.ID)
		assert.Greater(t, second.ID, first.ID)
	})
}

func TestLogStore_AppendRejectsEmptyLogID(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s port.LogStore) {
		ctx := context.Background()

		_, err := s.Append(ctx, domain.LogRecord{Question: "q", Answer: "a", Date: base})
		assert.ErrorIs(t, err, domain.ErrValidation)

		all, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func TestLogStore_DuplicateAppendsKeepBothRecords(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s port.LogStore) {
		ctx := context.Background()

		rec := record(t, "dup", "same question", "same answer", base)
		first, err := s.Append(ctx, rec)
		require.NoError(t, err)
		second, err := s.Append(ctx, rec)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)

		byID, err := s.ListByID(ctx, "dup")
		require.NoError(t, err)
		assert.Len(t, byID, 2)

		all, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestLogStore_GetReturnsMostRecent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s port.LogStore) {
		ctx := context.Background()

		_, err := s.Append(ctx, record(t, "x1", "first", "one", base))
		require.NoError(t, err)
		_, err = s.Append(ctx, record(t, "y", "other", "two", base.Add(time.Minute)))
		require.NoError(t, err)
		last, err := s.Append(ctx, record(t, "x1", "second", "three", base.Add(2*time.Minute)))
		require.NoError(t, err)

		got, err := s.Get(ctx, "x1")
		require.NoError(t, err)
		assert.Equal(t, last.ID, got.ID)
		assert.Equal(t, "second", got.Question)
		assert.Equal(t, "three", got.Answer)
		assert.True(t, got.Date.Equal(base.Add(2*time.Minute)))
	})
}

func TestLogStore_ListPreservesInsertionOrder(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s port.LogStore) {
		ctx := context.Background()

		for i, id := range []string{"c", "a", "c", "b", "c"} {
			_, err := s.Append(ctx, record(t, id, "q", "a", base.Add(time.Duration(i)*time.Second)))
			require.NoError(t, err)
		}

		all, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 5)
		var gotIDs []string
		for i, rec := range all {
			gotIDs = append(gotIDs, rec.LogID)
			if i > 0 {
				assert.Greater(t, rec.ID, all[i-1].ID)
			}
		}
		assert.Equal(t, []string{"c", "a", "c", "b", "c"}, gotIDs)

		byID, err := s.ListByID(ctx, "c")
		require.NoError(t, err)
		require.Len(t, byID, 3)
		assert.True(t, byID[0].Date.Before(byID[1].Date))
		assert.True(t, byID[1].Date.Before(byID[2].Date))

		ids, err := s.ListIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, ids)
	})
}

func TestLogStore_RoundTripsUnicodeAndLimits(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s port.LogStore) {
		ctx := context.Background()

		question := "¿Qué es X? 日本語"
		rec := record(t, "éé", question, "réponse", base.Add(123*time.Millisecond))
		_, err := s.Append(ctx, rec)
		require.NoError(t, err)

		got, err := s.Get(ctx, "éé")
		require.NoError(t, err)
		assert.Equal(t, question, got.Question)
		assert.Equal(t, "réponse", got.Answer)
		assert.True(t, got.Date.Equal(rec.Date))
		assert.Equal(t, time.UTC, got.Date.Location())
	})
}

func TestLogStore_ConcurrentAppends(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s port.LogStore) {
		ctx := context.Background()

		const n = 20
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rec, err := domain.NewLogRecord("con", "q", "a", base)
				if !assert.NoError(t, err) {
					return
				}
				_, err = s.Append(ctx, rec)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		all, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, n)

		seen := make(map[uint64]bool)
		for _, rec := range all {
			assert.False(t, seen[rec.ID], "duplicate id %d", rec.ID)
			seen[rec.ID] = true
		}
	})
}

func TestLogStore_PersistsAcrossReopen(t *testing.T) {
	for name, b := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), b.file)

			s := b.open(t, path)
			_, err := s.Append(ctx, record(t, "keep", "q", "a", base))
			require.NoError(t, err)
			require.NoError(t, s.Close())

			s = b.open(t, path)
			defer s.Close()

			got, err := s.Get(ctx, "keep")
			require.NoError(t, err)
			assert.Equal(t, "q", got.Question)

			next, err := s.Append(ctx, record(t, "keep", "q2", "a2", base))
			require.NoError(t, err)
			assert.Greater(t, next.ID, got.ID)
		})
	}
}

func TestLogStore_CanceledContext(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s port.LogStore) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := s.Append(ctx, record(t, "c", "q", "a", base))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("postgres", filepath.Join(t.TempDir(), "x"))
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestOpen_SelectsBackend(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(DriverBolt, filepath.Join(dir, "a.db"))
	require.NoError(t, err)
	assert.IsType(t, &BoltLogStore{}, s)
	require.NoError(t, s.Close())

	s, err = Open(DriverSQLite, filepath.Join(dir, "b.sqlite"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteLogStore{}, s)
	require.NoError(t, s.Close())
}

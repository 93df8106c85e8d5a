package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"qalog/internal/adapter/store/migrations"
	"qalog/internal/domain"
	"qalog/internal/port"
)

var _ port.LogStore = (*SQLiteLogStore)(nil)

// SQLiteLogStore keeps log records in a SQLite table. Every operation runs on
// a connection acquired for that call and released before it returns.
type SQLiteLogStore struct {
	db *sql.DB
}

func NewSQLiteLogStore(path string) (*SQLiteLogStore, error) {
	// WAL mode lets readers proceed while an append is in flight
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteLogStore{db: db}
	if err := s.migrate(context.Background(), migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteLogStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteLogStore) withConn(ctx context.Context, fn func(*sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Close()
	return fn(conn)
}

func (s *SQLiteLogStore) Get(ctx context.Context, logID string) (domain.LogRecord, error) {
	var rec domain.LogRecord
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx, `
			SELECT id, logid, question, answer, date FROM logs
			WHERE logid = ? ORDER BY id DESC LIMIT 1
		`, logID)

		var err error
		rec, err = scanRecord(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("log %q: %w", logID, domain.ErrNotFound)
		}
		return err
	})
	return rec, err
}

func (s *SQLiteLogStore) List(ctx context.Context) ([]domain.LogRecord, error) {
	return s.queryRecords(ctx, `SELECT id, logid, question, answer, date FROM logs ORDER BY id`)
}

func (s *SQLiteLogStore) ListByID(ctx context.Context, logID string) ([]domain.LogRecord, error) {
	return s.queryRecords(ctx, `
		SELECT id, logid, question, answer, date FROM logs
		WHERE logid = ? ORDER BY id
	`, logID)
}

func (s *SQLiteLogStore) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `SELECT DISTINCT logid FROM logs ORDER BY logid`)
		if err != nil {
			return fmt.Errorf("listing log ids: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("scanning log id: %w", err)
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("log ids: %w", domain.ErrNotFound)
	}
	return ids, nil
}

func (s *SQLiteLogStore) Append(ctx context.Context, rec domain.LogRecord) (domain.LogRecord, error) {
	if err := requireLogID(rec); err != nil {
		return domain.LogRecord{}, err
	}
	rec.Date = rec.Date.UTC()
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `
			INSERT INTO logs (logid, question, answer, date) VALUES (?, ?, ?, ?)
		`, rec.LogID, rec.Question, rec.Answer, rec.Date.Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("inserting log: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading log id: %w", err)
		}
		rec.ID = uint64(id)
		return nil
	})
	if err != nil {
		return domain.LogRecord{}, err
	}
	return rec, nil
}

func (s *SQLiteLogStore) queryRecords(ctx context.Context, query string, args ...any) ([]domain.LogRecord, error) {
	records := []domain.LogRecord{}
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("querying logs: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (domain.LogRecord, error) {
	var (
		rec  domain.LogRecord
		id   int64
		date string
	)
	if err := row.Scan(&id, &rec.LogID, &rec.Question, &rec.Answer, &date); err != nil {
		return domain.LogRecord{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, date)
	if err != nil {
		return domain.LogRecord{}, fmt.Errorf("parsing date of log %d: %w", id, err)
	}
	rec.ID = uint64(id)
	rec.Date = t
	return rec, nil
}

// migrate applies every embedded NNN_name.up.sql file newer than the recorded
// version, each in its own transaction together with its version row.
func (s *SQLiteLogStore) migrate(ctx context.Context, fsys fs.FS) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.applyMigration(ctx, version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *SQLiteLogStore) applyMigration(ctx context.Context, version int, stmt string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

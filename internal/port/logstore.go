package port

import (
	"context"

	"qalog/internal/domain"
)

// LogStore persists answered questions. Records are append-only.
//
// Get and ListIDs report domain.ErrNotFound when nothing matches, while List
// and ListByID return an empty slice. The asymmetry is kept for compatibility
// with existing clients.
type LogStore interface {
	// Get returns the most recent record for logID.
	Get(ctx context.Context, logID string) (domain.LogRecord, error)

	List(ctx context.Context) ([]domain.LogRecord, error)

	// ListIDs returns the distinct log ids, sorted.
	ListIDs(ctx context.Context) ([]string, error)

	// ListByID returns the records for logID in insertion order.
	ListByID(ctx context.Context, logID string) ([]domain.LogRecord, error)

	// Append stores rec and returns it with its assigned ID.
	Append(ctx context.Context, rec domain.LogRecord) (domain.LogRecord, error)

	Close() error
}

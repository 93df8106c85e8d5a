package usecase

import (
	"context"
	"time"

	"qalog/internal/domain"
	"qalog/internal/port"
)

// LogUseCase exposes the log store to the outer surfaces.
type LogUseCase struct {
	store port.LogStore
}

func NewLogUseCase(store port.LogStore) *LogUseCase {
	return &LogUseCase{store: store}
}

func (u *LogUseCase) Get(ctx context.Context, logID string) (domain.LogRecord, error) {
	return u.store.Get(ctx, logID)
}

// List returns every record. An empty store yields an empty slice.
func (u *LogUseCase) List(ctx context.Context) ([]domain.LogRecord, error) {
	return u.store.List(ctx)
}

func (u *LogUseCase) ListIDs(ctx context.Context) ([]string, error) {
	return u.store.ListIDs(ctx)
}

func (u *LogUseCase) ListByID(ctx context.Context, logID string) ([]domain.LogRecord, error) {
	return u.store.ListByID(ctx, logID)
}

// Import stores a complete record supplied by the caller, validating every
// field first.
func (u *LogUseCase) Import(ctx context.Context, logID, question, answer string, date time.Time) (domain.LogRecord, error) {
	rec, err := domain.NewLogRecord(logID, question, answer, date)
	if err != nil {
		return domain.LogRecord{}, err
	}
	return u.store.Append(ctx, rec)
}

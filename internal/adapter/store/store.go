// Package store holds the durable log store backends.
package store

import (
	"fmt"

	"qalog/internal/domain"
	"qalog/internal/port"
)

const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
)

// Open opens the log store backend named by driver at path.
func Open(driver, path string) (port.LogStore, error) {
	switch driver {
	case DriverBolt, "":
		return NewBoltLogStore(path)
	case DriverSQLite:
		return NewSQLiteLogStore(path)
	default:
		return nil, fmt.Errorf("unknown log store driver %q: %w", driver, domain.ErrConfig)
	}
}

// requireLogID rejects records that could not be looked up again.
func requireLogID(rec domain.LogRecord) error {
	if rec.LogID == "" {
		return fmt.Errorf("%w: logid is required", domain.ErrValidation)
	}
	return nil
}

// Package storage is the durable record store for complaints.
//
// Two implementations are provided: a flat CSV file (the historical layout,
// still readable by spreadsheet tools) and a gorm-backed table for PostgreSQL
// or SQLite. Both serialize writers and make every mutation durable before
// returning.
package storage

import (
	"context"
	"errors"
	"fmt"

	"wastewatch/backend/internal/config"
	"wastewatch/backend/internal/models"
)

var (
	// ErrStore reports an unreadable, corrupt or unwritable store.
	ErrStore = errors.New("record store failure")
	// ErrSchemaMismatch reports a store whose columns are not the expected ones.
	ErrSchemaMismatch = errors.New("record store schema mismatch")
	// ErrDuplicateID reports an append with an image_id that already exists.
	ErrDuplicateID = errors.New("duplicate image_id")
	// ErrInvalidTransition reports a status change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Storage is the contract of the complaint record store.
type Storage interface {
	// Append adds one record. It is durable when Append returns nil.
	Append(ctx context.Context, rec models.ComplaintRecord) error
	// ScanAll returns every record; callers must not rely on the order.
	ScanAll(ctx context.Context) ([]models.ComplaintRecord, error)
	// UpdateStatus sets the status of the record with imageID and reports
	// whether such a record exists.
	UpdateStatus(ctx context.Context, imageID string, status models.Status) (bool, error)
	Close() error
}

// Open builds the store selected by the configuration.
func Open(cfg config.Store) (Storage, error) {
	switch cfg.Driver {
	case config.StoreCSV:
		return NewCSVStore(cfg.CSVPath)
	case config.StorePostgres:
		return OpenPostgres(cfg.DSN)
	case config.StoreSQLite:
		return OpenSQLite(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func checkTransition(imageID string, from, to models.Status) error {
	if !to.Valid() || !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, imageID, from, to)
	}
	return nil
}

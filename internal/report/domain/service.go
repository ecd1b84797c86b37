package domain

import (
	"context"
	"time"
)

// Repository executes statements against the reporting table.
type Repository interface {
	EnsureTable(ctx context.Context) error
	InsertRows(ctx context.Context, rows []ReportRow) error
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Table() string
}

// Writer is what the report job consumes.
type Writer interface {
	EnsureTable(ctx context.Context) error
	// InsertRows writes rows in one statement and returns how many were written.
	// An empty list touches nothing.
	InsertRows(ctx context.Context, rows []ReportRow) (int, error)
	// Prune removes rows whose AUDITDATE is more than one month before now.
	Prune(ctx context.Context, now time.Time) (int64, error)
}

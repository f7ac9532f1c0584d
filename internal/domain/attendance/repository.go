package attendance

import (
	"context"
	"time"
)

// AttendanceRepository stores one AttendanceRecord per (emp_code, punch_date).
type AttendanceRepository interface {
	// GetByEmployeeAndDate returns nil, nil when no record exists for the key.
	// Inside a transaction the row is locked until commit.
	GetByEmployeeAndDate(ctx context.Context, empCode string, punchDate time.Time) (*AttendanceRecord, error)

	Create(ctx context.Context, record AttendanceRecord) error

	// UpdateBounds writes punch_in, punch_out and work_duration of the record's key.
	UpdateBounds(ctx context.Context, record AttendanceRecord) error

	// LatestPunchDate returns nil when the table is empty.
	LatestPunchDate(ctx context.Context) (*time.Time, error)

	// ListComplete returns every record with both punch_in and punch_out set.
	ListComplete(ctx context.Context) ([]AttendanceRecord, error)
}

// AdjustedWorkRepository stores the derived table that is rebuilt every cycle.
type AdjustedWorkRepository interface {
	DeleteAll(ctx context.Context) error
	InsertBatch(ctx context.Context, records []AdjustedWorkRecord) error

	// ClaimUnfetched returns all rows with fetch_status 0 and flips exactly those rows to 1.
	ClaimUnfetched(ctx context.Context) ([]AdjustedWorkRecord, error)
}

// Transactor runs fn inside one database transaction. Repositories called with the
// context passed to fn take part in that transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// SyncLocker enforces at most one sync cycle against the same storage.
type SyncLocker interface {
	// TryLock returns ErrSyncInProgress when the lock is held elsewhere.
	TryLock(ctx context.Context) (unlock func(), err error)
}

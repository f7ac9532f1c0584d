package postgresql

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-sync-go/internal/pkg/database"
)

// syncLockKey identifies the sync cycle in pg_advisory_lock's key space.
const syncLockKey int64 = 0x61747473796e63 // "attsync"

type advisoryLocker struct {
	db *database.DB
}

// NewSyncLocker returns a SyncLocker backed by a session-level advisory lock, so cycles
// running in different processes against the same database exclude each other.
func NewSyncLocker(db *database.DB) attendance.SyncLocker {
	return &advisoryLocker{db: db}
}

// TryLock implements attendance.SyncLocker.
func (l *advisoryLocker) TryLock(ctx context.Context) (func(), error) {
	conn, err := l.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire connection for sync lock: %v", attendance.ErrStorage, err)
	}

	var locked bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, syncLockKey).Scan(&locked); err != nil {
		conn.Release()
		return nil, fmt.Errorf("%w: try sync lock: %v", attendance.ErrStorage, err)
	}
	if !locked {
		conn.Release()
		return nil, attendance.ErrSyncInProgress
	}

	return func() {
		// The caller's context may already be done when the cycle failed on a timeout.
		if _, err := conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, syncLockKey); err != nil {
			slog.Error("Failed to release sync lock", "error", err)
			// Dropping the session releases the lock.
			conn.Conn().Close(context.Background())
		}
		conn.Release()
	}, nil
}

// Package sqlite implements the attendance repositories on an embedded SQLite database.
// It serves single-node deployments and local development; dates are stored as
// YYYY-MM-DD text and timestamps through go-sqlite3's time encoding.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/attendance"
)

const dateLayout = "2006-01-02"

const schema = `
CREATE TABLE IF NOT EXISTS employee_transactions (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	emp_code      TEXT NOT NULL,
	emp_name      TEXT,
	location      TEXT,
	punch_date    DATE NOT NULL,
	punch_in      DATETIME,
	punch_out     DATETIME,
	work_duration REAL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (emp_code, punch_date)
);

CREATE TABLE IF NOT EXISTS employee_work_adjusted (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	emp_code          TEXT NOT NULL,
	emp_name          TEXT,
	location          TEXT,
	punch_date        DATE NOT NULL,
	adj_in_time       DATETIME,
	adj_out_time      DATETIME,
	total_work_hrs    REAL,
	attendance_status TEXT,
	fetch_status      INTEGER NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_employee_work_adjusted_fetch_status
	ON employee_work_adjusted (fetch_status);
`

// EnsureSchema creates the attendance tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize tables: %w", err)
	}
	return nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

func getQuerier(ctx context.Context, db *sql.DB) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

type transactor struct {
	db *sql.DB
}

func NewTransactor(db *sql.DB) attendance.Transactor {
	return &transactor{db: db}
}

// WithinTransaction implements attendance.Transactor.
func (t *transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback error: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type mutexLocker struct {
	mu sync.Mutex
}

// NewSyncLocker returns a process-local SyncLocker. SQLite files are not shared between
// hosts, so excluding cycles inside the process is sufficient.
func NewSyncLocker() attendance.SyncLocker {
	return &mutexLocker{}
}

// TryLock implements attendance.SyncLocker.
func (l *mutexLocker) TryLock(ctx context.Context) (func(), error) {
	if !l.mu.TryLock() {
		return nil, attendance.ErrSyncInProgress
	}
	return l.mu.Unlock, nil
}

func stringOrUnknown(s sql.NullString) string {
	if !s.Valid || s.String == "" {
		return attendance.Unknown
	}
	return s.String
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// nullTime scans DATE and DATETIME columns. go-sqlite3 only converts text to time.Time when
// the column type is declared, which RETURNING and aggregate results lack.
type nullTime struct {
	Time  time.Time
	Valid bool
}

func (n *nullTime) Scan(value any) error {
	n.Time, n.Valid = time.Time{}, false
	var s string
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		n.Time, n.Valid = v.UTC(), true
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("unsupported time value %T", value)
	}

	s = strings.TrimSuffix(s, "Z")
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			n.Time, n.Valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("unparseable time %q", s)
}

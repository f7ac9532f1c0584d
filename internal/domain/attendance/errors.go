package attendance

import "errors"

// Attendance domain errors
var (
	// ErrMalformedPunch marks a source record without an employee code or with a punch time
	// that parses in none of the accepted formats. Such records are skipped.
	ErrMalformedPunch = errors.New("malformed punch record")

	// ErrStorage wraps connection and write failures. The current batch is aborted.
	ErrStorage = errors.New("attendance storage failure")

	// ErrSourceFetch wraps failures of the remote source during a cycle.
	ErrSourceFetch = errors.New("failed to fetch from remote source")

	// ErrSyncInProgress is returned when another cycle holds the sync lock.
	ErrSyncInProgress = errors.New("a sync cycle is already running")
)

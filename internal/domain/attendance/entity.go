package attendance

import (
	"time"
)

// Unknown is stored for names and locations that cannot be resolved.
const Unknown = "Unknown"

// PunchEvent is a single clock event after parsing. It is never persisted as is.
type PunchEvent struct {
	EmpCode   string
	PunchTime time.Time
}

// EmployeeInfo is the resolved identity of an employee code for one sync cycle.
type EmployeeInfo struct {
	EmpCode  string
	Name     string
	Location string
}

// AttendanceRecord is the merged punch interval of one employee on one calendar date.
type AttendanceRecord struct {
	ID           int64
	EmpCode      string
	EmpName      string
	Location     string
	PunchDate    time.Time
	PunchIn      *time.Time
	PunchOut     *time.Time
	WorkDuration *float64
	CreatedAt    time.Time
}

// AttendanceStatus classifies a work day by its capped hours.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "P"
	StatusHalfDay AttendanceStatus = "HD"
	StatusAbsent  AttendanceStatus = "A"
)

type FetchStatus int

const (
	FetchStatusUnfetched FetchStatus = 0
	FetchStatusFetched   FetchStatus = 1
)

// AdjustedWorkRecord is the capped view of a complete AttendanceRecord.
type AdjustedWorkRecord struct {
	ID               int64
	EmpCode          string
	EmpName          string
	Location         string
	PunchDate        time.Time
	AdjInTime        time.Time
	AdjOutTime       time.Time
	TotalWorkHrs     float64
	AttendanceStatus AttendanceStatus
	FetchStatus      FetchStatus
	CreatedAt        time.Time
}

// SyncState is a state of the sync cycle state machine.
type SyncState string

const (
	StateIdle        SyncState = "IDLE"
	StateFetching    SyncState = "FETCHING"
	StateReconciling SyncState = "RECONCILING"
	StateAdjusting   SyncState = "ADJUSTING"
	StateDone        SyncState = "DONE"
	StateFailed      SyncState = "FAILED"
)

// DateOf truncates t to its calendar date, keeping t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// HoursBetween returns b - a in fractional hours.
func HoursBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours()
}

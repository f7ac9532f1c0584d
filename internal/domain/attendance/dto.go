package attendance

import "time"

// SyncReport summarises one sync cycle.
type SyncReport struct {
	RunID       string     `json:"run_id"`
	State       SyncState  `json:"state"`
	Processed   int        `json:"processed"`
	Skipped     int        `json:"skipped"`
	Created     int        `json:"created"`
	Updated     int        `json:"updated"`
	Adjusted    int        `json:"adjusted"`
	WindowStart string     `json:"window_start,omitempty"`
	WindowEnd   string     `json:"window_end,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

type AdjustedWorkResponse struct {
	ID               int64   `json:"id"`
	EmpCode          string  `json:"emp_code"`
	EmpName          string  `json:"emp_name"`
	Location         string  `json:"location"`
	PunchDate        string  `json:"punch_date"`
	AdjInTime        string  `json:"adj_in_time"`
	AdjOutTime       string  `json:"adj_out_time"`
	TotalWorkHrs     float64 `json:"total_work_hrs"`
	AttendanceStatus string  `json:"attendance_status"`
	FetchStatus      int     `json:"fetch_status"`
	CreatedAt        string  `json:"created_at"`
}

func NewAdjustedWorkResponse(r AdjustedWorkRecord) AdjustedWorkResponse {
	return AdjustedWorkResponse{
		ID:               r.ID,
		EmpCode:          r.EmpCode,
		EmpName:          r.EmpName,
		Location:         r.Location,
		PunchDate:        r.PunchDate.Format("2006-01-02"),
		AdjInTime:        r.AdjInTime.Format("2006-01-02 15:04:05"),
		AdjOutTime:       r.AdjOutTime.Format("2006-01-02 15:04:05"),
		TotalWorkHrs:     r.TotalWorkHrs,
		AttendanceStatus: string(r.AttendanceStatus),
		FetchStatus:      int(r.FetchStatus),
		CreatedAt:        r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/attendance"
)

type adjustedWorkRepository struct {
	db *sql.DB
}

func NewAdjustedWorkRepository(db *sql.DB) attendance.AdjustedWorkRepository {
	return &adjustedWorkRepository{db: db}
}

// DeleteAll implements attendance.AdjustedWorkRepository.
func (r *adjustedWorkRepository) DeleteAll(ctx context.Context) error {
	q := getQuerier(ctx, r.db)

	if _, err := q.ExecContext(ctx, `DELETE FROM employee_work_adjusted`); err != nil {
		return fmt.Errorf("%w: clear adjusted work: %v", attendance.ErrStorage, err)
	}
	return nil
}

// InsertBatch implements attendance.AdjustedWorkRepository.
func (r *adjustedWorkRepository) InsertBatch(ctx context.Context, records []attendance.AdjustedWorkRecord) error {
	if len(records) == 0 {
		return nil
	}
	q := getQuerier(ctx, r.db)

	query := `
		INSERT INTO employee_work_adjusted (
			emp_code, emp_name, location, punch_date, adj_in_time, adj_out_time,
			total_work_hrs, attendance_status, fetch_status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, rec := range records {
		if _, err := q.ExecContext(ctx, query,
			rec.EmpCode,
			rec.EmpName,
			rec.Location,
			rec.PunchDate.Format(dateLayout),
			rec.AdjInTime,
			rec.AdjOutTime,
			rec.TotalWorkHrs,
			string(rec.AttendanceStatus),
			int(rec.FetchStatus),
		); err != nil {
			return fmt.Errorf("%w: insert adjusted work batch: %v", attendance.ErrStorage, err)
		}
	}
	return nil
}

// ClaimUnfetched implements attendance.AdjustedWorkRepository.
func (r *adjustedWorkRepository) ClaimUnfetched(ctx context.Context) ([]attendance.AdjustedWorkRecord, error) {
	q := getQuerier(ctx, r.db)

	query := `
		UPDATE employee_work_adjusted
		SET fetch_status = 1
		WHERE fetch_status = 0
		RETURNING id, emp_code, emp_name, location, punch_date, adj_in_time, adj_out_time,
			total_work_hrs, attendance_status, fetch_status, created_at
	`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: claim unfetched adjusted work: %v", attendance.ErrStorage, err)
	}
	defer rows.Close()

	var records []attendance.AdjustedWorkRecord
	for rows.Next() {
		var rec attendance.AdjustedWorkRecord
		var empName, location, status sql.NullString
		var punchDate, adjIn, adjOut, createdAt nullTime
		var totalHrs sql.NullFloat64
		var fetchStatus int
		if err := rows.Scan(
			&rec.ID, &rec.EmpCode, &empName, &location, &punchDate, &adjIn, &adjOut,
			&totalHrs, &status, &fetchStatus, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan adjusted work: %v", attendance.ErrStorage, err)
		}
		rec.EmpName = stringOrUnknown(empName)
		rec.Location = stringOrUnknown(location)
		rec.PunchDate = punchDate.Time
		rec.AdjInTime = adjIn.Time
		rec.AdjOutTime = adjOut.Time
		rec.TotalWorkHrs = totalHrs.Float64
		rec.AttendanceStatus = attendance.AttendanceStatus(status.String)
		rec.FetchStatus = attendance.FetchStatus(fetchStatus)
		rec.CreatedAt = createdAt.Time
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: claim unfetched adjusted work: %v", attendance.ErrStorage, err)
	}
	return records, nil
}

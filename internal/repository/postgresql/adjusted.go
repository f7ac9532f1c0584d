package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-sync-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type adjustedWorkRepository struct {
	db *database.DB
}

func NewAdjustedWorkRepository(db *database.DB) attendance.AdjustedWorkRepository {
	return &adjustedWorkRepository{db: db}
}

// DeleteAll implements attendance.AdjustedWorkRepository.
func (r *adjustedWorkRepository) DeleteAll(ctx context.Context) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `DELETE FROM employee_work_adjusted`); err != nil {
		return fmt.Errorf("%w: clear adjusted work: %v", attendance.ErrStorage, err)
	}
	return nil
}

// InsertBatch implements attendance.AdjustedWorkRepository.
func (r *adjustedWorkRepository) InsertBatch(ctx context.Context, records []attendance.AdjustedWorkRecord) error {
	if len(records) == 0 {
		return nil
	}
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO employee_work_adjusted (
			emp_code, emp_name, location, punch_date, adj_in_time, adj_out_time,
			total_work_hrs, attendance_status, fetch_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(query,
			rec.EmpCode,
			rec.EmpName,
			rec.Location,
			rec.PunchDate,
			rec.AdjInTime,
			rec.AdjOutTime,
			rec.TotalWorkHrs,
			string(rec.AttendanceStatus),
			int(rec.FetchStatus),
		)
	}

	if err := q.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%w: insert adjusted work batch: %v", attendance.ErrStorage, err)
	}
	return nil
}

// ClaimUnfetched implements attendance.AdjustedWorkRepository.
func (r *adjustedWorkRepository) ClaimUnfetched(ctx context.Context) ([]attendance.AdjustedWorkRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE employee_work_adjusted
		SET fetch_status = 1
		WHERE fetch_status = 0
		RETURNING id, emp_code, emp_name, location, punch_date, adj_in_time, adj_out_time,
			total_work_hrs, attendance_status, fetch_status, created_at
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: claim unfetched adjusted work: %v", attendance.ErrStorage, err)
	}
	defer rows.Close()

	var records []attendance.AdjustedWorkRecord
	for rows.Next() {
		var rec attendance.AdjustedWorkRecord
		var empName, location *string
		var status string
		var fetchStatus int
		if err := rows.Scan(
			&rec.ID, &rec.EmpCode, &empName, &location, &rec.PunchDate, &rec.AdjInTime, &rec.AdjOutTime,
			&rec.TotalWorkHrs, &status, &fetchStatus, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan adjusted work: %v", attendance.ErrStorage, err)
		}
		rec.EmpName = stringOrUnknown(empName)
		rec.Location = stringOrUnknown(location)
		rec.AttendanceStatus = attendance.AttendanceStatus(status)
		rec.FetchStatus = attendance.FetchStatus(fetchStatus)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: claim unfetched adjusted work: %v", attendance.ErrStorage, err)
	}

	return records, nil
}

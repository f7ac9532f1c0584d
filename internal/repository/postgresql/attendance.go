package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-sync-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

// GetByEmployeeAndDate implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByEmployeeAndDate(ctx context.Context, empCode string, punchDate time.Time) (*attendance.AttendanceRecord, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT id, emp_code, emp_name, location, punch_date,
			   punch_in, punch_out, work_duration, created_at
		FROM employee_transactions
		WHERE emp_code = $1 AND punch_date = $2
		FOR UPDATE
	`

	var rec attendance.AttendanceRecord
	var empName, location *string
	err := q.QueryRow(ctx, query, empCode, punchDate).Scan(
		&rec.ID, &rec.EmpCode, &empName, &location, &rec.PunchDate,
		&rec.PunchIn, &rec.PunchOut, &rec.WorkDuration, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get attendance by employee and date: %v", attendance.ErrStorage, err)
	}
	rec.EmpName = stringOrUnknown(empName)
	rec.Location = stringOrUnknown(location)

	return &rec, nil
}

// Create implements attendance.AttendanceRepository.
func (a *attendanceRepository) Create(ctx context.Context, rec attendance.AttendanceRecord) error {
	q := GetQuerier(ctx, a.db)

	query := `
		INSERT INTO employee_transactions (
			emp_code, emp_name, location, punch_date, punch_in, punch_out, work_duration
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := q.Exec(ctx, query,
		rec.EmpCode,
		rec.EmpName,
		rec.Location,
		rec.PunchDate,
		rec.PunchIn,
		rec.PunchOut,
		rec.WorkDuration,
	)
	if err != nil {
		return fmt.Errorf("%w: create attendance: %v", attendance.ErrStorage, err)
	}
	return nil
}

// UpdateBounds implements attendance.AttendanceRepository.
func (a *attendanceRepository) UpdateBounds(ctx context.Context, rec attendance.AttendanceRecord) error {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE employee_transactions
		SET punch_in = $1, punch_out = $2, work_duration = $3
		WHERE emp_code = $4 AND punch_date = $5
	`

	tag, err := q.Exec(ctx, query, rec.PunchIn, rec.PunchOut, rec.WorkDuration, rec.EmpCode, rec.PunchDate)
	if err != nil {
		return fmt.Errorf("%w: update attendance bounds: %v", attendance.ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: update attendance bounds: no row for %s on %s",
			attendance.ErrStorage, rec.EmpCode, rec.PunchDate.Format("2006-01-02"))
	}
	return nil
}

// LatestPunchDate implements attendance.AttendanceRepository.
func (a *attendanceRepository) LatestPunchDate(ctx context.Context) (*time.Time, error) {
	q := GetQuerier(ctx, a.db)

	var latest *time.Time
	if err := q.QueryRow(ctx, `SELECT MAX(punch_date) FROM employee_transactions`).Scan(&latest); err != nil {
		return nil, fmt.Errorf("%w: get latest punch date: %v", attendance.ErrStorage, err)
	}
	return latest, nil
}

// ListComplete implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListComplete(ctx context.Context) ([]attendance.AttendanceRecord, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT id, emp_code, emp_name, location, punch_date,
			   punch_in, punch_out, work_duration, created_at
		FROM employee_transactions
		WHERE punch_in IS NOT NULL AND punch_out IS NOT NULL
		ORDER BY punch_date, emp_code
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: list attendance: %v", attendance.ErrStorage, err)
	}
	defer rows.Close()

	var records []attendance.AttendanceRecord
	for rows.Next() {
		var rec attendance.AttendanceRecord
		var empName, location *string
		if err := rows.Scan(
			&rec.ID, &rec.EmpCode, &empName, &location, &rec.PunchDate,
			&rec.PunchIn, &rec.PunchOut, &rec.WorkDuration, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan attendance: %v", attendance.ErrStorage, err)
		}
		rec.EmpName = stringOrUnknown(empName)
		rec.Location = stringOrUnknown(location)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list attendance: %v", attendance.ErrStorage, err)
	}

	return records, nil
}

func stringOrUnknown(s *string) string {
	if s == nil || *s == "" {
		return attendance.Unknown
	}
	return *s
}

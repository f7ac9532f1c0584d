package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/attendance"
)

type attendanceRepository struct {
	db *sql.DB
}

func NewAttendanceRepository(db *sql.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

// GetByEmployeeAndDate implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByEmployeeAndDate(ctx context.Context, empCode string, punchDate time.Time) (*attendance.AttendanceRecord, error) {
	q := getQuerier(ctx, a.db)

	query := `
		SELECT id, emp_code, emp_name, location, punch_date,
			   punch_in, punch_out, work_duration, created_at
		FROM employee_transactions
		WHERE emp_code = ? AND punch_date = ?
	`

	rec, err := scanAttendance(q.QueryRowContext(ctx, query, empCode, punchDate.Format(dateLayout)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get attendance by employee and date: %v", attendance.ErrStorage, err)
	}
	return &rec, nil
}

// Create implements attendance.AttendanceRepository.
func (a *attendanceRepository) Create(ctx context.Context, rec attendance.AttendanceRecord) error {
	q := getQuerier(ctx, a.db)

	query := `
		INSERT INTO employee_transactions (
			emp_code, emp_name, location, punch_date, punch_in, punch_out, work_duration
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		rec.EmpCode,
		rec.EmpName,
		rec.Location,
		rec.PunchDate.Format(dateLayout),
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
	q := getQuerier(ctx, a.db)

	query := `
		UPDATE employee_transactions
		SET punch_in = ?, punch_out = ?, work_duration = ?
		WHERE emp_code = ? AND punch_date = ?
	`

	res, err := q.ExecContext(ctx, query, rec.PunchIn, rec.PunchOut, rec.WorkDuration, rec.EmpCode, rec.PunchDate.Format(dateLayout))
	if err != nil {
		return fmt.Errorf("%w: update attendance bounds: %v", attendance.ErrStorage, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: update attendance bounds: no row for %s on %s",
			attendance.ErrStorage, rec.EmpCode, rec.PunchDate.Format(dateLayout))
	}
	return nil
}

// LatestPunchDate implements attendance.AttendanceRepository.
func (a *attendanceRepository) LatestPunchDate(ctx context.Context) (*time.Time, error) {
	q := getQuerier(ctx, a.db)

	var latest nullTime
	if err := q.QueryRowContext(ctx, `SELECT MAX(punch_date) FROM employee_transactions`).Scan(&latest); err != nil {
		return nil, fmt.Errorf("%w: get latest punch date: %v", attendance.ErrStorage, err)
	}
	if !latest.Valid {
		return nil, nil
	}
	d := attendance.DateOf(latest.Time)
	return &d, nil
}

// ListComplete implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListComplete(ctx context.Context) ([]attendance.AttendanceRecord, error) {
	q := getQuerier(ctx, a.db)

	query := `
		SELECT id, emp_code, emp_name, location, punch_date,
			   punch_in, punch_out, work_duration, created_at
		FROM employee_transactions
		WHERE punch_in IS NOT NULL AND punch_out IS NOT NULL
		ORDER BY punch_date, emp_code
	`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: list attendance: %v", attendance.ErrStorage, err)
	}
	defer rows.Close()

	var records []attendance.AttendanceRecord
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan attendance: %v", attendance.ErrStorage, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list attendance: %v", attendance.ErrStorage, err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttendance(row rowScanner) (attendance.AttendanceRecord, error) {
	var rec attendance.AttendanceRecord
	var empName, location sql.NullString
	var punchDate, punchIn, punchOut, createdAt nullTime
	var duration sql.NullFloat64

	if err := row.Scan(
		&rec.ID, &rec.EmpCode, &empName, &location, &punchDate,
		&punchIn, &punchOut, &duration, &createdAt,
	); err != nil {
		return attendance.AttendanceRecord{}, err
	}

	rec.EmpName = stringOrUnknown(empName)
	rec.Location = stringOrUnknown(location)
	rec.PunchDate = punchDate.Time
	rec.CreatedAt = createdAt.Time
	if punchIn.Valid {
		t := punchIn.Time
		rec.PunchIn = &t
	}
	if punchOut.Valid {
		t := punchOut.Time
		rec.PunchOut = &t
	}
	if duration.Valid {
		d := duration.Float64
		rec.WorkDuration = &d
	}
	return rec, nil
}

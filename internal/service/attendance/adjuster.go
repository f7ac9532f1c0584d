package attendance

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/attendance"
)

const (
	DefaultMaxWorkHours = 8.5

	presentHours = 8.0
	halfDayHours = 4.0
)

// AttendanceStatusFor classifies a day by its capped work hours.
func AttendanceStatusFor(hours float64) attendance.AttendanceStatus {
	switch {
	case hours >= presentHours:
		return attendance.StatusPresent
	case hours >= halfDayHours:
		return attendance.StatusHalfDay
	default:
		return attendance.StatusAbsent
	}
}

// AdjustWorkDay derives the capped work day of rec. It returns false for records that are
// missing punch_in or punch_out.
func AdjustWorkDay(rec attendance.AttendanceRecord, maxHours float64) (attendance.AdjustedWorkRecord, bool) {
	if rec.PunchIn == nil || rec.PunchOut == nil {
		return attendance.AdjustedWorkRecord{}, false
	}

	raw := attendance.HoursBetween(*rec.PunchIn, *rec.PunchOut)
	if rec.WorkDuration != nil {
		raw = *rec.WorkDuration
	}

	adjOut := *rec.PunchOut
	if raw > maxHours {
		adjOut = rec.PunchIn.Add(time.Duration(maxHours * float64(time.Hour)))
	}
	total := math.Min(raw, maxHours)

	return attendance.AdjustedWorkRecord{
		EmpCode:          rec.EmpCode,
		EmpName:          rec.EmpName,
		Location:         rec.Location,
		PunchDate:        rec.PunchDate,
		AdjInTime:        *rec.PunchIn,
		AdjOutTime:       adjOut,
		TotalWorkHrs:     total,
		AttendanceStatus: AttendanceStatusFor(total),
		FetchStatus:      attendance.FetchStatusUnfetched,
	}, true
}

// Adjuster rebuilds the adjusted work table from the attendance table.
type Adjuster struct {
	attendanceRepo attendance.AttendanceRepository
	adjustedRepo   attendance.AdjustedWorkRepository
	tx             attendance.Transactor
	batchSize      int
	maxHours       float64
}

func NewAdjuster(
	attendanceRepo attendance.AttendanceRepository,
	adjustedRepo attendance.AdjustedWorkRepository,
	tx attendance.Transactor,
	batchSize int,
	maxHours float64,
) *Adjuster {
	if batchSize <= 0 {
		batchSize = 500
	}
	if maxHours <= 0 {
		maxHours = DefaultMaxWorkHours
	}
	return &Adjuster{
		attendanceRepo: attendanceRepo,
		adjustedRepo:   adjustedRepo,
		tx:             tx,
		batchSize:      batchSize,
		maxHours:       maxHours,
	}
}

// Rebuild clears the adjusted table and regenerates it from every complete attendance
// record. Clear and insert run in one transaction, so readers see either the previous
// table or the new one. Every rebuilt row starts with fetch_status 0.
func (a *Adjuster) Rebuild(ctx context.Context) (int, error) {
	inserted := 0

	err := a.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		records, err := a.attendanceRepo.ListComplete(ctx)
		if err != nil {
			return err
		}

		if err := a.adjustedRepo.DeleteAll(ctx); err != nil {
			return err
		}

		batch := make([]attendance.AdjustedWorkRecord, 0, a.batchSize)
		for _, rec := range records {
			adj, ok := AdjustWorkDay(rec, a.maxHours)
			if !ok {
				continue
			}
			batch = append(batch, adj)
			if len(batch) >= a.batchSize {
				if err := a.adjustedRepo.InsertBatch(ctx, batch); err != nil {
					return err
				}
				inserted += len(batch)
				batch = batch[:0]
			}
		}
		if len(batch) > 0 {
			if err := a.adjustedRepo.InsertBatch(ctx, batch); err != nil {
				return err
			}
			inserted += len(batch)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("rebuild adjusted work: %w", err)
	}

	return inserted, nil
}

package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/source"
	"github.com/cmlabs-hris/attendance-sync-go/internal/pkg/validator"
)

const empCodeColumnLen = 50

// ReconcileResult counts what a Reconcile call did. Created and Updated only count
// batches that were committed.
type ReconcileResult struct {
	Processed int
	Skipped   int
	Created   int
	Updated   int
}

type dayKey struct {
	empCode string
	date    time.Time
}

// interval is the earliest and latest punch seen for a key in the current input.
type interval struct {
	first time.Time
	last  time.Time
}

// Reconciler merges punch events into per-employee-per-day attendance records.
type Reconciler struct {
	repo      attendance.AttendanceRepository
	tx        attendance.Transactor
	batchSize int
	loc       *time.Location
}

func NewReconciler(repo attendance.AttendanceRepository, tx attendance.Transactor, batchSize int, loc *time.Location) *Reconciler {
	if batchSize <= 0 {
		batchSize = 500
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Reconciler{repo: repo, tx: tx, batchSize: batchSize, loc: loc}
}

// ParseTransactions turns raw transactions into punch events. Malformed records are
// logged and counted, never returned as an error.
func (r *Reconciler) ParseTransactions(txs []source.Transaction) ([]attendance.PunchEvent, int) {
	events := make([]attendance.PunchEvent, 0, len(txs))
	skipped := 0

	for _, t := range txs {
		ev, err := r.parseTransaction(t)
		if err != nil {
			slog.Warn("Skipping malformed punch record", "emp_code", t.EmpCode.String(), "punch_time", t.PunchTime, "error", err)
			skipped++
			continue
		}
		events = append(events, ev)
	}
	return events, skipped
}

func (r *Reconciler) parseTransaction(t source.Transaction) (attendance.PunchEvent, error) {
	code := t.EmpCode.String()
	if validator.IsEmpty(code) {
		return attendance.PunchEvent{}, fmt.Errorf("%w: missing emp_code", attendance.ErrMalformedPunch)
	}
	if !validator.MaxLen(code, empCodeColumnLen) {
		return attendance.PunchEvent{}, fmt.Errorf("%w: emp_code longer than %d characters", attendance.ErrMalformedPunch, empCodeColumnLen)
	}

	punchTime, err := ParsePunchTime(t.PunchTime, r.loc)
	if err != nil {
		return attendance.PunchEvent{}, err
	}
	return attendance.PunchEvent{EmpCode: code, PunchTime: punchTime}, nil
}

// Reconcile merges txs into storage. Events are folded per (emp_code, punch_date) first,
// so the outcome does not depend on their order, then the keys are written in batches of
// batchSize, each batch in its own transaction. A failing batch is rolled back and ends
// the call; earlier batches stay committed.
func (r *Reconciler) Reconcile(ctx context.Context, txs []source.Transaction, dir EmployeeDirectory) (ReconcileResult, error) {
	events, skipped := r.ParseTransactions(txs)
	result := ReconcileResult{Processed: len(events), Skipped: skipped}

	intervals := foldIntervals(events)
	keys := sortedKeys(intervals)

	for start := 0; start < len(keys); start += r.batchSize {
		end := min(start+r.batchSize, len(keys))
		batch := keys[start:end]

		var created, updated int
		err := r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			created, updated = 0, 0
			for _, key := range batch {
				c, u, err := r.merge(ctx, key, intervals[key], dir)
				if err != nil {
					return err
				}
				created += c
				updated += u
			}
			return nil
		})
		if err != nil {
			if !errors.Is(err, attendance.ErrStorage) {
				err = fmt.Errorf("%w: %v", attendance.ErrStorage, err)
			}
			return result, fmt.Errorf("reconcile batch starting at key %d: %w", start, err)
		}

		result.Created += created
		result.Updated += updated
		slog.Debug("Attendance batch committed", "keys", len(batch), "created", created, "updated", updated)
	}

	return result, nil
}

func (r *Reconciler) merge(ctx context.Context, key dayKey, iv interval, dir EmployeeDirectory) (created, updated int, err error) {
	existing, err := r.repo.GetByEmployeeAndDate(ctx, key.empCode, key.date)
	if err != nil {
		return 0, 0, err
	}

	if existing == nil {
		info := dir.Lookup(key.empCode)
		rec, _ := WidenBounds(attendance.AttendanceRecord{
			EmpCode:   key.empCode,
			EmpName:   info.Name,
			Location:  info.Location,
			PunchDate: key.date,
		}, iv.first, iv.last)
		if err := r.repo.Create(ctx, rec); err != nil {
			return 0, 0, err
		}
		return 1, 0, nil
	}

	rec, changed := WidenBounds(*existing, iv.first, iv.last)
	if !changed {
		return 0, 0, nil
	}
	if err := r.repo.UpdateBounds(ctx, rec); err != nil {
		return 0, 0, err
	}
	return 0, 1, nil
}

// WidenBounds extends rec's [punch_in, punch_out] to cover [first, last]. Bounds only move
// outwards, and only on a strictly earlier or later time; work_duration is recomputed
// when a bound moved.
func WidenBounds(rec attendance.AttendanceRecord, first, last time.Time) (attendance.AttendanceRecord, bool) {
	changed := false
	if rec.PunchIn == nil || first.Before(*rec.PunchIn) {
		in := first
		rec.PunchIn = &in
		changed = true
	}
	if rec.PunchOut == nil || last.After(*rec.PunchOut) {
		out := last
		rec.PunchOut = &out
		changed = true
	}
	if changed {
		d := attendance.HoursBetween(*rec.PunchIn, *rec.PunchOut)
		rec.WorkDuration = &d
	}
	return rec, changed
}

func foldIntervals(events []attendance.PunchEvent) map[dayKey]interval {
	out := make(map[dayKey]interval)
	for _, ev := range events {
		key := dayKey{empCode: ev.EmpCode, date: attendance.DateOf(ev.PunchTime)}
		iv, ok := out[key]
		if !ok {
			out[key] = interval{first: ev.PunchTime, last: ev.PunchTime}
			continue
		}
		if ev.PunchTime.Before(iv.first) {
			iv.first = ev.PunchTime
		}
		if ev.PunchTime.After(iv.last) {
			iv.last = ev.PunchTime
		}
		out[key] = iv
	}
	return out
}

// sortedKeys orders keys by date then employee so batches are reproducible.
func sortedKeys(m map[dayKey]interval) []dayKey {
	keys := make([]dayKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].date.Equal(keys[j].date) {
			return keys[i].date.Before(keys[j].date)
		}
		return keys[i].empCode < keys[j].empCode
	})
	return keys
}

package attendance

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/source"
)

var errInjected = errors.New("injected failure")

// memoryStore implements the repositories, the transactor and the locker in memory.
// Transactions snapshot both tables and restore them when fn fails.
type memoryStore struct {
	mu         sync.Mutex
	attendance map[dayKey]attendance.AttendanceRecord
	adjusted   []attendance.AdjustedWorkRecord
	nextID     int64

	transactions int
	writes       int
	locked       bool

	failCreateFor   string
	failInsertBatch bool
	failLatest      bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{attendance: make(map[dayKey]attendance.AttendanceRecord)}
}

func (m *memoryStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	m.transactions++
	savedAttendance := make(map[dayKey]attendance.AttendanceRecord, len(m.attendance))
	for k, v := range m.attendance {
		savedAttendance[k] = v
	}
	savedAdjusted := append([]attendance.AdjustedWorkRecord(nil), m.adjusted...)
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.attendance = savedAttendance
		m.adjusted = savedAdjusted
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memoryStore) TryLock(ctx context.Context) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked {
		return nil, attendance.ErrSyncInProgress
	}
	m.locked = true
	return func() {
		m.mu.Lock()
		m.locked = false
		m.mu.Unlock()
	}, nil
}

func (m *memoryStore) GetByEmployeeAndDate(ctx context.Context, empCode string, punchDate time.Time) (*attendance.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.attendance[dayKey{empCode: empCode, date: punchDate}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memoryStore) Create(ctx context.Context, rec attendance.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateFor != "" && rec.EmpCode == m.failCreateFor {
		return errInjected
	}
	key := dayKey{empCode: rec.EmpCode, date: rec.PunchDate}
	if _, ok := m.attendance[key]; ok {
		return errors.New("duplicate key")
	}
	m.nextID++
	rec.ID = m.nextID
	m.attendance[key] = rec
	m.writes++
	return nil
}

func (m *memoryStore) UpdateBounds(ctx context.Context, rec attendance.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := dayKey{empCode: rec.EmpCode, date: rec.PunchDate}
	existing, ok := m.attendance[key]
	if !ok {
		return errors.New("no row")
	}
	existing.PunchIn = rec.PunchIn
	existing.PunchOut = rec.PunchOut
	existing.WorkDuration = rec.WorkDuration
	m.attendance[key] = existing
	m.writes++
	return nil
}

func (m *memoryStore) LatestPunchDate(ctx context.Context) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLatest {
		return nil, errInjected
	}
	var latest *time.Time
	for k := range m.attendance {
		d := k.date
		if latest == nil || d.After(*latest) {
			latest = &d
		}
	}
	return latest, nil
}

func (m *memoryStore) ListComplete(ctx context.Context) ([]attendance.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []attendance.AttendanceRecord
	for _, rec := range m.attendance {
		if rec.PunchIn != nil && rec.PunchOut != nil {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PunchDate.Equal(out[j].PunchDate) {
			return out[i].PunchDate.Before(out[j].PunchDate)
		}
		return out[i].EmpCode < out[j].EmpCode
	})
	return out, nil
}

func (m *memoryStore) DeleteAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adjusted = nil
	return nil
}

func (m *memoryStore) InsertBatch(ctx context.Context, records []attendance.AdjustedWorkRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInsertBatch {
		return errInjected
	}
	for _, rec := range records {
		m.nextID++
		rec.ID = m.nextID
		m.adjusted = append(m.adjusted, rec)
	}
	return nil
}

func (m *memoryStore) ClaimUnfetched(ctx context.Context) ([]attendance.AdjustedWorkRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []attendance.AdjustedWorkRecord
	for i := range m.adjusted {
		if m.adjusted[i].FetchStatus == attendance.FetchStatusUnfetched {
			m.adjusted[i].FetchStatus = attendance.FetchStatusFetched
			out = append(out, m.adjusted[i])
		}
	}
	return out, nil
}

// record returns the stored attendance of code on date ("2006-01-02").
func (m *memoryStore) record(code, date string) (attendance.AttendanceRecord, bool) {
	d, _ := time.Parse("2006-01-02", date)
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.attendance[dayKey{empCode: code, date: d}]
	return rec, ok
}

func (m *memoryStore) snapshot() map[dayKey]attendance.AttendanceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[dayKey]attendance.AttendanceRecord, len(m.attendance))
	for k, v := range m.attendance {
		v.ID = 0
		out[k] = v
	}
	return out
}

// fakeSource serves canned snapshots and records the requested window.
type fakeSource struct {
	mu           sync.Mutex
	transactions []source.Transaction
	employees    []source.Employee
	areas        []source.Area

	txErr  error
	empErr error

	calls         int
	snapshotCalls int
	start, end    time.Time

	// When gate is set, FetchTransactions signals entered and blocks until gate closes.
	entered chan struct{}
	gate    chan struct{}
}

func (f *fakeSource) FetchTransactions(ctx context.Context, start, end time.Time) ([]source.Transaction, error) {
	if f.gate != nil {
		f.entered <- struct{}{}
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.start, f.end = start, end
	if f.txErr != nil {
		return f.transactions[:0], f.txErr
	}
	return f.transactions, nil
}

func (f *fakeSource) FetchEmployees(ctx context.Context) ([]source.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshotCalls++
	if f.empErr != nil {
		return nil, f.empErr
	}
	return f.employees, nil
}

func (f *fakeSource) FetchAreas(ctx context.Context) ([]source.Area, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshotCalls++
	return f.areas, nil
}

func punch(code, ts string) source.Transaction {
	return source.Transaction{EmpCode: source.Code(code), PunchTime: ts}
}

func mustTime(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		panic(err)
	}
	return t
}

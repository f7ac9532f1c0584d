package attendance

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeRecord(code, in, out string) attendance.AttendanceRecord {
	pin, pout := mustTime(in), mustTime(out)
	d := attendance.HoursBetween(pin, pout)
	return attendance.AttendanceRecord{
		EmpCode:      code,
		EmpName:      "Name " + code,
		Location:     "Head Office",
		PunchDate:    attendance.DateOf(pin),
		PunchIn:      &pin,
		PunchOut:     &pout,
		WorkDuration: &d,
	}
}

func TestAttendanceStatusFor(t *testing.T) {
	cases := []struct {
		hours float64
		want  attendance.AttendanceStatus
	}{
		{8.5, attendance.StatusPresent},
		{8.0, attendance.StatusPresent},
		{7.99, attendance.StatusHalfDay},
		{5.0, attendance.StatusHalfDay},
		{4.0, attendance.StatusHalfDay},
		{3.9, attendance.StatusAbsent},
		{0, attendance.StatusAbsent},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, AttendanceStatusFor(c.hours), "hours=%v", c.hours)
	}
}

func TestAdjustWorkDay_CapsLongDay(t *testing.T) {
	adj, ok := AdjustWorkDay(completeRecord("E1", "2024-01-10 09:00:00", "2024-01-10 18:30:00"), DefaultMaxWorkHours)
	require.True(t, ok)

	assert.Equal(t, mustTime("2024-01-10 09:00:00"), adj.AdjInTime)
	assert.Equal(t, mustTime("2024-01-10 17:30:00"), adj.AdjOutTime)
	assert.InDelta(t, 8.5, adj.TotalWorkHrs, 1e-9)
	assert.Equal(t, attendance.StatusPresent, adj.AttendanceStatus)
	assert.Equal(t, attendance.FetchStatusUnfetched, adj.FetchStatus)
	assert.Equal(t, "Name E1", adj.EmpName)
}

func TestAdjustWorkDay_KeepsShortDay(t *testing.T) {
	cases := []struct {
		out    string
		hours  float64
		status attendance.AttendanceStatus
	}{
		{"2024-01-10 17:00:00", 8.0, attendance.StatusPresent},
		{"2024-01-10 14:00:00", 5.0, attendance.StatusHalfDay},
		{"2024-01-10 12:54:00", 3.9, attendance.StatusAbsent},
	}
	for _, c := range cases {
		adj, ok := AdjustWorkDay(completeRecord("E1", "2024-01-10 09:00:00", c.out), DefaultMaxWorkHours)
		require.True(t, ok)
		assert.Equal(t, mustTime(c.out), adj.AdjOutTime)
		assert.InDelta(t, c.hours, adj.TotalWorkHrs, 1e-9)
		assert.Equal(t, c.status, adj.AttendanceStatus)
	}
}

func TestAdjustWorkDay_SinglePunch(t *testing.T) {
	adj, ok := AdjustWorkDay(completeRecord("E1", "2024-01-10 09:00:00", "2024-01-10 09:00:00"), DefaultMaxWorkHours)
	require.True(t, ok)
	assert.Zero(t, adj.TotalWorkHrs)
	assert.Equal(t, attendance.StatusAbsent, adj.AttendanceStatus)
}

func TestAdjustWorkDay_IncompleteRecord(t *testing.T) {
	rec := completeRecord("E1", "2024-01-10 09:00:00", "2024-01-10 17:00:00")
	rec.PunchOut = nil
	_, ok := AdjustWorkDay(rec, DefaultMaxWorkHours)
	assert.False(t, ok)

	rec = completeRecord("E1", "2024-01-10 09:00:00", "2024-01-10 17:00:00")
	rec.PunchIn = nil
	_, ok = AdjustWorkDay(rec, DefaultMaxWorkHours)
	assert.False(t, ok)
}

func TestAdjustWorkDay_MissingDurationDerivedFromBounds(t *testing.T) {
	rec := completeRecord("E1", "2024-01-10 08:00:00", "2024-01-10 20:00:00")
	rec.WorkDuration = nil

	adj, ok := AdjustWorkDay(rec, DefaultMaxWorkHours)
	require.True(t, ok)
	assert.InDelta(t, 8.5, adj.TotalWorkHrs, 1e-9)
	assert.Equal(t, mustTime("2024-01-10 16:30:00"), adj.AdjOutTime)
}

func seedAttendance(t *testing.T, store *memoryStore, recs ...attendance.AttendanceRecord) {
	t.Helper()
	for _, rec := range recs {
		require.NoError(t, store.Create(context.Background(), rec))
	}
}

func TestRebuild_ReplacesTable(t *testing.T) {
	store := newMemoryStore()
	seedAttendance(t, store,
		completeRecord("E1", "2024-01-10 09:00:00", "2024-01-10 18:30:00"),
		completeRecord("E2", "2024-01-10 09:00:00", "2024-01-10 14:00:00"),
		completeRecord("E3", "2024-01-11 09:00:00", "2024-01-11 09:00:00"),
	)
	store.adjusted = []attendance.AdjustedWorkRecord{{EmpCode: "STALE"}}

	a := NewAdjuster(store, store, store, 2, DefaultMaxWorkHours)
	n, err := a.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, store.adjusted, 3)

	byCode := map[string]attendance.AdjustedWorkRecord{}
	for _, adj := range store.adjusted {
		byCode[adj.EmpCode] = adj
	}
	assert.NotContains(t, byCode, "STALE")
	assert.Equal(t, attendance.StatusPresent, byCode["E1"].AttendanceStatus)
	assert.Equal(t, attendance.StatusHalfDay, byCode["E2"].AttendanceStatus)
	assert.Equal(t, attendance.StatusAbsent, byCode["E3"].AttendanceStatus)
	assert.Equal(t, 1, store.transactions, "clear and insert share one transaction")
}

func TestRebuild_ResetsFetchStatus(t *testing.T) {
	store := newMemoryStore()
	seedAttendance(t, store, completeRecord("E1", "2024-01-10 09:00:00", "2024-01-10 17:00:00"))
	a := NewAdjuster(store, store, store, 500, DefaultMaxWorkHours)
	ctx := context.Background()

	_, err := a.Rebuild(ctx)
	require.NoError(t, err)
	claimed, err := store.ClaimUnfetched(ctx)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	// A rebuild hands every row out again.
	_, err = a.Rebuild(ctx)
	require.NoError(t, err)
	require.Len(t, store.adjusted, 1)
	assert.Equal(t, attendance.FetchStatusUnfetched, store.adjusted[0].FetchStatus)
}

func TestRebuild_FailureKeepsPreviousTable(t *testing.T) {
	store := newMemoryStore()
	seedAttendance(t, store, completeRecord("E1", "2024-01-10 09:00:00", "2024-01-10 17:00:00"))
	previous := []attendance.AdjustedWorkRecord{{ID: 99, EmpCode: "OLD"}}
	store.adjusted = previous
	store.failInsertBatch = true

	_, err := NewAdjuster(store, store, store, 500, DefaultMaxWorkHours).Rebuild(context.Background())
	require.ErrorIs(t, err, errInjected)
	assert.Equal(t, previous, store.adjusted)
}

func TestRebuild_Deterministic(t *testing.T) {
	store := newMemoryStore()
	r := NewReconciler(store, store, 500, nil)
	_, err := r.Reconcile(context.Background(), []source.Transaction{
		punch("E1", "2024-01-10 09:00:00"),
		punch("E1", "2024-01-10 19:00:00"),
		punch("E2", "2024-01-10 10:00:00"),
		punch("E2", "2024-01-10 15:00:00"),
	}, directory())
	require.NoError(t, err)

	a := NewAdjuster(store, store, store, 500, DefaultMaxWorkHours)
	_, err = a.Rebuild(context.Background())
	require.NoError(t, err)
	first := stripIDs(store.adjusted)

	_, err = a.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, stripIDs(store.adjusted))
}

func stripIDs(recs []attendance.AdjustedWorkRecord) []attendance.AdjustedWorkRecord {
	out := make([]attendance.AdjustedWorkRecord, len(recs))
	for i, r := range recs {
		r.ID = 0
		out[i] = r
	}
	return out
}

package attendance

import (
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/attendance"
)

// fixedLayout is the device export format tried after every ISO-8601 form failed.
const fixedLayout = "2006-01-02 15:04:05"

type isoLayout struct {
	layout  string
	hasZone bool
}

var isoLayouts = []isoLayout{
	{time.RFC3339Nano, true},
	{"2006-01-02T15:04:05.999999999", false},
	{"2006-01-02T15:04Z07:00", true},
	{"2006-01-02T15:04", false},
	{"2006-01-02T15:04:05.999999999Z0700", true},
	{"2006-01-02 15:04:05.999999999Z07:00", true},
	{"2006-01-02 15:04:05.999999999Z0700", true},
	{"2006-01-02 15:04", false},
	{"2006-01-02", false},
}

// ParsePunchTime parses a punch timestamp in two stages: ISO-8601 first, then the fixed
// "YYYY-MM-DD HH:MM:SS" format. Timestamps carrying an offset are converted to loc.
// The result is the wall-clock time in loc, expressed in UTC so that stored values
// compare without zone conversions.
func ParsePunchTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: empty punch time", attendance.ErrMalformedPunch)
	}

	if t, ok := parseISO8601(raw, loc); ok {
		return t, nil
	}

	t, err := time.Parse(fixedLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: punch time %q", attendance.ErrMalformedPunch, raw)
	}
	return wallClock(t), nil
}

func parseISO8601(raw string, loc *time.Location) (time.Time, bool) {
	for _, l := range isoLayouts {
		t, err := time.Parse(l.layout, raw)
		if err != nil {
			continue
		}
		if l.hasZone && loc != nil {
			t = t.In(loc)
		}
		return wallClock(t), true
	}
	return time.Time{}, false
}

func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

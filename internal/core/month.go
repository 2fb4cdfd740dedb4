package core

import (
	"fmt"
	"time"
)

const monthLayout = "2006-01"

// Month is a calendar year and month with no zone attached.
type Month struct {
	Year  int
	Month time.Month
}

// Interval is a half-open range [Start, End) of Unix epoch milliseconds.
type Interval struct {
	Start int64
	End   int64
}

func NewMonth(year int, month time.Month) Month {
	return normalize(year, int(month))
}

// MonthOf returns the calendar month t falls in when seen from loc.
func MonthOf(t time.Time, loc *time.Location) Month {
	t = t.In(zoneOrUTC(loc))
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses the "2006-01" form.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

func normalize(year, month int) Month {
	month--
	year += month / 12
	month %= 12
	if month < 0 {
		month += 12
		year--
	}
	return Month{Year: year, Month: time.Month(month + 1)}
}

func (m Month) AddMonths(n int) Month {
	return normalize(m.Year, int(m.Month)+n)
}

func (m Month) Next() Month { return m.AddMonths(1) }
func (m Month) Prev() Month { return m.AddMonths(-1) }

func (m Month) index() int {
	return m.Year*12 + int(m.Month) - 1
}

func (m Month) Before(o Month) bool { return m.index() < o.index() }
func (m Month) After(o Month) bool  { return m.index() > o.index() }
func (m Month) Equal(o Month) bool  { return m.index() == o.index() }

// MonthsUntil counts the months from m to o, inclusive of both ends.
// It is zero when o is before m.
func (m Month) MonthsUntil(o Month) int {
	n := o.index() - m.index() + 1
	if n < 0 {
		return 0
	}
	return n
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Bounds converts a month into the interval covering it in loc: from local
// midnight on the 1st to local midnight on the 1st of the following month.
// A nil loc means UTC.
func Bounds(m Month, loc *time.Location) Interval {
	loc = zoneOrUTC(loc)
	next := m.Next()
	start := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
	end := time.Date(next.Year, next.Month, 1, 0, 0, 0, 0, loc)
	return Interval{Start: start.UnixMilli(), End: end.UnixMilli()}
}

// Contains reports whether ms lies in [Start, End).
func (iv Interval) Contains(ms int64) bool {
	return ms >= iv.Start && ms < iv.End
}

// ContainsTime is Contains for a time value.
func (iv Interval) ContainsTime(t time.Time) bool {
	return iv.Contains(t.UnixMilli())
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%d,%d)", iv.Start, iv.End)
}

// LoadZone resolves an IANA zone name. Empty and "Local" mean time.Local.
func LoadZone(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", name, err)
	}
	return loc, nil
}

func zoneOrUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

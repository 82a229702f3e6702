// Package timeutil provides timezone-aware calendar arithmetic for dose
// scheduling. All conversions between UTC instants and wall-clock values go
// through here so DST transitions are handled in exactly one place.
package timeutil

import (
	"time"

	"github.com/pillmind/go-adherence/internal/errs"
)

// Clock supplies the current instant. Injectable for tests; production code
// uses SystemClock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current instant in UTC.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now returns the instant produced by the wrapped function.
func (f ClockFunc) Now() time.Time { return f() }

// LoadZone resolves an IANA timezone name.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errs.Newf(errs.KindValidation, "invalid timezone %q", name)
	}
	return loc, nil
}

// TimeOfDay is a wall-clock time in HH:mm form.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses a strict 24-hour "HH:mm" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) != 5 || s[2] != ':' {
		return TimeOfDay{}, errs.Newf(errs.KindValidation, "invalid time of day %q, want HH:mm", s)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return TimeOfDay{}, errs.Newf(errs.KindValidation, "invalid time of day %q, want HH:mm", s)
		}
	}
	tod := TimeOfDay{
		Hour:   int(s[0]-'0')*10 + int(s[1]-'0'),
		Minute: int(s[3]-'0')*10 + int(s[4]-'0'),
	}
	if tod.Hour > 23 || tod.Minute > 59 {
		return TimeOfDay{}, errs.Newf(errs.KindValidation, "time of day %q out of range", s)
	}
	return tod, nil
}

func (t TimeOfDay) String() string {
	b := [5]byte{
		byte('0' + t.Hour/10), byte('0' + t.Hour%10),
		':',
		byte('0' + t.Minute/10), byte('0' + t.Minute%10),
	}
	return string(b[:])
}

// Before orders times of day within one calendar day.
func (t TimeOfDay) Before(o TimeOfDay) bool {
	if t.Hour != o.Hour {
		return t.Hour < o.Hour
	}
	return t.Minute < o.Minute
}

// Date is a calendar date with no time or zone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of an instant as seen in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

// AddDays advances a calendar date by n whole days.
func AddDays(d Date, n int) Date {
	t := time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC)
	y, m, day := t.Date()
	return Date{Year: y, Month: m, Day: day}
}

// Before reports whether d precedes o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// After reports whether d follows o.
func (d Date) After(o Date) bool { return o.Before(d) }

// Weekday returns the day of week of d.
func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

// Instant converts a local date plus time-of-day in loc to the corresponding
// UTC instant. The same HH:mm on different dates may carry different UTC
// offsets across a DST change; time.Date resolves that per the zone rules.
func Instant(d Date, tod TimeOfDay, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, tod.Hour, tod.Minute, 0, 0, loc).UTC()
}

// StartOfDay returns the UTC instant at which the calendar day containing t
// begins in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	return Instant(DateOf(t, loc), TimeOfDay{}, loc)
}

// WeekdayIn returns the day of week of an instant as seen in loc.
func WeekdayIn(t time.Time, loc *time.Location) time.Weekday {
	return t.In(loc).Weekday()
}

// TimeOfDayIn returns the wall-clock time of an instant as seen in loc.
func TimeOfDayIn(t time.Time, loc *time.Location) TimeOfDay {
	lt := t.In(loc)
	return TimeOfDay{Hour: lt.Hour(), Minute: lt.Minute()}
}

// WallClockBefore reports whether a's wall-clock reading in loc is strictly
// earlier than b's. This is the comparison the missed-dose sweep uses: both
// instants are evaluated in the owning user's timezone.
func WallClockBefore(a, b time.Time, loc *time.Location) bool {
	return localKey(a, loc).Before(localKey(b, loc))
}

// localKey projects an instant's local reading onto a comparable UTC value.
func localKey(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), lt.Hour(), lt.Minute(), lt.Second(), lt.Nanosecond(), time.UTC)
}

// Package schedule implements recurring weekly dosing rules: definition,
// recurrence expansion into concrete UTC instants, and pairwise conflict
// detection across days, times and validity windows.
package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/pillmind/go-adherence/internal/errs"
	"github.com/pillmind/go-adherence/internal/timeutil"
)

// Weekday is a day of week in the Mon-Sun enumeration used by schedules.
type Weekday string

const (
	Monday    Weekday = "MON"
	Tuesday   Weekday = "TUE"
	Wednesday Weekday = "WED"
	Thursday  Weekday = "THU"
	Friday    Weekday = "FRI"
	Saturday  Weekday = "SAT"
	Sunday    Weekday = "SUN"
)

// weekdayOrder fixes the canonical Mon-Sun ordering for output.
var weekdayOrder = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var fromTime = map[time.Weekday]Weekday{
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
	time.Sunday:    Sunday,
}

// WeekdayOf maps a time.Weekday to the schedule enumeration.
func WeekdayOf(d time.Weekday) Weekday { return fromTime[d] }

// ParseWeekday parses a MON..SUN token.
func ParseWeekday(s string) (Weekday, error) {
	switch Weekday(s) {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return Weekday(s), nil
	}
	return "", errs.Newf(errs.KindValidation, "invalid weekday %q", s)
}

// Schedule is one recurring dosing rule belonging to a prescription.
// Days and Times carry set semantics: order is irrelevant and duplicates are
// meaningless; Normalize enforces that.
type Schedule struct {
	ID             uuid.UUID
	PrescriptionID uuid.UUID
	Timezone       string
	Days           []Weekday
	Times          []timeutil.TimeOfDay
	Quantity       *float64
	Unit           *string

	// StartDate and EndDate bound the validity window at calendar-date
	// granularity. Either may be nil for an open end.
	StartDate *timeutil.Date
	EndDate   *timeutil.Date
}

// Normalize deduplicates days and times and orders them canonically.
func (s *Schedule) Normalize() {
	daySet := make(map[Weekday]bool, len(s.Days))
	for _, d := range s.Days {
		daySet[d] = true
	}
	days := make([]Weekday, 0, len(daySet))
	for _, d := range weekdayOrder {
		if daySet[d] {
			days = append(days, d)
		}
	}
	s.Days = days

	timeSet := make(map[timeutil.TimeOfDay]bool, len(s.Times))
	for _, t := range s.Times {
		timeSet[t] = true
	}
	times := make([]timeutil.TimeOfDay, 0, len(timeSet))
	for t := range timeSet {
		times = append(times, t)
	}
	sortTimes(times)
	s.Times = times
}

// Validate checks the schedule definition.
func (s *Schedule) Validate() error {
	if _, err := timeutil.LoadZone(s.Timezone); err != nil {
		return err
	}
	if s.Quantity != nil && *s.Quantity <= 0 {
		return errs.New(errs.KindValidation, "dose quantity must be positive")
	}
	if s.StartDate != nil && s.EndDate != nil && s.EndDate.Before(*s.StartDate) {
		return errs.New(errs.KindValidation, "schedule end date precedes start date")
	}
	return nil
}

// ClampEnd returns a copy of the schedule whose end date is the earlier of
// its own and the given bound. The materializer uses it to apply the owning
// prescription's end date.
func (s Schedule) ClampEnd(bound *timeutil.Date) Schedule {
	if bound == nil {
		return s
	}
	if s.EndDate == nil || bound.Before(*s.EndDate) {
		b := *bound
		s.EndDate = &b
	}
	return s
}

func sortTimes(times []timeutil.TimeOfDay) {
	for i := 1; i < len(times); i++ {
		for j := i; j > 0 && times[j].Before(times[j-1]); j-- {
			times[j], times[j-1] = times[j-1], times[j]
		}
	}
}

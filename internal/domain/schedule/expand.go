package schedule

import (
	"sort"
	"time"

	"github.com/pillmind/go-adherence/internal/timeutil"
)

// Expand produces the deduplicated, ascending set of UTC instants at which a
// dose is expected within [from, to]. Calendar days are walked in the
// schedule's own timezone, so the same HH:mm lands on different UTC offsets
// across a DST change. An empty day set or time set yields no instants.
func (s Schedule) Expand(from, to time.Time) ([]time.Time, error) {
	if len(s.Days) == 0 || len(s.Times) == 0 || to.Before(from) {
		return nil, nil
	}

	loc, err := timeutil.LoadZone(s.Timezone)
	if err != nil {
		return nil, err
	}

	daySet := make(map[Weekday]bool, len(s.Days))
	for _, d := range s.Days {
		daySet[d] = true
	}

	day := timeutil.DateOf(from, loc)
	if s.StartDate != nil && day.Before(*s.StartDate) {
		day = *s.StartDate
	}
	last := timeutil.DateOf(to, loc)
	if s.EndDate != nil && s.EndDate.Before(last) {
		last = *s.EndDate
	}

	seen := make(map[time.Time]bool)
	var out []time.Time
	for ; !day.After(last); day = timeutil.AddDays(day, 1) {
		if !daySet[WeekdayOf(day.Weekday())] {
			continue
		}
		for _, tod := range s.Times {
			inst := timeutil.Instant(day, tod, loc)
			if inst.Before(from) || inst.After(to) {
				continue
			}
			if seen[inst] {
				continue
			}
			seen[inst] = true
			out = append(out, inst)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

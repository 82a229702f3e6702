package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pillmind/go-adherence/internal/timeutil"
)

func TestCheckConflictsRequiresAllThreeDimensions(t *testing.T) {
	candidate := Schedule{
		ID:    uuid.New(),
		Days:  []Weekday{Monday, Wednesday},
		Times: []timeutil.TimeOfDay{tod(8, 0)},
	}

	sameDayDifferentTime := Schedule{
		ID:    uuid.New(),
		Days:  []Weekday{Monday},
		Times: []timeutil.TimeOfDay{tod(9, 0)},
	}
	sameTimeDifferentDay := Schedule{
		ID:    uuid.New(),
		Days:  []Weekday{Tuesday},
		Times: []timeutil.TimeOfDay{tod(8, 0)},
	}
	overlapping := Schedule{
		ID:    uuid.New(),
		Days:  []Weekday{Wednesday, Friday},
		Times: []timeutil.TimeOfDay{tod(8, 0), tod(20, 0)},
	}

	got := CheckConflicts(candidate, []Schedule{sameDayDifferentTime, sameTimeDifferentDay, overlapping})
	if len(got) != 1 {
		t.Fatalf("CheckConflicts returned %d conflicts, want 1", len(got))
	}
	if got[0].ScheduleID != overlapping.ID.String() {
		t.Errorf("conflict id = %s, want %s", got[0].ScheduleID, overlapping.ID)
	}
	if len(got[0].Days) != 1 || got[0].Days[0] != Wednesday {
		t.Errorf("shared days = %v, want [WED]", got[0].Days)
	}
	if len(got[0].Times) != 1 || got[0].Times[0] != tod(8, 0) {
		t.Errorf("shared times = %v, want [08:00]", got[0].Times)
	}
}

func TestCheckConflictsExcludesSelf(t *testing.T) {
	s := Schedule{
		ID:    uuid.New(),
		Days:  []Weekday{Monday},
		Times: []timeutil.TimeOfDay{tod(8, 0)},
	}
	if got := CheckConflicts(s, []Schedule{s}); len(got) != 0 {
		t.Errorf("schedule conflicts with itself: %v", got)
	}
}

func TestCheckConflictsWindowPolicy(t *testing.T) {
	base := Schedule{
		Days:  []Weekday{Monday},
		Times: []timeutil.TimeOfDay{tod(8, 0)},
	}

	withWindow := func(start, end *timeutil.Date) Schedule {
		s := base
		s.ID = uuid.New()
		s.StartDate = start
		s.EndDate = end
		return s
	}

	january := withWindow(datePtr(2025, time.January, 1), datePtr(2025, time.January, 31))
	march := withWindow(datePtr(2025, time.March, 1), datePtr(2025, time.March, 31))
	if got := CheckConflicts(january, []Schedule{march}); len(got) != 0 {
		t.Errorf("disjoint windows conflict: %v", got)
	}

	// An unbounded window overlaps any other, including one starting later.
	open := withWindow(nil, nil)
	future := withWindow(datePtr(2027, time.January, 1), nil)
	if got := CheckConflicts(open, []Schedule{future}); len(got) != 1 {
		t.Errorf("unbounded window vs future start: %d conflicts, want 1", len(got))
	}

	// Touching boundaries overlap; only a strict gap separates windows.
	abutting := withWindow(datePtr(2025, time.January, 31), datePtr(2025, time.February, 28))
	if got := CheckConflicts(january, []Schedule{abutting}); len(got) != 1 {
		t.Errorf("abutting windows: %d conflicts, want 1", len(got))
	}
}

func TestNormalize(t *testing.T) {
	s := Schedule{
		Days:  []Weekday{Friday, Monday, Friday, Wednesday},
		Times: []timeutil.TimeOfDay{tod(20, 0), tod(8, 0), tod(20, 0)},
	}
	s.Normalize()

	wantDays := []Weekday{Monday, Wednesday, Friday}
	if len(s.Days) != len(wantDays) {
		t.Fatalf("days = %v, want %v", s.Days, wantDays)
	}
	for i := range wantDays {
		if s.Days[i] != wantDays[i] {
			t.Errorf("days[%d] = %v, want %v", i, s.Days[i], wantDays[i])
		}
	}

	wantTimes := []timeutil.TimeOfDay{tod(8, 0), tod(20, 0)}
	if len(s.Times) != len(wantTimes) {
		t.Fatalf("times = %v, want %v", s.Times, wantTimes)
	}
	for i := range wantTimes {
		if s.Times[i] != wantTimes[i] {
			t.Errorf("times[%d] = %v, want %v", i, s.Times[i], wantTimes[i])
		}
	}
}

func TestValidate(t *testing.T) {
	q := 1.5
	good := Schedule{Timezone: "America/New_York", Quantity: &q}
	if err := good.Validate(); err != nil {
		t.Errorf("valid schedule rejected: %v", err)
	}

	badZone := Schedule{Timezone: "Not/AZone"}
	if err := badZone.Validate(); err == nil {
		t.Error("invalid timezone accepted")
	}

	zero := 0.0
	badQty := Schedule{Quantity: &zero}
	if err := badQty.Validate(); err == nil {
		t.Error("non-positive quantity accepted")
	}

	inverted := Schedule{
		StartDate: datePtr(2025, time.June, 10),
		EndDate:   datePtr(2025, time.June, 1),
	}
	if err := inverted.Validate(); err == nil {
		t.Error("end before start accepted")
	}
}

func TestParseWeekday(t *testing.T) {
	if d, err := ParseWeekday("WED"); err != nil || d != Wednesday {
		t.Errorf("ParseWeekday(WED) = %v, %v", d, err)
	}
	if _, err := ParseWeekday("wed"); err == nil {
		t.Error("lowercase weekday accepted")
	}
	if _, err := ParseWeekday("FUNDAY"); err == nil {
		t.Error("bogus weekday accepted")
	}
}

package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pillmind/go-adherence/internal/timeutil"
)

func tod(h, m int) timeutil.TimeOfDay { return timeutil.TimeOfDay{Hour: h, Minute: m} }

func datePtr(y int, m time.Month, d int) *timeutil.Date {
	return &timeutil.Date{Year: y, Month: m, Day: d}
}

func TestExpandWeekly(t *testing.T) {
	s := Schedule{
		ID:       uuid.New(),
		Timezone: "UTC",
		Days:     []Weekday{Monday, Wednesday, Friday},
		Times:    []timeutil.TimeOfDay{tod(8, 0), tod(20, 0)},
	}

	// 2025-06-02 is a Monday. Seven full days cover Mon, Wed, Fri once each.
	from := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	to := from.Add(7 * 24 * time.Hour)

	got, err := s.Expand(from, to)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != 6 {
		t.Fatalf("Expand returned %d instants, want 6", len(got))
	}

	want := []time.Time{
		time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC),
		time.Date(2025, time.June, 2, 20, 0, 0, 0, time.UTC),
		time.Date(2025, time.June, 4, 8, 0, 0, 0, time.UTC),
		time.Date(2025, time.June, 4, 20, 0, 0, 0, time.UTC),
		time.Date(2025, time.June, 6, 8, 0, 0, 0, time.UTC),
		time.Date(2025, time.June, 6, 20, 0, 0, 0, time.UTC),
	}
	for i, w := range want {
		if !got[i].Equal(w) {
			t.Errorf("instant[%d] = %v, want %v", i, got[i], w)
		}
	}
}

func TestExpandEmptySets(t *testing.T) {
	from := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	to := from.Add(7 * 24 * time.Hour)

	noDays := Schedule{Timezone: "UTC", Times: []timeutil.TimeOfDay{tod(8, 0)}}
	if got, err := noDays.Expand(from, to); err != nil || len(got) != 0 {
		t.Errorf("no days: got %d instants, err %v", len(got), err)
	}

	noTimes := Schedule{Timezone: "UTC", Days: []Weekday{Monday}}
	if got, err := noTimes.Expand(from, to); err != nil || len(got) != 0 {
		t.Errorf("no times: got %d instants, err %v", len(got), err)
	}
}

func TestExpandInvertedWindow(t *testing.T) {
	s := Schedule{Timezone: "UTC", Days: []Weekday{Monday}, Times: []timeutil.TimeOfDay{tod(8, 0)}}
	from := time.Date(2025, time.June, 9, 0, 0, 0, 0, time.UTC)
	got, err := s.Expand(from, from.Add(-time.Hour))
	if err != nil || len(got) != 0 {
		t.Errorf("inverted window: got %d instants, err %v", len(got), err)
	}
}

func TestExpandEndDateTruncates(t *testing.T) {
	s := Schedule{
		Timezone: "UTC",
		Days:     []Weekday{Monday, Wednesday, Friday},
		Times:    []timeutil.TimeOfDay{tod(8, 0)},
		EndDate:  datePtr(2025, time.June, 4),
	}

	from := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	to := from.Add(14 * 24 * time.Hour)

	got, err := s.Expand(from, to)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	// Only Mon Jun 2 and Wed Jun 4; Friday falls past the end date.
	if len(got) != 2 {
		t.Fatalf("Expand returned %d instants, want 2", len(got))
	}
	last := time.Date(2025, time.June, 4, 8, 0, 0, 0, time.UTC)
	if !got[1].Equal(last) {
		t.Errorf("last instant = %v, want %v", got[1], last)
	}
}

func TestExpandStartDateSkipsEarlierDays(t *testing.T) {
	s := Schedule{
		Timezone:  "UTC",
		Days:      []Weekday{Monday, Wednesday},
		Times:     []timeutil.TimeOfDay{tod(8, 0)},
		StartDate: datePtr(2025, time.June, 4),
	}

	from := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	to := from.Add(7 * 24 * time.Hour)

	got, err := s.Expand(from, to)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expand returned %d instants, want 1", len(got))
	}
	want := time.Date(2025, time.June, 4, 8, 0, 0, 0, time.UTC)
	if !got[0].Equal(want) {
		t.Errorf("instant = %v, want %v", got[0], want)
	}
}

func TestExpandDSTOffsetShift(t *testing.T) {
	s := Schedule{
		Timezone: "America/New_York",
		Days:     []Weekday{Saturday, Sunday},
		Times:    []timeutil.TimeOfDay{tod(8, 0)},
	}

	// The window spans the 2025-03-09 spring-forward transition. Saturday's
	// 08:00 is EST (UTC-5), Sunday's is EDT (UTC-4).
	from := time.Date(2025, time.March, 8, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

	got, err := s.Expand(from, to)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expand returned %d instants, want 2", len(got))
	}
	if got[0].UTC().Hour() != 13 {
		t.Errorf("Saturday instant = %02d:00 UTC, want 13:00", got[0].UTC().Hour())
	}
	if got[1].UTC().Hour() != 12 {
		t.Errorf("Sunday instant = %02d:00 UTC, want 12:00", got[1].UTC().Hour())
	}
}

func TestClampEnd(t *testing.T) {
	s := Schedule{EndDate: datePtr(2025, time.June, 20)}

	clamped := s.ClampEnd(datePtr(2025, time.June, 10))
	if clamped.EndDate == nil || clamped.EndDate.Day != 10 {
		t.Errorf("clamp to earlier bound: EndDate = %v", clamped.EndDate)
	}
	if s.EndDate.Day != 20 {
		t.Error("ClampEnd mutated the receiver")
	}

	unchanged := s.ClampEnd(datePtr(2025, time.June, 30))
	if unchanged.EndDate.Day != 20 {
		t.Errorf("later bound should not clamp: EndDate = %v", unchanged.EndDate)
	}

	open := Schedule{}
	bounded := open.ClampEnd(datePtr(2025, time.June, 10))
	if bounded.EndDate == nil || bounded.EndDate.Day != 10 {
		t.Errorf("open end should take the bound: EndDate = %v", bounded.EndDate)
	}
	if nilBound := s.ClampEnd(nil); nilBound.EndDate.Day != 20 {
		t.Errorf("nil bound should not clamp: EndDate = %v", nilBound.EndDate)
	}
}

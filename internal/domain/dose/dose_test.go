package dose

import (
	"math"
	"testing"
	"time"

	"github.com/pillmind/go-adherence/internal/errs"
)

func TestTake(t *testing.T) {
	at := time.Date(2025, time.June, 2, 8, 5, 0, 0, time.UTC)

	l := Log{Status: StatusScheduled}
	if err := l.Take(at); err != nil {
		t.Fatalf("Take: %v", err)
	}
	if l.Status != StatusTaken {
		t.Errorf("status = %s, want TAKEN", l.Status)
	}
	if l.TakenAt == nil || !l.TakenAt.Equal(at) {
		t.Errorf("TakenAt = %v, want %v", l.TakenAt, at)
	}

	for _, status := range []Status{StatusTaken, StatusSkipped, StatusMissed} {
		l := Log{Status: status}
		err := l.Take(at)
		if err == nil {
			t.Errorf("Take from %s succeeded", status)
			continue
		}
		if !errs.IsValidation(err) {
			t.Errorf("Take from %s: kind = %v, want validation", status, errs.KindOf(err))
		}
	}
}

func TestSkip(t *testing.T) {
	l := Log{Status: StatusScheduled}
	if err := l.Skip(); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if l.Status != StatusSkipped {
		t.Errorf("status = %s, want SKIPPED", l.Status)
	}
	if l.TakenAt != nil {
		t.Error("Skip set TakenAt")
	}

	if err := l.Skip(); err == nil {
		t.Error("Skip from SKIPPED succeeded")
	}
}

func TestMarkMissed(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}

	// Scheduled 08:00 New York time, which is 13:00 UTC in summer.
	scheduled := time.Date(2025, time.June, 2, 13, 0, 0, 0, time.UTC)

	l := Log{Status: StatusScheduled, ScheduledFor: scheduled}
	before := scheduled.Add(-time.Hour)
	if l.MarkMissed(before, ny) {
		t.Error("dose missed before its scheduled time")
	}
	if l.MarkMissed(scheduled, ny) {
		t.Error("dose missed at exactly its scheduled time")
	}

	after := scheduled.Add(time.Hour)
	if !l.MarkMissed(after, ny) {
		t.Fatal("overdue dose not marked missed")
	}
	if l.Status != StatusMissed {
		t.Errorf("status = %s, want MISSED", l.Status)
	}

	// Idempotent: a second pass reports no transition.
	if l.MarkMissed(after, ny) {
		t.Error("already missed dose marked again")
	}

	taken := Log{Status: StatusTaken, ScheduledFor: scheduled}
	if taken.MarkMissed(after, ny) {
		t.Error("taken dose marked missed")
	}
}

func TestApplyEdit(t *testing.T) {
	orig := time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC)
	l := Log{Status: StatusScheduled, ScheduledFor: orig}

	status := StatusTaken
	at := orig.Add(10 * time.Minute)
	qty := 2.0
	unit := "tablet"
	if err := l.ApplyEdit(Edit{Status: &status, TakenAt: &at, Quantity: &qty, Unit: &unit}); err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	if l.Status != StatusTaken || l.TakenAt == nil || !l.TakenAt.Equal(at) {
		t.Errorf("edit not applied: status %s, takenAt %v", l.Status, l.TakenAt)
	}
	if l.Quantity == nil || *l.Quantity != 2.0 || l.Unit == nil || *l.Unit != "tablet" {
		t.Errorf("snapshot not applied: qty %v, unit %v", l.Quantity, l.Unit)
	}
	if !l.ScheduledFor.Equal(orig) {
		t.Error("nil ScheduledFor field modified the log")
	}

	nan := math.NaN()
	if err := l.ApplyEdit(Edit{Quantity: &nan}); err == nil {
		t.Error("NaN quantity accepted")
	}

	bogus := Status("LOST")
	if err := l.ApplyEdit(Edit{Status: &bogus}); err == nil {
		t.Error("invalid status accepted")
	}
	if l.Status != StatusTaken {
		t.Error("failed edit mutated status")
	}
}

func TestParseStatus(t *testing.T) {
	if s, err := ParseStatus("MISSED"); err != nil || s != StatusMissed {
		t.Errorf("ParseStatus(MISSED) = %v, %v", s, err)
	}
	if _, err := ParseStatus("missed"); err == nil {
		t.Error("lowercase status accepted")
	}
}

func TestSummarize(t *testing.T) {
	logs := []Log{
		{Status: StatusTaken}, {Status: StatusTaken}, {Status: StatusTaken},
		{Status: StatusMissed},
		{Status: StatusSkipped},
		{Status: StatusScheduled}, {Status: StatusScheduled},
	}
	s := Summarize(logs)
	if s.Taken != 3 || s.Missed != 1 || s.Skipped != 1 || s.Scheduled != 2 {
		t.Fatalf("Summarize = %+v", s)
	}

	// 3 taken of 5 resolved; pending doses stay out of the denominator.
	if rate := s.AdherenceRate(); rate != 60 {
		t.Errorf("AdherenceRate = %v, want 60", rate)
	}
}

func TestAdherenceRateNoResolved(t *testing.T) {
	s := Summarize([]Log{{Status: StatusScheduled}})
	if rate := s.AdherenceRate(); rate != 0 {
		t.Errorf("AdherenceRate with no resolved doses = %v, want 0", rate)
	}
}

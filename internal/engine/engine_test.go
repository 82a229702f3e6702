package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pillmind/go-adherence/internal/domain/dose"
	"github.com/pillmind/go-adherence/internal/domain/notification"
	"github.com/pillmind/go-adherence/internal/domain/schedule"
	"github.com/pillmind/go-adherence/internal/timeutil"
)

type fakeDoseStore struct {
	// scheduled is keyed by (schedule id, instant) to mirror the storage
	// uniqueness guard.
	scheduled  map[string]*dose.Log
	due        []dose.DueDose
	missed     map[uuid.UUID]bool
	candidates []dose.ReminderCandidate
}

func newFakeDoseStore() *fakeDoseStore {
	return &fakeDoseStore{
		scheduled: make(map[string]*dose.Log),
		missed:    make(map[uuid.UUID]bool),
	}
}

func instanceKey(scheduleID *uuid.UUID, at time.Time) string {
	id := ""
	if scheduleID != nil {
		id = scheduleID.String()
	}
	return id + "|" + at.UTC().Format(time.RFC3339)
}

func (f *fakeDoseStore) CreateScheduled(_ context.Context, l *dose.Log) (bool, error) {
	key := instanceKey(l.ScheduleID, l.ScheduledFor)
	if _, ok := f.scheduled[key]; ok {
		return false, nil
	}
	f.scheduled[key] = l
	return true, nil
}

func (f *fakeDoseStore) ListDueScheduled(_ context.Context, before time.Time, _ int) ([]dose.DueDose, error) {
	var out []dose.DueDose
	for _, d := range f.due {
		if d.Status == dose.StatusScheduled && d.ScheduledFor.Before(before) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDoseStore) MarkMissed(_ context.Context, id uuid.UUID) (bool, error) {
	for i := range f.due {
		if f.due[i].ID == id && f.due[i].Status == dose.StatusScheduled {
			f.due[i].Status = dose.StatusMissed
			f.missed[id] = true
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDoseStore) ListReminderCandidates(_ context.Context, from, to time.Time) ([]dose.ReminderCandidate, error) {
	var out []dose.ReminderCandidate
	for _, c := range f.candidates {
		if !c.ScheduledFor.Before(from) && !c.ScheduledFor.After(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeDoseStore) UpdateFutureSnapshots(_ context.Context, _ uuid.UUID, _ *float64, _ *string, _ time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeDoseStore) DeleteFutureScheduled(_ context.Context, _ uuid.UUID, _ time.Time) (int64, error) {
	return 0, nil
}

type fakeScheduleStore struct {
	jobs []schedule.GenerationJob
}

func (f *fakeScheduleStore) ListGenerationJobs(_ context.Context) ([]schedule.GenerationJob, error) {
	return f.jobs, nil
}

type fakeNotificationStore struct {
	enqueued []notification.ReminderMessage
}

func (f *fakeNotificationStore) EnqueueReminders(_ context.Context, msgs []notification.ReminderMessage) error {
	f.enqueued = append(f.enqueued, msgs...)
	return nil
}

func fixedClock(t time.Time) timeutil.Clock {
	return timeutil.ClockFunc(func() time.Time { return t })
}

func strPtr(s string) *string { return &s }

func TestMaterializeHorizonIdempotent(t *testing.T) {
	// 2025-06-02 is a Monday.
	now := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)

	sched := schedule.Schedule{
		ID:             uuid.New(),
		PrescriptionID: uuid.New(),
		Timezone:       "UTC",
		Days:           []schedule.Weekday{schedule.Monday, schedule.Wednesday},
		Times:          []timeutil.TimeOfDay{{Hour: 8}, {Hour: 20}},
	}

	doses := newFakeDoseStore()
	schedules := &fakeScheduleStore{jobs: []schedule.GenerationJob{
		{UserID: uuid.New(), Schedule: sched},
	}}
	eng := New(doses, schedules, &fakeNotificationStore{}, fixedClock(now), nil, nil)

	report, err := eng.MaterializeHorizon(context.Background(), now, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("MaterializeHorizon: %v", err)
	}
	// Mon Jun 2 and Wed Jun 4 at two times each; the following Monday's
	// instants land past the window edge.
	if report.Created != 4 || report.Duplicates != 0 {
		t.Fatalf("first run: created %d, duplicates %d, want 4/0", report.Created, report.Duplicates)
	}
	if len(report.Errors) != 0 {
		t.Fatalf("first run errors: %v", report.Errors)
	}

	report, err = eng.MaterializeHorizon(context.Background(), now, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("second MaterializeHorizon: %v", err)
	}
	if report.Created != 0 || report.Duplicates != 4 {
		t.Errorf("second run: created %d, duplicates %d, want 0/4", report.Created, report.Duplicates)
	}
}

func TestMaterializeHorizonSkipsAsNeeded(t *testing.T) {
	now := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)

	doses := newFakeDoseStore()
	schedules := &fakeScheduleStore{jobs: []schedule.GenerationJob{
		{
			UserID:   uuid.New(),
			AsNeeded: true,
			Schedule: schedule.Schedule{
				ID:       uuid.New(),
				Timezone: "UTC",
				Days:     []schedule.Weekday{schedule.Monday},
				Times:    []timeutil.TimeOfDay{{Hour: 8}},
			},
		},
	}}
	eng := New(doses, schedules, &fakeNotificationStore{}, fixedClock(now), nil, nil)

	report, err := eng.MaterializeHorizon(context.Background(), now, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("MaterializeHorizon: %v", err)
	}
	if report.Schedules != 0 || report.Created != 0 {
		t.Errorf("as-needed schedule materialized: %+v", report)
	}
}

func TestMaterializeHorizonClampsPrescriptionEnd(t *testing.T) {
	now := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)

	end := timeutil.Date{Year: 2025, Month: time.June, Day: 3}
	doses := newFakeDoseStore()
	schedules := &fakeScheduleStore{jobs: []schedule.GenerationJob{
		{
			UserID:          uuid.New(),
			PrescriptionEnd: &end,
			Schedule: schedule.Schedule{
				ID:       uuid.New(),
				Timezone: "UTC",
				Days:     []schedule.Weekday{schedule.Monday, schedule.Wednesday},
				Times:    []timeutil.TimeOfDay{{Hour: 8}},
			},
		},
	}}
	eng := New(doses, schedules, &fakeNotificationStore{}, fixedClock(now), nil, nil)

	report, err := eng.MaterializeHorizon(context.Background(), now, 14*24*time.Hour)
	if err != nil {
		t.Fatalf("MaterializeHorizon: %v", err)
	}
	// Only Monday June 2 precedes the prescription end; everything after is
	// clamped away.
	if report.Created != 1 {
		t.Errorf("created %d doses, want 1", report.Created)
	}
}

func TestSweepMissed(t *testing.T) {
	now := time.Date(2025, time.June, 2, 14, 0, 0, 0, time.UTC)

	overdue := dose.DueDose{
		Log: dose.Log{
			ID:           uuid.New(),
			Status:       dose.StatusScheduled,
			ScheduledFor: now.Add(-2 * time.Hour),
		},
		UserID:   uuid.New(),
		Timezone: "America/New_York",
	}
	notYet := dose.DueDose{
		Log: dose.Log{
			ID:           uuid.New(),
			Status:       dose.StatusScheduled,
			ScheduledFor: now.Add(time.Hour),
		},
		UserID:   uuid.New(),
		Timezone: "America/New_York",
	}

	doses := newFakeDoseStore()
	doses.due = []dose.DueDose{overdue, notYet}
	eng := New(doses, &fakeScheduleStore{}, &fakeNotificationStore{}, fixedClock(now), nil, nil)

	report, err := eng.SweepMissed(context.Background(), now)
	if err != nil {
		t.Fatalf("SweepMissed: %v", err)
	}
	if report.Missed != 1 {
		t.Fatalf("missed %d doses, want 1", report.Missed)
	}
	if !doses.missed[overdue.ID] {
		t.Error("overdue dose not flipped in storage")
	}
	if doses.missed[notYet.ID] {
		t.Error("future dose flipped in storage")
	}

	// Re-running reports nothing newly missed.
	report, err = eng.SweepMissed(context.Background(), now)
	if err != nil {
		t.Fatalf("second SweepMissed: %v", err)
	}
	if report.Missed != 0 {
		t.Errorf("second sweep missed %d doses, want 0", report.Missed)
	}
}

func TestSweepMissedBadTimezoneIsPerItem(t *testing.T) {
	now := time.Date(2025, time.June, 2, 14, 0, 0, 0, time.UTC)

	broken := dose.DueDose{
		Log: dose.Log{
			ID:           uuid.New(),
			Status:       dose.StatusScheduled,
			ScheduledFor: now.Add(-2 * time.Hour),
		},
		Timezone: "Not/AZone",
	}
	fine := dose.DueDose{
		Log: dose.Log{
			ID:           uuid.New(),
			Status:       dose.StatusScheduled,
			ScheduledFor: now.Add(-2 * time.Hour),
		},
		Timezone: "UTC",
	}

	doses := newFakeDoseStore()
	doses.due = []dose.DueDose{broken, fine}
	eng := New(doses, &fakeScheduleStore{}, &fakeNotificationStore{}, fixedClock(now), nil, nil)

	report, err := eng.SweepMissed(context.Background(), now)
	if err != nil {
		t.Fatalf("SweepMissed: %v", err)
	}
	if len(report.Errors) != 1 || report.Errors[0].ID != broken.ID.String() {
		t.Errorf("errors = %v, want one for the broken timezone", report.Errors)
	}
	if report.Missed != 1 || !doses.missed[fine.ID] {
		t.Error("healthy dose not processed after the broken one")
	}
}

func TestDispatchReminders(t *testing.T) {
	now := time.Date(2025, time.June, 2, 7, 59, 0, 0, time.UTC)
	userID := uuid.New()

	withContacts := dose.ReminderCandidate{
		Log: dose.Log{
			ID:           uuid.New(),
			ScheduledFor: now.Add(time.Minute),
			Status:       dose.StatusScheduled,
		},
		UserID:         userID,
		MedicationName: "Metformin",
		Channels:       []string{"push", "email"},
		PushoverKey:    strPtr("po-key"),
		Email:          strPtr("user@example.com"),
	}
	noEmail := dose.ReminderCandidate{
		Log: dose.Log{
			ID:           uuid.New(),
			ScheduledFor: now.Add(time.Minute),
			Status:       dose.StatusScheduled,
		},
		UserID:         userID,
		MedicationName: "Lisinopril",
		Channels:       []string{"push", "email"},
		PushoverKey:    strPtr("po-key"),
	}
	outsideWindow := dose.ReminderCandidate{
		Log: dose.Log{
			ID:           uuid.New(),
			ScheduledFor: now.Add(time.Hour),
			Status:       dose.StatusScheduled,
		},
		UserID:   userID,
		Channels: []string{"push"},
	}

	doses := newFakeDoseStore()
	doses.candidates = []dose.ReminderCandidate{withContacts, noEmail, outsideWindow}
	notifications := &fakeNotificationStore{}
	eng := New(doses, &fakeScheduleStore{}, notifications, fixedClock(now), nil, nil)

	report, err := eng.DispatchReminders(context.Background(), now, 2*time.Minute)
	if err != nil {
		t.Fatalf("DispatchReminders: %v", err)
	}
	if report.Candidates != 2 {
		t.Errorf("candidates = %d, want 2", report.Candidates)
	}
	// Both channels for the first dose, only push for the second.
	if report.Enqueued != 3 {
		t.Errorf("enqueued = %d, want 3", report.Enqueued)
	}
	if report.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", report.Skipped)
	}

	byChannel := map[string]int{}
	for _, msg := range notifications.enqueued {
		byChannel[msg.Channel]++
		if msg.Contact == "" {
			t.Errorf("message without contact on channel %s", msg.Channel)
		}
		if msg.NotificationID == uuid.Nil {
			t.Error("message without notification id")
		}
	}
	if byChannel["push"] != 2 || byChannel["email"] != 1 {
		t.Errorf("channel spread = %v, want push:2 email:1", byChannel)
	}
}

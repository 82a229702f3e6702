// Package engine implements the adherence engine's background operations:
// horizon materialization, missed-dose sweeping, and reminder dispatch. All
// three are pure functions of (now, window) over their stores, so the
// scheduler can re-run any of them without side effects beyond the intended
// state transitions.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pillmind/go-adherence/internal/domain/dose"
	"github.com/pillmind/go-adherence/internal/domain/notification"
	"github.com/pillmind/go-adherence/internal/domain/schedule"
	"github.com/pillmind/go-adherence/internal/domain/user"
	"github.com/pillmind/go-adherence/internal/observability/metrics"
	"github.com/pillmind/go-adherence/internal/timeutil"
)

// DoseStore is the dose persistence surface the engine depends on.
type DoseStore interface {
	CreateScheduled(ctx context.Context, l *dose.Log) (bool, error)
	ListDueScheduled(ctx context.Context, before time.Time, limit int) ([]dose.DueDose, error)
	MarkMissed(ctx context.Context, id uuid.UUID) (bool, error)
	ListReminderCandidates(ctx context.Context, from, to time.Time) ([]dose.ReminderCandidate, error)
	UpdateFutureSnapshots(ctx context.Context, scheduleID uuid.UUID, quantity *float64, unit *string, now time.Time) (int64, error)
	DeleteFutureScheduled(ctx context.Context, scheduleID uuid.UUID, after time.Time) (int64, error)
}

// ScheduleStore lists schedules eligible for materialization.
type ScheduleStore interface {
	ListGenerationJobs(ctx context.Context) ([]schedule.GenerationJob, error)
}

// NotificationStore enqueues reminder deliveries.
type NotificationStore interface {
	EnqueueReminders(ctx context.Context, msgs []notification.ReminderMessage) error
}

// Engine coordinates the background operations over the stores.
type Engine struct {
	doses         DoseStore
	schedules     ScheduleStore
	notifications NotificationStore
	clock         timeutil.Clock
	metrics       *metrics.Metrics
	logger        *zap.Logger
	tracer        trace.Tracer
}

// sweepPageSize bounds how many due doses one sweep iteration loads.
const sweepPageSize = 1000

// New creates an engine. Metrics may be nil in tests.
func New(doses DoseStore, schedules ScheduleStore, notifications NotificationStore, clock timeutil.Clock, m *metrics.Metrics, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &Engine{
		doses:         doses,
		schedules:     schedules,
		notifications: notifications,
		clock:         clock,
		metrics:       m,
		logger:        logger,
		tracer:        otel.Tracer("engine"),
	}
}

// ItemError records a per-item failure inside a batch operation. Batch
// operations never abort on one bad item; they collect and keep going.
type ItemError struct {
	ID  string
	Err error
}

// MaterializeReport summarizes one materialization run.
type MaterializeReport struct {
	Schedules  int
	Created    int
	Duplicates int
	Errors     []ItemError
}

// MaterializeHorizon expands every active fixed-time schedule over
// [now, now+horizon] and inserts the resulting dose instances. Re-running is
// safe: the storage uniqueness guard absorbs doses that already exist, and
// they are reported as duplicates.
func (e *Engine) MaterializeHorizon(ctx context.Context, now time.Time, horizon time.Duration) (MaterializeReport, error) {
	ctx, span := e.tracer.Start(ctx, "materialize_horizon",
		trace.WithAttributes(attribute.String("horizon", horizon.String())))
	defer span.End()

	var report MaterializeReport

	jobs, err := e.schedules.ListGenerationJobs(ctx)
	if err != nil {
		span.RecordError(err)
		return report, err
	}

	to := now.Add(horizon)
	for _, job := range jobs {
		if job.AsNeeded {
			continue
		}
		report.Schedules++

		sched := job.Schedule.ClampEnd(job.PrescriptionEnd)

		instants, err := sched.Expand(now, to)
		if err != nil {
			report.Errors = append(report.Errors, ItemError{ID: sched.ID.String(), Err: err})
			e.logger.Warn("schedule expansion failed",
				zap.String("schedule_id", sched.ID.String()),
				zap.Error(err))
			continue
		}

		for _, at := range instants {
			l := &dose.Log{
				ID:             uuid.New(),
				PrescriptionID: sched.PrescriptionID,
				ScheduleID:     &sched.ID,
				ScheduledFor:   at,
				Status:         dose.StatusScheduled,
				Quantity:       sched.Quantity,
				Unit:           sched.Unit,
			}
			created, err := e.doses.CreateScheduled(ctx, l)
			if err != nil {
				report.Errors = append(report.Errors, ItemError{ID: sched.ID.String(), Err: err})
				continue
			}
			if created {
				report.Created++
			} else {
				report.Duplicates++
			}
		}
	}

	if e.metrics != nil {
		e.metrics.DosesMaterialized.Add(float64(report.Created))
		e.metrics.DosesDuplicate.Add(float64(report.Duplicates))
	}

	e.logger.Info("horizon materialized",
		zap.Int("schedules", report.Schedules),
		zap.Int("created", report.Created),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("errors", len(report.Errors)))

	return report, nil
}

// SweepReport summarizes one missed sweep.
type SweepReport struct {
	Examined int
	Missed   int
	Errors   []ItemError
}

// SweepMissed transitions overdue SCHEDULED doses to MISSED. A dose is
// overdue when its scheduled wall-clock time has passed in the owner's
// timezone, which is not the same as its UTC instant having passed. The
// storage guard only flips rows still SCHEDULED, so a concurrent take or a
// sweep re-run cannot double-process.
func (e *Engine) SweepMissed(ctx context.Context, now time.Time) (SweepReport, error) {
	ctx, span := e.tracer.Start(ctx, "sweep_missed")
	defer span.End()

	var report SweepReport

	// The storage prefilter compares UTC instants; the wall-clock check
	// below is authoritative. The two can disagree only across a DST
	// offset change, so the bound is widened to cover the largest shift.
	bound := now.Add(3 * time.Hour)

	due, err := e.doses.ListDueScheduled(ctx, bound, sweepPageSize)
	if err != nil {
		span.RecordError(err)
		return report, err
	}

	for _, d := range due {
		report.Examined++

		loc, err := timeutil.LoadZone(d.Timezone)
		if err != nil {
			report.Errors = append(report.Errors, ItemError{ID: d.ID.String(), Err: err})
			continue
		}

		l := d.Log
		if !l.MarkMissed(now, loc) {
			continue
		}

		flipped, err := e.doses.MarkMissed(ctx, d.ID)
		if err != nil {
			report.Errors = append(report.Errors, ItemError{ID: d.ID.String(), Err: err})
			continue
		}
		if flipped {
			report.Missed++
		}
	}

	if e.metrics != nil {
		e.metrics.DosesMissed.Add(float64(report.Missed))
	}

	if report.Missed > 0 || len(report.Errors) > 0 {
		e.logger.Info("missed sweep complete",
			zap.Int("examined", report.Examined),
			zap.Int("missed", report.Missed),
			zap.Int("errors", len(report.Errors)))
	}

	return report, nil
}

// DispatchReport summarizes one reminder dispatch run.
type DispatchReport struct {
	Candidates int
	Enqueued   int
	Skipped    int
}

// DispatchReminders finds SCHEDULED doses due within [now, now+window] that
// have not been reminded yet and enqueues one delivery per configured
// channel. A channel without contact details is skipped, not failed; other
// channels for the same dose still go out. Gating is per dose: once any
// delivery row exists the dose never re-enters the candidate set.
func (e *Engine) DispatchReminders(ctx context.Context, now time.Time, window time.Duration) (DispatchReport, error) {
	ctx, span := e.tracer.Start(ctx, "dispatch_reminders",
		trace.WithAttributes(attribute.String("window", window.String())))
	defer span.End()

	var report DispatchReport

	cands, err := e.doses.ListReminderCandidates(ctx, now, now.Add(window))
	if err != nil {
		span.RecordError(err)
		return report, err
	}
	report.Candidates = len(cands)

	var msgs []notification.ReminderMessage
	for _, c := range cands {
		for _, channel := range c.Channels {
			contact, ok := contactFor(channel, c.PushoverKey, c.Email)
			if !ok {
				report.Skipped++
				e.logger.Debug("no contact for channel",
					zap.String("dose_id", c.ID.String()),
					zap.String("channel", channel))
				continue
			}
			msgs = append(msgs, notification.ReminderMessage{
				NotificationID: uuid.New(),
				UserID:         c.UserID,
				DoseID:         c.ID,
				Channel:        channel,
				Contact:        contact,
				MedicationName: c.MedicationName,
				Timezone:       c.Timezone,
				ScheduledFor:   c.ScheduledFor,
				Quantity:       c.Quantity,
				Unit:           c.Unit,
			})
		}
	}

	if err := e.notifications.EnqueueReminders(ctx, msgs); err != nil {
		span.RecordError(err)
		return report, err
	}
	report.Enqueued = len(msgs)

	if e.metrics != nil {
		e.metrics.RemindersDispatched.Add(float64(report.Enqueued))
	}

	if report.Enqueued > 0 {
		e.logger.Info("reminders dispatched",
			zap.Int("candidates", report.Candidates),
			zap.Int("enqueued", report.Enqueued),
			zap.Int("skipped", report.Skipped))
	}

	return report, nil
}

func contactFor(channel string, pushoverKey, email *string) (string, bool) {
	switch channel {
	case user.ChannelPush:
		if pushoverKey != nil && *pushoverKey != "" {
			return *pushoverKey, true
		}
	case user.ChannelEmail:
		if email != nil && *email != "" {
			return *email, true
		}
	}
	return "", false
}

// PropagateScheduleSnapshot rewrites the quantity/unit snapshot on the
// schedule's future SCHEDULED doses. History keeps its original values.
func (e *Engine) PropagateScheduleSnapshot(ctx context.Context, scheduleID uuid.UUID, quantity *float64, unit *string) (int64, error) {
	ctx, span := e.tracer.Start(ctx, "propagate_schedule_snapshot",
		trace.WithAttributes(attribute.String("schedule_id", scheduleID.String())))
	defer span.End()

	n, err := e.doses.UpdateFutureSnapshots(ctx, scheduleID, quantity, unit, e.clock.Now())
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	e.logger.Info("schedule snapshot propagated",
		zap.String("schedule_id", scheduleID.String()),
		zap.Int64("updated", n))
	return n, nil
}

// CleanupFutureDoses deletes the schedule's future SCHEDULED instances,
// for when a schedule is removed or its validity window shrinks. Resolved
// history is never touched.
func (e *Engine) CleanupFutureDoses(ctx context.Context, scheduleID uuid.UUID) (int64, error) {
	ctx, span := e.tracer.Start(ctx, "cleanup_future_doses",
		trace.WithAttributes(attribute.String("schedule_id", scheduleID.String())))
	defer span.End()

	n, err := e.doses.DeleteFutureScheduled(ctx, scheduleID, e.clock.Now())
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	e.logger.Info("future doses removed",
		zap.String("schedule_id", scheduleID.String()),
		zap.Int64("deleted", n))
	return n, nil
}

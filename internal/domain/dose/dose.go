// Package dose implements the lifecycle of a single dose instance: the
// scheduled/taken/skipped/missed state machine, manual edits, and the
// adherence-rate summary derived from a set of instances.
package dose

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/pillmind/go-adherence/internal/errs"
	"github.com/pillmind/go-adherence/internal/timeutil"
)

// Status is the lifecycle state of a dose instance.
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusTaken     Status = "TAKEN"
	StatusSkipped   Status = "SKIPPED"
	StatusMissed    Status = "MISSED"
)

// ParseStatus validates a status token.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusScheduled, StatusTaken, StatusSkipped, StatusMissed:
		return Status(s), nil
	}
	return "", errs.Newf(errs.KindValidation, "invalid dose status %q", s)
}

// Log is one concrete expected-or-recorded medication event. Quantity and
// Unit are snapshots taken from the schedule at materialization time; a later
// schedule edit does not reach back into them.
type Log struct {
	ID             uuid.UUID
	PrescriptionID uuid.UUID
	ScheduleID     *uuid.UUID // nil for manually logged doses
	ScheduledFor   time.Time  // absolute UTC instant
	Status         Status
	TakenAt        *time.Time
	Quantity       *float64
	Unit           *string
}

// Take records a manual take. Only SCHEDULED doses transition; there is no
// deadline, a dose may be taken arbitrarily late.
func (l *Log) Take(at time.Time) error {
	if l.Status != StatusScheduled {
		return errs.Newf(errs.KindValidation, "cannot take dose in status %s", l.Status)
	}
	at = at.UTC()
	l.Status = StatusTaken
	l.TakenAt = &at
	return nil
}

// Skip records a manual skip. TakenAt stays unset.
func (l *Log) Skip() error {
	if l.Status != StatusScheduled {
		return errs.Newf(errs.KindValidation, "cannot skip dose in status %s", l.Status)
	}
	l.Status = StatusSkipped
	return nil
}

// MarkMissed applies the automatic missed-detection rule: a SCHEDULED dose
// whose scheduled instant, read as wall-clock time in the owning user's
// timezone, is strictly earlier than now in that same zone becomes MISSED.
// Returns true when a transition happened, so a sweep re-run over already
// missed doses reports zero newly-marked items.
func (l *Log) MarkMissed(now time.Time, userZone *time.Location) bool {
	if l.Status != StatusScheduled {
		return false
	}
	if !timeutil.WallClockBefore(l.ScheduledFor, now, userZone) {
		return false
	}
	l.Status = StatusMissed
	return true
}

// Edit is a manual field correction. Nil fields are left untouched. Status
// changes here are administrative: the system forbids only automatic
// transitions out of terminal states, not explicit user corrections.
type Edit struct {
	Status       *Status
	ScheduledFor *time.Time
	TakenAt      *time.Time
	Quantity     *float64
	Unit         *string
}

// ApplyEdit validates and applies a manual correction.
func (l *Log) ApplyEdit(e Edit) error {
	if e.Quantity != nil && (math.IsNaN(*e.Quantity) || math.IsInf(*e.Quantity, 0)) {
		return errs.New(errs.KindValidation, "dose quantity must be a finite number")
	}
	if e.Status != nil {
		if _, err := ParseStatus(string(*e.Status)); err != nil {
			return err
		}
		l.Status = *e.Status
	}
	if e.ScheduledFor != nil {
		t := e.ScheduledFor.UTC()
		l.ScheduledFor = t
	}
	if e.TakenAt != nil {
		t := e.TakenAt.UTC()
		l.TakenAt = &t
	}
	if e.Quantity != nil {
		q := *e.Quantity
		l.Quantity = &q
	}
	if e.Unit != nil {
		u := *e.Unit
		l.Unit = &u
	}
	return nil
}

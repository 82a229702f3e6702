package dose

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/pillmind/go-adherence/internal/errs"
)

// Repository provides dose log persistence.
type Repository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{pool: pool, logger: logger}
}

// CreateScheduled inserts a materialized dose instance. The unique constraint
// on (prescription_id, schedule_id, scheduled_for) is the authoritative
// concurrency guard: when another run already created the row, the insert is
// absorbed and created is false.
func (r *Repository) CreateScheduled(ctx context.Context, l *Log) (created bool, err error) {
	query := `
		INSERT INTO dose_logs (id, prescription_id, schedule_id, scheduled_for, status, quantity, unit)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (prescription_id, schedule_id, scheduled_for) DO NOTHING
	`
	tag, err := r.pool.Exec(ctx, query,
		l.ID, l.PrescriptionID, l.ScheduleID, l.ScheduledFor, l.Status, l.Quantity, l.Unit,
	)
	if err != nil {
		return false, errs.Wrap(errs.KindTransient, err, "insert dose")
	}
	return tag.RowsAffected() == 1, nil
}

// Insert persists a manually logged dose (PRN or ad hoc).
func (r *Repository) Insert(ctx context.Context, l *Log) error {
	query := `
		INSERT INTO dose_logs (id, prescription_id, schedule_id, scheduled_for, status, taken_at, quantity, unit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		l.ID, l.PrescriptionID, l.ScheduleID, l.ScheduledFor, l.Status, l.TakenAt, l.Quantity, l.Unit,
	)
	return errs.Wrap(errs.KindTransient, err, "insert dose")
}

// GetForUser loads a dose owned by the given user. A dose belonging to
// another user's prescription reports not-found, never forbidden, so the
// response does not leak existence.
func (r *Repository) GetForUser(ctx context.Context, userID, id uuid.UUID) (*Log, error) {
	query := `
		SELECT d.` + doseColumnsQualified("d") + `
		FROM dose_logs d
		JOIN prescriptions p ON p.id = d.prescription_id
		WHERE d.id = $1 AND p.user_id = $2
	`
	l := &Log{}
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&l.ID, &l.PrescriptionID, &l.ScheduleID, &l.ScheduledFor, &l.Status, &l.TakenAt, &l.Quantity, &l.Unit,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.Newf(errs.KindNotFound, "dose %s not found", id)
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, err, "load dose")
	}
	return l, nil
}

// Update writes back every mutable field of a dose. Single-row, all-or-nothing.
func (r *Repository) Update(ctx context.Context, l *Log) error {
	query := `
		UPDATE dose_logs
		SET scheduled_for = $2, status = $3, taken_at = $4, quantity = $5, unit = $6
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, l.ID, l.ScheduledFor, l.Status, l.TakenAt, l.Quantity, l.Unit)
	if err != nil {
		return errs.Wrap(errs.KindTransient, err, "update dose")
	}
	if tag.RowsAffected() == 0 {
		return errs.Newf(errs.KindNotFound, "dose %s not found", l.ID)
	}
	return nil
}

// MarkMissed transitions a dose to MISSED only if it is still SCHEDULED, so
// a re-run of the sweep never double-processes.
func (r *Repository) MarkMissed(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `UPDATE dose_logs SET status = $2 WHERE id = $1 AND status = $3`
	tag, err := r.pool.Exec(ctx, query, id, StatusMissed, StatusScheduled)
	if err != nil {
		return false, errs.Wrap(errs.KindTransient, err, "mark missed")
	}
	return tag.RowsAffected() == 1, nil
}

// Query is the typed filter for dose listings.
type Query struct {
	PrescriptionIDs []uuid.UUID
	From            *time.Time
	To              *time.Time
	Status          *Status
}

// List returns the user's doses matching the query, ordered by scheduled
// instant.
func (r *Repository) List(ctx context.Context, userID uuid.UUID, q Query) ([]Log, error) {
	query := `
		SELECT d.` + doseColumnsQualified("d") + `
		FROM dose_logs d
		JOIN prescriptions p ON p.id = d.prescription_id
		WHERE p.user_id = $1
	`
	args := []interface{}{userID}
	if len(q.PrescriptionIDs) > 0 {
		args = append(args, q.PrescriptionIDs)
		query += fmt.Sprintf(" AND d.prescription_id = ANY($%d)", len(args))
	}
	if q.From != nil {
		args = append(args, *q.From)
		query += fmt.Sprintf(" AND d.scheduled_for >= $%d", len(args))
	}
	if q.To != nil {
		args = append(args, *q.To)
		query += fmt.Sprintf(" AND d.scheduled_for <= $%d", len(args))
	}
	if q.Status != nil {
		args = append(args, *q.Status)
		query += fmt.Sprintf(" AND d.status = $%d", len(args))
	}
	query += " ORDER BY d.scheduled_for ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, err, "query doses")
	}
	defer rows.Close()

	var logs []Log
	for rows.Next() {
		var l Log
		if err := rows.Scan(&l.ID, &l.PrescriptionID, &l.ScheduleID, &l.ScheduledFor, &l.Status, &l.TakenAt, &l.Quantity, &l.Unit); err != nil {
			return nil, errs.Wrap(errs.KindTransient, err, "scan dose")
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// DueDose is a SCHEDULED dose joined with its owner and the owner's current
// timezone setting, which is authoritative for missed detection.
type DueDose struct {
	Log
	UserID   uuid.UUID
	Timezone string
}

// ListDueScheduled returns SCHEDULED doses whose instant is before the given
// bound. The wall-clock comparison in the user's zone happens in the sweep;
// this is only the storage-level prefilter.
func (r *Repository) ListDueScheduled(ctx context.Context, before time.Time, limit int) ([]DueDose, error) {
	query := `
		SELECT d.` + doseColumnsQualified("d") + `, p.user_id, COALESCE(us.timezone, 'UTC')
		FROM dose_logs d
		JOIN prescriptions p ON p.id = d.prescription_id
		LEFT JOIN user_settings us ON us.user_id = p.user_id
		WHERE d.status = $1 AND d.scheduled_for < $2
		ORDER BY d.scheduled_for ASC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, StatusScheduled, before, limit)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, err, "query due doses")
	}
	defer rows.Close()

	var due []DueDose
	for rows.Next() {
		var d DueDose
		if err := rows.Scan(&d.ID, &d.PrescriptionID, &d.ScheduleID, &d.ScheduledFor, &d.Status, &d.TakenAt, &d.Quantity, &d.Unit, &d.UserID, &d.Timezone); err != nil {
			return nil, errs.Wrap(errs.KindTransient, err, "scan due dose")
		}
		due = append(due, d)
	}
	return due, rows.Err()
}

// ReminderCandidate is a SCHEDULED dose inside the reminder window that has
// no notification log row yet, joined with the contact details needed to
// deliver on each configured channel.
type ReminderCandidate struct {
	Log
	UserID         uuid.UUID
	MedicationName string
	Timezone       string
	Channels       []string
	PushoverKey    *string
	Email          *string
}

// ListReminderCandidates returns doses eligible for a reminder in
// [from, to]. The NOT EXISTS clause implements per-dose gating: any prior
// notification log row for the dose suppresses re-dispatch.
func (r *Repository) ListReminderCandidates(ctx context.Context, from, to time.Time) ([]ReminderCandidate, error) {
	query := `
		SELECT d.` + doseColumnsQualified("d") + `,
		       p.user_id, m.name,
		       COALESCE(us.timezone, 'UTC'),
		       COALESCE(us.default_channels, '{push}'),
		       us.pushover_key, us.email
		FROM dose_logs d
		JOIN prescriptions p ON p.id = d.prescription_id
		JOIN medications m ON m.id = p.medication_id
		LEFT JOIN user_settings us ON us.user_id = p.user_id
		WHERE d.status = $1
		  AND d.scheduled_for >= $2 AND d.scheduled_for <= $3
		  AND NOT EXISTS (
			SELECT 1 FROM notification_logs nl WHERE nl.dose_id = d.id
		  )
		ORDER BY d.scheduled_for ASC
	`
	rows, err := r.pool.Query(ctx, query, StatusScheduled, from, to)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, err, "query reminder candidates")
	}
	defer rows.Close()

	var out []ReminderCandidate
	for rows.Next() {
		var c ReminderCandidate
		if err := rows.Scan(&c.ID, &c.PrescriptionID, &c.ScheduleID, &c.ScheduledFor, &c.Status, &c.TakenAt, &c.Quantity, &c.Unit,
			&c.UserID, &c.MedicationName, &c.Timezone, &c.Channels, &c.PushoverKey, &c.Email); err != nil {
			return nil, errs.Wrap(errs.KindTransient, err, "scan reminder candidate")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateFutureSnapshots is the bulk companion to schedule edits: it rewrites
// the quantity/unit snapshot on future SCHEDULED instances only. History
// keeps the values it was created with.
func (r *Repository) UpdateFutureSnapshots(ctx context.Context, scheduleID uuid.UUID, quantity *float64, unit *string, now time.Time) (int64, error) {
	query := `
		UPDATE dose_logs
		SET quantity = $2, unit = $3
		WHERE schedule_id = $1 AND status = $4 AND scheduled_for >= $5
	`
	tag, err := r.pool.Exec(ctx, query, scheduleID, quantity, unit, StatusScheduled, now)
	if err != nil {
		return 0, errs.Wrap(errs.KindTransient, err, "update future snapshots")
	}
	return tag.RowsAffected(), nil
}

// DeleteFutureScheduled removes not-yet-due SCHEDULED instances of a
// schedule, used when a validity window shrinks or a schedule is deleted.
// Taken, skipped and missed history is never touched.
func (r *Repository) DeleteFutureScheduled(ctx context.Context, scheduleID uuid.UUID, after time.Time) (int64, error) {
	query := `
		DELETE FROM dose_logs
		WHERE schedule_id = $1 AND status = $2 AND scheduled_for >= $3
	`
	tag, err := r.pool.Exec(ctx, query, scheduleID, StatusScheduled, after)
	if err != nil {
		return 0, errs.Wrap(errs.KindTransient, err, "delete future doses")
	}
	return tag.RowsAffected(), nil
}

func doseColumnsQualified(alias string) string {
	return `id, ` + alias + `.prescription_id, ` + alias + `.schedule_id, ` + alias + `.scheduled_for, ` + alias + `.status, ` + alias + `.taken_at, ` + alias + `.quantity, ` + alias + `.unit`
}

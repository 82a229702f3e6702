package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/pillmind/go-adherence/internal/errs"
	"github.com/pillmind/go-adherence/internal/infrastructure/postgres"
	"github.com/pillmind/go-adherence/internal/infrastructure/redpanda"
)

// Repository provides notification log persistence.
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

// EnqueueReminders inserts a QUEUED log row per message and the matching
// outbox entries in one transaction. The dispatch sweep that produced the
// messages relies on this atomicity: a log row without an outbox entry would
// gate the dose forever without ever sending, and the reverse would send
// without a record.
func (r *Repository) EnqueueReminders(ctx context.Context, msgs []ReminderMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errs.Wrap(errs.KindTransient, err, "begin enqueue")
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO notification_logs (id, user_id, dose_id, channel, status, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	for i := range msgs {
		m := &msgs[i]
		if m.NotificationID == uuid.Nil {
			m.NotificationID = uuid.New()
		}
		if _, err := tx.Exec(ctx, insert, m.NotificationID, m.UserID, m.DoseID, m.Channel, StatusQueued); err != nil {
			return errs.Wrap(errs.KindTransient, err, "insert notification log")
		}

		payload, err := json.Marshal(m)
		if err != nil {
			return errs.Wrap(errs.KindValidation, err, "encode reminder message")
		}
		entry := &postgres.OutboxEntry{
			AggregateID: m.DoseID.String(),
			EventType:   "reminder.due",
			Payload:     payload,
			Topic:       redpanda.TopicRemindersDispatch,
			Key:         m.UserID.String(),
		}
		if err := postgres.WriteEntry(ctx, tx, entry); err != nil {
			return errs.Wrap(errs.KindTransient, err, "write outbox entry")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errs.Wrap(errs.KindTransient, err, "commit enqueue")
	}
	return nil
}

// MarkOutcome records the delivery result for a notification log row.
func (r *Repository) MarkOutcome(ctx context.Context, id uuid.UUID, status Status, at time.Time) error {
	var sentAt *time.Time
	if status == StatusSent {
		sentAt = &at
	}
	query := `UPDATE notification_logs SET status = $2, sent_at = $3 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, status, sentAt)
	if err != nil {
		return errs.Wrap(errs.KindTransient, err, "mark notification outcome")
	}
	if tag.RowsAffected() == 0 {
		return errs.Newf(errs.KindNotFound, "notification %s not found", id)
	}
	return nil
}

// ListForDose returns the delivery attempts recorded for a dose.
func (r *Repository) ListForDose(ctx context.Context, doseID uuid.UUID) ([]Log, error) {
	query := `
		SELECT id, user_id, dose_id, channel, status, created_at, sent_at
		FROM notification_logs
		WHERE dose_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, doseID)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, err, "query notification logs")
	}
	defer rows.Close()

	var logs []Log
	for rows.Next() {
		var l Log
		if err := rows.Scan(&l.ID, &l.UserID, &l.DoseID, &l.Channel, &l.Status, &l.CreatedAt, &l.SentAt); err != nil {
			return nil, errs.Wrap(errs.KindTransient, err, "scan notification log")
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

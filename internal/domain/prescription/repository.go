package prescription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/pillmind/go-adherence/internal/errs"
	"github.com/pillmind/go-adherence/internal/timeutil"
)

// Repository provides prescription persistence.
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

// GetForUser loads a prescription owned by the user. A prescription owned by
// someone else reports not-found.
func (r *Repository) GetForUser(ctx context.Context, userID, id uuid.UUID) (*Prescription, error) {
	query := `
		SELECT id, user_id, medication_id, provider_id, as_needed, start_date, end_date
		FROM prescriptions
		WHERE id = $1 AND user_id = $2
	`
	var (
		p          Prescription
		start, end *time.Time
	)
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&p.ID, &p.UserID, &p.MedicationID, &p.ProviderID, &p.AsNeeded, &start, &end,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.Newf(errs.KindNotFound, "prescription %s not found", id)
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, err, "load prescription")
	}
	p.StartDate = dateOf(start)
	p.EndDate = dateOf(end)
	return &p, nil
}

func dateOf(t *time.Time) *timeutil.Date {
	if t == nil {
		return nil
	}
	d := timeutil.DateOf(*t, time.UTC)
	return &d
}

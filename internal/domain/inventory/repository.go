package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/pillmind/go-adherence/internal/errs"
)

// Repository provides inventory persistence, one row per medication.
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

// GetForUser loads the inventory row for a medication owned by the user.
func (r *Repository) GetForUser(ctx context.Context, userID, medicationID uuid.UUID) (*Inventory, error) {
	query := `
		SELECT i.medication_id, i.current_qty, i.unit, i.low_threshold, i.last_restocked_at
		FROM inventory i
		JOIN medications m ON m.id = i.medication_id
		WHERE i.medication_id = $1 AND m.user_id = $2
	`
	inv := &Inventory{}
	err := r.pool.QueryRow(ctx, query, medicationID, userID).Scan(
		&inv.MedicationID, &inv.CurrentQty, &inv.Unit, &inv.LowThreshold, &inv.LastRestockedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.Newf(errs.KindNotFound, "inventory for medication %s not found", medicationID)
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, err, "load inventory")
	}
	return inv, nil
}

// OwnsMedication reports whether the medication belongs to the user.
func (r *Repository) OwnsMedication(ctx context.Context, userID, medicationID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM medications WHERE id = $1 AND user_id = $2)`,
		medicationID, userID,
	).Scan(&exists)
	if err != nil {
		return false, errs.Wrap(errs.KindTransient, err, "check medication ownership")
	}
	return exists, nil
}

// CountLowStock returns how many medications are at or below their
// configured threshold, across all users. Feeds the low-stock gauge.
func (r *Repository) CountLowStock(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM inventory WHERE low_threshold IS NOT NULL AND current_qty <= low_threshold`,
	).Scan(&n)
	if err != nil {
		return 0, errs.Wrap(errs.KindTransient, err, "count low stock")
	}
	return n, nil
}

// Save upserts the inventory row. Concurrent updates on the same medication
// are serialized by the row lock; last write wins, which is acceptable for a
// single owning user.
func (r *Repository) Save(ctx context.Context, inv *Inventory) error {
	query := `
		INSERT INTO inventory (medication_id, current_qty, unit, low_threshold, last_restocked_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (medication_id) DO UPDATE
		SET current_qty = $2, unit = $3, low_threshold = $4, last_restocked_at = $5
	`
	_, err := r.pool.Exec(ctx, query,
		inv.MedicationID, inv.CurrentQty, inv.Unit, inv.LowThreshold, inv.LastRestockedAt,
	)
	return errs.Wrap(errs.KindTransient, err, "save inventory")
}

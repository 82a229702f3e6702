// Package inventory tracks per-medication stock and derives the low-stock
// condition and restock timestamps from quantity updates.
package inventory

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/pillmind/go-adherence/internal/errs"
)

// Inventory is the stock record for one medication, one row per medication.
type Inventory struct {
	MedicationID    uuid.UUID
	CurrentQty      float64
	Unit            string
	LowThreshold    *float64
	LastRestockedAt *time.Time
}

// LowStock reports whether the remaining quantity has reached or fallen below
// the configured threshold. Without a threshold the condition never holds.
func (i Inventory) LowStock() bool {
	return i.LowThreshold != nil && i.CurrentQty <= *i.LowThreshold
}

// QuantityUpdate is a user-initiated stock change.
type QuantityUpdate struct {
	NewQty       float64
	Unit         *string
	LowThreshold *float64
	// RestockedAt, when supplied, takes precedence over the derived value.
	RestockedAt *time.Time
}

// Apply validates and applies a quantity update. A strict increase counts as
// a restock and stamps LastRestockedAt with now unless the update carries an
// explicit value. Returns whether a restock was detected.
func (i *Inventory) Apply(u QuantityUpdate, now time.Time) (restocked bool, err error) {
	if math.IsNaN(u.NewQty) || math.IsInf(u.NewQty, 0) || u.NewQty < 0 {
		return false, errs.New(errs.KindValidation, "inventory quantity must be a non-negative finite number")
	}
	if u.LowThreshold != nil && *u.LowThreshold < 0 {
		return false, errs.New(errs.KindValidation, "low-stock threshold must be non-negative")
	}

	restocked = u.NewQty > i.CurrentQty
	i.CurrentQty = u.NewQty
	if u.Unit != nil {
		i.Unit = *u.Unit
	}
	if u.LowThreshold != nil {
		i.LowThreshold = u.LowThreshold
	}
	switch {
	case u.RestockedAt != nil:
		t := u.RestockedAt.UTC()
		i.LastRestockedAt = &t
	case restocked:
		t := now.UTC()
		i.LastRestockedAt = &t
	}
	return restocked, nil
}

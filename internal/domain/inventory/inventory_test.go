package inventory

import (
	"math"
	"testing"
	"time"

	"github.com/pillmind/go-adherence/internal/errs"
)

func TestLowStock(t *testing.T) {
	threshold := 10.0

	low := Inventory{CurrentQty: 5, LowThreshold: &threshold}
	if !low.LowStock() {
		t.Error("quantity below threshold not low")
	}

	atThreshold := Inventory{CurrentQty: 10, LowThreshold: &threshold}
	if !atThreshold.LowStock() {
		t.Error("quantity at threshold not low")
	}

	fine := Inventory{CurrentQty: 30, LowThreshold: &threshold}
	if fine.LowStock() {
		t.Error("quantity above threshold reported low")
	}

	noThreshold := Inventory{CurrentQty: 0}
	if noThreshold.LowStock() {
		t.Error("low stock without a configured threshold")
	}
}

func TestApplyRestock(t *testing.T) {
	now := time.Date(2025, time.June, 2, 12, 0, 0, 0, time.UTC)
	threshold := 10.0

	inv := Inventory{CurrentQty: 5, LowThreshold: &threshold}

	restocked, err := inv.Apply(QuantityUpdate{NewQty: 30}, now)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !restocked {
		t.Error("strict increase not detected as restock")
	}
	if inv.CurrentQty != 30 {
		t.Errorf("quantity = %v, want 30", inv.CurrentQty)
	}
	if inv.LowStock() {
		t.Error("still low after restock")
	}
	if inv.LastRestockedAt == nil || !inv.LastRestockedAt.Equal(now) {
		t.Errorf("LastRestockedAt = %v, want %v", inv.LastRestockedAt, now)
	}

	// A decrease is not a restock and leaves the stamp alone.
	restocked, err = inv.Apply(QuantityUpdate{NewQty: 25}, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if restocked {
		t.Error("decrease detected as restock")
	}
	if !inv.LastRestockedAt.Equal(now) {
		t.Errorf("decrease moved LastRestockedAt to %v", inv.LastRestockedAt)
	}
}

func TestApplyExplicitRestockedAt(t *testing.T) {
	now := time.Date(2025, time.June, 2, 12, 0, 0, 0, time.UTC)
	explicit := now.Add(-48 * time.Hour)

	inv := Inventory{CurrentQty: 5}
	if _, err := inv.Apply(QuantityUpdate{NewQty: 30, RestockedAt: &explicit}, now); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if inv.LastRestockedAt == nil || !inv.LastRestockedAt.Equal(explicit) {
		t.Errorf("LastRestockedAt = %v, want explicit %v", inv.LastRestockedAt, explicit)
	}
}

func TestApplyRejectsBadValues(t *testing.T) {
	now := time.Now()
	inv := Inventory{CurrentQty: 5}

	for _, qty := range []float64{-1, math.NaN(), math.Inf(1)} {
		if _, err := inv.Apply(QuantityUpdate{NewQty: qty}, now); err == nil {
			t.Errorf("quantity %v accepted", qty)
		} else if !errs.IsValidation(err) {
			t.Errorf("quantity %v: kind = %v, want validation", qty, errs.KindOf(err))
		}
	}
	if inv.CurrentQty != 5 {
		t.Error("rejected update mutated the inventory")
	}

	negThreshold := -1.0
	if _, err := inv.Apply(QuantityUpdate{NewQty: 5, LowThreshold: &negThreshold}, now); err == nil {
		t.Error("negative threshold accepted")
	}
}

func TestApplyUpdatesUnitAndThreshold(t *testing.T) {
	now := time.Now()
	inv := Inventory{CurrentQty: 5, Unit: "tablet"}

	unit := "ml"
	threshold := 3.0
	if _, err := inv.Apply(QuantityUpdate{NewQty: 5, Unit: &unit, LowThreshold: &threshold}, now); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if inv.Unit != "ml" {
		t.Errorf("unit = %q, want ml", inv.Unit)
	}
	if inv.LowThreshold == nil || *inv.LowThreshold != 3.0 {
		t.Errorf("threshold = %v, want 3", inv.LowThreshold)
	}
}

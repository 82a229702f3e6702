package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pillmind/go-adherence/internal/api/middleware"
	"github.com/pillmind/go-adherence/internal/domain/inventory"
	"github.com/pillmind/go-adherence/internal/errs"
	"github.com/pillmind/go-adherence/internal/timeutil"
)

// InventoryHandler handles medication stock endpoints
type InventoryHandler struct {
	inventories *inventory.Repository
	clock       timeutil.Clock
	logger      *zap.Logger
}

// NewInventoryHandler creates a new handler
func NewInventoryHandler(inventories *inventory.Repository, clock timeutil.Clock, logger *zap.Logger) *InventoryHandler {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{
		inventories: inventories,
		clock:       clock,
		logger:      logger,
	}
}

// Routes returns the handler routes
func (h *InventoryHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{medicationID}", h.Get)
	r.Put("/{medicationID}", h.Update)
	return r
}

// InventoryView is the JSON shape of an inventory row.
type InventoryView struct {
	MedicationID    uuid.UUID  `json:"medication_id"`
	CurrentQty      float64    `json:"current_qty"`
	Unit            string     `json:"unit"`
	LowThreshold    *float64   `json:"low_threshold,omitempty"`
	LastRestockedAt *time.Time `json:"last_restocked_at,omitempty"`
	LowStock        bool       `json:"low_stock"`
}

func inventoryViewOf(inv *inventory.Inventory) InventoryView {
	return InventoryView{
		MedicationID:    inv.MedicationID,
		CurrentQty:      inv.CurrentQty,
		Unit:            inv.Unit,
		LowThreshold:    inv.LowThreshold,
		LastRestockedAt: inv.LastRestockedAt,
		LowStock:        inv.LowStock(),
	}
}

// Get handles GET /inventory/{medicationID}
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	medicationID, err := uuid.Parse(chi.URLParam(r, "medicationID"))
	if err != nil {
		jsonError(w, "invalid medication id", http.StatusBadRequest)
		return
	}

	inv, err := h.inventories.GetForUser(ctx, middleware.GetUserID(ctx), medicationID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, inventoryViewOf(inv))
}

// UpdateRequest is the body for an inventory update.
type UpdateRequest struct {
	CurrentQty   float64    `json:"current_qty"`
	Unit         string     `json:"unit"`
	LowThreshold *float64   `json:"low_threshold,omitempty"`
	RestockedAt  *time.Time `json:"restocked_at,omitempty"`
}

// UpdateResponse reports the new state plus what the update meant.
type UpdateResponse struct {
	InventoryView
	Restocked bool `json:"restocked"`
}

// Update handles PUT /inventory/{medicationID}. Creates the row on first
// write; a quantity increase counts as a restock.
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	medicationID, err := uuid.Parse(chi.URLParam(r, "medicationID"))
	if err != nil {
		jsonError(w, "invalid medication id", http.StatusBadRequest)
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	owns, err := h.inventories.OwnsMedication(ctx, userID, medicationID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !owns {
		writeDomainError(w, errs.Newf(errs.KindNotFound, "medication %s not found", medicationID))
		return
	}

	inv, err := h.inventories.GetForUser(ctx, userID, medicationID)
	if errs.IsNotFound(err) {
		inv = &inventory.Inventory{MedicationID: medicationID}
		err = nil
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	update := inventory.QuantityUpdate{
		NewQty:       req.CurrentQty,
		LowThreshold: req.LowThreshold,
		RestockedAt:  req.RestockedAt,
	}
	if req.Unit != "" {
		update.Unit = &req.Unit
	}
	restocked, err := inv.Apply(update, h.clock.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.inventories.Save(ctx, inv); err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.Info("inventory updated",
		zap.String("medication_id", medicationID.String()),
		zap.Float64("current_qty", inv.CurrentQty),
		zap.Bool("restocked", restocked),
		zap.Bool("low_stock", inv.LowStock()),
		zap.String("request_id", middleware.GetRequestID(ctx)))

	writeJSON(w, http.StatusOK, UpdateResponse{
		InventoryView: inventoryViewOf(inv),
		Restocked:     restocked,
	})
}

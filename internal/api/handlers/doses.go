package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/pillmind/go-adherence/internal/api/middleware"
	"github.com/pillmind/go-adherence/internal/domain/dose"
	"github.com/pillmind/go-adherence/internal/domain/notification"
	"github.com/pillmind/go-adherence/internal/domain/prescription"
	"github.com/pillmind/go-adherence/internal/observability/metrics"
	"github.com/pillmind/go-adherence/internal/timeutil"
)

// DoseHandler handles dose log endpoints
type DoseHandler struct {
	doses         *dose.Repository
	prescriptions *prescription.Repository
	notifications *notification.Repository
	clock         timeutil.Clock
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

// NewDoseHandler creates a new handler
func NewDoseHandler(doses *dose.Repository, prescriptions *prescription.Repository, notifications *notification.Repository, clock timeutil.Clock, m *metrics.Metrics, logger *zap.Logger) *DoseHandler {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DoseHandler{
		doses:         doses,
		prescriptions: prescriptions,
		notifications: notifications,
		clock:         clock,
		metrics:       m,
		logger:        logger,
	}
}

// Routes returns the handler routes
func (h *DoseHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Edit)
	r.Post("/{id}/take", h.Take)
	r.Post("/{id}/skip", h.Skip)
	r.Get("/{id}/notifications", h.Notifications)
	return r
}

// doseView is the JSON shape of a dose log.
type doseView struct {
	ID             uuid.UUID  `json:"id"`
	PrescriptionID uuid.UUID  `json:"prescription_id"`
	ScheduleID     *uuid.UUID `json:"schedule_id,omitempty"`
	ScheduledFor   time.Time  `json:"scheduled_for"`
	Status         string     `json:"status"`
	TakenAt        *time.Time `json:"taken_at,omitempty"`
	Quantity       *float64   `json:"quantity,omitempty"`
	Unit           *string    `json:"unit,omitempty"`
}

func viewOf(l *dose.Log) doseView {
	return doseView{
		ID:             l.ID,
		PrescriptionID: l.PrescriptionID,
		ScheduleID:     l.ScheduleID,
		ScheduledFor:   l.ScheduledFor,
		Status:         string(l.Status),
		TakenAt:        l.TakenAt,
		Quantity:       l.Quantity,
		Unit:           l.Unit,
	}
}

// TakeRequest is the optional body for taking a dose.
type TakeRequest struct {
	TakenAt *time.Time `json:"taken_at,omitempty"`
}

// Take handles POST /doses/{id}/take
func (h *DoseHandler) Take(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("dose-handler")
	ctx, span := tracer.Start(ctx, "take_dose")
	defer span.End()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, "invalid dose id", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("dose_id", id.String()))

	var req TakeRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	l, err := h.doses.GetForUser(ctx, middleware.GetUserID(ctx), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	at := h.clock.Now()
	if req.TakenAt != nil {
		at = *req.TakenAt
	}
	if err := l.Take(at); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.doses.Update(ctx, l); err != nil {
		writeDomainError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.DosesTaken.Inc()
	}
	h.logger.Info("dose taken",
		zap.String("dose_id", id.String()),
		zap.String("request_id", middleware.GetRequestID(ctx)))

	writeJSON(w, http.StatusOK, viewOf(l))
}

// Skip handles POST /doses/{id}/skip
func (h *DoseHandler) Skip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, "invalid dose id", http.StatusBadRequest)
		return
	}

	l, err := h.doses.GetForUser(ctx, middleware.GetUserID(ctx), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := l.Skip(); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.doses.Update(ctx, l); err != nil {
		writeDomainError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.DosesSkipped.Inc()
	}
	h.logger.Info("dose skipped",
		zap.String("dose_id", id.String()),
		zap.String("request_id", middleware.GetRequestID(ctx)))

	writeJSON(w, http.StatusOK, viewOf(l))
}

// EditRequest is the body for editing a dose; nil fields stay untouched.
type EditRequest struct {
	Status       *string    `json:"status,omitempty"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	TakenAt      *time.Time `json:"taken_at,omitempty"`
	Quantity     *float64   `json:"quantity,omitempty"`
	Unit         *string    `json:"unit,omitempty"`
}

// Edit handles PATCH /doses/{id}
func (h *DoseHandler) Edit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, "invalid dose id", http.StatusBadRequest)
		return
	}

	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	l, err := h.doses.GetForUser(ctx, middleware.GetUserID(ctx), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	edit := dose.Edit{
		ScheduledFor: req.ScheduledFor,
		TakenAt:      req.TakenAt,
		Quantity:     req.Quantity,
		Unit:         req.Unit,
	}
	if req.Status != nil {
		st, err := dose.ParseStatus(*req.Status)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		edit.Status = &st
	}

	if err := l.ApplyEdit(edit); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.doses.Update(ctx, l); err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.Info("dose edited",
		zap.String("dose_id", id.String()),
		zap.String("request_id", middleware.GetRequestID(ctx)))

	writeJSON(w, http.StatusOK, viewOf(l))
}

// Get handles GET /doses/{id}
func (h *DoseHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, "invalid dose id", http.StatusBadRequest)
		return
	}

	l, err := h.doses.GetForUser(ctx, middleware.GetUserID(ctx), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, viewOf(l))
}

// CreateRequest is the body for logging an unscheduled (PRN) dose.
type CreateRequest struct {
	PrescriptionID uuid.UUID  `json:"prescription_id"`
	TakenAt        *time.Time `json:"taken_at,omitempty"`
	Quantity       *float64   `json:"quantity,omitempty"`
	Unit           *string    `json:"unit,omitempty"`
}

// Create handles POST /doses. It records a dose that was never scheduled:
// PRN intakes, or doses from before the user started tracking.
func (h *DoseHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PrescriptionID == uuid.Nil {
		jsonError(w, "prescription_id is required", http.StatusBadRequest)
		return
	}

	// Ownership check doubles as existence check.
	if _, err := h.prescriptions.GetForUser(ctx, userID, req.PrescriptionID); err != nil {
		writeDomainError(w, err)
		return
	}

	at := h.clock.Now()
	if req.TakenAt != nil {
		at = req.TakenAt.UTC()
	}

	l := &dose.Log{
		ID:             uuid.New(),
		PrescriptionID: req.PrescriptionID,
		ScheduledFor:   at,
		Status:         dose.StatusTaken,
		TakenAt:        &at,
		Quantity:       req.Quantity,
		Unit:           req.Unit,
	}
	if err := h.doses.Insert(ctx, l); err != nil {
		writeDomainError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.DosesTaken.Inc()
	}
	h.logger.Info("dose logged",
		zap.String("dose_id", l.ID.String()),
		zap.String("prescription_id", req.PrescriptionID.String()),
		zap.String("request_id", middleware.GetRequestID(ctx)))

	writeJSON(w, http.StatusCreated, viewOf(l))
}

// List handles GET /doses
func (h *DoseHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q, err := parseDoseQuery(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	logs, err := h.doses.List(ctx, middleware.GetUserID(ctx), q)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]doseView, len(logs))
	for i := range logs {
		views[i] = viewOf(&logs[i])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"doses": views})
}

// AdherenceResponse reports counts and the adherence rate over a window.
type AdherenceResponse struct {
	Taken     int     `json:"taken"`
	Skipped   int     `json:"skipped"`
	Missed    int     `json:"missed"`
	Scheduled int     `json:"scheduled"`
	Rate      float64 `json:"rate"`
}

// Adherence handles GET /adherence
func (h *DoseHandler) Adherence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q, err := parseDoseQuery(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	q.Status = nil

	logs, err := h.doses.List(ctx, middleware.GetUserID(ctx), q)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s := dose.Summarize(logs)
	writeJSON(w, http.StatusOK, AdherenceResponse{
		Taken:     s.Taken,
		Skipped:   s.Skipped,
		Missed:    s.Missed,
		Scheduled: s.Scheduled,
		Rate:      s.AdherenceRate(),
	})
}

// NotificationView is the JSON shape of one delivery attempt.
type NotificationView struct {
	ID        uuid.UUID  `json:"id"`
	Channel   string     `json:"channel"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}

// Notifications handles GET /doses/{id}/notifications, listing the reminder
// delivery attempts recorded for the dose.
func (h *DoseHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, "invalid dose id", http.StatusBadRequest)
		return
	}

	// Ownership check before touching the notification log.
	if _, err := h.doses.GetForUser(ctx, middleware.GetUserID(ctx), id); err != nil {
		writeDomainError(w, err)
		return
	}

	logs, err := h.notifications.ListForDose(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]NotificationView, len(logs))
	for i, l := range logs {
		views[i] = NotificationView{
			ID:        l.ID,
			Channel:   l.Channel,
			Status:    string(l.Status),
			CreatedAt: l.CreatedAt,
			SentAt:    l.SentAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": views})
}

func parseDoseQuery(r *http.Request) (dose.Query, error) {
	var q dose.Query
	params := r.URL.Query()

	for _, raw := range params["prescription_id"] {
		id, err := uuid.Parse(raw)
		if err != nil {
			return q, err
		}
		q.PrescriptionIDs = append(q.PrescriptionIDs, id)
	}
	if raw := params.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return q, err
		}
		q.From = &t
	}
	if raw := params.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return q, err
		}
		q.To = &t
	}
	if raw := params.Get("status"); raw != "" {
		st, err := dose.ParseStatus(raw)
		if err != nil {
			return q, err
		}
		q.Status = &st
	}
	return q, nil
}

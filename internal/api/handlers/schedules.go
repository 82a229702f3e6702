package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pillmind/go-adherence/internal/api/middleware"
	"github.com/pillmind/go-adherence/internal/domain/prescription"
	"github.com/pillmind/go-adherence/internal/domain/schedule"
	"github.com/pillmind/go-adherence/internal/engine"
	"github.com/pillmind/go-adherence/internal/errs"
	"github.com/pillmind/go-adherence/internal/timeutil"
)

const dateLayout = "2006-01-02"

// ScheduleHandler handles schedule endpoints
type ScheduleHandler struct {
	schedules     *schedule.Repository
	prescriptions *prescription.Repository
	engine        *engine.Engine
	logger        *zap.Logger
}

// NewScheduleHandler creates a new handler
func NewScheduleHandler(schedules *schedule.Repository, prescriptions *prescription.Repository, eng *engine.Engine, logger *zap.Logger) *ScheduleHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleHandler{
		schedules:     schedules,
		prescriptions: prescriptions,
		engine:        eng,
		logger:        logger,
	}
}

// Routes returns the handler routes
func (h *ScheduleHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Save)
	r.Get("/{id}", h.Get)
	r.Post("/conflicts", h.CheckConflicts)
	r.Post("/{id}/propagate", h.Propagate)
	r.Delete("/{id}/future-doses", h.CleanupFuture)
	return r
}

// SchedulePayload is the wire shape of a schedule.
type SchedulePayload struct {
	ID             *uuid.UUID `json:"id,omitempty"`
	PrescriptionID uuid.UUID  `json:"prescription_id"`
	Timezone       string     `json:"timezone"`
	Days           []string   `json:"days"`
	Times          []string   `json:"times"`
	Quantity       *float64   `json:"quantity,omitempty"`
	Unit           *string    `json:"unit,omitempty"`
	StartDate      *string    `json:"start_date,omitempty"`
	EndDate        *string    `json:"end_date,omitempty"`
}

func (p *SchedulePayload) toDomain() (schedule.Schedule, error) {
	var s schedule.Schedule
	if p.ID != nil {
		s.ID = *p.ID
	} else {
		s.ID = uuid.New()
	}
	s.PrescriptionID = p.PrescriptionID
	s.Timezone = p.Timezone
	s.Quantity = p.Quantity
	s.Unit = p.Unit

	for _, d := range p.Days {
		wd, err := schedule.ParseWeekday(d)
		if err != nil {
			return s, err
		}
		s.Days = append(s.Days, wd)
	}
	for _, t := range p.Times {
		tod, err := timeutil.ParseTimeOfDay(t)
		if err != nil {
			return s, err
		}
		s.Times = append(s.Times, tod)
	}

	var err error
	if s.StartDate, err = parseDate(p.StartDate); err != nil {
		return s, err
	}
	if s.EndDate, err = parseDate(p.EndDate); err != nil {
		return s, err
	}
	return s, nil
}

func parseDate(raw *string) (*timeutil.Date, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *raw)
	if err != nil {
		return nil, errs.Newf(errs.KindValidation, "invalid date %q, want YYYY-MM-DD", *raw)
	}
	d := timeutil.DateOf(t, time.UTC)
	return &d, nil
}

func formatDate(d *timeutil.Date) *string {
	if d == nil {
		return nil
	}
	s := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format(dateLayout)
	return &s
}

func payloadOf(s *schedule.Schedule) SchedulePayload {
	id := s.ID
	p := SchedulePayload{
		ID:             &id,
		PrescriptionID: s.PrescriptionID,
		Timezone:       s.Timezone,
		Quantity:       s.Quantity,
		Unit:           s.Unit,
		StartDate:      formatDate(s.StartDate),
		EndDate:        formatDate(s.EndDate),
	}
	for _, d := range s.Days {
		p.Days = append(p.Days, string(d))
	}
	for _, t := range s.Times {
		p.Times = append(p.Times, t.String())
	}
	return p
}

// Save handles POST /schedules
func (h *ScheduleHandler) Save(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var payload SchedulePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s, err := payload.toDomain()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if _, err := h.prescriptions.GetForUser(ctx, userID, s.PrescriptionID); err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.schedules.Save(ctx, &s); err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.Info("schedule saved",
		zap.String("schedule_id", s.ID.String()),
		zap.String("request_id", middleware.GetRequestID(ctx)))

	writeJSON(w, http.StatusOK, payloadOf(&s))
}

// Get handles GET /schedules/{id}
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, "invalid schedule id", http.StatusBadRequest)
		return
	}

	s, err := h.schedules.GetForUser(ctx, middleware.GetUserID(ctx), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, payloadOf(s))
}

// ConflictView describes one overlapping schedule.
type ConflictView struct {
	ScheduleID string   `json:"schedule_id"`
	Days       []string `json:"days"`
	Times      []string `json:"times"`
}

// CheckConflicts handles POST /schedules/conflicts. The candidate is checked
// against every schedule the user already has; an empty list means no
// overlap on any (day, time, validity window) triple.
func (h *ScheduleHandler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload SchedulePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	candidate, err := payload.toDomain()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	existing, err := h.schedules.ListForUser(ctx, middleware.GetUserID(ctx))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	conflicts := schedule.CheckConflicts(candidate, existing)

	views := make([]ConflictView, 0, len(conflicts))
	for _, c := range conflicts {
		v := ConflictView{ScheduleID: c.ScheduleID}
		for _, d := range c.Days {
			v.Days = append(v.Days, string(d))
		}
		for _, t := range c.Times {
			v.Times = append(v.Times, t.String())
		}
		views = append(views, v)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"conflicts": views})
}

// PropagateRequest carries the new quantity snapshot for future doses.
type PropagateRequest struct {
	Quantity *float64 `json:"quantity,omitempty"`
	Unit     *string  `json:"unit,omitempty"`
}

// Propagate handles POST /schedules/{id}/propagate
func (h *ScheduleHandler) Propagate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, "invalid schedule id", http.StatusBadRequest)
		return
	}

	var req PropagateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if _, err := h.schedules.GetForUser(ctx, middleware.GetUserID(ctx), id); err != nil {
		writeDomainError(w, err)
		return
	}

	updated, err := h.engine.PropagateScheduleSnapshot(ctx, id, req.Quantity, req.Unit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

// CleanupFuture handles DELETE /schedules/{id}/future-doses
func (h *ScheduleHandler) CleanupFuture(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, "invalid schedule id", http.StatusBadRequest)
		return
	}

	if _, err := h.schedules.GetForUser(ctx, middleware.GetUserID(ctx), id); err != nil {
		writeDomainError(w, err)
		return
	}

	deleted, err := h.engine.CleanupFutureDoses(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

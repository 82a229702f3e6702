package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pillmind/go-adherence/internal/api/middleware"
	"github.com/pillmind/go-adherence/internal/domain/user"
)

// SettingsHandler handles user settings endpoints
type SettingsHandler struct {
	settings *user.Repository
	logger   *zap.Logger
}

// NewSettingsHandler creates a new handler
func NewSettingsHandler(settings *user.Repository, logger *zap.Logger) *SettingsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsHandler{settings: settings, logger: logger}
}

// Routes returns the handler routes
func (h *SettingsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	r.Put("/", h.Put)
	return r
}

// SettingsPayload is the wire shape of user settings.
type SettingsPayload struct {
	Timezone        string   `json:"timezone"`
	TimeFormat      string   `json:"time_format"`
	DefaultChannels []string `json:"default_channels"`
	PushoverKey     *string  `json:"pushover_key,omitempty"`
	Email           *string  `json:"email,omitempty"`
}

// Get handles GET /settings, returning defaults when nothing is saved yet.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	s, err := h.settings.Get(ctx, middleware.GetUserID(ctx))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SettingsPayload{
		Timezone:        s.Timezone,
		TimeFormat:      s.TimeFormat,
		DefaultChannels: s.DefaultChannels,
		PushoverKey:     s.PushoverKey,
		Email:           s.Email,
	})
}

// Put handles PUT /settings
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var payload SettingsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s := user.Settings{
		UserID:          userID,
		Timezone:        payload.Timezone,
		TimeFormat:      payload.TimeFormat,
		DefaultChannels: payload.DefaultChannels,
		PushoverKey:     payload.PushoverKey,
		Email:           payload.Email,
	}
	if err := h.settings.Put(ctx, &s); err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.Info("settings saved",
		zap.String("user_id", userID.String()),
		zap.String("timezone", s.Timezone),
		zap.String("request_id", middleware.GetRequestID(ctx)))

	writeJSON(w, http.StatusOK, payload)
}

// Package user holds per-user preferences that steer the adherence engine:
// the timezone used for missed detection and display, the time format
// preference, and the default notification channels with their contact
// details.
package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/pillmind/go-adherence/internal/errs"
	"github.com/pillmind/go-adherence/internal/timeutil"
)

// Notification channel names.
const (
	ChannelPush  = "push"
	ChannelEmail = "email"
)

// Settings is the per-user configuration row.
type Settings struct {
	UserID uuid.UUID

	// Timezone is authoritative for missed detection and display.
	// Generation uses the schedule's own timezone instead.
	Timezone string

	// TimeFormat is "12h" or "24h", display only.
	TimeFormat string

	// DefaultChannels is a set; order is irrelevant.
	DefaultChannels []string

	PushoverKey *string
	Email       *string
}

// DefaultSettings are the values assumed before a user saves anything.
func DefaultSettings(userID uuid.UUID) Settings {
	return Settings{
		UserID:          userID,
		Timezone:        "UTC",
		TimeFormat:      "24h",
		DefaultChannels: []string{ChannelPush},
	}
}

// Validate checks the settings row.
func (s *Settings) Validate() error {
	if _, err := timeutil.LoadZone(s.Timezone); err != nil {
		return err
	}
	if s.TimeFormat != "12h" && s.TimeFormat != "24h" {
		return errs.Newf(errs.KindValidation, "invalid time format %q", s.TimeFormat)
	}
	seen := map[string]bool{}
	for _, c := range s.DefaultChannels {
		if c != ChannelPush && c != ChannelEmail {
			return errs.Newf(errs.KindValidation, "invalid notification channel %q", c)
		}
		if seen[c] {
			return errs.Newf(errs.KindValidation, "duplicate notification channel %q", c)
		}
		seen[c] = true
	}
	return nil
}

// Repository provides user settings persistence.
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

// Get loads the user's settings, falling back to defaults when the user has
// never saved any.
func (r *Repository) Get(ctx context.Context, userID uuid.UUID) (Settings, error) {
	query := `
		SELECT user_id, timezone, time_format, default_channels, pushover_key, email
		FROM user_settings
		WHERE user_id = $1
	`
	var s Settings
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&s.UserID, &s.Timezone, &s.TimeFormat, &s.DefaultChannels, &s.PushoverKey, &s.Email,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultSettings(userID), nil
	}
	if err != nil {
		return Settings{}, errs.Wrap(errs.KindTransient, err, "load settings")
	}
	return s, nil
}

// Put upserts the user's settings.
func (r *Repository) Put(ctx context.Context, s *Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	query := `
		INSERT INTO user_settings (user_id, timezone, time_format, default_channels, pushover_key, email)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET timezone = $2, time_format = $3, default_channels = $4, pushover_key = $5, email = $6
	`
	_, err := r.pool.Exec(ctx, query, s.UserID, s.Timezone, s.TimeFormat, s.DefaultChannels, s.PushoverKey, s.Email)
	return errs.Wrap(errs.KindTransient, err, "save settings")
}

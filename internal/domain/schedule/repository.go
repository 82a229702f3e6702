package schedule

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

// Repository provides schedule persistence.
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

// GenerationJob bundles a schedule with the prescription facts the
// materializer needs: owner, PRN flag, and the prescription end date that
// additionally bounds the schedule.
type GenerationJob struct {
	UserID          uuid.UUID
	Schedule        Schedule
	AsNeeded        bool
	PrescriptionEnd *timeutil.Date
}

// ListGenerationJobs returns every schedule paired with its prescription,
// for the horizon materialization sweep. PRN prescriptions are excluded at
// the source; the engine guards again regardless.
func (r *Repository) ListGenerationJobs(ctx context.Context) ([]GenerationJob, error) {
	query := `
		SELECT s.id, s.prescription_id, s.timezone, s.days, s.times, s.quantity, s.unit,
		       s.start_date, s.end_date,
		       p.user_id, p.as_needed, p.end_date
		FROM schedules s
		JOIN prescriptions p ON p.id = s.prescription_id
		WHERE p.as_needed = FALSE
		ORDER BY s.id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, err, "query generation jobs")
	}
	defer rows.Close()

	var jobs []GenerationJob
	for rows.Next() {
		var (
			j           GenerationJob
			days, times []string
			start, end  *time.Time
			rxEnd       *time.Time
		)
		err := rows.Scan(
			&j.Schedule.ID, &j.Schedule.PrescriptionID, &j.Schedule.Timezone,
			&days, &times, &j.Schedule.Quantity, &j.Schedule.Unit,
			&start, &end,
			&j.UserID, &j.AsNeeded, &rxEnd,
		)
		if err != nil {
			return nil, errs.Wrap(errs.KindTransient, err, "scan generation job")
		}
		if err := hydrate(&j.Schedule, days, times, start, end); err != nil {
			return nil, err
		}
		j.PrescriptionEnd = dateOf(rxEnd)
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// ListForUser returns all schedules belonging to the user's prescriptions,
// the comparison set for conflict checking.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]Schedule, error) {
	query := `
		SELECT s.id, s.prescription_id, s.timezone, s.days, s.times, s.quantity, s.unit,
		       s.start_date, s.end_date
		FROM schedules s
		JOIN prescriptions p ON p.id = s.prescription_id
		WHERE p.user_id = $1
		ORDER BY s.id
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, err, "query schedules")
	}
	defer rows.Close()

	var schedules []Schedule
	for rows.Next() {
		var (
			s           Schedule
			days, times []string
			start, end  *time.Time
		)
		if err := rows.Scan(&s.ID, &s.PrescriptionID, &s.Timezone, &days, &times, &s.Quantity, &s.Unit, &start, &end); err != nil {
			return nil, errs.Wrap(errs.KindTransient, err, "scan schedule")
		}
		if err := hydrate(&s, days, times, start, end); err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

// GetForUser loads one schedule owned by the user. Foreign schedules report
// not-found.
func (r *Repository) GetForUser(ctx context.Context, userID, id uuid.UUID) (*Schedule, error) {
	query := `
		SELECT s.id, s.prescription_id, s.timezone, s.days, s.times, s.quantity, s.unit,
		       s.start_date, s.end_date
		FROM schedules s
		JOIN prescriptions p ON p.id = s.prescription_id
		WHERE s.id = $1 AND p.user_id = $2
	`
	var (
		s           Schedule
		days, times []string
		start, end  *time.Time
	)
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&s.ID, &s.PrescriptionID, &s.Timezone, &days, &times, &s.Quantity, &s.Unit, &start, &end,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.Newf(errs.KindNotFound, "schedule %s not found", id)
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, err, "load schedule")
	}
	if err := hydrate(&s, days, times, start, end); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save upserts a schedule definition.
func (r *Repository) Save(ctx context.Context, s *Schedule) error {
	if err := s.Validate(); err != nil {
		return err
	}
	s.Normalize()

	days := make([]string, len(s.Days))
	for i, d := range s.Days {
		days[i] = string(d)
	}
	times := make([]string, len(s.Times))
	for i, t := range s.Times {
		times[i] = t.String()
	}

	query := `
		INSERT INTO schedules (id, prescription_id, timezone, days, times, quantity, unit, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET timezone = $3, days = $4, times = $5, quantity = $6, unit = $7, start_date = $8, end_date = $9
	`
	_, err := r.pool.Exec(ctx, query,
		s.ID, s.PrescriptionID, s.Timezone, days, times, s.Quantity, s.Unit,
		sqlDate(s.StartDate), sqlDate(s.EndDate),
	)
	return errs.Wrap(errs.KindTransient, err, "save schedule")
}

func hydrate(s *Schedule, days, times []string, start, end *time.Time) error {
	s.Days = s.Days[:0]
	for _, d := range days {
		wd, err := ParseWeekday(d)
		if err != nil {
			return err
		}
		s.Days = append(s.Days, wd)
	}
	s.Times = s.Times[:0]
	for _, t := range times {
		tod, err := timeutil.ParseTimeOfDay(t)
		if err != nil {
			return err
		}
		s.Times = append(s.Times, tod)
	}
	s.StartDate = dateOf(start)
	s.EndDate = dateOf(end)
	s.Normalize()
	return nil
}

func dateOf(t *time.Time) *timeutil.Date {
	if t == nil {
		return nil
	}
	d := timeutil.DateOf(*t, time.UTC)
	return &d
}

func sqlDate(d *timeutil.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	return &t
}

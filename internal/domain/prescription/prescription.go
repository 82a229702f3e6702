// Package prescription models the link between a medication and a user,
// including the PRN flag and the validity window that bounds every schedule
// belonging to the prescription.
package prescription

import (
	"github.com/google/uuid"

	"github.com/pillmind/go-adherence/internal/errs"
	"github.com/pillmind/go-adherence/internal/timeutil"
)

// Prescription links a medication to a user and optionally a care provider.
type Prescription struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	MedicationID uuid.UUID
	ProviderID   *uuid.UUID

	// AsNeeded marks a PRN prescription: doses are logged only when taken
	// and are never pre-materialized.
	AsNeeded bool

	// StartDate and EndDate additionally bound all of the prescription's
	// schedules, at calendar-date granularity.
	StartDate *timeutil.Date
	EndDate   *timeutil.Date
}

// Validate checks the date window.
func (p *Prescription) Validate() error {
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return errs.New(errs.KindValidation, "prescription end date precedes start date")
	}
	return nil
}

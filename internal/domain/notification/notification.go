// Package notification models reminder deliveries. Each dose reminder fans
// out into one row per channel; the row's status tracks the delivery attempt
// made by the reminder worker.
package notification

import (
	"time"

	"github.com/google/uuid"
)

// Delivery status values.
type Status string

const (
	StatusQueued Status = "QUEUED"
	StatusSent   Status = "SENT"
	StatusFailed Status = "FAILED"
)

// Log is one delivery attempt on one channel for one dose.
type Log struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	DoseID    uuid.UUID
	Channel   string
	Status    Status
	CreatedAt time.Time
	SentAt    *time.Time
}

// ReminderMessage is the wire payload published to the reminder dispatch
// topic and consumed by the reminder worker.
type ReminderMessage struct {
	NotificationID uuid.UUID `json:"notification_id"`
	UserID         uuid.UUID `json:"user_id"`
	DoseID         uuid.UUID `json:"dose_id"`
	Channel        string    `json:"channel"`
	Contact        string    `json:"contact"`
	MedicationName string    `json:"medication_name"`
	Timezone       string    `json:"timezone"`
	ScheduledFor   time.Time `json:"scheduled_for"`
	Quantity       *float64  `json:"quantity,omitempty"`
	Unit           *string   `json:"unit,omitempty"`
}

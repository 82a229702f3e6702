// Package notify delivers reminders through external gateways. Each channel
// is a Transport; the reminder worker picks the transport matching the
// message's channel and records the outcome.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/pillmind/go-adherence/internal/domain/notification"
	"github.com/pillmind/go-adherence/internal/timeutil"
)

// Transport delivers one reminder over one channel.
type Transport interface {
	// Channel names the channel this transport serves.
	Channel() string
	// Send delivers the reminder to the contact in the message.
	Send(ctx context.Context, msg notification.ReminderMessage) error
}

// FormatBody renders the reminder text shared by all channels.
func FormatBody(msg notification.ReminderMessage, loc *time.Location) string {
	at := msg.ScheduledFor.In(loc).Format("15:04")
	if msg.Quantity != nil && msg.Unit != nil {
		return fmt.Sprintf("Time to take %s: %g %s at %s", msg.MedicationName, *msg.Quantity, *msg.Unit, at)
	}
	return fmt.Sprintf("Time to take %s at %s", msg.MedicationName, at)
}

// zoneOf resolves the message's timezone, falling back to UTC so a stale or
// invalid setting never blocks a delivery.
func zoneOf(msg notification.ReminderMessage) *time.Location {
	loc, err := timeutil.LoadZone(msg.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

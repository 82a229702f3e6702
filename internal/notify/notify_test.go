package notify

import (
	"testing"
	"time"

	"github.com/pillmind/go-adherence/internal/domain/notification"
)

func TestFormatBody(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}

	qty := 2.0
	unit := "tablets"
	msg := notification.ReminderMessage{
		MedicationName: "Metformin",
		ScheduledFor:   time.Date(2025, time.June, 2, 13, 0, 0, 0, time.UTC),
		Quantity:       &qty,
		Unit:           &unit,
	}

	// 13:00 UTC reads 09:00 in New York.
	got := FormatBody(msg, ny)
	want := "Time to take Metformin: 2 tablets at 09:00"
	if got != want {
		t.Errorf("FormatBody = %q, want %q", got, want)
	}

	msg.Quantity = nil
	got = FormatBody(msg, time.UTC)
	want = "Time to take Metformin at 13:00"
	if got != want {
		t.Errorf("FormatBody without snapshot = %q, want %q", got, want)
	}
}

func TestZoneOf(t *testing.T) {
	msg := notification.ReminderMessage{Timezone: "America/New_York"}
	if loc := zoneOf(msg); loc.String() != "America/New_York" {
		t.Errorf("zoneOf = %v", loc)
	}

	msg.Timezone = "Broken/Zone"
	if loc := zoneOf(msg); loc != time.UTC {
		t.Errorf("invalid zone did not fall back to UTC: %v", loc)
	}
}

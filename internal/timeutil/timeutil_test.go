package timeutil

import (
	"testing"
	"time"
)

func mustZone(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := LoadZone(name)
	if err != nil {
		t.Fatalf("LoadZone(%q): %v", name, err)
	}
	return loc
}

func TestLoadZone(t *testing.T) {
	if loc := mustZone(t, ""); loc != time.UTC {
		t.Errorf("empty zone = %v, want UTC", loc)
	}
	if _, err := LoadZone("America/New_York"); err != nil {
		t.Errorf("valid zone rejected: %v", err)
	}
	if _, err := LoadZone("Not/AZone"); err == nil {
		t.Error("invalid zone accepted")
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"08:00", TimeOfDay{8, 0}, false},
		{"23:59", TimeOfDay{23, 59}, false},
		{"00:00", TimeOfDay{0, 0}, false},
		{"24:00", TimeOfDay{}, true},
		{"12:60", TimeOfDay{}, true},
		{"8:00", TimeOfDay{}, true},
		{"08-00", TimeOfDay{}, true},
		{"ab:cd", TimeOfDay{}, true},
		{"", TimeOfDay{}, true},
	}
	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTimeOfDay(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseTimeOfDay(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTimeOfDayString(t *testing.T) {
	if s := (TimeOfDay{8, 5}).String(); s != "08:05" {
		t.Errorf("String() = %q, want 08:05", s)
	}
}

func TestInstantDST(t *testing.T) {
	ny := mustZone(t, "America/New_York")

	// 2025-03-08 is the day before the spring-forward transition; EST is
	// UTC-5. 2025-03-09 onward EDT is UTC-4. The same 08:00 wall-clock time
	// maps to different UTC instants.
	before := Instant(Date{2025, time.March, 8}, TimeOfDay{8, 0}, ny)
	after := Instant(Date{2025, time.March, 9}, TimeOfDay{8, 0}, ny)

	if got := before.Hour(); got != 13 {
		t.Errorf("instant before transition = %02d:00 UTC, want 13:00", got)
	}
	if got := after.Hour(); got != 12 {
		t.Errorf("instant after transition = %02d:00 UTC, want 12:00", got)
	}

	// Round trip: the UTC instant reads back as 08:00 locally on both days.
	for _, inst := range []time.Time{before, after} {
		if tod := TimeOfDayIn(inst, ny); tod != (TimeOfDay{8, 0}) {
			t.Errorf("round trip = %v, want 08:00", tod)
		}
	}
}

func TestAddDays(t *testing.T) {
	got := AddDays(Date{2025, time.January, 31}, 1)
	if got != (Date{2025, time.February, 1}) {
		t.Errorf("AddDays month rollover = %v", got)
	}
	got = AddDays(Date{2024, time.February, 28}, 1)
	if got != (Date{2024, time.February, 29}) {
		t.Errorf("AddDays leap year = %v", got)
	}
}

func TestWallClockBefore(t *testing.T) {
	ny := mustZone(t, "America/New_York")

	// 13:00 UTC is 08:00 in New York; 13:30 UTC is 08:30.
	a := time.Date(2025, time.June, 2, 13, 0, 0, 0, time.UTC)
	b := time.Date(2025, time.June, 2, 13, 30, 0, 0, time.UTC)

	if !WallClockBefore(a, b, ny) {
		t.Error("earlier instant not wall-clock before later")
	}
	if WallClockBefore(b, a, ny) {
		t.Error("later instant wall-clock before earlier")
	}
	if WallClockBefore(a, a, ny) {
		t.Error("instant wall-clock before itself")
	}
}

package prescription

import (
	"testing"
	"time"

	"github.com/pillmind/go-adherence/internal/timeutil"
)

func TestValidate(t *testing.T) {
	start := timeutil.Date{Year: 2025, Month: time.June, Day: 1}
	end := timeutil.Date{Year: 2025, Month: time.June, Day: 30}

	good := Prescription{StartDate: &start, EndDate: &end}
	if err := good.Validate(); err != nil {
		t.Errorf("valid window rejected: %v", err)
	}

	open := Prescription{}
	if err := open.Validate(); err != nil {
		t.Errorf("open window rejected: %v", err)
	}

	inverted := Prescription{StartDate: &end, EndDate: &start}
	if err := inverted.Validate(); err == nil {
		t.Error("end before start accepted")
	}
}

package dose

// Summary aggregates dose outcomes over a reporting window.
type Summary struct {
	Taken     int `json:"taken"`
	Skipped   int `json:"skipped"`
	Missed    int `json:"missed"`
	Scheduled int `json:"scheduled"`
}

// Summarize counts doses by status.
func Summarize(logs []Log) Summary {
	var s Summary
	for _, l := range logs {
		switch l.Status {
		case StatusTaken:
			s.Taken++
		case StatusSkipped:
			s.Skipped++
		case StatusMissed:
			s.Missed++
		case StatusScheduled:
			s.Scheduled++
		}
	}
	return s
}

// AdherenceRate is taken / (taken + missed + skipped) as a percentage.
// Still-pending SCHEDULED doses are excluded from the denominator. A window
// with no resolved doses reports 0.
func (s Summary) AdherenceRate() float64 {
	resolved := s.Taken + s.Missed + s.Skipped
	if resolved == 0 {
		return 0
	}
	return float64(s.Taken) / float64(resolved) * 100
}

package reconcile

import (
	"fmt"
	"time"
)

// ResolveStart combines the extracted date and clock strings in the
// restaurant's zone and enforces the grace rule: a start earlier than now
// minus the grace buffer is rejected. Nothing is mutated on rejection.
func ResolveStart(date, clock string, now time.Time, loc *time.Location, grace time.Duration) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if date == "" || clock == "" {
		missing := make([]string, 0, 2)
		if date == "" {
			missing = append(missing, "date")
		}
		if clock == "" {
			missing = append(missing, "time")
		}
		return time.Time{}, &MissingFieldsError{Fields: missing}
	}

	start, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse start %q %q: %w", date, clock, err)
	}
	if grace < 0 {
		grace = 0
	}
	if start.Before(now.In(loc).Add(-grace)) {
		return time.Time{}, &PastStartError{Start: start}
	}
	return start, nil
}

package reconcile

import (
	"fmt"
	"strings"
	"time"
)

// MissingFieldsError reports reservation fields the conversation has not
// yielded yet. It converts to a clarifying prompt, never a failure.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// PastStartError rejects a reservation time already behind the grace buffer.
type PastStartError struct {
	Start time.Time
}

func (e *PastStartError) Error() string {
	return fmt.Sprintf("requested start %s has already passed", e.Start.Format("2006-01-02 15:04"))
}

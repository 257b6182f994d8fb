package repositories

import (
	"fmt"
	"strings"
)

// OrderNumberCounter names the sequence behind order numbers for year; numbering restarts
// every January.
func OrderNumberCounter(year int) string {
	return fmt.Sprintf("orders-%04d", year)
}

// CounterError reports a sequence request refused before storage was touched.
type CounterError struct {
	CounterID string
	Reason    string
}

func (e *CounterError) Error() string {
	return fmt.Sprintf("counter %q: %s", e.CounterID, e.Reason)
}

func (e *CounterError) IsNotFound() bool    { return false }
func (e *CounterError) IsConflict() bool    { return false }
func (e *CounterError) IsUnavailable() bool { return false }

// NormalizeCounterRequest trims counterID and turns a zero step into 1. Blank ids and negative
// steps are rejected so every backend allocates sequence values the same way.
func NormalizeCounterRequest(counterID string, step int64) (string, int64, error) {
	id := strings.TrimSpace(counterID)
	if id == "" {
		return "", 0, &CounterError{CounterID: counterID, Reason: "id is required"}
	}
	if step < 0 {
		return "", 0, &CounterError{CounterID: id, Reason: fmt.Sprintf("step must not be negative, got %d", step)}
	}
	return id, max(step, 1), nil
}

package domain

import (
	"fmt"
	"time"
)

// DefaultStaleAfter is how long a reading stays fresh.
const DefaultStaleAfter = 15 * time.Second

// Status is a record's display classification.
type Status int

const (
	StatusOK Status = iota
	StatusNoData
	StatusStale
	StatusHighTemperature
	StatusLowTemperature
)

var statusNames = map[Status]string{
	StatusOK:              "ok",
	StatusNoData:          "no_data",
	StatusStale:           "stale",
	StatusHighTemperature: "high_temperature",
	StatusLowTemperature:  "low_temperature",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText renders the status by name in JSON snapshots.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name.
func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Classify derives the display status of rec at now. A zero staleAfter uses
// DefaultStaleAfter.
func Classify(rec Record, now time.Time, staleAfter time.Duration) Status {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}

	if rec.Updated.IsZero() {
		return StatusNoData
	}
	if now.Sub(rec.Updated) > staleAfter {
		return StatusStale
	}
	if rec.HasTemperature {
		if rec.High != nil && rec.Temperature > *rec.High {
			return StatusHighTemperature
		}
		if rec.Low != nil && rec.Temperature < *rec.Low {
			return StatusLowTemperature
		}
	}
	return StatusOK
}

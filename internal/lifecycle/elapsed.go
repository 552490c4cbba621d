// Package lifecycle holds the order lifecycle rules: elapsed-time urgency,
// completion scoring and status transitions.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
)

// Severity ranks how overdue an open order is.
type Severity int

const (
	SeverityNormal Severity = iota
	SeverityWatch
	SeverityUrgent
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityNormal:
		return "normal"
	case SeverityWatch:
		return "watch"
	case SeverityUrgent:
		return "urgent"
	case SeverityCritical:
		return "critical"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Color is the dashboard badge color for the severity.
func (s Severity) Color() string {
	switch s {
	case SeverityWatch:
		return "yellow"
	case SeverityUrgent:
		return "orange"
	case SeverityCritical:
		return "red"
	}
	return "green"
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	for _, candidate := range []Severity{SeverityNormal, SeverityWatch, SeverityUrgent, SeverityCritical} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown severity %q", text)
}

// Elapsed is the display form of an order's age.
type Elapsed struct {
	Label    string   `json:"label"`
	Hours    int      `json:"hours"`
	Severity Severity `json:"severity"`
}

// Classify buckets the time since createdAt for display. Elapsed time
// before createdAt counts as zero.
func Classify(createdAt, now time.Time) (Elapsed, error) {
	if createdAt.IsZero() || now.IsZero() {
		return Elapsed{}, domain.ErrInvalidTimestamp
	}

	d := now.Sub(createdAt)
	if d < 0 {
		d = 0
	}
	hours := int(d / time.Hour)
	minutes := int(d/time.Minute) % 60

	var label string
	switch {
	case hours >= 24:
		label = fmt.Sprintf("%dd %dh", hours/24, hours%24)
	case hours >= 1:
		label = fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		label = fmt.Sprintf("%dm", minutes)
	}

	return Elapsed{Label: label, Hours: hours, Severity: severityFor(hours)}, nil
}

func severityFor(hours int) Severity {
	switch {
	case hours < 12:
		return SeverityNormal
	case hours < 24:
		return SeverityWatch
	case hours < 48:
		return SeverityUrgent
	default:
		return SeverityCritical
	}
}

// ParseTimestamp parses an RFC 3339 timestamp as sent by the dashboard.
func ParseTimestamp(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", domain.ErrInvalidTimestamp, raw)
	}
	return t, nil
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// RecurrenceKind discriminates the two rule recurrence shapes.
type RecurrenceKind string

const (
	// RecurrenceWeekly repeats on a set of weekdays every week.
	RecurrenceWeekly RecurrenceKind = "weekly"
	// RecurrenceDates fires on specific calendar dates only.
	RecurrenceDates RecurrenceKind = "dates"
)

// Recurrence is a tagged variant: either a non-empty weekday set or a
// non-empty date set, never both. It is persisted as a single JSON column
// so the mutual exclusion cannot be violated by partial updates.
type Recurrence struct {
	Kind     RecurrenceKind `json:"kind"`
	Weekdays []time.Weekday `json:"weekdays,omitempty"`
	Dates    []string       `json:"dates,omitempty"` // "2006-01-02"
}

// NewWeeklyRecurrence builds a weekly recurrence from a weekday set.
func NewWeeklyRecurrence(weekdays ...time.Weekday) (Recurrence, error) {
	r := Recurrence{Kind: RecurrenceWeekly, Weekdays: weekdays}
	if err := r.Validate(); err != nil {
		return Recurrence{}, err
	}
	return r, nil
}

// NewDateRecurrence builds a date-specific recurrence from ISO dates.
func NewDateRecurrence(dates ...string) (Recurrence, error) {
	r := Recurrence{Kind: RecurrenceDates, Dates: dates}
	if err := r.Validate(); err != nil {
		return Recurrence{}, err
	}
	return r, nil
}

// Validate checks the variant invariants.
func (r Recurrence) Validate() error {
	switch r.Kind {
	case RecurrenceWeekly:
		if len(r.Weekdays) == 0 {
			return fmt.Errorf("weekly recurrence requires at least one weekday")
		}
		if len(r.Dates) > 0 {
			return fmt.Errorf("weekly recurrence must not carry specific dates")
		}
		seen := make(map[time.Weekday]struct{}, len(r.Weekdays))
		for _, d := range r.Weekdays {
			if d < time.Sunday || d > time.Saturday {
				return fmt.Errorf("invalid weekday %d", d)
			}
			if _, dup := seen[d]; dup {
				return fmt.Errorf("duplicate weekday %s", d)
			}
			seen[d] = struct{}{}
		}
	case RecurrenceDates:
		if len(r.Dates) == 0 {
			return fmt.Errorf("date recurrence requires at least one date")
		}
		if len(r.Weekdays) > 0 {
			return fmt.Errorf("date recurrence must not carry weekdays")
		}
		for _, d := range r.Dates {
			if _, err := time.Parse("2006-01-02", d); err != nil {
				return fmt.Errorf("invalid date %q: %w", d, err)
			}
		}
	default:
		return fmt.Errorf("unknown recurrence kind %q", r.Kind)
	}
	return nil
}

// IsDaily reports whether a weekly recurrence covers all seven weekdays.
func (r Recurrence) IsDaily() bool {
	return r.Kind == RecurrenceWeekly && len(r.Weekdays) == 7
}

// Matches reports whether the recurrence fires on the given instant's day.
func (r Recurrence) Matches(t time.Time) bool {
	switch r.Kind {
	case RecurrenceWeekly:
		for _, d := range r.Weekdays {
			if t.Weekday() == d {
				return true
			}
		}
	case RecurrenceDates:
		day := t.Format("2006-01-02")
		for _, d := range r.Dates {
			if d == day {
				return true
			}
		}
	}
	return false
}

// Value implements driver.Valuer for gorm JSON persistence.
func (r Recurrence) Value() (driver.Value, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner.
func (r *Recurrence) Scan(value any) error {
	if value == nil {
		return fmt.Errorf("recurrence column is null")
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported recurrence column type %T", value)
	}
	if err := json.Unmarshal(raw, r); err != nil {
		return fmt.Errorf("failed to decode recurrence: %w", err)
	}
	return r.Validate()
}

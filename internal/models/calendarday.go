package models

import "time"

// CalendarDay carries the per-date flags consumed read-only by the grid to
// suppress non-working days and compute expected hours.
type CalendarDay struct {
	Date      time.Time `json:"date"`
	IsWeekend bool      `json:"is_weekend"`
	IsHoliday bool      `json:"is_holiday"`
	Name      string    `json:"name,omitempty"`
}

package models

import (
	"math"
	"time"
)

// ShiftAssignment binds one employee to one project on one date. A cell in
// the grid holds zero or more of these; a cell with none gets a synthetic
// placeholder (Missing=true) that is never written to storage.
type ShiftAssignment struct {
	ID         string       `json:"id"`
	OrgID      string       `json:"org_id"`
	EmployeeID string       `json:"employee_id"`
	ProjectID  *string      `json:"project_id"`
	Date       time.Time    `json:"date"`
	Missing    bool         `json:"missing"`
	Entries    []*TimeEntry `json:"entries"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// MissingAssignmentID is the deterministic identity of the synthetic
// placeholder for an empty cell.
func MissingAssignmentID(employeeID string, date time.Time) string {
	return "missing-" + employeeID + "-" + date.Format("2006-01-02")
}

func NewMissingAssignment(orgID, employeeID string, date time.Time) *ShiftAssignment {
	return &ShiftAssignment{
		ID:         MissingAssignmentID(employeeID, date),
		OrgID:      orgID,
		EmployeeID: employeeID,
		Date:       date,
		Missing:    true,
	}
}

func (a *ShiftAssignment) TotalHours() float64 {
	var sum float64
	for _, e := range a.Entries {
		sum += e.Hours
	}
	return sum
}

func (a *ShiftAssignment) OvertimeHours() float64 {
	var sum float64
	for _, e := range a.Entries {
		if e.IsOvertime {
			sum += e.Hours
		}
	}
	return sum
}

func (a *ShiftAssignment) HasEntries() bool {
	return len(a.Entries) > 0
}

// SameDay reports whether the assignment sits on the given calendar date,
// ignoring clock time and zone offsets inside one location.
func (a *ShiftAssignment) SameDay(t time.Time) bool {
	y1, m1, d1 := a.Date.Date()
	y2, m2, d2 := t.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// ValidHours reports whether h is a positive multiple of a quarter hour.
func ValidHours(h float64) bool {
	if h <= 0 {
		return false
	}
	q := h * 4
	return math.Abs(q-math.Round(q)) < 1e-9
}

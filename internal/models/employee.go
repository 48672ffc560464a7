package models

import "time"

type Employee struct {
	ID             string    `json:"id"`
	OrgID          string    `json:"org_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	DailyHours     float64   `json:"daily_hours"`
	ERPEmployeeRef *string   `json:"erp_employee_ref"`
	Status         string    `json:"status"` // active, inactive
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (e *Employee) DisplayName() string {
	if e.FirstName == "" {
		return e.LastName
	}
	if e.LastName == "" {
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}

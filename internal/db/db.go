package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
)

type Employee struct {
	ID             string
	OrgID          string
	FirstName      string
	LastName       string
	DailyHours     float64
	ERPEmployeeRef sql.NullString
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Project struct {
	ID            string
	OrgID         string
	ERPProjectRef string
	Number        string
	Name          string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type ShiftAssignment struct {
	ID         string
	OrgID      string
	EmployeeID string
	ProjectID  sql.NullString
	Date       time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type TimeEntry struct {
	ID           string
	AssignmentID string
	Hours        float64
	ActivityRef  string
	Note         string
	IsOvertime   bool
	OvertimeTier string
	Status       string
	ApprovedBy   sql.NullString
	ApprovedAt   sql.NullTime
	SyncedAt     sql.NullTime
	ERPRef       sql.NullString
	SyncError    sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Queries wraps the raw connection sqlc-style; the store reaches through it
// for queries that have no generated method yet.
type Queries struct {
	DB *sql.DB
}

func New(db *sql.DB) *Queries {
	return &Queries{DB: db}
}

func (q *Queries) ListEmployees(ctx context.Context, orgID string) ([]Employee, error) {
	rows, err := q.DB.QueryContext(ctx,
		"SELECT id, org_id, first_name, last_name, daily_hours, erp_employee_ref, status, created_at, updated_at FROM employees WHERE org_id = $1 ORDER BY last_name, first_name",
		orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Employee
	for rows.Next() {
		var i Employee
		if err := rows.Scan(&i.ID, &i.OrgID, &i.FirstName, &i.LastName, &i.DailyHours, &i.ERPEmployeeRef, &i.Status, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (q *Queries) ListProjects(ctx context.Context, orgID string) ([]Project, error) {
	rows, err := q.DB.QueryContext(ctx,
		"SELECT id, org_id, erp_project_ref, number, name, created_at, updated_at FROM projects WHERE org_id = $1 ORDER BY number",
		orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Project
	for rows.Next() {
		var i Project
		if err := rows.Scan(&i.ID, &i.OrgID, &i.ERPProjectRef, &i.Number, &i.Name, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (q *Queries) ResetEntriesStatus(ctx context.Context, entryIDs []string, status string) error {
	_, err := q.DB.ExecContext(ctx,
		"UPDATE time_entries SET status = $1, approved_by = NULL, approved_at = NULL, updated_at = now() WHERE id = ANY($2)",
		status, pq.Array(entryIDs))
	return err
}

// Remaining CRUD lives on the store directly; add generated-style methods
// here as queries stabilize.

package timesheet

import (
	"context"
	"time"

	"staffing-grid/internal/models"
)

// Persistence is the storage collaborator the service writes through.
// Implementations must return errors distinguishably from "no rows"
// (errors.Is against sql.ErrNoRows or an equivalent sentinel).
type Persistence interface {
	AssignmentsInRange(ctx context.Context, orgID string, from, to time.Time) ([]*models.ShiftAssignment, error)
	AssignmentByID(ctx context.Context, id string) (*models.ShiftAssignment, error)
	InsertAssignment(ctx context.Context, a *models.ShiftAssignment) error
	DeleteAssignment(ctx context.Context, id string) error

	EmployeeByID(ctx context.Context, id string) (*models.Employee, error)
	ProjectByID(ctx context.Context, id string) (*models.Project, error)

	EntryByID(ctx context.Context, id string) (*models.TimeEntry, error)
	UpdateEntry(ctx context.Context, e *models.TimeEntry) error

	// ReplaceEntries swaps the assignment's entry set for rows atomically:
	// either the old rows are gone and every new row is in, or nothing
	// changed.
	ReplaceEntries(ctx context.Context, assignmentID string, rows []*models.TimeEntry) error

	// ResetEntries flips the given entries back to draft and clears their
	// approval stamps in one statement.
	ResetEntries(ctx context.Context, entryIDs []string) error
}

// SyncRequest carries one entry's data to the external payroll system.
type SyncRequest struct {
	EmployeeRef string
	ProjectRef  string
	ActivityRef string
	Hours       float64
	Date        time.Time
	Overtime    bool
	Note        string
}

// ExternalSync is the payroll/ERP boundary. Every operation is per-entry;
// batching and throttling are this package's responsibility, not the
// adapter's. Operations are idempotent-safe: deleting an unknown reference
// succeeds, verifying one reports exists=false.
type ExternalSync interface {
	SendTimesheetEntry(ctx context.Context, req SyncRequest) (string, error)
	DeleteTimesheetEntry(ctx context.Context, externalRef string) error
	UnapproveTimesheetEntries(ctx context.Context, entryIDs []string) error
	VerifyTimesheetEntry(ctx context.Context, externalRef string) (bool, error)
}

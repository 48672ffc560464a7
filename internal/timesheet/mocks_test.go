package timesheet

import (
	"context"
	"database/sql"
	"time"

	"staffing-grid/internal/models"
)

// MockPersistence implements Persistence with overridable functions, plus a
// map-backed default so most tests only seed data and override one or two
// calls.
type MockPersistence struct {
	Assignments map[string]*models.ShiftAssignment
	Employees   map[string]*models.Employee
	Projects    map[string]*models.Project
	Entries     map[string]*models.TimeEntry

	AssignmentsInRangeFunc func(ctx context.Context, orgID string, from, to time.Time) ([]*models.ShiftAssignment, error)
	UpdateEntryFunc        func(ctx context.Context, e *models.TimeEntry) error
	ReplaceEntriesFunc     func(ctx context.Context, assignmentID string, rows []*models.TimeEntry) error
	ResetEntriesFunc       func(ctx context.Context, entryIDs []string) error

	UpdatedEntries []string
	ReplaceCalls   []string
	ResetCalls     [][]string
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		Assignments: make(map[string]*models.ShiftAssignment),
		Employees:   make(map[string]*models.Employee),
		Projects:    make(map[string]*models.Project),
		Entries:     make(map[string]*models.TimeEntry),
	}
}

func (m *MockPersistence) AssignmentsInRange(ctx context.Context, orgID string, from, to time.Time) ([]*models.ShiftAssignment, error) {
	if m.AssignmentsInRangeFunc != nil {
		return m.AssignmentsInRangeFunc(ctx, orgID, from, to)
	}
	var out []*models.ShiftAssignment
	for _, a := range m.Assignments {
		if a.OrgID == orgID && !a.Date.Before(from) && !a.Date.After(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MockPersistence) AssignmentByID(ctx context.Context, id string) (*models.ShiftAssignment, error) {
	if a, ok := m.Assignments[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *MockPersistence) InsertAssignment(ctx context.Context, a *models.ShiftAssignment) error {
	m.Assignments[a.ID] = a
	return nil
}

func (m *MockPersistence) DeleteAssignment(ctx context.Context, id string) error {
	delete(m.Assignments, id)
	return nil
}

func (m *MockPersistence) EmployeeByID(ctx context.Context, id string) (*models.Employee, error) {
	if e, ok := m.Employees[id]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *MockPersistence) ProjectByID(ctx context.Context, id string) (*models.Project, error) {
	if p, ok := m.Projects[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *MockPersistence) EntryByID(ctx context.Context, id string) (*models.TimeEntry, error) {
	if e, ok := m.Entries[id]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *MockPersistence) UpdateEntry(ctx context.Context, e *models.TimeEntry) error {
	m.UpdatedEntries = append(m.UpdatedEntries, e.ID)
	if m.UpdateEntryFunc != nil {
		return m.UpdateEntryFunc(ctx, e)
	}
	m.Entries[e.ID] = e
	return nil
}

func (m *MockPersistence) ReplaceEntries(ctx context.Context, assignmentID string, rows []*models.TimeEntry) error {
	m.ReplaceCalls = append(m.ReplaceCalls, assignmentID)
	if m.ReplaceEntriesFunc != nil {
		return m.ReplaceEntriesFunc(ctx, assignmentID, rows)
	}
	for id, e := range m.Entries {
		if e.AssignmentID == assignmentID {
			delete(m.Entries, id)
		}
	}
	for _, e := range rows {
		m.Entries[e.ID] = e
	}
	return nil
}

func (m *MockPersistence) ResetEntries(ctx context.Context, entryIDs []string) error {
	m.ResetCalls = append(m.ResetCalls, entryIDs)
	if m.ResetEntriesFunc != nil {
		return m.ResetEntriesFunc(ctx, entryIDs)
	}
	for _, id := range entryIDs {
		if e, ok := m.Entries[id]; ok {
			e.Status = models.EntryDraft
			e.ApprovedBy = ""
			e.ApprovedAt = nil
		}
	}
	return nil
}

// MockSync implements ExternalSync with overridable functions.
type MockSync struct {
	SendFunc      func(ctx context.Context, req SyncRequest) (string, error)
	DeleteFunc    func(ctx context.Context, externalRef string) error
	UnapproveFunc func(ctx context.Context, entryIDs []string) error
	VerifyFunc    func(ctx context.Context, externalRef string) (bool, error)

	SendCalls   []SyncRequest
	DeleteCalls []string
}

func (m *MockSync) SendTimesheetEntry(ctx context.Context, req SyncRequest) (string, error) {
	m.SendCalls = append(m.SendCalls, req)
	if m.SendFunc != nil {
		return m.SendFunc(ctx, req)
	}
	return "ref-ok", nil
}

func (m *MockSync) DeleteTimesheetEntry(ctx context.Context, externalRef string) error {
	m.DeleteCalls = append(m.DeleteCalls, externalRef)
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, externalRef)
	}
	return nil
}

func (m *MockSync) UnapproveTimesheetEntries(ctx context.Context, entryIDs []string) error {
	if m.UnapproveFunc != nil {
		return m.UnapproveFunc(ctx, entryIDs)
	}
	return nil
}

func (m *MockSync) VerifyTimesheetEntry(ctx context.Context, externalRef string) (bool, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, externalRef)
	}
	return true, nil
}

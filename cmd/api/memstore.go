package main

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"staffing-grid/internal/erp"
	"staffing-grid/internal/models"
	"staffing-grid/internal/timesheet"
)

// InMemoryStore backs demo mode: the full DataStore surface over maps and a
// mutex, seeded with a couple of employees and projects so the grid renders
// something without a database.
type InMemoryStore struct {
	mu          sync.RWMutex
	employees   map[string]*models.Employee
	projects    map[string]*models.Project
	assignments map[string]*models.ShiftAssignment
	entries     map[string]*models.TimeEntry
	lines       map[string]*models.FreeLine
	bubbles     map[string]*models.FreeBubble
	colors      map[string]models.ProjectColor // keyed by org|ref
	days        map[string]models.CalendarDay
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		employees:   make(map[string]*models.Employee),
		projects:    make(map[string]*models.Project),
		assignments: make(map[string]*models.ShiftAssignment),
		entries:     make(map[string]*models.TimeEntry),
		lines:       make(map[string]*models.FreeLine),
		bubbles:     make(map[string]*models.FreeBubble),
		colors:      make(map[string]models.ProjectColor),
		days:        make(map[string]models.CalendarDay),
	}
}

func seedDemoData(s *InMemoryStore, orgID string) {
	now := time.Now()
	refKari := "ERP-EMP-1"
	refOla := "ERP-EMP-2"
	for _, e := range []*models.Employee{
		{ID: uuid.NewString(), OrgID: orgID, FirstName: "Kari", LastName: "Nordmann", DailyHours: 7.5, ERPEmployeeRef: &refKari, Status: "active", CreatedAt: now},
		{ID: uuid.NewString(), OrgID: orgID, FirstName: "Ola", LastName: "Hansen", DailyHours: 7.5, ERPEmployeeRef: &refOla, Status: "active", CreatedAt: now},
	} {
		s.employees[e.ID] = e
	}
	for _, p := range []*models.Project{
		{ID: uuid.NewString(), OrgID: orgID, ERPProjectRef: "ERP-PRJ-100", Number: "100", Name: "Storgata 12", CreatedAt: now},
		{ID: uuid.NewString(), OrgID: orgID, ERPProjectRef: "ERP-PRJ-200", Number: "200", Name: "Havnekaia", CreatedAt: now},
	} {
		s.projects[p.ID] = p
	}
}

func (s *InMemoryStore) ListEmployees(ctx context.Context, orgID string) ([]*models.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Employee
	for _, e := range s.employees {
		if e.OrgID == orgID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListProjects(ctx context.Context, orgID string) ([]*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Project
	for _, p := range s.projects {
		if p.OrgID == orgID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *InMemoryStore) EmployeeByID(ctx context.Context, id string) (*models.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.employees[id]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (s *InMemoryStore) ProjectByID(ctx context.Context, id string) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.projects[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (s *InMemoryStore) AssignmentsInRange(ctx context.Context, orgID string, from, to time.Time) ([]*models.ShiftAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ShiftAssignment
	for _, a := range s.assignments {
		if a.OrgID != orgID || a.Date.Before(from) || a.Date.After(to) {
			continue
		}
		out = append(out, s.withEntries(a))
	}
	return out, nil
}

func (s *InMemoryStore) AssignmentByID(ctx context.Context, id string) (*models.ShiftAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s.withEntries(a), nil
}

// withEntries returns a copy with the live entry pointers attached so
// service mutations hit the stored rows.
func (s *InMemoryStore) withEntries(a *models.ShiftAssignment) *models.ShiftAssignment {
	cp := *a
	cp.Entries = nil
	for _, e := range s.entries {
		if e.AssignmentID == a.ID {
			cp.Entries = append(cp.Entries, e)
		}
	}
	return &cp
}

func (s *InMemoryStore) InsertAssignment(ctx context.Context, a *models.ShiftAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	cp.Entries = nil
	s.assignments[a.ID] = &cp
	return nil
}

func (s *InMemoryStore) DeleteAssignment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.assignments, id)
	for eid, e := range s.entries {
		if e.AssignmentID == id {
			delete(s.entries, eid)
		}
	}
	return nil
}

func (s *InMemoryStore) EntryByID(ctx context.Context, id string) (*models.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[id]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (s *InMemoryStore) UpdateEntry(ctx context.Context, e *models.TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.ID]; !ok {
		return sql.ErrNoRows
	}
	s.entries[e.ID] = e
	return nil
}

func (s *InMemoryStore) ReplaceEntries(ctx context.Context, assignmentID string, rows []*models.TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assignments[assignmentID]; !ok {
		return fmt.Errorf("assignment %s not found", assignmentID)
	}
	for id, e := range s.entries {
		if e.AssignmentID == assignmentID {
			delete(s.entries, id)
		}
	}
	for _, e := range rows {
		s.entries[e.ID] = e
	}
	return nil
}

func (s *InMemoryStore) ResetEntries(ctx context.Context, entryIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range entryIDs {
		if e, ok := s.entries[id]; ok {
			e.Status = models.EntryDraft
			e.ApprovedBy = ""
			e.ApprovedAt = nil
		}
	}
	return nil
}

func (s *InMemoryStore) ListFreeLines(ctx context.Context, orgID string, from, to time.Time) ([]*models.FreeLine, []*models.FreeBubble, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var lines []*models.FreeLine
	inWindow := make(map[string]bool)
	for _, l := range s.lines {
		if l.OrgID == orgID {
			lines = append(lines, l)
			inWindow[l.ID] = true
		}
	}
	var bubbles []*models.FreeBubble
	for _, b := range s.bubbles {
		if inWindow[b.LineID] {
			bubbles = append(bubbles, b)
		}
	}
	return lines, bubbles, nil
}

func (s *InMemoryStore) InsertFreeLine(ctx context.Context, l *models.FreeLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[l.ID] = l
	return nil
}

func (s *InMemoryStore) InsertFreeBubble(ctx context.Context, b *models.FreeBubble) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bubbles[b.ID] = b
	return nil
}

func (s *InMemoryStore) DeleteFreeBubble(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bubbles, id)
	return nil
}

func (s *InMemoryStore) ListProjectColors(ctx context.Context, orgID string) ([]models.ProjectColor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ProjectColor
	for _, c := range s.colors {
		if c.OrgID == orgID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *InMemoryStore) UpsertProjectColor(ctx context.Context, c models.ProjectColor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.colors[c.OrgID+"|"+c.ERPProjectRef] = c
	return nil
}

func (s *InMemoryStore) ListCalendarDays(ctx context.Context, from, to time.Time) (map[string]models.CalendarDay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.CalendarDay, len(s.days))
	for k, d := range s.days {
		out[k] = d
	}
	return out, nil
}

// InMemorySync is the demo-mode payroll system: it accepts everything,
// hands out refs, and remembers them so verify and recall behave.
type InMemorySync struct {
	mu      sync.Mutex
	nextRef int
	known   map[string]bool
}

func NewInMemorySync() *InMemorySync {
	return &InMemorySync{known: make(map[string]bool)}
}

func (f *InMemorySync) SendTimesheetEntry(ctx context.Context, req timesheet.SyncRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextRef++
	ref := fmt.Sprintf("demo-ref-%d", f.nextRef)
	f.known[ref] = true
	return ref, nil
}

func (f *InMemorySync) DeleteTimesheetEntry(ctx context.Context, externalRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.known, externalRef)
	return nil
}

func (f *InMemorySync) UnapproveTimesheetEntries(ctx context.Context, entryIDs []string) error {
	return nil
}

func (f *InMemorySync) VerifyTimesheetEntry(ctx context.Context, externalRef string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.known[externalRef], nil
}

func (f *InMemorySync) GetProjectDetails(ctx context.Context, projectRef string) (*erp.ProjectDetails, error) {
	return &erp.ProjectDetails{
		Customer:    "Demo Kunde AS",
		Manager:     "Demo Leder",
		Description: "demo project " + projectRef,
	}, nil
}

package grid

import (
	"time"

	"staffing-grid/internal/calendar"
	"staffing-grid/internal/models"
	"staffing-grid/internal/timesheet"
)

// CellAssignment is one assignment as the grid presents it: the persisted
// record plus the derived status, total hours and resolved project color.
type CellAssignment struct {
	*models.ShiftAssignment
	Project    *models.Project `json:"project"`
	Color      string          `json:"color"`
	TotalHours float64         `json:"total_hours"`
	Status     models.Status   `json:"status"`
}

// Grid is the in-memory assignment grid for the active calendar window.
// It owns the ShiftAssignment copies it holds; persistent storage stays the
// system of record and is reconciled back in via a rebuild after every
// mutation round-trip. Mutations go through the Coordinator only.
type Grid struct {
	orgID     string
	weeks     []calendar.Week
	employees []*models.Employee
	projects  map[string]*models.Project // by project ID
	colors    map[string]string          // ERP project ref -> chosen color
	cells     map[string][]*CellAssignment
}

func cellKey(employeeID string, date time.Time) string {
	return employeeID + "|" + date.Format("2006-01-02")
}

// Build merges the persisted assignments into the employee × date window,
// synthesizing exactly one missing placeholder for every cell that has no
// real assignment. Rebuild whenever the persisted fetch, the employee list
// or the window changes.
func Build(orgID string, employees []*models.Employee, weeks []calendar.Week, assignments []*models.ShiftAssignment, projects []*models.Project, colors []models.ProjectColor) *Grid {
	g := &Grid{
		orgID:     orgID,
		weeks:     weeks,
		employees: employees,
		projects:  make(map[string]*models.Project, len(projects)),
		colors:    make(map[string]string, len(colors)),
		cells:     make(map[string][]*CellAssignment),
	}
	for _, p := range projects {
		g.projects[p.ID] = p
	}
	for _, c := range colors {
		g.colors[c.ERPProjectRef] = c.Color
	}

	byCell := make(map[string][]*models.ShiftAssignment)
	for _, a := range assignments {
		k := cellKey(a.EmployeeID, a.Date)
		byCell[k] = append(byCell[k], a)
	}

	for _, emp := range employees {
		for _, w := range weeks {
			for _, day := range w.Days {
				k := cellKey(emp.ID, day)
				persisted := byCell[k]
				if len(persisted) == 0 {
					g.cells[k] = []*CellAssignment{g.decorate(models.NewMissingAssignment(orgID, emp.ID, day))}
					continue
				}
				cell := make([]*CellAssignment, 0, len(persisted))
				for _, a := range persisted {
					cell = append(cell, g.decorate(a))
				}
				g.cells[k] = cell
			}
		}
	}
	return g
}

// decorate wraps an assignment with its derived presentation fields.
func (g *Grid) decorate(a *models.ShiftAssignment) *CellAssignment {
	ca := &CellAssignment{
		ShiftAssignment: a,
		TotalHours:      a.TotalHours(),
		Status:          timesheet.DeriveStatus(a),
	}
	if a.ProjectID != nil {
		if p, ok := g.projects[*a.ProjectID]; ok {
			ca.Project = p
			if color, ok := g.colors[p.ERPProjectRef]; ok {
				ca.Color = color
			} else {
				ca.Color = models.FallbackColor(p.ERPProjectRef)
			}
		}
	}
	return ca
}

// Cell returns the assignments for one employee/date, nil when the cell is
// outside the active window.
func (g *Grid) Cell(employeeID string, date time.Time) []*CellAssignment {
	return g.cells[cellKey(employeeID, date)]
}

// Assignment finds an assignment anywhere in the window by ID.
func (g *Grid) Assignment(id string) *CellAssignment {
	for _, cell := range g.cells {
		for _, a := range cell {
			if a.ID == id {
				return a
			}
		}
	}
	return nil
}

// Weeks returns the calendar window the grid was built over.
func (g *Grid) Weeks() []calendar.Week { return g.weeks }

// Employees returns the employee axis of the grid.
func (g *Grid) Employees() []*models.Employee { return g.employees }

// Insert places a new assignment into its cell, displacing the missing
// placeholder if that is all the cell held. Call through the Coordinator.
func (g *Grid) Insert(a *models.ShiftAssignment) {
	k := cellKey(a.EmployeeID, a.Date)
	cell := g.cells[k]
	if len(cell) == 1 && cell[0].Missing {
		cell = cell[:0]
	}
	g.cells[k] = append(cell, g.decorate(a))
}

// Remove deletes an assignment from its cell, re-synthesizing the missing
// placeholder when the cell would otherwise be empty. Call through the
// Coordinator.
func (g *Grid) Remove(id string) {
	for k, cell := range g.cells {
		for i, a := range cell {
			if a.ID != id {
				continue
			}
			cell = append(cell[:i], cell[i+1:]...)
			if len(cell) == 0 {
				cell = []*CellAssignment{g.decorate(models.NewMissingAssignment(g.orgID, a.EmployeeID, a.Date))}
			}
			g.cells[k] = cell
			return
		}
	}
}

// Refresh recomputes the derived fields of one assignment after its entries
// changed in place.
func (g *Grid) Refresh(id string) {
	for k, cell := range g.cells {
		for i, a := range cell {
			if a.ID == id {
				g.cells[k][i] = g.decorate(a.ShiftAssignment)
				return
			}
		}
	}
}

type gridMemento struct {
	cells map[string][]*CellAssignment
}

// Snapshot captures the current cell map for the Coordinator's rollback.
// Assignments are copied deeply enough that entry edits after the snapshot
// cannot leak back into it.
func (g *Grid) Snapshot() any {
	m := gridMemento{cells: make(map[string][]*CellAssignment, len(g.cells))}
	for k, cell := range g.cells {
		cp := make([]*CellAssignment, len(cell))
		for i, a := range cell {
			ac := *a.ShiftAssignment
			ac.Entries = make([]*models.TimeEntry, len(a.Entries))
			for j, e := range a.Entries {
				ec := *e
				ac.Entries[j] = &ec
			}
			dup := *a
			dup.ShiftAssignment = &ac
			cp[i] = &dup
		}
		m.cells[k] = cp
	}
	return m
}

// Restore rewinds the grid to a snapshot taken earlier.
func (g *Grid) Restore(snap any) {
	if m, ok := snap.(gridMemento); ok {
		g.cells = m.cells
	}
}

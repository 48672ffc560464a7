package grid

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"staffing-grid/internal/models"
)

var (
	ErrDuplicateProject = errors.New("target day already has an assignment for this project")
	ErrSourceNotFound   = errors.New("drag source assignment not found")
	ErrSourceMissing    = errors.New("cannot drag an empty cell")
)

// DragPayload is the validated transfer-intent value: constructed once when
// the drag starts, consumed once at drop. Copy is true when an always-copy
// modifier was active or copy was requested explicitly; otherwise the intent
// is move.
type DragPayload struct {
	SourceID         string    `json:"source_id"`
	SourceEmployeeID string    `json:"source_employee_id"`
	SourceDate       time.Time `json:"source_date"`
	Copy             bool      `json:"copy"`
}

func NewDragPayload(sourceID, sourceEmployeeID string, sourceDate time.Time, copyIntent bool) (DragPayload, error) {
	if sourceID == "" {
		return DragPayload{}, errors.New("drag payload: empty source id")
	}
	if sourceEmployeeID == "" {
		return DragPayload{}, errors.New("drag payload: empty source employee id")
	}
	if sourceDate.IsZero() {
		return DragPayload{}, errors.New("drag payload: zero source date")
	}
	return DragPayload{
		SourceID:         sourceID,
		SourceEmployeeID: sourceEmployeeID,
		SourceDate:       sourceDate,
		Copy:             copyIntent,
	}, nil
}

// DropPlan is the resolver's verdict: what to create, what to delete, and
// whether a move had to leave its source behind.
type DropPlan struct {
	NewAssignment  *models.ShiftAssignment `json:"new_assignment"`
	DeleteSourceID string                  `json:"delete_source_id,omitempty"`
	SourceRetained bool                    `json:"source_retained"`
	Warning        string                  `json:"warning,omitempty"`
}

// ResolveDrop decides whether dropping the dragged assignment on
// (targetEmployeeID, targetDate) is legal and what it produces.
//
// The new assignment always starts with zero time entries: copying recorded
// (possibly approved or synced) hours silently is worse than making the user
// re-enter them. A move deletes its source only when the source has no
// entries; with entries the source is kept and the plan says so, so the
// caller can warn instead of losing data.
func (g *Grid) ResolveDrop(p DragPayload, targetEmployeeID string, targetDate time.Time) (*DropPlan, error) {
	source := g.Assignment(p.SourceID)
	if source == nil {
		return nil, ErrSourceNotFound
	}
	if source.Missing {
		return nil, ErrSourceMissing
	}

	for _, a := range g.Cell(targetEmployeeID, targetDate) {
		if a.Missing || a.ID == source.ID {
			continue
		}
		if a.ProjectID != nil && source.ProjectID != nil && *a.ProjectID == *source.ProjectID {
			return nil, fmt.Errorf("%w (employee %s, %s)", ErrDuplicateProject, targetEmployeeID, targetDate.Format("2006-01-02"))
		}
	}

	now := time.Now()
	plan := &DropPlan{
		NewAssignment: &models.ShiftAssignment{
			ID:         uuid.NewString(),
			OrgID:      source.OrgID,
			EmployeeID: targetEmployeeID,
			ProjectID:  source.ProjectID,
			Date:       targetDate,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
	}

	if p.Copy {
		return plan, nil
	}

	if source.HasEntries() {
		plan.SourceRetained = true
		plan.Warning = "source has recorded hours and was kept; the move behaved as a copy"
		return plan, nil
	}
	plan.DeleteSourceID = source.ID
	return plan, nil
}

package grid

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"staffing-grid/internal/models"
)

var ErrBubbleNotFound = errors.New("drag source bubble not found")

// AnnotationStore holds the free lines and bubbles for the active window.
// Lines are week-scoped; bubbles hang off a line and a date. The store is
// independent of the employee grid but shares the same week partitioning and
// the same Coordinator discipline.
type AnnotationStore struct {
	orgID   string
	lines   map[string]*models.FreeLine
	bubbles map[string]*models.FreeBubble
}

func NewAnnotationStore(orgID string, lines []*models.FreeLine, bubbles []*models.FreeBubble) *AnnotationStore {
	s := &AnnotationStore{
		orgID:   orgID,
		lines:   make(map[string]*models.FreeLine, len(lines)),
		bubbles: make(map[string]*models.FreeBubble, len(bubbles)),
	}
	for _, l := range lines {
		s.lines[l.ID] = l
	}
	for _, b := range bubbles {
		s.bubbles[b.ID] = b
	}
	return s
}

// LinesForWeek returns the week's lines in display order.
func (s *AnnotationStore) LinesForWeek(week, year int) []*models.FreeLine {
	var out []*models.FreeLine
	for _, l := range s.lines {
		if l.Week == week && l.Year == year {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// BubblesForLine returns the line's bubbles ordered by date.
func (s *AnnotationStore) BubblesForLine(lineID string) []*models.FreeBubble {
	var out []*models.FreeBubble
	for _, b := range s.bubbles {
		if b.LineID == lineID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (s *AnnotationStore) Line(id string) *models.FreeLine     { return s.lines[id] }
func (s *AnnotationStore) Bubble(id string) *models.FreeBubble { return s.bubbles[id] }

// EnsureLine returns an existing line for the week or builds the first one.
// The second return value reports whether a line was built; a built line is
// not stored yet, the caller adds it with PutLine and persists it inside the
// same coordinated mutation so a rollback discards it too.
func (s *AnnotationStore) EnsureLine(week, year int) (*models.FreeLine, bool) {
	if existing := s.LinesForWeek(week, year); len(existing) > 0 {
		return existing[0], false
	}
	l := &models.FreeLine{
		ID:        uuid.NewString(),
		OrgID:     s.orgID,
		Week:      week,
		Year:      year,
		CreatedAt: time.Now(),
	}
	return l, true
}

func (s *AnnotationStore) PutLine(l *models.FreeLine)     { s.lines[l.ID] = l }
func (s *AnnotationStore) PutBubble(b *models.FreeBubble) { s.bubbles[b.ID] = b }
func (s *AnnotationStore) RemoveBubble(id string)         { delete(s.bubbles, id) }
func (s *AnnotationStore) RemoveLine(id string)           { delete(s.lines, id) }

// BubbleDragPayload mirrors DragPayload for annotation bubbles.
type BubbleDragPayload struct {
	SourceID string `json:"source_id"`
	Copy     bool   `json:"copy"`
}

// BubbleDropPlan describes the outcome of a bubble drop. CreatedLine is
// non-nil when the destination week had no line yet and one was auto-created;
// it must be persisted before the bubble.
type BubbleDropPlan struct {
	NewBubble      *models.FreeBubble `json:"new_bubble"`
	DeleteSourceID string             `json:"delete_source_id,omitempty"`
	CreatedLine    *models.FreeLine   `json:"created_line,omitempty"`
}

// ResolveBubbleDrop relocates or copies a bubble to a line and date. Pass an
// empty targetLineID to drop into whatever line the destination week has,
// creating one when there is none. Bubbles carry no locked data, so a move
// always deletes its source.
func (s *AnnotationStore) ResolveBubbleDrop(p BubbleDragPayload, targetLineID string, targetWeek, targetYear int, targetDate time.Time) (*BubbleDropPlan, error) {
	source := s.Bubble(p.SourceID)
	if source == nil {
		return nil, ErrBubbleNotFound
	}

	plan := &BubbleDropPlan{}
	if targetLineID == "" {
		line, created := s.EnsureLine(targetWeek, targetYear)
		targetLineID = line.ID
		if created {
			plan.CreatedLine = line
		}
	} else if s.Line(targetLineID) == nil {
		return nil, errors.New("target line not found")
	}

	plan.NewBubble = &models.FreeBubble{
		ID:        uuid.NewString(),
		LineID:    targetLineID,
		Date:      targetDate,
		Text:      source.Text,
		Color:     source.Color,
		CreatedAt: time.Now(),
	}
	if !p.Copy {
		plan.DeleteSourceID = source.ID
	}
	return plan, nil
}

type annotationMemento struct {
	lines   map[string]*models.FreeLine
	bubbles map[string]*models.FreeBubble
}

func (s *AnnotationStore) Snapshot() any {
	m := annotationMemento{
		lines:   make(map[string]*models.FreeLine, len(s.lines)),
		bubbles: make(map[string]*models.FreeBubble, len(s.bubbles)),
	}
	for k, l := range s.lines {
		cp := *l
		m.lines[k] = &cp
	}
	for k, b := range s.bubbles {
		cp := *b
		m.bubbles[k] = &cp
	}
	return m
}

func (s *AnnotationStore) Restore(snap any) {
	if m, ok := snap.(annotationMemento); ok {
		s.lines = m.lines
		s.bubbles = m.bubbles
	}
}

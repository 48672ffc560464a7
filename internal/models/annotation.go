package models

import "time"

// FreeLine is a week-scoped annotation row below the employee grid. Lines
// are ordered by Position for display; identity carries no ordering.
type FreeLine struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Week      int       `json:"week"`
	Year      int       `json:"year"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// FreeBubble is one free-text cell pinned to a date on a free line. Bubbles
// share the grid's drag mechanics but never touch real assignments.
type FreeBubble struct {
	ID        string    `json:"id"`
	LineID    string    `json:"line_id"`
	Date      time.Time `json:"date"`
	Text      string    `json:"text"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

package models

import (
	"encoding/json"
	"time"
)

// OvertimeTier distinguishes the overtime compensation levels. Regular and
// each tier are stored as separate TimeEntry rows sharing the same
// assignment, activity and note.
type OvertimeTier int

const (
	TierNone OvertimeTier = iota
	TierFifty
	TierHundred
)

func (t OvertimeTier) String() string {
	switch t {
	case TierFifty:
		return "overtime_50"
	case TierHundred:
		return "overtime_100"
	}
	return "none"
}

func (t OvertimeTier) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *OvertimeTier) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*t = ParseOvertimeTier(v)
	return nil
}

func ParseOvertimeTier(v string) OvertimeTier {
	switch v {
	case "overtime_50":
		return TierFifty
	case "overtime_100":
		return TierHundred
	}
	return TierNone
}

// TimeEntry is one recorded hour quantity under an assignment.
type TimeEntry struct {
	ID           string       `json:"id"`
	AssignmentID string       `json:"assignment_id"`
	Hours        float64      `json:"hours"`
	ActivityRef  string       `json:"activity_ref"`
	Note         string       `json:"note"`
	IsOvertime   bool         `json:"is_overtime"`
	OvertimeTier OvertimeTier `json:"overtime_tier"`
	Status       EntryStatus  `json:"status"`
	ApprovedBy   string       `json:"approved_by,omitempty"`
	ApprovedAt   *time.Time   `json:"approved_at"`
	SyncedAt     *time.Time   `json:"synced_at"`
	ERPRef       *string      `json:"erp_ref"`
	SyncError    string       `json:"sync_error,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Locked reports whether the entry may no longer be edited locally: once
// approved or carrying an external sync timestamp, changes must go through a
// manager (unapprove/recall) first.
func (e *TimeEntry) Locked() bool {
	return e.Status == EntryApproved || e.SyncedAt != nil
}

// Synced reports whether the entry has reached the external system.
func (e *TimeEntry) Synced() bool {
	return e.SyncedAt != nil
}

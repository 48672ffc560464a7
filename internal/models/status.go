package models

import "encoding/json"

// Status is the derived lifecycle state of one assignment cell. It is never
// stored; DeriveStatus in the timesheet package computes it from the entry
// set every time the grid is built.
type Status int

const (
	StatusMissing Status = iota
	StatusDraft
	StatusReady
	StatusApproved
	StatusSent
)

func (s Status) String() string {
	switch s {
	case StatusMissing:
		return "missing"
	case StatusDraft:
		return "draft"
	case StatusReady:
		return "ready"
	case StatusApproved:
		return "approved"
	case StatusSent:
		return "sent"
	}
	return "unknown"
}

// MarshalJSON emits the lowercase name so the presentation layer never sees
// raw iota values.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = ParseStatus(v)
	return nil
}

// ParseStatus maps a status name back to the enum. Unknown values fall back
// to missing.
func ParseStatus(v string) Status {
	switch v {
	case "draft":
		return StatusDraft
	case "ready":
		return StatusReady
	case "approved":
		return StatusApproved
	case "sent":
		return StatusSent
	}
	return StatusMissing
}

// EntryStatus is the stored lifecycle state of a single time entry.
// External synchronization is tracked separately via SyncedAt/ERPRef.
type EntryStatus int

const (
	EntryDraft EntryStatus = iota
	EntryReady
	EntryApproved
)

func (s EntryStatus) String() string {
	switch s {
	case EntryDraft:
		return "draft"
	case EntryReady:
		return "ready"
	case EntryApproved:
		return "approved"
	}
	return "unknown"
}

func (s EntryStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s *EntryStatus) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = ParseEntryStatus(v)
	return nil
}

// ParseEntryStatus maps a stored status string back to the enum. Unknown
// values fall back to draft rather than failing the whole grid load.
func ParseEntryStatus(v string) EntryStatus {
	switch v {
	case "ready":
		return EntryReady
	case "approved":
		return EntryApproved
	}
	return EntryDraft
}

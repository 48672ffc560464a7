package erp

import "strings"

// Categories of known external-sync failure causes. Anything else passes
// through with its raw message under CategoryUnknown.
const (
	CategoryActivityNotOnProject = "activity_not_on_project"
	CategoryNotParticipant       = "employee_not_participant"
	CategoryRateLimited          = "rate_limited"
	CategoryPeriodLocked         = "period_locked"
	CategoryProjectClosed        = "project_closed"
	CategoryValidation           = "external_validation"
	CategoryUnknown              = "external"
)

// SyncError is an external-system failure with its classified cause.
type SyncError struct {
	Cat     string
	Message string
}

func (e *SyncError) Error() string    { return e.Message }
func (e *SyncError) Category() string { return e.Cat }

// Classify wraps a raw external error message with the matching category.
// Matching is substring-based against the phrasings the external system is
// known to produce.
func Classify(message string) *SyncError {
	lower := strings.ToLower(message)
	cat := CategoryUnknown
	switch {
	case strings.Contains(lower, "activity") && (strings.Contains(lower, "not available") || strings.Contains(lower, "not found on project") || strings.Contains(lower, "not linked")):
		cat = CategoryActivityNotOnProject
	case strings.Contains(lower, "not a participant") || strings.Contains(lower, "not member of project"):
		cat = CategoryNotParticipant
	case strings.Contains(lower, "too many requests") || strings.Contains(lower, "rate limit"):
		cat = CategoryRateLimited
	case strings.Contains(lower, "period") && (strings.Contains(lower, "locked") || strings.Contains(lower, "closed")):
		cat = CategoryPeriodLocked
	case strings.Contains(lower, "project") && strings.Contains(lower, "closed"):
		cat = CategoryProjectClosed
	case strings.Contains(lower, "validation"):
		cat = CategoryValidation
	}
	return &SyncError{Cat: cat, Message: message}
}

// Describe renders a category as the human-readable text surfaced to users.
func Describe(category string) string {
	switch category {
	case CategoryActivityNotOnProject:
		return "the activity is not available on the external project"
	case CategoryNotParticipant:
		return "the employee is not a participant on the external project"
	case CategoryRateLimited:
		return "the external system is rate-limiting requests"
	case CategoryPeriodLocked:
		return "the external accounting period is locked"
	case CategoryProjectClosed:
		return "the external project is closed"
	case CategoryValidation:
		return "the external system rejected the entry as invalid"
	}
	return "external system error"
}

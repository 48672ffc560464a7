package timesheet

import "staffing-grid/internal/models"

// DeriveStatus computes the assignment-level status from the entry set. It
// is a pure function: same entries in, same status out, every time.
//
//	no assignment / synthetic  -> missing
//	entries empty              -> draft
//	all approved or synced     -> sent when all synced, else approved
//	any submitted for approval -> ready
//	otherwise                  -> draft
func DeriveStatus(a *models.ShiftAssignment) models.Status {
	if a == nil || a.Missing {
		return models.StatusMissing
	}
	if len(a.Entries) == 0 {
		return models.StatusDraft
	}

	allSettled := true // approved or already synced
	allSynced := true
	anyReady := false
	for _, e := range a.Entries {
		if !e.Synced() {
			allSynced = false
			if e.Status != models.EntryApproved {
				allSettled = false
			}
		}
		if e.Status == models.EntryReady {
			anyReady = true
		}
	}

	if allSettled {
		if allSynced {
			return models.StatusSent
		}
		return models.StatusApproved
	}
	if anyReady {
		return models.StatusReady
	}
	return models.StatusDraft
}

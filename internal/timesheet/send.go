package timesheet

import (
	"context"
	"errors"
	"fmt"

	"staffing-grid/internal/calendar"
	"staffing-grid/internal/events"
	"staffing-grid/internal/models"
)

// SendResult summarizes a bulk synchronization: successes are kept even when
// siblings fail, and failures roll up into the most common category.
type SendResult struct {
	Sent       int            `json:"sent"`
	Failed     int            `json:"failed"`
	Categories map[string]int `json:"categories,omitempty"`
	TopFailure string         `json:"top_failure,omitempty"`
}

func (r *SendResult) recordFailure(category string) {
	r.Failed++
	if r.Categories == nil {
		r.Categories = make(map[string]int)
	}
	r.Categories[category]++
	best := 0
	for cat, n := range r.Categories {
		if n > best || (n == best && cat == r.TopFailure) {
			best = n
			r.TopFailure = cat
		}
	}
}

// categoryOf extracts the classified category from an adapter error; errors
// the adapter could not classify pass through as "external".
func categoryOf(err error) string {
	var ce interface{ Category() string }
	if errors.As(err, &ce) {
		return ce.Category()
	}
	return "external"
}

// sendable pairs an entry with its parent assignment for dispatch.
type sendable struct {
	a *models.ShiftAssignment
	e *models.TimeEntry
}

// eligibleForSend: the entry is approved and not yet synced, and every
// sibling on the assignment is approved or already synced. A partially
// failed earlier send leaves synced siblings behind; those must not block a
// retry of the rest.
func eligibleForSend(a *models.ShiftAssignment, e *models.TimeEntry) bool {
	if e.Status != models.EntryApproved || e.Synced() {
		return false
	}
	for _, sib := range a.Entries {
		if !sib.Synced() && sib.Status != models.EntryApproved {
			return false
		}
	}
	return true
}

// Send dispatches the given approved entries to the external system, one
// call per entry. Partial failure is tolerated: entries that succeed are
// marked synced, the rest stay approved with the failure recorded.
func (s *Service) Send(ctx context.Context, entryIDs []string) (*SendResult, error) {
	var batch []sendable
	for _, id := range entryIDs {
		e, err := s.db.EntryByID(ctx, id)
		if err != nil {
			return nil, err
		}
		a, err := s.db.AssignmentByID(ctx, e.AssignmentID)
		if err != nil {
			return nil, err
		}
		if !eligibleForSend(a, e) {
			continue
		}
		batch = append(batch, sendable{a: a, e: e})
	}
	if len(batch) == 0 {
		return nil, ErrNothingEligible
	}
	res := &SendResult{}
	for _, sb := range batch {
		s.sendOne(ctx, sb, res)
	}
	s.publishSendOutcome(res)
	return res, nil
}

// SendWeek dispatches every eligible entry of the week in small batches with
// a gap in between; the external system rate-limits, so this backpressure is
// deliberate. Days or employees with nothing eligible are skipped silently.
func (s *Service) SendWeek(ctx context.Context, orgID string, week calendar.Week) (*SendResult, error) {
	assignments, err := s.weekAssignments(ctx, orgID, week)
	if err != nil {
		return nil, err
	}
	var queue []sendable
	for _, a := range assignments {
		for _, e := range a.Entries {
			if eligibleForSend(a, e) {
				queue = append(queue, sendable{a: a, e: e})
			}
		}
	}
	if len(queue) == 0 {
		return nil, ErrNothingEligible
	}

	res := &SendResult{}
	for start := 0; start < len(queue); start += s.batchSize {
		end := start + s.batchSize
		if end > len(queue) {
			end = len(queue)
		}
		for _, sb := range queue[start:end] {
			s.sendOne(ctx, sb, res)
		}
		if end < len(queue) {
			s.sleep(s.batchGap)
		}
	}
	s.publishSendOutcome(res)
	return res, nil
}

// sendOne performs a single external dispatch and records the outcome on the
// entry. Failures never abort the remaining items.
func (s *Service) sendOne(ctx context.Context, sb sendable, res *SendResult) {
	req, err := s.buildSyncRequest(ctx, sb)
	if err != nil {
		s.markSendFailure(ctx, sb.e, err, res)
		return
	}
	ref, err := s.sync.SendTimesheetEntry(ctx, req)
	if err != nil {
		s.markSendFailure(ctx, sb.e, err, res)
		return
	}
	now := s.now()
	sb.e.SyncedAt = &now
	sb.e.ERPRef = &ref
	sb.e.SyncError = ""
	sb.e.UpdatedAt = now
	if err := s.db.UpdateEntry(ctx, sb.e); err != nil {
		// The external record exists but the local stamp failed; surface it
		// so Verify can reconcile later.
		s.markSendFailure(ctx, sb.e, err, res)
		return
	}
	res.Sent++
}

func (s *Service) buildSyncRequest(ctx context.Context, sb sendable) (SyncRequest, error) {
	emp, err := s.db.EmployeeByID(ctx, sb.a.EmployeeID)
	if err != nil {
		return SyncRequest{}, err
	}
	if emp.ERPEmployeeRef == nil {
		return SyncRequest{}, fmt.Errorf("employee %s has no external reference", emp.DisplayName())
	}
	if sb.a.ProjectID == nil {
		return SyncRequest{}, fmt.Errorf("assignment %s has no project", sb.a.ID)
	}
	proj, err := s.db.ProjectByID(ctx, *sb.a.ProjectID)
	if err != nil {
		return SyncRequest{}, err
	}
	return SyncRequest{
		EmployeeRef: *emp.ERPEmployeeRef,
		ProjectRef:  proj.ERPProjectRef,
		ActivityRef: sb.e.ActivityRef,
		Hours:       sb.e.Hours,
		Date:        sb.a.Date,
		Overtime:    sb.e.IsOvertime,
		Note:        sb.e.Note,
	}, nil
}

func (s *Service) markSendFailure(ctx context.Context, e *models.TimeEntry, cause error, res *SendResult) {
	e.SyncError = cause.Error()
	e.UpdatedAt = s.now()
	// Best effort; the entry stays approved either way.
	_ = s.db.UpdateEntry(ctx, e)
	res.recordFailure(categoryOf(cause))
}

func (s *Service) publishSendOutcome(res *SendResult) {
	if res.Failed == 0 {
		s.events.Publish(events.Success(fmt.Sprintf("sent %d entries", res.Sent)))
		return
	}
	s.events.Publish(events.Failure(res.TopFailure,
		fmt.Sprintf("sent %d entries, %d failed (most common: %s)", res.Sent, res.Failed, res.TopFailure)))
}

// VerifiedEntry is one row of a verification report.
type VerifiedEntry struct {
	EntryID string  `json:"entry_id"`
	ERPRef  string  `json:"erp_ref"`
	Hours   float64 `json:"hours"`
}

// VerificationReport lists which synced entries the external system still
// knows about. Unchecked holds the entries whose lookup itself failed;
// diagnostic only, local state is never altered.
type VerificationReport struct {
	Verified      []VerifiedEntry `json:"verified"`
	NotFound      []VerifiedEntry `json:"not_found"`
	Unchecked     []VerifiedEntry `json:"unchecked,omitempty"`
	VerifiedHours float64         `json:"verified_hours"`
	NotFoundHours float64         `json:"not_found_hours"`
}

// VerifyWeek queries the external system for every entry in the week that
// carries an external reference.
func (s *Service) VerifyWeek(ctx context.Context, orgID string, week calendar.Week) (*VerificationReport, error) {
	assignments, err := s.weekAssignments(ctx, orgID, week)
	if err != nil {
		return nil, err
	}
	report := &VerificationReport{}
	checked := 0
	for _, a := range assignments {
		for _, e := range a.Entries {
			if e.ERPRef == nil {
				continue
			}
			checked++
			row := VerifiedEntry{EntryID: e.ID, ERPRef: *e.ERPRef, Hours: e.Hours}
			exists, err := s.sync.VerifyTimesheetEntry(ctx, *e.ERPRef)
			if err != nil {
				// One failed lookup must not abort the rest of the report.
				report.Unchecked = append(report.Unchecked, row)
				continue
			}
			if exists {
				report.Verified = append(report.Verified, row)
				report.VerifiedHours += e.Hours
			} else {
				report.NotFound = append(report.NotFound, row)
				report.NotFoundHours += e.Hours
			}
		}
	}
	if checked == 0 {
		return nil, ErrNothingEligible
	}
	return report, nil
}

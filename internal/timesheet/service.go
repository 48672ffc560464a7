package timesheet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"staffing-grid/internal/calendar"
	"staffing-grid/internal/events"
	"staffing-grid/internal/models"
)

var (
	ErrEntryLocked      = errors.New("entry is approved or synced; contact a manager to unlock it")
	ErrNothingEligible  = errors.New("no eligible entries")
	ErrActivityRequired = errors.New("activity is required")
	ErrInvalidHours     = errors.New("hours must be a positive multiple of 0.25")
	ErrNotSynced        = errors.New("entry has no external reference")
)

const (
	defaultSendBatchSize = 3
	defaultSendBatchGap  = 500 * time.Millisecond
)

// Service drives the approval/synchronization lifecycle of time entries.
type Service struct {
	db     Persistence
	sync   ExternalSync
	events events.Publisher

	now   func() time.Time
	sleep func(time.Duration)

	// The external system rate-limits; week sends go out in small batches
	// with a gap in between instead of all at once.
	batchSize int
	batchGap  time.Duration
}

func NewService(db Persistence, sync ExternalSync, ev events.Publisher) *Service {
	if ev == nil {
		ev = events.Discard
	}
	return &Service{
		db:        db,
		sync:      sync,
		events:    ev,
		now:       time.Now,
		sleep:     time.Sleep,
		batchSize: defaultSendBatchSize,
		batchGap:  defaultSendBatchGap,
	}
}

// SetThrottle tunes the week-send batching.
func (s *Service) SetThrottle(size int, gap time.Duration) {
	if size > 0 {
		s.batchSize = size
	}
	s.batchGap = gap
}

// HoursInput is one cell dialog's worth of hours: a regular quantity plus
// the split overtime tiers, all sharing one activity and note.
type HoursInput struct {
	ActivityRef string  `json:"activity_ref"`
	Note        string  `json:"note"`
	Regular     float64 `json:"regular"`
	Overtime50  float64 `json:"overtime_50"`
	Overtime100 float64 `json:"overtime_100"`
}

// SplitEntries turns an HoursInput into the separate draft rows it is stored
// as: one regular row and one per overtime tier, each sharing the
// assignment, activity and note.
func SplitEntries(assignmentID string, in HoursInput, now time.Time) []*models.TimeEntry {
	var out []*models.TimeEntry
	add := func(hours float64, overtime bool, tier models.OvertimeTier) {
		if hours == 0 {
			return
		}
		out = append(out, &models.TimeEntry{
			ID:           uuid.NewString(),
			AssignmentID: assignmentID,
			Hours:        hours,
			ActivityRef:  in.ActivityRef,
			Note:         in.Note,
			IsOvertime:   overtime,
			OvertimeTier: tier,
			Status:       models.EntryDraft,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	add(in.Regular, false, models.TierNone)
	add(in.Overtime50, true, models.TierFifty)
	add(in.Overtime100, true, models.TierHundred)
	return out
}

func validateHoursInput(in HoursInput) error {
	if in.ActivityRef == "" {
		return ErrActivityRequired
	}
	any := false
	for _, h := range []float64{in.Regular, in.Overtime50, in.Overtime100} {
		if h == 0 {
			continue
		}
		any = true
		if !models.ValidHours(h) {
			return fmt.Errorf("%w: got %v", ErrInvalidHours, h)
		}
	}
	if !any {
		return fmt.Errorf("%w: no hours given", ErrInvalidHours)
	}
	return nil
}

// RecordHours replaces the assignment's unlocked entries with the rows split
// from in. Validation happens before any persistence call; a locked entry on
// the assignment rejects the whole edit so approved or synced hours are
// never touched.
func (s *Service) RecordHours(ctx context.Context, assignmentID string, in HoursInput) ([]*models.TimeEntry, error) {
	if err := validateHoursInput(in); err != nil {
		return nil, err
	}
	a, err := s.db.AssignmentByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	for _, e := range a.Entries {
		if e.Locked() {
			return nil, ErrEntryLocked
		}
	}

	rows := SplitEntries(assignmentID, in, s.now())
	if err := s.db.ReplaceEntries(ctx, assignmentID, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateEntry edits one entry's hours and note. Locked entries reject the
// edit; the caller surfaces "locked, contact a manager".
func (s *Service) UpdateEntry(ctx context.Context, entryID string, hours float64, note string) error {
	if !models.ValidHours(hours) {
		return fmt.Errorf("%w: got %v", ErrInvalidHours, hours)
	}
	e, err := s.db.EntryByID(ctx, entryID)
	if err != nil {
		return err
	}
	if e.Locked() {
		return ErrEntryLocked
	}
	e.Hours = hours
	e.Note = note
	e.UpdatedAt = s.now()
	return s.db.UpdateEntry(ctx, e)
}

// Submit marks the assignment's entries as submitted for approval.
func (s *Service) Submit(ctx context.Context, assignmentID string) error {
	a, err := s.db.AssignmentByID(ctx, assignmentID)
	if err != nil {
		return err
	}
	if !a.HasEntries() {
		return ErrNothingEligible
	}
	for _, e := range a.Entries {
		if e.Locked() {
			continue
		}
		e.Status = models.EntryReady
		e.UpdatedAt = s.now()
		if err := s.db.UpdateEntry(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Approve approves the given entries. A locked or zero-hour entry fails the
// single-entry path; use ApproveWeek for tolerant bulk behavior.
func (s *Service) Approve(ctx context.Context, entryIDs []string, approverID string) error {
	for _, id := range entryIDs {
		e, err := s.db.EntryByID(ctx, id)
		if err != nil {
			return err
		}
		if e.Locked() {
			return ErrEntryLocked
		}
		if e.Hours <= 0 {
			return fmt.Errorf("entry %s has no hours", id)
		}
		if err := s.approveEntry(ctx, e, approverID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) approveEntry(ctx context.Context, e *models.TimeEntry, approverID string) error {
	now := s.now()
	e.Status = models.EntryApproved
	e.ApprovedBy = approverID
	e.ApprovedAt = &now
	e.UpdatedAt = now
	return s.db.UpdateEntry(ctx, e)
}

// ApproveWeek approves every unlocked, non-empty entry in the week. Cells
// with nothing eligible are skipped silently; only a week with nothing
// eligible at all is an error.
func (s *Service) ApproveWeek(ctx context.Context, orgID string, week calendar.Week, approverID string) (int, error) {
	assignments, err := s.weekAssignments(ctx, orgID, week)
	if err != nil {
		return 0, err
	}
	approved := 0
	for _, a := range assignments {
		for _, e := range a.Entries {
			if e.Locked() || e.Hours <= 0 {
				continue
			}
			if err := s.approveEntry(ctx, e, approverID); err != nil {
				return approved, err
			}
			approved++
		}
	}
	if approved == 0 {
		return 0, ErrNothingEligible
	}
	s.events.Publish(events.Success(fmt.Sprintf("approved %d entries for week %d", approved, week.Number)))
	return approved, nil
}

// Unapprove revokes approval. It routes through the external system first
// because revocation may need to undo external state too; only on success is
// the local status reset to draft.
func (s *Service) Unapprove(ctx context.Context, entryIDs []string) error {
	if len(entryIDs) == 0 {
		return ErrNothingEligible
	}
	if err := s.sync.UnapproveTimesheetEntries(ctx, entryIDs); err != nil {
		s.events.Publish(events.Failure(categoryOf(err), err.Error()))
		return err
	}
	return s.db.ResetEntries(ctx, entryIDs)
}

// Recall deletes the entry's external record and reverts it to an editable
// draft. The entry must carry an external reference.
func (s *Service) Recall(ctx context.Context, entryID string) error {
	e, err := s.db.EntryByID(ctx, entryID)
	if err != nil {
		return err
	}
	if e.ERPRef == nil {
		return ErrNotSynced
	}
	if err := s.sync.DeleteTimesheetEntry(ctx, *e.ERPRef); err != nil {
		s.events.Publish(events.Failure(categoryOf(err), err.Error()))
		return err
	}
	e.SyncedAt = nil
	e.ERPRef = nil
	e.SyncError = ""
	e.Status = models.EntryDraft
	e.ApprovedBy = ""
	e.ApprovedAt = nil
	e.UpdatedAt = s.now()
	return s.db.UpdateEntry(ctx, e)
}

func (s *Service) weekAssignments(ctx context.Context, orgID string, week calendar.Week) ([]*models.ShiftAssignment, error) {
	return s.db.AssignmentsInRange(ctx, orgID, week.Days[0], week.Days[6])
}

package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"staffing-grid/internal/calendar"
	"staffing-grid/internal/erp"
	"staffing-grid/internal/events"
	"staffing-grid/internal/grid"
	"staffing-grid/internal/models"
	"staffing-grid/internal/timesheet"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errBody struct {
	Error string `json:"error"`
}

// writeErr maps core errors onto HTTP statuses: validation 400, not-found
// 404, locked/conflict 409, nothing-eligible 422.
func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, timesheet.ErrInvalidHours),
		errors.Is(err, timesheet.ErrActivityRequired),
		errors.Is(err, timesheet.ErrNotSynced):
		status = http.StatusBadRequest
	case errors.Is(err, sql.ErrNoRows),
		errors.Is(err, grid.ErrSourceNotFound),
		errors.Is(err, grid.ErrBubbleNotFound):
		status = http.StatusNotFound
	case errors.Is(err, timesheet.ErrEntryLocked),
		errors.Is(err, grid.ErrDuplicateProject),
		errors.Is(err, grid.ErrSourceMissing):
		status = http.StatusConflict
	case errors.Is(err, timesheet.ErrNothingEligible):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, errBody{Error: err.Error()})
}

func parseDate(v string) (time.Time, error) {
	return time.Parse("2006-01-02", v)
}

func (s *server) parseWeek(r *http.Request) (calendar.Week, error) {
	week, _ := strconv.Atoi(r.FormValue("week"))
	year, _ := strconv.Atoi(r.FormValue("year"))
	blocks := calendar.Generate(week, year, 1)
	if len(blocks) == 0 {
		return calendar.Week{}, fmt.Errorf("invalid week %d/%d", week, year)
	}
	return blocks[0], nil
}

type gridResponse struct {
	Weeks     []calendar.Week                   `json:"weeks"`
	Employees []*models.Employee                `json:"employees"`
	Cells     map[string][]*grid.CellAssignment `json:"cells"`
	Lines     []*models.FreeLine                `json:"lines"`
	Bubbles   map[string][]*models.FreeBubble   `json:"bubbles"`
	Days      map[string]models.CalendarDay     `json:"days"`
}

// loadWindow (re)builds the session grid for the requested window. The grid
// is kept on the server so drag/drop mutates it optimistically between
// rebuilds; the deferred revalidation just marks it stale.
func (s *server) loadWindow(r *http.Request, week, year, count int) error {
	ctx := r.Context()
	weeks := calendar.Generate(week, year, count)
	if len(weeks) == 0 {
		return fmt.Errorf("invalid window %d/%d", week, year)
	}
	from, to := calendar.Window(weeks)

	employees, err := s.db.ListEmployees(ctx, s.cfg.OrgID)
	if err != nil {
		return err
	}
	projects, err := s.db.ListProjects(ctx, s.cfg.OrgID)
	if err != nil {
		return err
	}
	colors, err := s.db.ListProjectColors(ctx, s.cfg.OrgID)
	if err != nil {
		return err
	}
	assignments, err := s.db.AssignmentsInRange(ctx, s.cfg.OrgID, from, to)
	if err != nil {
		return err
	}
	lines, bubbles, err := s.db.ListFreeLines(ctx, s.cfg.OrgID, from, to)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.weeks = weeks
	s.grid = grid.Build(s.cfg.OrgID, employees, weeks, assignments, projects, colors)
	s.ann = grid.NewAnnotationStore(s.cfg.OrgID, lines, bubbles)
	s.coord = grid.NewCoordinator(s, s.markStale, s.grid, s.ann)
	s.stale = false
	return nil
}

func (s *server) markStale() {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
}

func (s *server) sameWindow(week, year, count int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grid == nil || s.stale || len(s.weeks) != count {
		return false
	}
	return s.weeks[0].Number == week && s.weeks[0].Year == year
}

func (s *server) handleGrid(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	defYear, defWeek := now.ISOWeek()
	week := defWeek
	year := defYear
	count := 2
	if v := r.FormValue("week"); v != "" {
		week, _ = strconv.Atoi(v)
	}
	if v := r.FormValue("year"); v != "" {
		year, _ = strconv.Atoi(v)
	}
	if v := r.FormValue("weeks"); v != "" {
		count, _ = strconv.Atoi(v)
	}
	if count < 1 || count > 8 {
		count = 2
	}

	if !s.sameWindow(week, year, count) {
		if err := s.loadWindow(r, week, year, count); err != nil {
			writeErr(w, err)
			return
		}
	}

	s.mu.Lock()
	weeks := s.weeks
	s.mu.Unlock()
	from, to := calendar.Window(weeks)
	days, err := s.db.ListCalendarDays(r.Context(), from, to)
	if err != nil {
		writeErr(w, err)
		return
	}

	s.mu.Lock()
	resp := gridResponse{
		Weeks:     s.weeks,
		Employees: s.grid.Employees(),
		Cells:     make(map[string][]*grid.CellAssignment),
		Bubbles:   make(map[string][]*models.FreeBubble),
		Days:      days,
	}
	for _, emp := range s.grid.Employees() {
		for _, wk := range s.weeks {
			for _, day := range wk.Days {
				key := emp.ID + "|" + day.Format("2006-01-02")
				resp.Cells[key] = s.grid.Cell(emp.ID, day)
			}
		}
	}
	for _, wk := range s.weeks {
		for _, line := range s.ann.LinesForWeek(wk.Number, wk.Year) {
			resp.Lines = append(resp.Lines, line)
			resp.Bubbles[line.ID] = s.ann.BubblesForLine(line.ID)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

type dropRequest struct {
	SourceID         string `json:"source_id"`
	SourceEmployeeID string `json:"source_employee_id"`
	SourceDate       string `json:"source_date"`
	Copy             bool   `json:"copy"`
	TargetEmployeeID string `json:"target_employee_id"`
	TargetDate       string `json:"target_date"`
}

func (s *server) handleDrop(w http.ResponseWriter, r *http.Request) {
	var req dropRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, fmt.Errorf("decode request: %w", err))
		return
	}
	srcDate, err := parseDate(req.SourceDate)
	if err != nil {
		writeErr(w, fmt.Errorf("bad source_date: %w", err))
		return
	}
	tgtDate, err := parseDate(req.TargetDate)
	if err != nil {
		writeErr(w, fmt.Errorf("bad target_date: %w", err))
		return
	}

	// The lock covers resolve and apply: the coordinator snapshots and
	// mutates the shared stores, and concurrent drops must serialize.
	s.mu.Lock()
	defer s.mu.Unlock()
	g, coord := s.grid, s.coord
	if g == nil {
		writeErr(w, errors.New("no grid loaded; fetch /api/grid first"))
		return
	}

	payload, err := grid.NewDragPayload(req.SourceID, req.SourceEmployeeID, srcDate, req.Copy)
	if err != nil {
		writeErr(w, err)
		return
	}
	plan, err := g.ResolveDrop(payload, req.TargetEmployeeID, tgtDate)
	if err != nil {
		writeErr(w, err)
		return
	}

	err = coord.Apply(r.Context(), "assignment saved",
		func() {
			g.Insert(plan.NewAssignment)
			if plan.DeleteSourceID != "" {
				g.Remove(plan.DeleteSourceID)
			}
		},
		func(ctx context.Context) error {
			if err := s.db.InsertAssignment(ctx, plan.NewAssignment); err != nil {
				return err
			}
			if plan.DeleteSourceID != "" {
				return s.db.DeleteAssignment(ctx, plan.DeleteSourceID)
			}
			return nil
		})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

type createAssignmentRequest struct {
	EmployeeID string `json:"employee_id"`
	ProjectID  string `json:"project_id"`
	Date       string `json:"date"`
}

func (s *server) handleCreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req createAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, fmt.Errorf("decode request: %w", err))
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeErr(w, fmt.Errorf("bad date: %w", err))
		return
	}
	if req.EmployeeID == "" || req.ProjectID == "" {
		writeErr(w, errors.New("employee_id and project_id are required"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	g, coord := s.grid, s.coord
	if g == nil {
		writeErr(w, errors.New("no grid loaded; fetch /api/grid first"))
		return
	}

	for _, a := range g.Cell(req.EmployeeID, date) {
		if !a.Missing && a.ProjectID != nil && *a.ProjectID == req.ProjectID {
			writeErr(w, grid.ErrDuplicateProject)
			return
		}
	}

	now := time.Now()
	a := &models.ShiftAssignment{
		ID:         uuid.NewString(),
		OrgID:      s.cfg.OrgID,
		EmployeeID: req.EmployeeID,
		ProjectID:  &req.ProjectID,
		Date:       date,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err = coord.Apply(r.Context(), "assignment created",
		func() { g.Insert(a) },
		func(ctx context.Context) error { return s.db.InsertAssignment(ctx, a) })
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type recordHoursRequest struct {
	AssignmentID string  `json:"assignment_id"`
	ActivityRef  string  `json:"activity_ref"`
	Note         string  `json:"note"`
	Regular      float64 `json:"regular"`
	Overtime50   float64 `json:"overtime_50"`
	Overtime100  float64 `json:"overtime_100"`
}

func (s *server) handleRecordHours(w http.ResponseWriter, r *http.Request) {
	var req recordHoursRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, fmt.Errorf("decode request: %w", err))
		return
	}
	rows, err := s.svc.RecordHours(r.Context(), req.AssignmentID, timesheet.HoursInput{
		ActivityRef: req.ActivityRef,
		Note:        req.Note,
		Regular:     req.Regular,
		Overtime50:  req.Overtime50,
		Overtime100: req.Overtime100,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	// Patch the active window in place; the store stays the system of
	// record and a later rebuild reconciles anyway.
	s.mu.Lock()
	if s.grid != nil && !s.stale {
		if a := s.grid.Assignment(req.AssignmentID); a != nil {
			a.Entries = rows
			s.grid.Refresh(a.ID)
		} else {
			s.stale = true
		}
	} else {
		s.stale = true
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, rows)
}

type updateEntryRequest struct {
	EntryID string  `json:"entry_id"`
	Hours   float64 `json:"hours"`
	Note    string  `json:"note"`
}

func (s *server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req updateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, fmt.Errorf("decode request: %w", err))
		return
	}
	if err := s.svc.UpdateEntry(r.Context(), req.EntryID, req.Hours, req.Note); err != nil {
		writeErr(w, err)
		return
	}
	s.markStale()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssignmentID string `json:"assignment_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, fmt.Errorf("decode request: %w", err))
		return
	}
	if err := s.svc.Submit(r.Context(), req.AssignmentID); err != nil {
		writeErr(w, err)
		return
	}
	s.markStale()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntryIDs   []string `json:"entry_ids"`
		ApproverID string   `json:"approver_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, fmt.Errorf("decode request: %w", err))
		return
	}
	if err := s.svc.Approve(r.Context(), req.EntryIDs, req.ApproverID); err != nil {
		writeErr(w, err)
		return
	}
	s.markStale()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleApproveWeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Week       int    `json:"week"`
		Year       int    `json:"year"`
		ApproverID string `json:"approver_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, fmt.Errorf("decode request: %w", err))
		return
	}
	blocks := calendar.Generate(req.Week, req.Year, 1)
	if len(blocks) == 0 {
		writeErr(w, fmt.Errorf("invalid week %d/%d", req.Week, req.Year))
		return
	}
	n, err := s.svc.ApproveWeek(r.Context(), s.cfg.OrgID, blocks[0], req.ApproverID)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.markStale()
	writeJSON(w, http.StatusOK, map[string]int{"approved": n})
}

func (s *server) handleSendWeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Week int `json:"week"`
		Year int `json:"year"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, fmt.Errorf("decode request: %w", err))
		return
	}
	blocks := calendar.Generate(req.Week, req.Year, 1)
	if len(blocks) == 0 {
		writeErr(w, fmt.Errorf("invalid week %d/%d", req.Week, req.Year))
		return
	}
	res, err := s.svc.SendWeek(r.Context(), s.cfg.OrgID, blocks[0])
	if err != nil {
		writeErr(w, err)
		return
	}
	s.markStale()
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleVerifyWeek(w http.ResponseWriter, r *http.Request) {
	wk, err := s.parseWeek(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	report, err := s.svc.VerifyWeek(r.Context(), s.cfg.OrgID, wk)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *server) handleRecall(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntryID string `json:"entry_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, fmt.Errorf("decode request: %w", err))
		return
	}
	if err := s.svc.Recall(r.Context(), req.EntryID); err != nil {
		writeErr(w, err)
		return
	}
	s.markStale()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleUnapprove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntryIDs []string `json:"entry_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, fmt.Errorf("decode request: %w", err))
		return
	}
	if err := s.svc.Unapprove(r.Context(), req.EntryIDs); err != nil {
		writeErr(w, err)
		return
	}
	s.markStale()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleUpsertColor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ERPProjectRef string `json:"erp_project_ref"`
		Color         string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.ERPProjectRef == "" || req.Color == "" {
		writeErr(w, errors.New("erp_project_ref and color are required"))
		return
	}
	c := models.ProjectColor{OrgID: s.cfg.OrgID, ERPProjectRef: req.ERPProjectRef, Color: req.Color}
	if err := s.db.UpsertProjectColor(r.Context(), c); err != nil {
		writeErr(w, err)
		return
	}
	s.markStale()
	writeJSON(w, http.StatusOK, c)
}

type createBubbleRequest struct {
	Week  int    `json:"week"`
	Year  int    `json:"year"`
	Date  string `json:"date"`
	Text  string `json:"text"`
	Color string `json:"color"`
}

func (s *server) handleCreateBubble(w http.ResponseWriter, r *http.Request) {
	var req createBubbleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, fmt.Errorf("decode request: %w", err))
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeErr(w, fmt.Errorf("bad date: %w", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ann, coord := s.ann, s.coord
	if ann == nil {
		writeErr(w, errors.New("no grid loaded; fetch /api/grid first"))
		return
	}

	var line *models.FreeLine
	var created bool
	b := &models.FreeBubble{
		ID:        uuid.NewString(),
		Date:      date,
		Text:      req.Text,
		Color:     req.Color,
		CreatedAt: time.Now(),
	}
	err = coord.Apply(r.Context(), "note saved",
		func() {
			line, created = ann.EnsureLine(req.Week, req.Year)
			if created {
				ann.PutLine(line)
			}
			b.LineID = line.ID
			ann.PutBubble(b)
		},
		func(ctx context.Context) error {
			if created {
				if err := s.db.InsertFreeLine(ctx, line); err != nil {
					return err
				}
			}
			return s.db.InsertFreeBubble(ctx, b)
		})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type bubbleDropRequest struct {
	SourceID     string `json:"source_id"`
	Copy         bool   `json:"copy"`
	TargetLineID string `json:"target_line_id"`
	Week         int    `json:"week"`
	Year         int    `json:"year"`
	Date         string `json:"date"`
}

func (s *server) handleBubbleDrop(w http.ResponseWriter, r *http.Request) {
	var req bubbleDropRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, fmt.Errorf("decode request: %w", err))
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeErr(w, fmt.Errorf("bad date: %w", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ann, coord := s.ann, s.coord
	if ann == nil {
		writeErr(w, errors.New("no grid loaded; fetch /api/grid first"))
		return
	}

	plan, err := ann.ResolveBubbleDrop(
		grid.BubbleDragPayload{SourceID: req.SourceID, Copy: req.Copy},
		req.TargetLineID, req.Week, req.Year, date)
	if err != nil {
		writeErr(w, err)
		return
	}

	err = coord.Apply(r.Context(), "note saved",
		func() {
			if plan.CreatedLine != nil {
				ann.PutLine(plan.CreatedLine)
			}
			ann.PutBubble(plan.NewBubble)
			if plan.DeleteSourceID != "" {
				ann.RemoveBubble(plan.DeleteSourceID)
			}
		},
		func(ctx context.Context) error {
			if plan.CreatedLine != nil {
				if err := s.db.InsertFreeLine(ctx, plan.CreatedLine); err != nil {
					return err
				}
			}
			if err := s.db.InsertFreeBubble(ctx, plan.NewBubble); err != nil {
				return err
			}
			if plan.DeleteSourceID != "" {
				return s.db.DeleteFreeBubble(ctx, plan.DeleteSourceID)
			}
			return nil
		})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// projectDetailer is the optional lookup the ERP adapter provides for the
// project popover; the demo sync implements it too.
type projectDetailer interface {
	GetProjectDetails(ctx context.Context, projectRef string) (*erp.ProjectDetails, error)
}

func (s *server) handleProjectDetails(w http.ResponseWriter, r *http.Request) {
	ref := r.FormValue("ref")
	if ref == "" {
		writeErr(w, errors.New("ref is required"))
		return
	}
	d, ok := s.sync.(projectDetailer)
	if !ok {
		writeErr(w, errors.New("the configured external system has no project lookup"))
		return
	}
	details, err := d.GetProjectDetails(r.Context(), ref)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	type eventBody struct {
		Kind     string `json:"kind"`
		Category string `json:"category,omitempty"`
		Message  string `json:"message"`
	}
	out := []eventBody{}
	for _, e := range s.drainEvents() {
		kind := "success"
		if e.Kind == events.KindFailure {
			kind = "failure"
		}
		out = append(out, eventBody{Kind: kind, Category: e.Category, Message: e.Message})
	}
	writeJSON(w, http.StatusOK, out)
}

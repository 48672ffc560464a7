package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"staffing-grid/internal/config"
	"staffing-grid/internal/models"
	"staffing-grid/internal/timesheet"
)

// stubSync fails refs on demand so handler tests can exercise partial
// failure without a network.
type stubSync struct {
	failOn map[string]error
	nexts  int
	known  map[string]bool
}

func newStubSync() *stubSync {
	return &stubSync{failOn: make(map[string]error), known: make(map[string]bool)}
}

func (s *stubSync) SendTimesheetEntry(ctx context.Context, req timesheet.SyncRequest) (string, error) {
	if err, ok := s.failOn[req.ActivityRef]; ok {
		return "", err
	}
	s.nexts++
	ref := fmt.Sprintf("stub-ref-%d", s.nexts)
	s.known[ref] = true
	return ref, nil
}

func (s *stubSync) DeleteTimesheetEntry(ctx context.Context, ref string) error {
	delete(s.known, ref)
	return nil
}

func (s *stubSync) UnapproveTimesheetEntries(ctx context.Context, ids []string) error { return nil }

func (s *stubSync) VerifyTimesheetEntry(ctx context.Context, ref string) (bool, error) {
	return s.known[ref], nil
}

func testServer(t *testing.T) (*server, *InMemoryStore, *stubSync) {
	t.Helper()
	cfg := config.Default()
	cfg.OrgID = "org-test"
	db := NewInMemoryStore()
	ref1, ref2 := "ERP-EMP-1", "ERP-EMP-2"
	db.employees["emp-1"] = &models.Employee{ID: "emp-1", OrgID: cfg.OrgID, FirstName: "Kari", LastName: "Nordmann", DailyHours: 7.5, ERPEmployeeRef: &ref1, Status: "active"}
	db.employees["emp-2"] = &models.Employee{ID: "emp-2", OrgID: cfg.OrgID, FirstName: "Ola", LastName: "Hansen", DailyHours: 7.5, ERPEmployeeRef: &ref2, Status: "active"}
	db.projects["prj-1"] = &models.Project{ID: "prj-1", OrgID: cfg.OrgID, ERPProjectRef: "ERP-PRJ-100", Number: "100", Name: "Storgata 12"}
	db.projects["prj-2"] = &models.Project{ID: "prj-2", OrgID: cfg.OrgID, ERPProjectRef: "ERP-PRJ-200", Number: "200", Name: "Havnekaia"}
	erpSync := newStubSync()
	srv := newServer(cfg, db, erpSync)
	srv.svc.SetThrottle(3, 0)
	return srv, db, erpSync
}

func getJSON[T any](t *testing.T, h http.HandlerFunc, url string) T {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, url, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET %s = %d: %s", url, rec.Code, rec.Body.String())
	}
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return out
}

func postJSON(t *testing.T, h http.HandlerFunc, url string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, url, bytes.NewReader(b)))
	return rec
}

func loadGrid(t *testing.T, srv *server) gridResponse {
	t.Helper()
	return getJSON[gridResponse](t, srv.handleGrid, "/api/grid?week=10&year=2025&weeks=1")
}

func TestHandleGrid_SynthesizesPlaceholders(t *testing.T) {
	srv, _, _ := testServer(t)

	resp := loadGrid(t, srv)
	if len(resp.Weeks) != 1 || resp.Weeks[0].Number != 10 {
		t.Fatalf("weeks = %+v", resp.Weeks)
	}
	if len(resp.Employees) != 2 {
		t.Fatalf("employees = %d", len(resp.Employees))
	}
	// 2 employees x 7 days, every cell holds exactly the placeholder.
	if len(resp.Cells) != 14 {
		t.Fatalf("cells = %d, want 14", len(resp.Cells))
	}
	for key, cell := range resp.Cells {
		if len(cell) != 1 || !cell[0].Missing {
			t.Errorf("cell %s = %+v, want single placeholder", key, cell)
		}
	}
}

func TestLifecycle_DraftToSent(t *testing.T) {
	srv, db, _ := testServer(t)
	resp := loadGrid(t, srv)
	day := resp.Weeks[0].Days[0].Format("2006-01-02")

	// Plan the shift.
	rec := postJSON(t, srv.handleCreateAssignment, "/api/assignments", createAssignmentRequest{
		EmployeeID: "emp-1", ProjectID: "prj-1", Date: day,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
	}
	var created models.ShiftAssignment
	json.Unmarshal(rec.Body.Bytes(), &created)

	// Record a regular day plus an hour of 50% overtime.
	rec = postJSON(t, srv.handleRecordHours, "/api/entries", recordHoursRequest{
		AssignmentID: created.ID, ActivityRef: "act-1", Regular: 7.5, Overtime50: 1.0,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("record = %d: %s", rec.Code, rec.Body.String())
	}
	var rows []*models.TimeEntry
	json.Unmarshal(rec.Body.Bytes(), &rows)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want regular + overtime", len(rows))
	}

	// Approve and send the week.
	rec = postJSON(t, srv.handleApproveWeek, "/api/week/approve", map[string]any{
		"week": 10, "year": 2025, "approver_id": "mgr-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("approve = %d: %s", rec.Code, rec.Body.String())
	}
	var approval map[string]int
	json.Unmarshal(rec.Body.Bytes(), &approval)
	if approval["approved"] != 2 {
		t.Fatalf("approved = %d, want 2", approval["approved"])
	}

	rec = postJSON(t, srv.handleSendWeek, "/api/week/send", map[string]int{"week": 10, "year": 2025})
	if rec.Code != http.StatusOK {
		t.Fatalf("send = %d: %s", rec.Code, rec.Body.String())
	}
	var res timesheet.SendResult
	json.Unmarshal(rec.Body.Bytes(), &res)
	if res.Sent != 2 || res.Failed != 0 {
		t.Fatalf("send result = %+v", res)
	}

	for _, e := range db.entries {
		if e.SyncedAt == nil || e.ERPRef == nil {
			t.Errorf("entry %s not stamped synced", e.ID)
		}
	}

	// Verification sees both entries.
	report := getJSON[timesheet.VerificationReport](t, srv.handleVerifyWeek, "/api/week/verify?week=10&year=2025")
	if len(report.Verified) != 2 || len(report.NotFound) != 0 {
		t.Fatalf("report = %+v", report)
	}
}

func TestHandleSendWeek_PartialFailure(t *testing.T) {
	srv, db, erpSync := testServer(t)
	resp := loadGrid(t, srv)
	day0 := resp.Weeks[0].Days[0].Format("2006-01-02")
	day1 := resp.Weeks[0].Days[1].Format("2006-01-02")

	for i, spec := range []struct{ date, activity string }{
		{day0, "act-ok"},
		{day1, "act-bad"},
	} {
		rec := postJSON(t, srv.handleCreateAssignment, "/api/assignments", createAssignmentRequest{
			EmployeeID: "emp-1", ProjectID: "prj-1", Date: spec.date,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("create #%d = %d", i, rec.Code)
		}
		var created models.ShiftAssignment
		json.Unmarshal(rec.Body.Bytes(), &created)
		rec = postJSON(t, srv.handleRecordHours, "/api/entries", recordHoursRequest{
			AssignmentID: created.ID, ActivityRef: spec.activity, Regular: 7.5,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("record #%d = %d", i, rec.Code)
		}
	}
	erpSync.failOn["act-bad"] = &syncTestError{cat: "activity_not_on_project", msg: "activity not linked"}

	postJSON(t, srv.handleApproveWeek, "/api/week/approve", map[string]any{"week": 10, "year": 2025, "approver_id": "mgr-1"})
	rec := postJSON(t, srv.handleSendWeek, "/api/week/send", map[string]int{"week": 10, "year": 2025})
	if rec.Code != http.StatusOK {
		t.Fatalf("send = %d: %s", rec.Code, rec.Body.String())
	}
	var res timesheet.SendResult
	json.Unmarshal(rec.Body.Bytes(), &res)
	if res.Sent != 1 || res.Failed != 1 {
		t.Fatalf("result = %+v", res)
	}
	if res.TopFailure != "activity_not_on_project" {
		t.Errorf("top failure = %s", res.TopFailure)
	}

	// The failed entry stays approved with the cause recorded; the success
	// keeps its stamp.
	var stamped, pending int
	for _, e := range db.entries {
		if e.SyncedAt != nil {
			stamped++
		} else {
			pending++
			if e.Status != models.EntryApproved || e.SyncError == "" {
				t.Errorf("failed entry = %+v", e)
			}
		}
	}
	if stamped != 1 || pending != 1 {
		t.Fatalf("stamped = %d pending = %d", stamped, pending)
	}

	// Retrying sends only what is still pending.
	delete(erpSync.failOn, "act-bad")
	rec = postJSON(t, srv.handleSendWeek, "/api/week/send", map[string]int{"week": 10, "year": 2025})
	json.Unmarshal(rec.Body.Bytes(), &res)
	if res.Sent != 1 || res.Failed != 0 {
		t.Fatalf("retry result = %+v", res)
	}
}

type syncTestError struct{ cat, msg string }

func (e *syncTestError) Error() string    { return e.msg }
func (e *syncTestError) Category() string { return e.cat }

// failingStore wraps the in-memory store so one write path can be made to
// fail on demand.
type failingStore struct {
	*InMemoryStore
	failInsert bool
}

func (f *failingStore) InsertAssignment(ctx context.Context, a *models.ShiftAssignment) error {
	if f.failInsert {
		return fmt.Errorf("storage down")
	}
	return f.InMemoryStore.InsertAssignment(ctx, a)
}

func TestHandleDrop_RollsBackWhenPersistFails(t *testing.T) {
	srv, mem, _ := testServer(t)
	db := &failingStore{InMemoryStore: mem}
	srv.db = db
	srv.svc = timesheet.NewService(db, newStubSync(), srv)
	resp := loadGrid(t, srv)
	day0 := resp.Weeks[0].Days[0]
	day1 := resp.Weeks[0].Days[1]

	rec := postJSON(t, srv.handleCreateAssignment, "/api/assignments", createAssignmentRequest{
		EmployeeID: "emp-1", ProjectID: "prj-1", Date: day0.Format("2006-01-02"),
	})
	var created models.ShiftAssignment
	json.Unmarshal(rec.Body.Bytes(), &created)

	db.failInsert = true
	rec = postJSON(t, srv.handleDrop, "/api/assignments/drop", dropRequest{
		SourceID:         created.ID,
		SourceEmployeeID: "emp-1",
		SourceDate:       day0.Format("2006-01-02"),
		TargetEmployeeID: "emp-2",
		TargetDate:       day1.Format("2006-01-02"),
		Copy:             true,
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("drop = %d, want persist failure surfaced", rec.Code)
	}

	// The optimistic insert was rolled back: the target cell is a placeholder
	// again.
	srv.mu.Lock()
	cell := srv.grid.Cell("emp-2", day1)
	srv.mu.Unlock()
	if len(cell) != 1 || !cell[0].Missing {
		t.Fatalf("target cell after rollback = %+v", cell)
	}
}

func TestHandleDrop_DuplicateProjectConflict(t *testing.T) {
	srv, _, _ := testServer(t)
	resp := loadGrid(t, srv)
	day0 := resp.Weeks[0].Days[0].Format("2006-01-02")
	day1 := resp.Weeks[0].Days[1].Format("2006-01-02")

	var first, second models.ShiftAssignment
	rec := postJSON(t, srv.handleCreateAssignment, "/api/assignments", createAssignmentRequest{EmployeeID: "emp-1", ProjectID: "prj-1", Date: day0})
	json.Unmarshal(rec.Body.Bytes(), &first)
	rec = postJSON(t, srv.handleCreateAssignment, "/api/assignments", createAssignmentRequest{EmployeeID: "emp-2", ProjectID: "prj-1", Date: day1})
	json.Unmarshal(rec.Body.Bytes(), &second)

	rec = postJSON(t, srv.handleDrop, "/api/assignments/drop", dropRequest{
		SourceID:         first.ID,
		SourceEmployeeID: "emp-1",
		SourceDate:       day0,
		TargetEmployeeID: "emp-2",
		TargetDate:       day1,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("drop = %d, want 409", rec.Code)
	}
}

func TestHandleRecordHours_LockedEntryConflict(t *testing.T) {
	srv, db, _ := testServer(t)
	resp := loadGrid(t, srv)
	day := resp.Weeks[0].Days[0].Format("2006-01-02")

	rec := postJSON(t, srv.handleCreateAssignment, "/api/assignments", createAssignmentRequest{EmployeeID: "emp-1", ProjectID: "prj-1", Date: day})
	var created models.ShiftAssignment
	json.Unmarshal(rec.Body.Bytes(), &created)
	postJSON(t, srv.handleRecordHours, "/api/entries", recordHoursRequest{AssignmentID: created.ID, ActivityRef: "act-1", Regular: 7.5})

	now := time.Now()
	for _, e := range db.entries {
		e.Status = models.EntryApproved
		e.ApprovedAt = &now
	}

	rec = postJSON(t, srv.handleRecordHours, "/api/entries", recordHoursRequest{AssignmentID: created.ID, ActivityRef: "act-1", Regular: 4})
	if rec.Code != http.StatusConflict {
		t.Fatalf("record on locked = %d, want 409", rec.Code)
	}
}

func TestHandleBubbles_CreateAndMove(t *testing.T) {
	srv, _, _ := testServer(t)
	resp := loadGrid(t, srv)
	day0 := resp.Weeks[0].Days[0].Format("2006-01-02")
	day2 := resp.Weeks[0].Days[2].Format("2006-01-02")

	rec := postJSON(t, srv.handleCreateBubble, "/api/bubbles", createBubbleRequest{
		Week: 10, Year: 2025, Date: day0, Text: "Syk", Color: "#fde047",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create bubble = %d: %s", rec.Code, rec.Body.String())
	}
	var bubble models.FreeBubble
	json.Unmarshal(rec.Body.Bytes(), &bubble)
	if bubble.LineID == "" {
		t.Fatal("bubble not attached to an auto-created line")
	}

	rec = postJSON(t, srv.handleBubbleDrop, "/api/bubbles/drop", bubbleDropRequest{
		SourceID: bubble.ID, Copy: true, TargetLineID: bubble.LineID,
		Week: 10, Year: 2025, Date: day2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("bubble drop = %d: %s", rec.Code, rec.Body.String())
	}

	srv.mu.Lock()
	bubbles := srv.ann.BubblesForLine(bubble.LineID)
	srv.mu.Unlock()
	if len(bubbles) != 2 {
		t.Fatalf("bubbles = %d, want original plus copy", len(bubbles))
	}
	for _, b := range bubbles {
		if b.Text != "Syk" {
			t.Errorf("bubble text = %q", b.Text)
		}
	}
}

func TestConcurrentMutations_Serialized(t *testing.T) {
	srv, _, _ := testServer(t)
	resp := loadGrid(t, srv)
	days := resp.Weeks[0].Days

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := postJSON(t, srv.handleCreateBubble, "/api/bubbles", createBubbleRequest{
				Week: 10, Year: 2025,
				Date: days[i%len(days)].Format("2006-01-02"),
				Text: fmt.Sprintf("note-%d", i),
			})
			if rec.Code != http.StatusOK {
				t.Errorf("create bubble #%d = %d: %s", i, rec.Code, rec.Body.String())
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		rec := postJSON(t, srv.handleCreateAssignment, "/api/assignments", createAssignmentRequest{
			EmployeeID: "emp-1", ProjectID: "prj-1", Date: days[0].Format("2006-01-02"),
		})
		if rec.Code != http.StatusOK {
			t.Errorf("create assignment = %d: %s", rec.Code, rec.Body.String())
		}
	}()
	wg.Wait()

	// Serialized writers share one auto-created line and none of the
	// bubbles is lost; the assignment landed in its cell.
	srv.mu.Lock()
	defer srv.mu.Unlock()
	lines := srv.ann.LinesForWeek(10, 2025)
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want the single auto-created line", len(lines))
	}
	if got := srv.ann.BubblesForLine(lines[0].ID); len(got) != 4 {
		t.Errorf("bubbles = %d, want 4", len(got))
	}
	cell := srv.grid.Cell("emp-1", days[0])
	if len(cell) != 1 || cell[0].Missing {
		t.Errorf("assignment cell = %+v", cell)
	}
}

func TestHandleEvents_DrainsBuffer(t *testing.T) {
	srv, _, _ := testServer(t)
	loadGrid(t, srv)
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
	postJSON(t, srv.handleCreateAssignment, "/api/assignments", createAssignmentRequest{EmployeeID: "emp-1", ProjectID: "prj-1", Date: day})

	first := getJSON[[]map[string]string](t, srv.handleEvents, "/api/events")
	if len(first) == 0 {
		t.Fatal("expected at least the save outcome event")
	}
	second := getJSON[[]map[string]string](t, srv.handleEvents, "/api/events")
	if len(second) != 0 {
		t.Fatalf("second drain = %d events, want 0", len(second))
	}
}

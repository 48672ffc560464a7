package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestValidHours(t *testing.T) {
	valid := []float64{0.25, 0.5, 7.5, 1.0, 12.75, 24}
	for _, h := range valid {
		if !ValidHours(h) {
			t.Errorf("ValidHours(%v) = false", h)
		}
	}
	invalid := []float64{0, -1, -0.25, 7.3, 0.1, 1.33}
	for _, h := range invalid {
		if ValidHours(h) {
			t.Errorf("ValidHours(%v) = true", h)
		}
	}
}

func TestTimeEntryLocked(t *testing.T) {
	now := time.Now()
	if (&TimeEntry{Status: EntryDraft}).Locked() {
		t.Error("draft entry should not be locked")
	}
	if (&TimeEntry{Status: EntryReady}).Locked() {
		t.Error("submitted entry should still be editable")
	}
	if !(&TimeEntry{Status: EntryApproved}).Locked() {
		t.Error("approved entry must be locked")
	}
	if !(&TimeEntry{Status: EntryDraft, SyncedAt: &now}).Locked() {
		t.Error("synced entry must be locked regardless of status")
	}
}

func TestMissingAssignmentID_Deterministic(t *testing.T) {
	date := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	a := NewMissingAssignment("org-1", "emp-1", date)
	b := NewMissingAssignment("org-1", "emp-1", date)
	if a.ID != b.ID {
		t.Errorf("ids differ: %s vs %s", a.ID, b.ID)
	}
	if a.ID != "missing-emp-1-2025-03-03" {
		t.Errorf("id = %s", a.ID)
	}
	if !a.Missing {
		t.Error("placeholder not marked missing")
	}
}

func TestFallbackColor_StableAndInPalette(t *testing.T) {
	first := FallbackColor("ERP-PRJ-100")
	for i := 0; i < 10; i++ {
		if FallbackColor("ERP-PRJ-100") != first {
			t.Fatal("fallback color not stable across calls")
		}
	}
	found := false
	for _, c := range fallbackPalette {
		if c == first {
			found = true
		}
	}
	if !found {
		t.Errorf("color %s not from the palette", first)
	}
}

func TestAssignmentHourTotals(t *testing.T) {
	a := &ShiftAssignment{Entries: []*TimeEntry{
		{Hours: 7.5},
		{Hours: 1.0, IsOvertime: true, OvertimeTier: TierFifty},
		{Hours: 0.5, IsOvertime: true, OvertimeTier: TierHundred},
	}}
	if a.TotalHours() != 9.0 {
		t.Errorf("total = %v", a.TotalHours())
	}
	if a.OvertimeHours() != 1.5 {
		t.Errorf("overtime = %v", a.OvertimeHours())
	}
}

func TestStatusJSONNames(t *testing.T) {
	b, _ := StatusSent.MarshalJSON()
	if string(b) != `"sent"` {
		t.Errorf("sent marshals as %s", b)
	}
	if ParseEntryStatus("approved") != EntryApproved {
		t.Error("parse approved")
	}
	if ParseEntryStatus("garbage") != EntryDraft {
		t.Error("unknown status should fall back to draft")
	}
}

func TestStatusJSONRoundTrip(t *testing.T) {
	for _, s := range []Status{StatusMissing, StatusDraft, StatusReady, StatusApproved, StatusSent} {
		b, err := json.Marshal(s)
		if err != nil {
			t.Fatal(err)
		}
		var got Status
		if err := json.Unmarshal(b, &got); err != nil {
			t.Fatalf("unmarshal %s: %v", b, err)
		}
		if got != s {
			t.Errorf("round trip %v -> %s -> %v", s, b, got)
		}
	}
}

func TestEntryJSONRoundTrip(t *testing.T) {
	in := TimeEntry{
		ID:           "e1",
		AssignmentID: "a1",
		Hours:        1.5,
		ActivityRef:  "ACT-1",
		IsOvertime:   true,
		OvertimeTier: TierHundred,
		Status:       EntryApproved,
	}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out TimeEntry
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal %s: %v", b, err)
	}
	if out.Status != EntryApproved || out.OvertimeTier != TierHundred {
		t.Errorf("round trip lost enums: status=%v tier=%v", out.Status, out.OvertimeTier)
	}
}

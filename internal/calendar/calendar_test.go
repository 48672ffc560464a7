package calendar

import (
	"testing"
	"time"

	"staffing-grid/internal/models"
)

func TestMondayOfWeek_Anchoring(t *testing.T) {
	cases := []struct {
		week, year int
		want       string
	}{
		{1, 2025, "2024-12-30"}, // week 1 of 2025 starts in December 2024
		{2, 2025, "2025-01-06"},
		{1, 2026, "2025-12-29"},
		{53, 2020, "2020-12-28"}, // 2020 is a 53-week year
		{52, 2024, "2024-12-23"},
	}
	for _, c := range cases {
		got, err := MondayOfWeek(c.week, c.year)
		if err != nil {
			t.Fatalf("MondayOfWeek(%d, %d): %v", c.week, c.year, err)
		}
		if got.Format("2006-01-02") != c.want {
			t.Errorf("MondayOfWeek(%d, %d) = %s, want %s", c.week, c.year, got.Format("2006-01-02"), c.want)
		}
		if got.Weekday() != time.Monday {
			t.Errorf("MondayOfWeek(%d, %d) fell on %s", c.week, c.year, got.Weekday())
		}
	}
}

func TestMondayOfWeek_NoWeek53(t *testing.T) {
	// 2021 has 52 ISO weeks; asking for 53 must fail, not silently roll over.
	if _, err := MondayOfWeek(53, 2021); err == nil {
		t.Fatal("expected error for week 53 of 2021")
	}
}

func TestLastISOWeek(t *testing.T) {
	cases := map[int]int{2020: 53, 2021: 52, 2024: 52, 2025: 52, 2026: 53}
	for year, want := range cases {
		if got := LastISOWeek(year); got != want {
			t.Errorf("LastISOWeek(%d) = %d, want %d", year, got, want)
		}
	}
}

func TestGenerate_SevenStrictlyIncreasingDays(t *testing.T) {
	weeks := Generate(10, 2025, 4)
	if len(weeks) != 4 {
		t.Fatalf("expected 4 weeks, got %d", len(weeks))
	}
	for _, w := range weeks {
		for i := 1; i < 7; i++ {
			if !w.Days[i].After(w.Days[i-1]) {
				t.Errorf("week %d: day %d not after day %d", w.Number, i, i-1)
			}
			if w.Days[i].Sub(w.Days[i-1]) != 24*time.Hour {
				t.Errorf("week %d: day spacing != 24h", w.Number)
			}
		}
	}
}

func TestGenerate_ConsecutiveMondays(t *testing.T) {
	weeks := Generate(50, 2024, 6)
	for i := 1; i < len(weeks); i++ {
		prev, cur := weeks[i-1].Days[0], weeks[i].Days[0]
		if cur.Sub(prev) != 7*24*time.Hour {
			t.Errorf("week %d monday not prev+7d: %s -> %s", weeks[i].Number, prev, cur)
		}
	}
}

func TestGenerate_YearRollover(t *testing.T) {
	// 2024 ends at week 52; the next block must be week 1 of 2025.
	weeks := Generate(52, 2024, 2)
	if len(weeks) != 2 {
		t.Fatalf("expected 2 weeks, got %d", len(weeks))
	}
	if weeks[1].Number != 1 || weeks[1].Year != 2025 {
		t.Errorf("expected week 1/2025 after 52/2024, got %d/%d", weeks[1].Number, weeks[1].Year)
	}
}

func TestGenerate_53WeekYearRollover(t *testing.T) {
	// 2020 has 53 weeks; week 53 must be emitted before rolling into 2021.
	weeks := Generate(52, 2020, 3)
	if len(weeks) != 3 {
		t.Fatalf("expected 3 weeks, got %d", len(weeks))
	}
	if weeks[1].Number != 53 || weeks[1].Year != 2020 {
		t.Errorf("expected week 53/2020, got %d/%d", weeks[1].Number, weeks[1].Year)
	}
	if weeks[2].Number != 1 || weeks[2].Year != 2021 {
		t.Errorf("expected week 1/2021, got %d/%d", weeks[2].Number, weeks[2].Year)
	}
}

func TestGenerate_ClampsInput(t *testing.T) {
	weeks := Generate(99, 2020, 1)
	if len(weeks) != 1 || weeks[0].Number != 53 {
		t.Fatalf("expected week clamped to 53, got %+v", weeks)
	}

	weeks = Generate(0, 2025, 1)
	if len(weeks) != 1 || weeks[0].Number != 1 {
		t.Fatalf("expected week clamped to 1, got %+v", weeks)
	}
}

func TestGenerate_PartialOnFailure(t *testing.T) {
	// 2025 has 52 weeks, so starting at the clamped week 53 fails immediately
	// and must return an empty (not nil-panic) result.
	weeks := Generate(53, 2025, 4)
	if len(weeks) != 0 {
		t.Fatalf("expected no weeks for 53/2025, got %d", len(weeks))
	}
}

func TestWindow(t *testing.T) {
	weeks := Generate(2, 2025, 2)
	from, to := Window(weeks)
	if from.Format("2006-01-02") != "2025-01-06" {
		t.Errorf("window start = %s", from.Format("2006-01-02"))
	}
	if to.Format("2006-01-02") != "2025-01-19" {
		t.Errorf("window end = %s", to.Format("2006-01-02"))
	}
}

func TestExpectedHours(t *testing.T) {
	emp := &models.Employee{DailyHours: 7.5}
	holidays := map[string]models.CalendarDay{
		"2025-01-01": {IsHoliday: true, Name: "New Year"},
	}

	workday := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC) // Monday
	if got := ExpectedHours(emp, workday, holidays); got != 7.5 {
		t.Errorf("workday expected 7.5, got %v", got)
	}

	saturday := time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC)
	if got := ExpectedHours(emp, saturday, holidays); got != 0 {
		t.Errorf("weekend expected 0, got %v", got)
	}

	holiday := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := ExpectedHours(emp, holiday, holidays); got != 0 {
		t.Errorf("holiday expected 0, got %v", got)
	}
}

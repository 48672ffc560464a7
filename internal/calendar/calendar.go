package calendar

import (
	"fmt"
	"time"

	"staffing-grid/internal/models"
)

const (
	MinWeek = 1
	MaxWeek = 53
	minYear = 1900
	maxYear = 2200
)

// Week is one materialized calendar week: the ISO week number, its year and
// the seven dates Monday through Sunday.
type Week struct {
	Number int          `json:"number"`
	Year   int          `json:"year"`
	Days   [7]time.Time `json:"days"`
}

// MondayOfWeek returns the Monday of the given ISO week. Week 1 is anchored
// via January 4th, which by definition always falls in week 1.
func MondayOfWeek(week, year int) (time.Time, error) {
	if week < MinWeek || week > MaxWeek {
		return time.Time{}, fmt.Errorf("week %d out of range", week)
	}
	if year < minYear || year > maxYear {
		return time.Time{}, fmt.Errorf("year %d out of range", year)
	}
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	wd := int(jan4.Weekday())
	if wd == 0 {
		wd = 7 // Sunday
	}
	week1Monday := jan4.AddDate(0, 0, -(wd - 1))
	monday := week1Monday.AddDate(0, 0, (week-1)*7)
	// Asking for week 53 in a 52-week year lands in the next year.
	if _, w := monday.ISOWeek(); w != week {
		return time.Time{}, fmt.Errorf("year %d has no week %d", year, week)
	}
	return monday, nil
}

// LastISOWeek returns the number of ISO weeks in the year, computed from
// December 31 (or December 24 when the 31st already belongs to week 1 of the
// following year).
func LastISOWeek(year int) int {
	dec31 := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	if _, w := dec31.ISOWeek(); w != 1 {
		return weekOf(dec31)
	}
	return weekOf(dec31.AddDate(0, 0, -7))
}

func weekOf(t time.Time) int {
	_, w := t.ISOWeek()
	return w
}

// Generate materializes count consecutive weeks starting at (week, year).
// Inputs are clamped to valid ranges. Advancing past the year's actual last
// ISO week rolls into week 1 of the following year. A date-construction
// failure stops generation but the weeks already produced are returned.
func Generate(week, year, count int) []Week {
	if week < MinWeek {
		week = MinWeek
	}
	if week > MaxWeek {
		week = MaxWeek
	}
	if year < minYear {
		year = minYear
	}
	if year > maxYear {
		year = maxYear
	}

	weeks := make([]Week, 0, count)
	w, y := week, year
	for i := 0; i < count; i++ {
		monday, err := MondayOfWeek(w, y)
		if err != nil {
			break
		}
		blk := Week{Number: w, Year: y}
		for d := 0; d < 7; d++ {
			blk.Days[d] = monday.AddDate(0, 0, d)
		}
		weeks = append(weeks, blk)

		w++
		if w > 52 && w > LastISOWeek(y) {
			w = 1
			y++
		}
	}
	return weeks
}

// Window returns the inclusive date range covered by the given weeks, for
// scoping persistence reads.
func Window(weeks []Week) (from, to time.Time) {
	if len(weeks) == 0 {
		return
	}
	return weeks[0].Days[0], weeks[len(weeks)-1].Days[6]
}

// IsWeekend reports whether the date is a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// ExpectedHours returns the hours the employee is expected to work on the
// given date: zero on weekends and holidays, the employee's daily hours
// otherwise. holidays is keyed by date in 2006-01-02 form.
func ExpectedHours(emp *models.Employee, date time.Time, holidays map[string]models.CalendarDay) float64 {
	if IsWeekend(date) {
		return 0
	}
	if day, ok := holidays[date.Format("2006-01-02")]; ok && day.IsHoliday {
		return 0
	}
	return emp.DailyHours
}

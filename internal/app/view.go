package app

import (
	"github.com/klabast/wb-services/team-kalender/internal/holidays"
	"github.com/klabast/wb-services/team-kalender/internal/planner"
)

// MonthNames are the German month names, indexed by 0-based month.
var MonthNames = [12]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// DayView is one day column with its holiday annotations.
type DayView struct {
	planner.Column
	Weekend       bool   `json:"weekend"`
	Holiday       string `json:"holiday,omitempty"`
	SchoolHoliday string `json:"schoolHoliday,omitempty"`
	Excluded      bool   `json:"excluded"`
}

// MemberRow is one member's line of a month view.
type MemberRow struct {
	Index        int                    `json:"index"`
	Name         string                 `json:"name"`
	VacationDays *float64               `json:"vacationDays"`
	Counts       planner.Counts         `json:"counts"`
	Days         map[int]planner.Status `json:"days"`
	Approved     map[int]bool           `json:"approved"`
}

// MonthView is everything needed to draw one month.
type MonthView struct {
	Year      int                    `json:"year"`
	Month     int                    `json:"month"`
	MonthName string                 `json:"monthName"`
	Columns   []DayView              `json:"columns"`
	Layout    *planner.TableLayout   `json:"layout,omitempty"`
	Segments  [][]DayView            `json:"segments,omitempty"`
	Members   []MemberRow            `json:"members"`
	Statuses  []planner.StatusOption `json:"statuses"`
}

// CountsRow is one member's yearly totals.
type CountsRow struct {
	Index        int            `json:"index"`
	Name         string         `json:"name"`
	VacationDays *float64       `json:"vacationDays"`
	Counts       planner.Counts `json:"counts"`
}

// dayViews annotates the day columns of a month.
func dayViews(year, month int, cal *holidays.Calendar, school *holidays.Loader) []DayView {
	cols := planner.DayColumns(year, month)
	views := make([]DayView, len(cols))
	for i, c := range cols {
		v := DayView{
			Column:   c,
			Weekend:  holidays.IsWeekend(c.Year, c.Month, c.Day),
			Excluded: cal.Excluded(c.Year, c.Month, c.Day),
		}
		v.Holiday, _ = cal.Name(c.Key)
		if school != nil {
			v.SchoolHoliday, _ = school.Label(c.Key)
		}
		views[i] = v
	}
	return views
}

// countsRows derives the yearly totals of every member. Caller must hold
// the server lock.
func countsRows(store *planner.Store, year int) []CountsRow {
	counts := store.YearCounts(year, holidays.NewCalendar(year))
	rows := make([]CountsRow, len(counts))
	for i, m := range store.Members() {
		rows[i] = CountsRow{
			Index:        i,
			Name:         m.Name,
			VacationDays: allowance(store, i, year),
			Counts:       counts[i],
		}
	}
	return rows
}

// buildMonthView renders the month. width > 0 adds layout and segments.
// Caller must hold the server lock.
func buildMonthView(store *planner.Store, year, month, width int, school *holidays.Loader) MonthView {
	cal := holidays.NewCalendar(year)
	view := MonthView{
		Year:      year,
		Month:     month,
		MonthName: MonthNames[month],
		Columns:   dayViews(year, month, cal, school),
		Statuses:  planner.StatusOptions,
	}
	if width > 0 {
		layout := planner.Layout(width)
		view.Layout = &layout
		view.Segments = planner.SplitColumns(view.Columns, layout.MaxColumns)
	}

	var mr *planner.MonthRecord
	if yr, ok := store.Year(year); ok {
		mr = yr.Months[month]
	}
	for _, row := range countsRows(store, year) {
		member := MemberRow{
			Index:        row.Index,
			Name:         row.Name,
			VacationDays: row.VacationDays,
			Counts:       row.Counts,
			Days:         map[int]planner.Status{},
			Approved:     map[int]bool{},
		}
		if mr != nil {
			for day, status := range mr.Days[row.Index] {
				member.Days[day] = status
			}
			for day, ok := range mr.Approved[row.Index] {
				member.Approved[day] = ok
			}
		}
		view.Members = append(view.Members, member)
	}
	if view.Members == nil {
		view.Members = []MemberRow{}
	}
	return view
}

func allowance(store *planner.Store, member, year int) *float64 {
	if v, ok := store.VacationDays(member, year); ok {
		return &v
	}
	return nil
}

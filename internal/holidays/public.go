// Package holidays provides the public and school holiday lookups used to
// exclude days from vacation accounting and to annotate the grid.
package holidays

import (
	"slices"
	"time"
)

// Holiday is one public holiday.
type Holiday struct {
	Date time.Time `json:"date"`
	Name string    `json:"name"`
}

// Key returns the YYYY-MM-DD lookup key of the holiday.
func (h Holiday) Key() string {
	return h.Date.Format(dateLayout)
}

const dateLayout = "2006-01-02"

// PublicHolidays returns all public holidays in NRW for the given year,
// ordered by date.
func PublicHolidays(year int) []Holiday {
	holidays := []Holiday{
		// Fixed holidays
		{date(year, 1, 1), "Neujahr"},
		{date(year, 5, 1), "Tag der Arbeit"},
		{date(year, 10, 3), "Tag der Deutschen Einheit"},
		{date(year, 11, 1), "Allerheiligen"},
		{date(year, 12, 25), "1. Weihnachtstag"},
		{date(year, 12, 26), "2. Weihnachtstag"},
	}

	// Easter-based holidays (movable)
	easter := calculateEaster(year)
	for _, m := range []struct {
		offset int
		name   string
	}{
		{-2, "Karfreitag"},
		{0, "Ostersonntag"},
		{1, "Ostermontag"},
		{39, "Christi Himmelfahrt"},
		{49, "Pfingstsonntag"},
		{50, "Pfingstmontag"},
		{60, "Fronleichnam"},
	} {
		holidays = append(holidays, Holiday{easter.AddDate(0, 0, m.offset), m.name})
	}

	slices.SortFunc(holidays, func(a, b Holiday) int { return a.Date.Compare(b.Date) })
	return holidays
}

// calculateEaster calculates Easter Sunday using the Meeus/Jones/Butcher algorithm
func calculateEaster(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1

	return date(year, month, day)
}

// date builds a calendar date at noon UTC so YYYY-MM-DD formatting never
// shifts across a day boundary. month is 1-based.
func date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC)
}

// DateKey formats a date as YYYY-MM-DD. month is 0-based.
func DateKey(year, month, day int) string {
	return date(year, month+1, day).Format(dateLayout)
}

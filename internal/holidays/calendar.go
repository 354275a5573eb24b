package holidays

import "time"

// Calendar is the public holiday lookup for a focus year. It spans the
// previous and next year as well so lead and trail columns of January and
// December resolve.
type Calendar struct {
	year  int
	names map[string]string
}

// NewCalendar builds the lookup for year-1 through year+1.
func NewCalendar(year int) *Calendar {
	c := &Calendar{year: year, names: make(map[string]string, 39)}
	for y := year - 1; y <= year+1; y++ {
		for _, h := range PublicHolidays(y) {
			c.names[h.Key()] = h.Name
		}
	}
	return c
}

// Year returns the focus year the calendar was built for.
func (c *Calendar) Year() int { return c.year }

// Name returns the holiday name for a YYYY-MM-DD key.
func (c *Calendar) Name(key string) (string, bool) {
	name, ok := c.names[key]
	return name, ok
}

// IsHoliday reports whether the day is a public holiday. month is 0-based.
func (c *Calendar) IsHoliday(year, month, day int) bool {
	_, ok := c.names[DateKey(year, month, day)]
	return ok
}

// Excluded reports whether the day is a weekend or a public holiday.
// month is 0-based.
func (c *Calendar) Excluded(year, month, day int) bool {
	if IsWeekend(year, month, day) {
		return true
	}
	return c.IsHoliday(year, month, day)
}

// Names returns a copy of the date key to holiday name map.
func (c *Calendar) Names() map[string]string {
	out := make(map[string]string, len(c.names))
	for k, v := range c.names {
		out[k] = v
	}
	return out
}

// IsWeekend reports whether the day is a Saturday or Sunday. month is 0-based.
func IsWeekend(year, month, day int) bool {
	switch date(year, month+1, day).Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	return false
}

package planner

// DayExcluder reports whether a day is a weekend or public holiday.
// month is 0-based.
type DayExcluder interface {
	Excluded(year, month, day int) bool
}

// ExcluderFunc adapts a function to DayExcluder.
type ExcluderFunc func(year, month, day int) bool

// Excluded implements DayExcluder.
func (f ExcluderFunc) Excluded(year, month, day int) bool { return f(year, month, day) }

// Counts are the yearly per-member totals shown next to the grid.
type Counts struct {
	Vacation        float64 `json:"urlaub"`
	SpecialVacation float64 `json:"sonderurlaub"`
	Sick            float64 `json:"krank"`
	Training        float64 `json:"schulung"`
	Deployment      float64 `json:"einsatz"`
	CompDay         float64 `json:"gleittag"`
}

// YearCounts derives the counters of every member for one year. Vacation
// class statuses on excluded days do not count; every other status counts
// on any day. A nil record yields zero counters.
func YearCounts(members int, year int, yr *YearRecord, excl DayExcluder) []Counts {
	counts := make([]Counts, members)
	if yr == nil {
		return counts
	}
	for month, mr := range yr.Months {
		if mr == nil {
			continue
		}
		for member, days := range mr.Days {
			if member < 0 || member >= members {
				continue
			}
			c := &counts[member]
			for day, status := range days {
				excluded := excl != nil && excl.Excluded(year, month, day)
				switch status {
				case StatusVacation:
					if !excluded {
						c.Vacation++
					}
				case StatusSpecialVacation:
					if !excluded {
						c.SpecialVacation++
					}
				case StatusVacationMorning, StatusVacationAfter:
					if !excluded {
						c.Vacation += 0.5
					}
				case StatusSick:
					c.Sick++
				case StatusTraining:
					c.Training++
				case StatusDeployment:
					c.Deployment++
				case StatusCompDay:
					c.CompDay++
				}
			}
		}
	}
	return counts
}

// YearCounts is the Store convenience wrapper around YearCounts. It does
// not create the year.
func (s *Store) YearCounts(year int, excl DayExcluder) []Counts {
	yr, _ := s.Year(year)
	return YearCounts(len(s.data.Members), year, yr, excl)
}

package planner

import "fmt"

// ImportMode selects how an imported dataset is combined with the live one.
type ImportMode string

const (
	ImportModeUnset ImportMode = ""
	ImportOverwrite ImportMode = "overwrite"
	ImportMerge     ImportMode = "merge"
)

// ParseImportMode accepts "", "overwrite" and "merge".
func ParseImportMode(s string) (ImportMode, error) {
	switch m := ImportMode(s); m {
	case ImportModeUnset, ImportOverwrite, ImportMerge:
		return m, nil
	}
	return ImportModeUnset, fmt.Errorf("unknown import mode %q", s)
}

// ResolveImportMode returns the mode an import into s will use. An empty
// roster is always overwritten; otherwise the caller must have chosen.
func ResolveImportMode(s *Store, requested ImportMode) (ImportMode, error) {
	if s.Empty() {
		return ImportOverwrite, nil
	}
	if requested == ImportModeUnset {
		return ImportModeUnset, ErrImportModeRequired
	}
	return requested, nil
}

// Apply combines an already normalized dataset into s using mode.
func (mode ImportMode) Apply(s *Store, imported *Data) {
	if mode == ImportOverwrite {
		s.Replace(cloneData(imported))
		return
	}
	Merge(s, imported)
}

// Merge appends every imported member as a new member, rewrites all
// imported member-indexed entries through the resulting index map, merges
// them key by key into the live years and months and re-sorts the roster.
func Merge(s *Store, imported *Data) {
	d := s.data
	indexMap := make(map[int]int, len(imported.Members))
	for i, m := range imported.Members {
		d.Members = append(d.Members, Member{Name: m.Name})
		indexMap[i] = len(d.Members) - 1
	}
	target := func(idx int) (int, bool) {
		t, ok := indexMap[idx]
		return t, ok
	}

	for year, iy := range imported.Years {
		if iy == nil {
			continue
		}
		ty, ok := d.Years[year]
		if !ok {
			ty = newYearRecord()
			d.Years[year] = ty
		}
		for idx, v := range iy.VacationDays {
			if t, ok := target(idx); ok {
				ty.VacationDays[t] = v
			}
		}
		for month, im := range iy.Months {
			if im == nil {
				continue
			}
			tm, ok := ty.Months[month]
			if !ok {
				tm = newMonthRecord()
				ty.Months[month] = tm
			}
			for idx, days := range im.Days {
				t, ok := target(idx)
				if !ok || len(days) == 0 {
					continue
				}
				if tm.Days[t] == nil {
					tm.Days[t] = map[int]Status{}
				}
				for day, status := range days {
					tm.Days[t][day] = status
				}
			}
			for idx, days := range im.Approved {
				t, ok := target(idx)
				if !ok || len(days) == 0 {
					continue
				}
				if tm.Approved[t] == nil {
					tm.Approved[t] = map[int]bool{}
				}
				for day, v := range days {
					tm.Approved[t][day] = v
				}
			}
			pruneMonth(tm)
		}
	}
	s.SortMembers()
}

// cloneData deep-copies d.
func cloneData(d *Data) *Data {
	out := &Data{
		Members: make([]Member, len(d.Members)),
		Years:   make(map[int]*YearRecord, len(d.Years)),
	}
	copy(out.Members, d.Members)
	for year, yr := range d.Years {
		if yr == nil {
			continue
		}
		ny := &YearRecord{
			Months:       make(map[int]*MonthRecord, len(yr.Months)),
			VacationDays: make(map[int]float64, len(yr.VacationDays)),
		}
		for k, v := range yr.VacationDays {
			ny.VacationDays[k] = v
		}
		for month, mr := range yr.Months {
			if mr == nil {
				continue
			}
			nm := newMonthRecord()
			for member, days := range mr.Days {
				cp := make(map[int]Status, len(days))
				for k, v := range days {
					cp[k] = v
				}
				nm.Days[member] = cp
			}
			for member, days := range mr.Approved {
				cp := make(map[int]bool, len(days))
				for k, v := range days {
					cp[k] = v
				}
				nm.Approved[member] = cp
			}
			ny.Months[month] = nm
		}
		out.Years[year] = ny
	}
	return out
}

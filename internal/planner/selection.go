package planner

// Cell addresses one (member, day) cell of the month grid.
type Cell struct {
	Member int `json:"member"`
	Day    int `json:"day"`
}

// Selection tracks a rectangular drag gesture over the grid of one month.
// The zero value is an idle selection.
type Selection struct {
	anchor Cell
	end    Cell
	active bool
}

// Begin starts a gesture at c, discarding any previous selection.
func (sel *Selection) Begin(c Cell) {
	sel.anchor, sel.end, sel.active = c, c, true
}

// Extend moves the free corner of an active gesture to c.
func (sel *Selection) Extend(c Cell) {
	if sel.active {
		sel.end = c
	}
}

// Active reports whether a gesture is in progress.
func (sel *Selection) Active() bool { return sel.active }

// Clear drops the selection, e.g. on a click outside the grid.
func (sel *Selection) Clear() {
	*sel = Selection{}
}

// Cells materializes the selected rectangle, restricted to existing
// members and in-month days.
func (sel *Selection) Cells(members, daysInMonth int) []Cell {
	if !sel.active {
		return nil
	}
	return Rectangle(sel.anchor, sel.end, members, daysInMonth)
}

// Finish ends the gesture and hands out the selected cells. The selection
// is cleared afterwards.
func (sel *Selection) Finish(members, daysInMonth int) []Cell {
	cells := sel.Cells(members, daysInMonth)
	sel.Clear()
	return cells
}

// Rectangle returns every cell of the inclusive rectangle spanned by a and
// b, member-major, skipping cells outside the grid.
func Rectangle(a, b Cell, members, daysInMonth int) []Cell {
	minMember, maxMember := min(a.Member, b.Member), max(a.Member, b.Member)
	minDay, maxDay := min(a.Day, b.Day), max(a.Day, b.Day)
	minMember, maxMember = max(minMember, 0), min(maxMember, members-1)
	minDay, maxDay = max(minDay, 1), min(maxDay, daysInMonth)
	if minMember > maxMember || minDay > maxDay {
		return nil
	}
	cells := make([]Cell, 0, (maxMember-minMember+1)*(maxDay-minDay+1))
	for m := minMember; m <= maxMember; m++ {
		for d := minDay; d <= maxDay; d++ {
			cells = append(cells, Cell{Member: m, Day: d})
		}
	}
	return cells
}

// AvailableStatuses returns the statuses that may be offered for cells.
// Statuses restricted to weekends and holidays are offered only when every
// selected day qualifies.
func AvailableStatuses(year, month int, cells []Cell, excl DayExcluder) []StatusOption {
	if len(cells) == 0 {
		return nil
	}
	allExcluded := true
	for _, c := range cells {
		if excl == nil || !excl.Excluded(year, month, c.Day) {
			allExcluded = false
			break
		}
	}
	out := make([]StatusOption, 0, len(StatusOptions))
	for _, opt := range StatusOptions {
		if opt.RequiresWeekendOrHoliday && !allExcluded {
			continue
		}
		out = append(out, opt)
	}
	return out
}

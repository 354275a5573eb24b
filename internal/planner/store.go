package planner

import (
	"fmt"
	"strings"
	"time"
)

// Store owns the assignment data and keeps every member-indexed mapping
// consistent with the roster. It is not safe for concurrent use; callers
// serialize access.
type Store struct {
	data *Data
}

// NewStore returns a store over d. A nil d yields an empty store.
func NewStore(d *Data) *Store {
	if d == nil {
		d = NewData()
	}
	ensureShape(d)
	return &Store{data: d}
}

// Data returns the live data tree. Callers must not mutate it directly.
func (s *Store) Data() *Data {
	return s.data
}

// Replace swaps the whole data tree. Used for restore and overwrite.
func (s *Store) Replace(d *Data) {
	if d == nil {
		d = NewData()
	}
	ensureShape(d)
	s.data = d
}

// Members returns a copy of the roster.
func (s *Store) Members() []Member {
	out := make([]Member, len(s.data.Members))
	copy(out, s.data.Members)
	return out
}

// MemberCount returns the roster size.
func (s *Store) MemberCount() int {
	return len(s.data.Members)
}

// Empty reports whether the roster has no members.
func (s *Store) Empty() bool {
	return len(s.data.Members) == 0
}

// Year returns the record for year without creating it.
func (s *Store) Year(year int) (*YearRecord, bool) {
	yr, ok := s.data.Years[year]
	return yr, ok
}

// YearOrCreate returns the record for year, creating it on first access.
// A new year inherits the allowance map of the closest existing year.
func (s *Store) YearOrCreate(year int) *YearRecord {
	yr, ok := s.data.Years[year]
	if !ok {
		yr = newYearRecord()
		if closest, found := s.closestYear(year); found {
			for idx, v := range s.data.Years[closest].VacationDays {
				yr.VacationDays[idx] = v
			}
		}
		s.data.Years[year] = yr
	}
	return yr
}

// closestYear finds the existing year nearest to target; ties go to the
// earlier year.
func (s *Store) closestYear(target int) (int, bool) {
	best, found := 0, false
	for year, yr := range s.data.Years {
		if yr.VacationDays == nil {
			continue
		}
		if !found {
			best, found = year, true
			continue
		}
		d, bd := absInt(year-target), absInt(best-target)
		if d < bd || (d == bd && year < best) {
			best = year
		}
	}
	return best, found
}

// MonthOrCreate returns the record for (year, month), creating both
// levels as needed. month is 0-based.
func (s *Store) MonthOrCreate(year, month int) *MonthRecord {
	yr := s.YearOrCreate(year)
	mr, ok := yr.Months[month]
	if !ok {
		mr = newMonthRecord()
		yr.Months[month] = mr
	}
	return mr
}

// StatusAt returns the status of a cell, StatusNone when unset.
func (s *Store) StatusAt(member, year, month, day int) Status {
	yr, ok := s.data.Years[year]
	if !ok {
		return StatusNone
	}
	mr, ok := yr.Months[month]
	if !ok {
		return StatusNone
	}
	return mr.Days[member][day]
}

// IsApproved reports whether a cell carries the approval flag.
func (s *Store) IsApproved(member, year, month, day int) bool {
	yr, ok := s.data.Years[year]
	if !ok {
		return false
	}
	mr, ok := yr.Months[month]
	if !ok {
		return false
	}
	return mr.Approved[member][day]
}

// SetStatus assigns status to a cell; StatusNone clears it. Moving a cell
// away from a vacation-class status drops its approval.
func (s *Store) SetStatus(member, year, month, day int, status Status) error {
	if err := s.checkCell(member, year, month, day); err != nil {
		return err
	}
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	mr := s.MonthOrCreate(year, month)
	if status == StatusNone {
		if days, ok := mr.Days[member]; ok {
			delete(days, day)
			if len(days) == 0 {
				delete(mr.Days, member)
			}
		}
	} else {
		if mr.Days[member] == nil {
			mr.Days[member] = map[int]Status{}
		}
		mr.Days[member][day] = status
	}
	if !status.IsVacation() {
		clearApproval(mr, member, day)
	}
	return nil
}

// SetApproval sets or clears the approval flag. Only vacation-class cells
// can be approved; the return value reports whether anything changed.
func (s *Store) SetApproval(member, year, month, day int, approved bool) bool {
	if s.checkCell(member, year, month, day) != nil {
		return false
	}
	if !s.StatusAt(member, year, month, day).IsVacation() {
		return false
	}
	mr := s.MonthOrCreate(year, month)
	if !approved {
		if !mr.Approved[member][day] {
			return false
		}
		clearApproval(mr, member, day)
		return true
	}
	if mr.Approved[member][day] {
		return false
	}
	if mr.Approved[member] == nil {
		mr.Approved[member] = map[int]bool{}
	}
	mr.Approved[member][day] = true
	return true
}

func clearApproval(mr *MonthRecord, member, day int) {
	days, ok := mr.Approved[member]
	if !ok {
		return
	}
	delete(days, day)
	if len(days) == 0 {
		delete(mr.Approved, member)
	}
}

// VacationBlock returns the inclusive day range of contiguous
// vacation-class days around day for member.
func (s *Store) VacationBlock(member, year, month, day int) (start, end int) {
	start, end = day, day
	last := DaysInMonth(year, month)
	for start > 1 && s.StatusAt(member, year, month, start-1).IsVacation() {
		start--
	}
	for end < last && s.StatusAt(member, year, month, end+1).IsVacation() {
		end++
	}
	return start, end
}

// VacationDays returns the allowance of member for year.
func (s *Store) VacationDays(member, year int) (float64, bool) {
	yr, ok := s.data.Years[year]
	if !ok {
		return 0, false
	}
	v, ok := yr.VacationDays[member]
	return v, ok
}

// SetVacationDays sets the allowance; nil unsets it.
func (s *Store) SetVacationDays(member, year int, value *float64) error {
	if member < 0 || member >= len(s.data.Members) {
		return ErrMemberNotFound
	}
	yr := s.YearOrCreate(year)
	if value == nil {
		delete(yr.VacationDays, member)
		return nil
	}
	if err := validateAllowance(*value); err != nil {
		return err
	}
	yr.VacationDays[member] = *value
	return nil
}

// InsertMember appends a member and re-sorts the roster. It returns the
// index the new member ends up at.
func (s *Store) InsertMember(name string) int {
	s.data.Members = append(s.data.Members, Member{Name: strings.TrimSpace(name)})
	perm := s.SortMembers()
	return perm[len(perm)-1]
}

// RenameMember changes a name and re-sorts the roster, returning the
// member's new index.
func (s *Store) RenameMember(index int, name string) (int, error) {
	if index < 0 || index >= len(s.data.Members) {
		return 0, ErrMemberNotFound
	}
	s.data.Members[index].Name = strings.TrimSpace(name)
	perm := s.SortMembers()
	return perm[index], nil
}

// DeleteMember removes a member and shifts every higher index down by one
// in all years.
func (s *Store) DeleteMember(index int) error {
	n := len(s.data.Members)
	if index < 0 || index >= n {
		return ErrMemberNotFound
	}
	s.data.Members = append(s.data.Members[:index:index], s.data.Members[index+1:]...)
	s.remapMembers(func(old int) (int, bool) {
		switch {
		case old < 0 || old >= n || old == index:
			return 0, false
		case old > index:
			return old - 1, true
		default:
			return old, true
		}
	})
	return nil
}

func (s *Store) checkCell(member, year, month, day int) error {
	if member < 0 || member >= len(s.data.Members) {
		return ErrMemberNotFound
	}
	if month < 0 || month > 11 || day < 1 || day > DaysInMonth(year, month) {
		return fmt.Errorf("%w: %d-%02d-%02d", ErrInvalidDate, year, month+1, day)
	}
	return nil
}

// DaysInMonth returns the number of days of the 0-based month.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month+2), 0, 12, 0, 0, 0, time.UTC).Day()
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

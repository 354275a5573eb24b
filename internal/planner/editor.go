package planner

import (
	"fmt"
	"strings"
)

// Editor applies user-level edits to a Store. Every edit that changes
// state records exactly one history snapshot before mutating.
type Editor struct {
	Store   *Store
	History *History
}

// NewEditor wraps s with a fresh history.
func NewEditor(s *Store) *Editor {
	return &Editor{Store: s, History: NewHistory()}
}

// AddMember adds a named member and returns its index after sorting.
func (e *Editor) AddMember(name string) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrBlankName
	}
	if err := e.History.Record(e.Store); err != nil {
		return 0, err
	}
	return e.Store.InsertMember(name), nil
}

// RenameMember renames a member. Renaming to the current name is a no-op
// and records nothing.
func (e *Editor) RenameMember(index int, name string) (int, error) {
	if index < 0 || index >= e.Store.MemberCount() {
		return 0, ErrMemberNotFound
	}
	name = strings.TrimSpace(name)
	if e.Store.data.Members[index].Name == name {
		return index, nil
	}
	if err := e.History.Record(e.Store); err != nil {
		return 0, err
	}
	return e.Store.RenameMember(index, name)
}

// RemoveMember deletes a member and all of their assignments.
func (e *Editor) RemoveMember(index int) error {
	if index < 0 || index >= e.Store.MemberCount() {
		return ErrMemberNotFound
	}
	if err := e.History.Record(e.Store); err != nil {
		return err
	}
	return e.Store.DeleteMember(index)
}

// SetVacationDays sets or, with nil, clears an annual allowance.
func (e *Editor) SetVacationDays(member, year int, value *float64) error {
	if member < 0 || member >= e.Store.MemberCount() {
		return ErrMemberNotFound
	}
	if value != nil {
		if err := validateAllowance(*value); err != nil {
			return err
		}
	}
	cur, ok := e.Store.VacationDays(member, year)
	if (value == nil && !ok) || (value != nil && ok && cur == *value) {
		return nil
	}
	if err := e.History.Record(e.Store); err != nil {
		return err
	}
	return e.Store.SetVacationDays(member, year, value)
}

// ApplyStatus assigns status to every cell as one undoable edit. Statuses
// restricted to weekends and holidays are rejected unless every cell's day
// qualifies; nothing is recorded in that case.
func (e *Editor) ApplyStatus(year, month int, cells []Cell, status Status, excl DayExcluder) error {
	if len(cells) == 0 {
		return nil
	}
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	for _, c := range cells {
		if err := e.Store.checkCell(c.Member, year, month, c.Day); err != nil {
			return err
		}
		if status.RequiresWeekendOrHoliday() && (excl == nil || !excl.Excluded(year, month, c.Day)) {
			return fmt.Errorf("%w: %s on %s", ErrInvalidPlacement, status.Label(), DateKey(year, month, c.Day))
		}
	}
	if err := e.History.Record(e.Store); err != nil {
		return err
	}
	for _, c := range cells {
		if err := e.Store.SetStatus(c.Member, year, month, c.Day, status); err != nil {
			return err
		}
	}
	return nil
}

// ToggleApproval flips the approval of the contiguous vacation block
// containing day. The new state is the opposite of day's current state.
// It reports false, recording nothing, when day is not vacation-class.
func (e *Editor) ToggleApproval(member, year, month, day int) (bool, error) {
	if err := e.Store.checkCell(member, year, month, day); err != nil {
		return false, err
	}
	if !e.Store.StatusAt(member, year, month, day).IsVacation() {
		return false, nil
	}
	if err := e.History.Record(e.Store); err != nil {
		return false, err
	}
	approve := !e.Store.IsApproved(member, year, month, day)
	start, end := e.Store.VacationBlock(member, year, month, day)
	for d := start; d <= end; d++ {
		e.Store.SetApproval(member, year, month, d, approve)
	}
	return approve, nil
}

// Import parses raw and combines it with the live store. Nothing is
// recorded or changed when parsing fails or a mode is still required.
func (e *Editor) Import(raw []byte, mode ImportMode, currentYear int) (ImportMode, error) {
	imported, err := ParsePayload(raw, currentYear)
	if err != nil {
		return ImportModeUnset, err
	}
	return e.ImportData(imported, mode)
}

// ImportData combines an already normalized dataset with the live store.
func (e *Editor) ImportData(imported *Data, mode ImportMode) (ImportMode, error) {
	effective, err := ResolveImportMode(e.Store, mode)
	if err != nil {
		return ImportModeUnset, err
	}
	if err := e.History.Record(e.Store); err != nil {
		return ImportModeUnset, err
	}
	effective.Apply(e.Store, imported)
	return effective, nil
}

// Undo restores the state before the last edit.
func (e *Editor) Undo() (bool, error) {
	return e.History.Undo(e.Store)
}

// Redo re-applies the last undone edit.
func (e *Editor) Redo() (bool, error) {
	return e.History.Redo(e.Store)
}

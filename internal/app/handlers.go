package app

import (
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/klabast/wb-services/team-kalender/internal/holidays"
	"github.com/klabast/wb-services/team-kalender/internal/planner"
	"github.com/klabast/wb-services/team-kalender/internal/storage"
)

// HandleHealth reports liveness.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetConfig returns the application configuration
func (s *Server) GetConfig(w http.ResponseWriter, r *http.Request) {
	currentYear := s.currentYear()

	config := map[string]any{
		"currentYear":        currentYear,
		"editMode":           s.cfg.Edit,
		"authEnabled":        s.auth.Enabled(),
		"statuses":           planner.StatusOptions,
		"states":             holidays.States,
		"schoolHolidayState": s.school.State(),
		"monthNames":         MonthNames,
		"holidays":           holidays.NewCalendar(currentYear).Names(),
	}
	s.writeJSON(w, http.StatusOK, config)
}

// stateETag is a content hash of the persisted shape.
func stateETag(payload []byte) string {
	sum := blake3.Sum256(payload)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// HandleState returns the complete state in its persisted shape. Clients
// revalidate with If-None-Match.
func (s *Server) HandleState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	payload, err := planner.Marshal(s.editor.Store.Data())
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}

	etag := stateETag(payload)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if match := r.Header.Get("If-None-Match"); match != "" && strings.Contains(match, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(payload); err != nil {
		s.log.Error("error writing state", zap.Error(err))
	}
}

// HandleExport downloads the state as a pretty printed JSON file.
func (s *Server) HandleExport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GenerateExport(w, s.editor.Store.Data())
}

// HandleShare returns a share token of the current state.
func (s *Server) HandleShare(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	token, err := EncodeShareToken(s.editor.Store.Data())
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"token":    token,
		"fragment": SharePrefix + token,
	})
}

// historyResponse reports the undo/redo availability after a request.
type historyResponse struct {
	Changed   bool `json:"changed"`
	CanUndo   bool `json:"canUndo"`
	CanRedo   bool `json:"canRedo"`
	UndoDepth int  `json:"undoDepth"`
	RedoDepth int  `json:"redoDepth"`
}

// historyLocked describes the history. Caller must hold mu.
func (s *Server) historyLocked(changed bool) historyResponse {
	h := s.editor.History
	undo, redo := h.Depth()
	return historyResponse{
		Changed:   changed,
		CanUndo:   h.CanUndo(),
		CanRedo:   h.CanRedo(),
		UndoDepth: undo,
		RedoDepth: redo,
	}
}

// HandleHistory returns the undo/redo availability.
func (s *Server) HandleHistory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := s.historyLocked(false)
	s.mu.Unlock()
	s.writeJSON(w, http.StatusOK, resp)
}

// HandleMonth returns the view of one month.
// Query param: width (optional, container width in pixels for the table layout)
func (s *Server) HandleMonth(w http.ResponseWriter, r *http.Request) {
	year, ok := yearParam(w, r)
	if !ok {
		return
	}
	month, ok := monthParam(w, r)
	if !ok {
		return
	}
	width, _ := strconv.Atoi(r.URL.Query().Get("width"))

	// The view shows whatever school holidays are loaded so far.
	s.refreshSchoolHolidays(year-1, year, year+1)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Navigating to a new year seeds its allowances.
	if _, exists := s.editor.Store.Year(year); !exists {
		s.editor.Store.YearOrCreate(year)
		s.persistLocked(r.Context())
	}
	s.writeJSON(w, http.StatusOK, buildMonthView(s.editor.Store, year, month, width, s.school))
}

// parseCell parses "member:day".
func parseCell(v string) (planner.Cell, bool) {
	member, day, found := strings.Cut(v, ":")
	if !found {
		return planner.Cell{}, false
	}
	m, err1 := strconv.Atoi(member)
	d, err2 := strconv.Atoi(day)
	if err1 != nil || err2 != nil {
		return planner.Cell{}, false
	}
	return planner.Cell{Member: m, Day: d}, true
}

// HandleOptions returns the statuses offered for a selection.
// Query params: from, to (member:day corners of the selection)
func (s *Server) HandleOptions(w http.ResponseWriter, r *http.Request) {
	year, ok := yearParam(w, r)
	if !ok {
		return
	}
	month, ok := monthParam(w, r)
	if !ok {
		return
	}
	from, ok1 := parseCell(r.URL.Query().Get("from"))
	to, ok2 := parseCell(r.URL.Query().Get("to"))
	if !ok1 || !ok2 {
		http.Error(w, ErrInvalidBody, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	cells := planner.Rectangle(from, to, s.editor.Store.MemberCount(), planner.DaysInMonth(year, month))
	s.mu.Unlock()

	statuses := planner.AvailableStatuses(year, month, cells, holidays.NewCalendar(year))
	if statuses == nil {
		statuses = []planner.StatusOption{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"cells":    len(cells),
		"statuses": statuses,
	})
}

// HandleCounts returns the yearly totals of every member.
func (s *Server) HandleCounts(w http.ResponseWriter, r *http.Request) {
	year, ok := yearParam(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	rows := countsRows(s.editor.Store, year)
	s.mu.Unlock()
	s.writeJSON(w, http.StatusOK, rows)
}

// HandleCountsCSV downloads the yearly totals as CSV.
func (s *Server) HandleCountsCSV(w http.ResponseWriter, r *http.Request) {
	year, ok := yearParam(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	rows := countsRows(s.editor.Store, year)
	s.mu.Unlock()
	s.GenerateCountsCSV(w, year, rows)
}

// HandleAbsencesICS returns an ICS feed of one member's absences from
// (current year - 1) onwards.
// Query params: year (optional, only that year), reminderDays and
// reminderTime (optional alarm, e.g. 1 and 08:00)
func (s *Server) HandleAbsencesICS(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()

	minYear := s.currentYear() - 1
	onlyYear := 0
	if v := query.Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, ErrInvalidYear, http.StatusBadRequest)
			return
		}
		minYear, onlyYear = y, y
	}
	reminderDays := -1
	if v := query.Get("reminderDays"); v != "" {
		if d, err := strconv.Atoi(v); err == nil && d >= 0 {
			reminderDays = d
		}
	}

	s.mu.Lock()
	if index >= s.editor.Store.MemberCount() {
		s.mu.Unlock()
		http.Error(w, ErrMemberMissing, http.StatusNotFound)
		return
	}
	name := s.editor.Store.Members()[index].Name
	absences := CollectAbsences(s.editor.Store, index, minYear)
	s.mu.Unlock()

	if onlyYear != 0 {
		var filtered []Absence
		for _, a := range absences {
			if a.Start.Year() == onlyYear {
				filtered = append(filtered, a)
			}
		}
		absences = filtered
	}

	s.GenerateAbsencesICS(w, name, absences, reminderDays, query.Get("reminderTime"))
}

// AddMember adds a member (edit mode only)
func (s *Server) AddMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, ErrInvalidBody, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	index, err := s.editor.AddMember(req.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.persistLocked(r.Context())
	s.writeJSON(w, http.StatusCreated, map[string]int{"index": index})
}

// RenameMember renames a member (edit mode only)
func (s *Server) RenameMember(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, ErrInvalidBody, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	newIndex, err := s.editor.RenameMember(index, req.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.persistLocked(r.Context())
	s.writeJSON(w, http.StatusOK, map[string]int{"index": newIndex})
}

// DeleteMember removes a member with all assignments (edit mode only)
func (s *Server) DeleteMember(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editor.RemoveMember(index); err != nil {
		s.writeError(w, err)
		return
	}
	s.persistLocked(r.Context())
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SetVacationDays sets or clears an annual allowance (edit mode only).
// Body: {"value": "12,5"}; a blank value clears it.
func (s *Server) SetVacationDays(w http.ResponseWriter, r *http.Request) {
	year, ok := yearParam(w, r)
	if !ok {
		return
	}
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	var req struct {
		Value string `json:"value"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, ErrInvalidBody, http.StatusBadRequest)
		return
	}
	value, err := planner.ParseAllowance(req.Value)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editor.SetVacationDays(index, year, value); err != nil {
		s.writeError(w, err)
		return
	}
	s.persistLocked(r.Context())
	s.writeJSON(w, http.StatusOK, map[string]*float64{"vacationDays": value})
}

// ApplySelection assigns a status to a rectangular selection (edit mode only)
func (s *Server) ApplySelection(w http.ResponseWriter, r *http.Request) {
	year, ok := yearParam(w, r)
	if !ok {
		return
	}
	month, ok := monthParam(w, r)
	if !ok {
		return
	}
	var req struct {
		From   planner.Cell   `json:"from"`
		To     planner.Cell   `json:"to"`
		Status planner.Status `json:"status"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, ErrInvalidBody, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var sel planner.Selection
	sel.Begin(req.From)
	sel.Extend(req.To)
	cells := sel.Finish(s.editor.Store.MemberCount(), planner.DaysInMonth(year, month))
	if err := s.editor.ApplyStatus(year, month, cells, req.Status, holidays.NewCalendar(year)); err != nil {
		s.writeError(w, err)
		return
	}
	if len(cells) > 0 {
		s.persistLocked(r.Context())
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"cells": len(cells)})
}

// ToggleApproval flips the approval of a vacation block (edit mode only)
func (s *Server) ToggleApproval(w http.ResponseWriter, r *http.Request) {
	year, ok := yearParam(w, r)
	if !ok {
		return
	}
	month, ok := monthParam(w, r)
	if !ok {
		return
	}
	var req planner.Cell
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, ErrInvalidBody, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	wasVacation := s.editor.Store.StatusAt(req.Member, year, month, req.Day).IsVacation()
	approved, err := s.editor.ToggleApproval(req.Member, year, month, req.Day)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if wasVacation {
		s.persistLocked(r.Context())
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"approved": approved, "changed": wasVacation})
}

// importLocked applies raw import data. Caller must hold mu.
func (s *Server) importLocked(w http.ResponseWriter, r *http.Request, raw []byte) {
	mode, err := planner.ParseImportMode(r.URL.Query().Get("mode"))
	if err != nil {
		http.Error(w, ErrImportModeMissing, http.StatusBadRequest)
		return
	}
	effective, err := s.editor.Import(raw, mode, s.currentYear())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.persistLocked(r.Context())
	s.log.Info("imported data",
		zap.String("mode", string(effective)),
		zap.Int("members", s.editor.Store.MemberCount()))
	s.writeJSON(w, http.StatusOK, map[string]string{"mode": string(effective)})
}

// HandleImport imports an exported JSON file (edit mode only).
// Query param: mode (overwrite or merge; required unless the roster is empty)
func (s *Server) HandleImport(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r)
	if err != nil {
		http.Error(w, ErrInvalidBody, http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.importLocked(w, r, raw)
}

// HandleShareImport imports a share token (edit mode only).
// Body: {"token": "..."}; query param as for HandleImport
func (s *Server) HandleShareImport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, ErrInvalidBody, http.StatusBadRequest)
		return
	}
	raw, err := DecodeShareToken(req.Token)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.importLocked(w, r, raw)
}

// HandleUndo restores the state before the last edit (edit mode only)
func (s *Server) HandleUndo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed, err := s.editor.Undo()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if changed {
		s.persistLocked(r.Context())
	}
	s.writeJSON(w, http.StatusOK, s.historyLocked(changed))
}

// HandleRedo reapplies the last undone edit (edit mode only)
func (s *Server) HandleRedo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed, err := s.editor.Redo()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if changed {
		s.persistLocked(r.Context())
	}
	s.writeJSON(w, http.StatusOK, s.historyLocked(changed))
}

// SetSchoolHolidayState switches the federal state of the school holiday
// overlay (edit mode only). Body: {"state": "BY"}
func (s *Server) SetSchoolHolidayState(w http.ResponseWriter, r *http.Request) {
	var req struct {
		State string `json:"state"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, ErrInvalidBody, http.StatusBadRequest)
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.State))
	if _, ok := holidays.LookupState(code); !ok {
		http.Error(w, ErrInvalidState, http.StatusBadRequest)
		return
	}

	if err := s.backend.Put(r.Context(), storage.SchoolHolidayStateKey, []byte(code)); err != nil {
		s.log.Error("saving school holiday state failed", zap.Error(err))
	}
	if code != s.school.State() {
		s.school.Reset(code)
		s.PreloadSchoolHolidays()
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"state": code})
}

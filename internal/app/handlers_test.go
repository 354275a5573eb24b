package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/klabast/wb-services/team-kalender/internal/holidays"
	"github.com/klabast/wb-services/team-kalender/internal/planner"
	"github.com/klabast/wb-services/team-kalender/internal/storage"
)

// stubSource serves one winter break per year.
type stubSource struct {
	err error
}

func (s stubSource) Fetch(_ context.Context, _ holidays.State, year int) ([]holidays.Range, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []holidays.Range{{
		Name:  "Winterferien",
		Start: time.Date(year, 1, 2, 12, 0, 0, 0, time.UTC),
		End:   time.Date(year, 1, 4, 12, 0, 0, 0, time.UTC),
	}}, nil
}

// hangingSource never answers before the request context ends.
type hangingSource struct {
	calls   atomic.Int32
	mu      sync.Mutex
	active  map[int]int
	overlap bool
}

func (s *hangingSource) Fetch(ctx context.Context, _ holidays.State, year int) ([]holidays.Range, error) {
	s.calls.Add(1)
	s.mu.Lock()
	if s.active == nil {
		s.active = map[int]int{}
	}
	s.active[year]++
	if s.active[year] > 1 {
		s.overlap = true
	}
	s.mu.Unlock()

	<-ctx.Done()

	s.mu.Lock()
	s.active[year]--
	s.mu.Unlock()
	return nil, ctx.Err()
}

type testServer struct {
	*Server
	backend storage.Backend
	handler http.Handler
}

func newTestServer(t *testing.T, edit bool, auth *Auth, source holidays.Source) *testServer {
	t.Helper()
	backend, err := storage.NewFileBackend(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewFileBackend() failed: %v", err)
	}
	return newTestServerOn(t, backend, edit, auth, source)
}

func newTestServerOn(t *testing.T, backend storage.Backend, edit bool, auth *Auth, source holidays.Source) *testServer {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Edit = edit
	s := NewServer(context.Background(), ServerOptions{
		Config:  cfg,
		Backend: backend,
		Auth:    auth,
		Source:  source,
		Now:     func() time.Time { return time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC) },
	})
	t.Cleanup(s.WaitSchoolHolidays)
	return &testServer{Server: s, backend: backend, handler: s.Handler()}
}

func (ts *testServer) do(t *testing.T, method, path, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for _, m := range mutate {
		m(req)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q failed: %v", w.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("Expected status %d, got %d: %s", status, w.Code, w.Body.String())
	}
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t, false, nil, stubSource{})
	w := ts.do(t, http.MethodGet, "/health", "")
	expectStatus(t, w, http.StatusOK)
	if got := decode[map[string]string](t, w)["status"]; got != "ok" {
		t.Errorf("Expected status ok, got %s", got)
	}
}

func TestGetConfig(t *testing.T) {
	ts := newTestServer(t, false, nil, stubSource{})
	w := ts.do(t, http.MethodGet, "/api/config", "")
	expectStatus(t, w, http.StatusOK)

	type configResponse struct {
		CurrentYear        int                    `json:"currentYear"`
		EditMode           bool                   `json:"editMode"`
		SchoolHolidayState string                 `json:"schoolHolidayState"`
		Statuses           []planner.StatusOption `json:"statuses"`
		States             []holidays.State       `json:"states"`
		Holidays           map[string]string      `json:"holidays"`
	}
	config := decode[configResponse](t, w)

	if config.CurrentYear != 2025 {
		t.Errorf("Expected current year 2025, got %d", config.CurrentYear)
	}
	if config.EditMode {
		t.Error("Expected edit mode off")
	}
	if config.SchoolHolidayState != holidays.DefaultStateCode {
		t.Errorf("Expected default state %s, got %s", holidays.DefaultStateCode, config.SchoolHolidayState)
	}
	if len(config.Statuses) != len(planner.StatusOptions) || len(config.States) != 16 {
		t.Errorf("Expected full vocabularies, got %d statuses and %d states", len(config.Statuses), len(config.States))
	}
	if config.Holidays["2025-01-01"] != "Neujahr" {
		t.Errorf("Expected Neujahr on 2025-01-01, got %q", config.Holidays["2025-01-01"])
	}
}

func TestEditRoutesRequireEditMode(t *testing.T) {
	ts := newTestServer(t, false, nil, stubSource{})

	w := ts.do(t, http.MethodPost, "/api/members", `{"name":"Anna"}`)
	expectStatus(t, w, http.StatusForbidden)

	w = ts.do(t, http.MethodPost, "/api/undo", "")
	expectStatus(t, w, http.StatusForbidden)
}

func TestEditRoutesRequireAuth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.secret")
	if err := CreateAuthFile(path, "admin", "secret", true, strings.NewReader(""), io.Discard); err != nil {
		t.Fatalf("CreateAuthFile() failed: %v", err)
	}
	auth, err := LoadAuth(path, nil)
	if err != nil {
		t.Fatalf("LoadAuth() failed: %v", err)
	}
	ts := newTestServer(t, true, auth, stubSource{})

	w := ts.do(t, http.MethodPost, "/api/members", `{"name":"Anna"}`)
	expectStatus(t, w, http.StatusUnauthorized)

	w = ts.do(t, http.MethodPost, "/api/members", `{"name":"Anna"}`, func(r *http.Request) {
		r.SetBasicAuth("admin", "wrong")
	})
	expectStatus(t, w, http.StatusUnauthorized)

	w = ts.do(t, http.MethodPost, "/api/members", `{"name":"Anna"}`, func(r *http.Request) {
		r.SetBasicAuth("admin", "secret")
	})
	expectStatus(t, w, http.StatusCreated)

	// Read routes stay public.
	w = ts.do(t, http.MethodGet, "/api/state", "")
	expectStatus(t, w, http.StatusOK)
}

func TestMemberLifecycle(t *testing.T) {
	ts := newTestServer(t, true, nil, stubSource{})

	w := ts.do(t, http.MethodPost, "/api/members", `{"name":"Zoe"}`)
	expectStatus(t, w, http.StatusCreated)
	w = ts.do(t, http.MethodPost, "/api/members", `{"name":"Adam"}`)
	expectStatus(t, w, http.StatusCreated)
	if got := decode[map[string]int](t, w)["index"]; got != 0 {
		t.Errorf("Expected Adam to sort to index 0, got %d", got)
	}

	w = ts.do(t, http.MethodPost, "/api/members", `{"name":"   "}`)
	expectStatus(t, w, http.StatusUnprocessableEntity)

	w = ts.do(t, http.MethodPut, "/api/members/0", `{"name":"Zyta"}`)
	expectStatus(t, w, http.StatusOK)
	if got := decode[map[string]int](t, w)["index"]; got != 1 {
		t.Errorf("Expected renamed member at index 1, got %d", got)
	}

	w = ts.do(t, http.MethodDelete, "/api/members/7", "")
	expectStatus(t, w, http.StatusNotFound)
	w = ts.do(t, http.MethodDelete, "/api/members/0", "")
	expectStatus(t, w, http.StatusOK)

	// A second server on the same backend sees the persisted roster.
	reloaded := newTestServerOn(t, ts.backend, false, nil, stubSource{})
	state := decode[planner.Data](t, reloaded.do(t, http.MethodGet, "/api/state", ""))
	if len(state.Members) != 1 || state.Members[0].Name != "Zyta" {
		t.Errorf("Expected persisted roster [Zyta], got %+v", state.Members)
	}
}

func TestSetVacationDays(t *testing.T) {
	ts := newTestServer(t, true, nil, stubSource{})
	expectStatus(t, ts.do(t, http.MethodPost, "/api/members", `{"name":"Anna"}`), http.StatusCreated)

	w := ts.do(t, http.MethodPut, "/api/years/2025/vacation-days/0", `{"value":"12,5"}`)
	expectStatus(t, w, http.StatusOK)

	w = ts.do(t, http.MethodPut, "/api/years/2025/vacation-days/0", `{"value":"12,3"}`)
	expectStatus(t, w, http.StatusUnprocessableEntity)

	rows := decode[[]CountsRow](t, ts.do(t, http.MethodGet, "/api/years/2025/counts", ""))
	if len(rows) != 1 || rows[0].VacationDays == nil || *rows[0].VacationDays != 12.5 {
		t.Errorf("Expected allowance 12.5, got %+v", rows)
	}
}

func TestApplySelectionUndoRedo(t *testing.T) {
	ts := newTestServer(t, true, nil, stubSource{})
	expectStatus(t, ts.do(t, http.MethodPost, "/api/members", `{"name":"Anna"}`), http.StatusCreated)

	// 10.-12.03.2025 is Monday to Wednesday.
	w := ts.do(t, http.MethodPost, "/api/years/2025/months/2/selection",
		`{"from":{"member":0,"day":10},"to":{"member":0,"day":12},"status":"urlaub"}`)
	expectStatus(t, w, http.StatusOK)
	if got := decode[map[string]int](t, w)["cells"]; got != 3 {
		t.Errorf("Expected 3 cells, got %d", got)
	}

	w = ts.do(t, http.MethodPost, "/api/years/2025/months/2/selection",
		`{"from":{"member":0,"day":12},"to":{"member":0,"day":12},"status":"einsatz"}`)
	expectStatus(t, w, http.StatusUnprocessableEntity)

	w = ts.do(t, http.MethodPost, "/api/years/2025/months/2/selection",
		`{"from":{"member":0,"day":1},"to":{"member":0,"day":1},"status":"bogus"}`)
	expectStatus(t, w, http.StatusUnprocessableEntity)

	vacation := func() float64 {
		rows := decode[[]CountsRow](t, ts.do(t, http.MethodGet, "/api/years/2025/counts", ""))
		return rows[0].Counts.Vacation
	}
	if got := vacation(); got != 3 {
		t.Fatalf("Expected 3 vacation days, got %v", got)
	}

	w = ts.do(t, http.MethodPost, "/api/undo", "")
	expectStatus(t, w, http.StatusOK)
	hist := decode[historyResponse](t, w)
	if !hist.Changed || !hist.CanRedo {
		t.Errorf("Expected undo to change state and allow redo, got %+v", hist)
	}
	if got := vacation(); got != 0 {
		t.Errorf("Expected 0 vacation days after undo, got %v", got)
	}

	expectStatus(t, ts.do(t, http.MethodPost, "/api/redo", ""), http.StatusOK)
	if got := vacation(); got != 3 {
		t.Errorf("Expected 3 vacation days after redo, got %v", got)
	}

	hist = decode[historyResponse](t, ts.do(t, http.MethodGet, "/api/history", ""))
	if hist.UndoDepth != 2 || hist.CanRedo {
		t.Errorf("Expected two undo steps and no redo, got %+v", hist)
	}
}

func TestToggleApproval(t *testing.T) {
	ts := newTestServer(t, true, nil, stubSource{})
	expectStatus(t, ts.do(t, http.MethodPost, "/api/members", `{"name":"Anna"}`), http.StatusCreated)
	expectStatus(t, ts.do(t, http.MethodPost, "/api/years/2025/months/2/selection",
		`{"from":{"member":0,"day":10},"to":{"member":0,"day":12},"status":"urlaub"}`), http.StatusOK)

	w := ts.do(t, http.MethodPost, "/api/years/2025/months/2/approval", `{"member":0,"day":11}`)
	expectStatus(t, w, http.StatusOK)
	if got := decode[map[string]bool](t, w); !got["approved"] || !got["changed"] {
		t.Errorf("Expected block to be approved, got %v", got)
	}

	view := decode[MonthView](t, ts.do(t, http.MethodGet, "/api/years/2025/months/2", ""))
	for day := 10; day <= 12; day++ {
		if !view.Members[0].Approved[day] {
			t.Errorf("Expected day %d approved", day)
		}
	}

	w = ts.do(t, http.MethodPost, "/api/years/2025/months/2/approval", `{"member":0,"day":20}`)
	expectStatus(t, w, http.StatusOK)
	if got := decode[map[string]bool](t, w); got["changed"] {
		t.Errorf("Expected no change on a day without vacation, got %v", got)
	}
}

func TestHandleMonth(t *testing.T) {
	ts := newTestServer(t, true, nil, stubSource{})
	expectStatus(t, ts.do(t, http.MethodPost, "/api/members", `{"name":"Anna"}`), http.StatusCreated)

	// The first view starts the school holiday load.
	expectStatus(t, ts.do(t, http.MethodGet, "/api/years/2026/months/0?width=1200", ""), http.StatusOK)
	ts.WaitSchoolHolidays()

	w := ts.do(t, http.MethodGet, "/api/years/2026/months/0?width=1200", "")
	expectStatus(t, w, http.StatusOK)
	view := decode[MonthView](t, w)

	if view.MonthName != "Januar" {
		t.Errorf("Expected Januar, got %s", view.MonthName)
	}
	if len(view.Columns) != 33 {
		t.Fatalf("Expected 33 columns, got %d", len(view.Columns))
	}
	if view.Columns[0].Key != "2025-12-31" || view.Columns[32].Key != "2026-02-01" {
		t.Errorf("Expected lead and trail columns, got %s and %s", view.Columns[0].Key, view.Columns[32].Key)
	}
	newYear := view.Columns[1]
	if newYear.Holiday != "Neujahr" || !newYear.Excluded {
		t.Errorf("Expected Neujahr to be an excluded holiday, got %+v", newYear)
	}
	if got := view.Columns[2].SchoolHoliday; got != "Winterferien (02.01.2026 - 04.01.2026)" {
		t.Errorf("Expected school holiday label on 2026-01-02, got %q", got)
	}
	if view.Layout == nil || view.Layout.MaxColumns != 18 {
		t.Errorf("Expected layout for width 1200, got %+v", view.Layout)
	}
	total := 0
	for _, seg := range view.Segments {
		total += len(seg)
	}
	if total != 33 {
		t.Errorf("Expected segments to cover 33 columns, got %d", total)
	}
	if len(view.Members) != 1 || view.Members[0].Name != "Anna" {
		t.Errorf("Expected one member row, got %+v", view.Members)
	}

	// Viewing a new year creates and persists it.
	raw, err := ts.backend.Get(context.Background(), storage.StateKey)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !strings.Contains(string(raw), `"2026"`) {
		t.Errorf("Expected persisted year 2026, got %s", raw)
	}
}

func TestHandleMonthInvalidParams(t *testing.T) {
	ts := newTestServer(t, false, nil, stubSource{})
	expectStatus(t, ts.do(t, http.MethodGet, "/api/years/2025/months/12", ""), http.StatusBadRequest)
	expectStatus(t, ts.do(t, http.MethodGet, "/api/years/abc/months/0", ""), http.StatusBadRequest)
}

func TestHandleOptions(t *testing.T) {
	ts := newTestServer(t, true, nil, stubSource{})
	expectStatus(t, ts.do(t, http.MethodPost, "/api/members", `{"name":"Anna"}`), http.StatusCreated)

	type optionsResponse struct {
		Statuses []planner.StatusOption `json:"statuses"`
	}
	hasEinsatz := func(path string) bool {
		t.Helper()
		w := ts.do(t, http.MethodGet, path, "")
		expectStatus(t, w, http.StatusOK)
		resp := decode[optionsResponse](t, w)
		for _, opt := range resp.Statuses {
			if opt.Status == planner.StatusDeployment {
				return true
			}
		}
		return false
	}

	// 15./16.03.2025 is a weekend, 14.03. a Friday.
	if !hasEinsatz("/api/years/2025/months/2/options?from=0:15&to=0:16") {
		t.Error("Expected Einsatz to be offered on a weekend")
	}
	if hasEinsatz("/api/years/2025/months/2/options?from=0:14&to=0:16") {
		t.Error("Expected Einsatz to be hidden when a workday is selected")
	}
	expectStatus(t, ts.do(t, http.MethodGet, "/api/years/2025/months/2/options?from=x", ""), http.StatusBadRequest)
}

func TestHandleImport(t *testing.T) {
	ts := newTestServer(t, true, nil, stubSource{})
	payload := `{"members":[{"name":"Xaver"}],"years":{}}`

	w := ts.do(t, http.MethodPost, "/api/import", payload)
	expectStatus(t, w, http.StatusOK)
	if got := decode[map[string]string](t, w)["mode"]; got != "overwrite" {
		t.Errorf("Expected overwrite into an empty roster, got %s", got)
	}

	expectStatus(t, ts.do(t, http.MethodPost, "/api/import", payload), http.StatusConflict)
	expectStatus(t, ts.do(t, http.MethodPost, "/api/import?mode=bogus", payload), http.StatusBadRequest)
	expectStatus(t, ts.do(t, http.MethodPost, "/api/import?mode=merge", `[1,2]`), http.StatusBadRequest)

	w = ts.do(t, http.MethodPost, "/api/import?mode=merge", payload)
	expectStatus(t, w, http.StatusOK)
	state := decode[planner.Data](t, ts.do(t, http.MethodGet, "/api/state", ""))
	if len(state.Members) != 2 {
		t.Errorf("Expected merge to append the imported member, got %+v", state.Members)
	}
}

func TestHandleStateETag(t *testing.T) {
	ts := newTestServer(t, true, nil, stubSource{})

	w := ts.do(t, http.MethodGet, "/api/state", "")
	expectStatus(t, w, http.StatusOK)
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("Expected ETag header")
	}

	w = ts.do(t, http.MethodGet, "/api/state", "", func(r *http.Request) {
		r.Header.Set("If-None-Match", etag)
	})
	expectStatus(t, w, http.StatusNotModified)

	expectStatus(t, ts.do(t, http.MethodPost, "/api/members", `{"name":"Anna"}`), http.StatusCreated)
	w = ts.do(t, http.MethodGet, "/api/state", "", func(r *http.Request) {
		r.Header.Set("If-None-Match", etag)
	})
	expectStatus(t, w, http.StatusOK)
	if w.Header().Get("ETag") == etag {
		t.Error("Expected ETag to change after an edit")
	}
}

func TestShareRoundTrip(t *testing.T) {
	source := newTestServer(t, true, nil, stubSource{})
	expectStatus(t, source.do(t, http.MethodPost, "/api/members", `{"name":"Anna"}`), http.StatusCreated)

	w := source.do(t, http.MethodGet, "/api/share", "")
	expectStatus(t, w, http.StatusOK)
	share := decode[map[string]string](t, w)
	if !strings.HasPrefix(share["fragment"], SharePrefix) {
		t.Errorf("Expected fragment with %s, got %s", SharePrefix, share["fragment"])
	}

	target := newTestServer(t, true, nil, stubSource{})
	body, _ := json.Marshal(map[string]string{"token": share["fragment"]})
	w = target.do(t, http.MethodPost, "/api/share/import", string(body))
	expectStatus(t, w, http.StatusOK)

	state := decode[planner.Data](t, target.do(t, http.MethodGet, "/api/state", ""))
	if len(state.Members) != 1 || state.Members[0].Name != "Anna" {
		t.Errorf("Expected shared roster [Anna], got %+v", state.Members)
	}

	expectStatus(t, target.do(t, http.MethodPost, "/api/share/import?mode=merge", `{"token":"!!"}`), http.StatusBadRequest)
}

func TestHandleAbsencesICS(t *testing.T) {
	ts := newTestServer(t, true, nil, stubSource{})
	expectStatus(t, ts.do(t, http.MethodPost, "/api/members", `{"name":"Anna"}`), http.StatusCreated)
	expectStatus(t, ts.do(t, http.MethodPost, "/api/years/2025/months/2/selection",
		`{"from":{"member":0,"day":10},"to":{"member":0,"day":12},"status":"urlaub"}`), http.StatusOK)

	w := ts.do(t, http.MethodGet, "/api/members/0/absences.ics?year=2025", "")
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), "DTSTART;VALUE=DATE:20250310") {
		t.Errorf("Expected vacation event, got %s", w.Body.String())
	}

	w = ts.do(t, http.MethodGet, "/api/members/0/absences.ics?year=2024", "")
	expectStatus(t, w, http.StatusOK)
	if strings.Contains(w.Body.String(), "BEGIN:VEVENT") {
		t.Error("Expected no events for 2024")
	}

	expectStatus(t, ts.do(t, http.MethodGet, "/api/members/3/absences.ics", ""), http.StatusNotFound)
}

func TestHandleCountsCSV(t *testing.T) {
	ts := newTestServer(t, true, nil, stubSource{})
	expectStatus(t, ts.do(t, http.MethodPost, "/api/members", `{"name":"Anna"}`), http.StatusCreated)

	w := ts.do(t, http.MethodGet, "/api/years/2025/counts.csv", "")
	expectStatus(t, w, http.StatusOK)
	if !strings.HasPrefix(w.Body.String(), "Name;Urlaubstage;") {
		t.Errorf("Expected CSV header, got %s", w.Body.String())
	}
}

func TestHandleMonthDoesNotWaitForSchoolHolidays(t *testing.T) {
	src := &hangingSource{}
	ts := newTestServer(t, false, nil, src)
	ts.cfg.HolidayTimeout = 300 * time.Millisecond

	for i := 0; i < 3; i++ {
		start := time.Now()
		w := ts.do(t, http.MethodGet, "/api/years/2026/months/0", "")
		expectStatus(t, w, http.StatusOK)
		if elapsed := time.Since(start); elapsed >= ts.cfg.HolidayTimeout {
			t.Errorf("Expected month view before the school holiday timeout, got %v", elapsed)
		}
		if got := decode[MonthView](t, w).Columns[2].SchoolHoliday; got != "" {
			t.Errorf("Expected no school holiday label yet, got %q", got)
		}
	}

	ts.WaitSchoolHolidays()
	if src.calls.Load() == 0 {
		t.Error("Expected the month view to start a school holiday load")
	}
	src.mu.Lock()
	defer src.mu.Unlock()
	if src.overlap {
		t.Error("Expected at most one fetch per year in flight")
	}
}

func TestSetSchoolHolidayState(t *testing.T) {
	ts := newTestServer(t, true, nil, stubSource{err: holidays.ErrNoEntries})

	expectStatus(t, ts.do(t, http.MethodPut, "/api/school-holidays/state", `{"state":"XX"}`), http.StatusBadRequest)

	w := ts.do(t, http.MethodPut, "/api/school-holidays/state", `{"state":"by"}`)
	expectStatus(t, w, http.StatusOK)
	if got := decode[map[string]string](t, w)["state"]; got != "BY" {
		t.Errorf("Expected BY, got %s", got)
	}

	raw, err := ts.backend.Get(context.Background(), storage.SchoolHolidayStateKey)
	if err != nil || string(raw) != "BY" {
		t.Errorf("Expected persisted state BY, got %q (%v)", raw, err)
	}
	if got := ts.school.State(); got != "BY" {
		t.Errorf("Expected loader switched to BY, got %s", got)
	}
}

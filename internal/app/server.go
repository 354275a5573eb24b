package app

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/klabast/wb-services/team-kalender/internal/holidays"
	"github.com/klabast/wb-services/team-kalender/internal/planner"
	"github.com/klabast/wb-services/team-kalender/internal/storage"
)

// Server owns the single planner store and serves the HTTP API. All store
// access goes through mu.
type Server struct {
	cfg     *Config
	log     *zap.Logger
	backend storage.Backend
	auth    *Auth
	school  *holidays.Loader
	now     func() time.Time

	mu     sync.Mutex
	editor *planner.Editor

	// School holiday loads run one at a time in the background. Requests
	// arriving while one runs are coalesced into a single follow-up load.
	fetchMu      sync.Mutex
	fetching     bool
	fetchAgain   bool
	fetchExtra   map[int]struct{}
	fetchWorkers sync.WaitGroup
}

// ServerOptions are the collaborators of a Server. Now defaults to
// time.Now and Logger to a no-op logger.
type ServerOptions struct {
	Config  *Config
	Backend storage.Backend
	Auth    *Auth
	Source  holidays.Source
	Logger  *zap.Logger
	Now     func() time.Time
}

// NewServer loads the persisted state and prepares the school holiday
// loader for the persisted or configured state.
func NewServer(ctx context.Context, opts ServerOptions) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	source := opts.Source
	if source == nil {
		source = holidays.NewDefaultSource(cfg.HolidayTimeout)
	}

	data := LoadState(ctx, opts.Backend, now().Year(), log)
	state := LoadSchoolHolidayState(ctx, opts.Backend, cfg.SchoolHolidayState, log)

	return &Server{
		cfg:     cfg,
		log:     log,
		backend: opts.Backend,
		auth:    opts.Auth,
		school:  holidays.NewLoader(source, opts.Backend, log.Named("school-holidays"), state),
		now:     now,
		editor:  planner.NewEditor(planner.NewStore(data)),
	}
}

func (s *Server) currentYear() int {
	return s.now().Year()
}

// persistLocked saves the store. Failures are logged; the in-memory state
// stays authoritative. Caller must hold mu.
func (s *Server) persistLocked(ctx context.Context) {
	if err := SaveState(ctx, s.backend, s.editor.Store.Data()); err != nil {
		s.log.Error("saving state failed", zap.Error(err))
	}
}

// schoolHolidayYears returns every year with data plus the current and
// next year and any extra years.
func (s *Server) schoolHolidayYears(extra ...int) []int {
	s.mu.Lock()
	years := make([]int, 0, len(s.editor.Store.Data().Years)+2+len(extra))
	for y := range s.editor.Store.Data().Years {
		years = append(years, y)
	}
	s.mu.Unlock()

	current := s.currentYear()
	years = append(years, current, current+1)
	years = append(years, extra...)
	slices.Sort(years)
	return slices.Compact(years)
}

// loadSchoolHolidays fetches missing school holiday years. It fails open:
// errors only leave the overlay incomplete.
func (s *Server) loadSchoolHolidays(ctx context.Context, extra ...int) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.HolidayTimeout)
	defer cancel()
	if err := s.school.Load(ctx, s.school.State(), s.schoolHolidayYears(extra...)); err != nil {
		s.log.Debug("school holiday load interrupted", zap.Error(err))
	}
}

// PreloadSchoolHolidays starts loading school holidays in the background.
func (s *Server) PreloadSchoolHolidays() {
	s.refreshSchoolHolidays()
}

// refreshSchoolHolidays requests a background load covering extra. It
// never blocks on the source.
func (s *Server) refreshSchoolHolidays(extra ...int) {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()
	if s.fetchExtra == nil {
		s.fetchExtra = map[int]struct{}{}
	}
	for _, y := range extra {
		s.fetchExtra[y] = struct{}{}
	}
	s.fetchAgain = true
	if s.fetching {
		return
	}
	s.fetching = true
	s.fetchWorkers.Add(1)
	go s.runSchoolHolidayLoads()
}

func (s *Server) runSchoolHolidayLoads() {
	defer s.fetchWorkers.Done()
	for {
		s.fetchMu.Lock()
		if !s.fetchAgain {
			s.fetching = false
			s.fetchMu.Unlock()
			return
		}
		s.fetchAgain = false
		extra := make([]int, 0, len(s.fetchExtra))
		for y := range s.fetchExtra {
			extra = append(extra, y)
		}
		clear(s.fetchExtra)
		s.fetchMu.Unlock()

		s.loadSchoolHolidays(context.Background(), extra...)
	}
}

// WaitSchoolHolidays blocks until background school holiday loads finish.
func (s *Server) WaitSchoolHolidays() {
	s.fetchWorkers.Wait()
}

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	return s.Routes()
}

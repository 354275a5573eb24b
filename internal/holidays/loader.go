package holidays

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Cache stores fetched ranges per state and year. storage.Backend
// satisfies it.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// CacheKey is the cache key of one state and year.
func CacheKey(state string, year int) string {
	return fmt.Sprintf("schoolHolidays_%s_%d", state, year)
}

// maxParallelFetches bounds concurrent requests against the holiday APIs.
const maxParallelFetches = 4

// Loader maintains the school holiday overlay of the active state. Every
// Load takes a new generation; results of an older generation are dropped.
type Loader struct {
	source Source
	cache  Cache
	log    *zap.Logger

	mu         sync.Mutex
	generation uint64
	state      string
	loaded     map[int]bool
	labels     map[string]string
}

// NewLoader returns a loader for state. cache may be nil.
func NewLoader(source Source, cache Cache, log *zap.Logger, state string) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{
		source: source,
		cache:  cache,
		log:    log,
		state:  state,
		loaded: map[int]bool{},
		labels: map[string]string{},
	}
}

// State returns the state whose holidays are currently shown.
func (l *Loader) State() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Reset clears the overlay and switches to state. Loads still in flight
// are discarded when they complete.
func (l *Loader) Reset(state string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetLocked(state)
}

func (l *Loader) resetLocked(state string) {
	l.generation++
	l.state = state
	l.loaded = map[int]bool{}
	l.labels = map[string]string{}
}

// Load fetches the given years for state and merges them into the overlay.
// Years already loaded are skipped; switching state resets first. Years
// whose sources all fail stay unloaded and are retried on the next call.
func (l *Loader) Load(ctx context.Context, state string, years []int) error {
	l.mu.Lock()
	if state != l.state {
		l.resetLocked(state)
	}
	var pending []int
	for _, y := range years {
		if !l.loaded[y] && !slices.Contains(pending, y) {
			pending = append(pending, y)
		}
	}
	if len(pending) == 0 {
		l.mu.Unlock()
		return nil
	}
	l.generation++
	gen := l.generation
	l.mu.Unlock()

	st, ok := LookupState(state)
	if !ok {
		st = State{Code: state, Name: state, SubdivisionCode: "DE-" + state}
	}

	results := make([][]Range, len(pending))
	found := make([]bool, len(pending))
	var g errgroup.Group
	g.SetLimit(maxParallelFetches)
	for i, year := range pending {
		g.Go(func() error {
			results[i], found[i] = l.fetchYear(ctx, st, year)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.generation {
		l.log.Debug("discarding stale school holiday result",
			zap.String("state", state), zap.Ints("years", pending))
		return nil
	}
	for i, year := range pending {
		if !found[i] {
			continue
		}
		l.apply(results[i])
		l.loaded[year] = true
	}
	return nil
}

func (l *Loader) fetchYear(ctx context.Context, st State, year int) ([]Range, bool) {
	key := CacheKey(st.Code, year)
	if l.cache != nil {
		if raw, err := l.cache.Get(ctx, key); err == nil {
			ranges, err := NormalizeEntries(raw)
			if err == nil {
				return ranges, true
			}
			l.log.Warn("dropping unreadable school holiday cache entry", zap.String("key", key), zap.Error(err))
			_ = l.cache.Delete(ctx, key)
		}
	}

	ranges, err := l.source.Fetch(ctx, st, year)
	if err != nil {
		l.log.Info("school holidays unavailable",
			zap.String("state", st.Code), zap.Int("year", year), zap.Error(err))
		return nil, false
	}
	if l.cache != nil {
		if raw, err := json.Marshal(ranges); err == nil {
			if err := l.cache.Put(ctx, key, raw); err != nil {
				l.log.Warn("caching school holidays failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return ranges, true
}

func (l *Loader) apply(ranges []Range) {
	for _, r := range ranges {
		label := r.Label()
		for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
			key := d.Format(dateLayout)
			existing, ok := l.labels[key]
			switch {
			case !ok:
				l.labels[key] = label
			case !strings.Contains(existing, label):
				l.labels[key] = existing + "\n" + label
			}
		}
	}
}

// Label returns the school holiday label for a YYYY-MM-DD key.
func (l *Loader) Label(key string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	label, ok := l.labels[key]
	return label, ok
}

// IsSchoolHoliday reports whether the day lies in a loaded school holiday.
// month is 0-based.
func (l *Loader) IsSchoolHoliday(year, month, day int) bool {
	_, ok := l.Label(DateKey(year, month, day))
	return ok
}

// Labels returns a copy of the date key to label map.
func (l *Loader) Labels() map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]string, len(l.labels))
	for k, v := range l.labels {
		out[k] = v
	}
	return out
}

// LoadedYears returns the loaded years in ascending order.
func (l *Loader) LoadedYears() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	years := make([]int, 0, len(l.loaded))
	for y := range l.loaded {
		years = append(years, y)
	}
	slices.Sort(years)
	return years
}

package marketdata

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/wonny/sycamore/internal/contracts"
	"github.com/wonny/sycamore/pkg/logger"
)

// ErrEmptyCalendar means the benchmark has no bars in the requested
// range. The run driver treats this as fatal.
var ErrEmptyCalendar = errors.New("marketdata: no trading days in range")

// fetchPadDays is the extra calendar history fetched behind the run
// window so indicator lookbacks have bars to work with.
const fetchPadDays = 200

// Store loads and memoizes per-symbol bar history for the lifetime of
// one run. The same window is re-read once per simulated day, so each
// symbol is fetched from the provider exactly once. Reads are safe for
// concurrent use.
type Store struct {
	provider  Provider
	benchmark string
	start     time.Time
	end       time.Time
	logger    *logger.Logger

	mu    sync.RWMutex
	cache map[string][]contracts.Bar
}

// NewStore creates a store bounded to [start, end]. benchmark names the
// index whose own bar dates define the trading calendar.
func NewStore(provider Provider, benchmark string, start, end time.Time, log *logger.Logger) *Store {
	return &Store{
		provider:  provider,
		benchmark: benchmark,
		start:     start,
		end:       end,
		logger:    log,
		cache:     make(map[string][]contracts.Bar),
	}
}

// Get returns up to lookbackDays bars ending at the last bar dated on
// or before asOf, ascending. Missing data yields an empty slice:
// callers exclude the symbol for the day, they never abort the run.
func (s *Store) Get(ctx context.Context, symbol string, asOf time.Time, lookbackDays int) []contracts.Bar {
	bars := s.history(ctx, symbol)
	if len(bars) == 0 {
		return nil
	}

	// Index of the first bar after asOf.
	hi := sort.Search(len(bars), func(i int) bool { return bars[i].Date.After(asOf) })
	if hi == 0 {
		return nil
	}

	lo := hi - lookbackDays
	if lo < 0 {
		lo = 0
	}
	return bars[lo:hi]
}

// TradingCalendar derives the ordered trading days in [start, end] from
// the benchmark's own bars.
func (s *Store) TradingCalendar(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	bars := s.history(ctx, s.benchmark)

	var days []time.Time
	for _, b := range bars {
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		days = append(days, b.Date)
	}
	if len(days) == 0 {
		return nil, ErrEmptyCalendar
	}
	return days, nil
}

// BenchmarkReturn returns the benchmark's percent change on date, or 0
// when the benchmark has no bar that day.
func (s *Store) BenchmarkReturn(ctx context.Context, date time.Time) float64 {
	for _, b := range s.history(ctx, s.benchmark) {
		if b.Date.Equal(date) {
			return b.PctChange
		}
	}
	return 0
}

// Evict drops one symbol from the cache.
func (s *Store) Evict(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, symbol)
}

// Clear resets the cache. Called between runs so no state leaks across.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string][]contracts.Bar)
}

// history returns the symbol's normalized bars for the padded run
// window, fetching and memoizing on first use.
func (s *Store) history(ctx context.Context, symbol string) []contracts.Bar {
	s.mu.RLock()
	bars, ok := s.cache[symbol]
	s.mu.RUnlock()
	if ok {
		return bars
	}

	fetched, err := s.provider.Fetch(ctx, symbol, s.start.AddDate(0, 0, -fetchPadDays), s.end)
	if err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("bar fetch failed, symbol excluded")
		fetched = nil
	}
	fetched = normalizeBars(fetched)

	s.mu.Lock()
	// Another goroutine may have filled the entry while we fetched;
	// first write wins so repeated reads stay consistent.
	if cached, ok := s.cache[symbol]; ok {
		s.mu.Unlock()
		return cached
	}
	s.cache[symbol] = fetched
	s.mu.Unlock()

	return fetched
}

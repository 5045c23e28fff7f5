package marketdata

import (
	"context"
	"sort"
	"time"

	"github.com/wonny/sycamore/internal/contracts"
)

// Provider fetches raw daily bars for one symbol, ascending by date.
// A symbol with no data in the range returns an empty slice, not an
// error; errors are reserved for transport failures.
type Provider interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time) ([]contracts.Bar, error)
}

// StaticProvider serves bars from memory. Used by tests and offline runs.
type StaticProvider struct {
	bars map[string][]contracts.Bar
}

// NewStaticProvider creates a provider over a fixed per-symbol dataset.
// Bars are sorted ascending by date once at construction.
func NewStaticProvider(bars map[string][]contracts.Bar) *StaticProvider {
	for _, bs := range bars {
		sort.Slice(bs, func(i, j int) bool { return bs[i].Date.Before(bs[j].Date) })
	}
	return &StaticProvider{bars: bars}
}

// Fetch returns the symbol's bars within [start, end].
func (p *StaticProvider) Fetch(_ context.Context, symbol string, start, end time.Time) ([]contracts.Bar, error) {
	var out []contracts.Bar
	for _, b := range p.bars[symbol] {
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// Symbols returns every symbol the provider knows, sorted.
func (p *StaticProvider) Symbols(_ context.Context) ([]string, error) {
	syms := make([]string, 0, len(p.bars))
	for s := range p.bars {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	return syms, nil
}

// normalizeBars resolves optional-column fallbacks once at ingestion so
// screening never re-resolves them per call:
//   - turnover rate: standard rate first, free-float rate second
//   - market cap: provider value first; otherwise estimated from
//     turnover_amount / (turnover_rate/100) and marked derived, since
//     the approximation error is unbounded
func normalizeBars(bars []contracts.Bar) []contracts.Bar {
	for i := range bars {
		b := &bars[i]
		if b.TurnoverRate == 0 && b.FreeTurnoverRate != 0 {
			b.TurnoverRate = b.FreeTurnoverRate
		}
		if b.MarketCap == 0 && b.TurnoverRate > 0 && b.TurnoverAmount > 0 {
			b.MarketCap = b.TurnoverAmount / (b.TurnoverRate / 100.0)
			b.MarketCapDerived = true
		}
	}
	return bars
}

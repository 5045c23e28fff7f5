// Package screening ranks daily stock candidates through the
// nine-criterion filter chain.
package screening

import (
	"context"
	"sort"
	"time"

	"github.com/wonny/sycamore/internal/contracts"
	"github.com/wonny/sycamore/internal/indicators"
	"github.com/wonny/sycamore/internal/strategy"
	"github.com/wonny/sycamore/pkg/logger"
)

// Names of the criteria, in evaluation order. A filtered outcome
// carries the first one that rejected.
const (
	CriterionGain             = "gain"
	CriterionVolumeRatio      = "volume_ratio"
	CriterionTurnover         = "turnover"
	CriterionMarketCap        = "market_cap"
	CriterionVolumeStability  = "volume_stability"
	CriterionMATrend          = "ma_trend"
	CriterionRelativeStrength = "relative_strength"
	CriterionNewHigh          = "new_high"
	CriterionAboveMA          = "above_ma"
)

// Screener applies the filter chain plus the market-cap tie-break.
type Screener struct {
	cfg    strategy.Config
	logger *logger.Logger
}

// Result is one day's screen: the capped, ordered candidate list plus
// the tagged per-symbol outcomes behind it.
type Result struct {
	Selected []string
	Outcomes []contracts.ScreenOutcome
}

// NewScreener creates a new screener
func NewScreener(cfg strategy.Config, log *logger.Logger) *Screener {
	return &Screener{
		cfg:    cfg,
		logger: log,
	}
}

// Screen evaluates every symbol's trailing window against the criteria.
// Identical input yields identical ordered output: symbols are visited
// in sorted order and the overflow tie-break is market cap descending,
// then symbol ascending. A per-symbol data fault excludes that symbol
// only; it never aborts the day.
func (s *Screener) Screen(ctx context.Context, date time.Time, data map[string][]contracts.Bar, benchmarkReturn float64) Result {
	symbols := make([]string, 0, len(data))
	for sym := range data {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	res := Result{}
	filtered := make(map[string]int)
	type candidate struct {
		symbol    string
		marketCap float64
	}
	var candidates []candidate

	for _, sym := range symbols {
		bars := data[sym]
		criterion, err := s.check(bars, benchmarkReturn)
		switch {
		case err != nil:
			res.Outcomes = append(res.Outcomes, contracts.ScreenOutcome{
				Symbol: sym, Status: contracts.ScreenDataError, Err: err,
			})
			s.logger.WithError(err).WithFields(map[string]interface{}{
				"symbol": sym,
				"date":   date.Format("2006-01-02"),
			}).Warn("symbol excluded from screen")
		case criterion != "":
			filtered[criterion]++
			res.Outcomes = append(res.Outcomes, contracts.ScreenOutcome{
				Symbol: sym, Status: contracts.ScreenFiltered, Criterion: criterion,
			})
		default:
			candidates = append(candidates, candidate{
				symbol:    sym,
				marketCap: bars[len(bars)-1].MarketCap,
			})
			res.Outcomes = append(res.Outcomes, contracts.ScreenOutcome{
				Symbol: sym, Status: contracts.ScreenSelected,
			})
		}
	}

	// Overflow is capped by market cap descending. This is a
	// reproducible tie-break, not a quality ranking.
	if len(candidates) > s.cfg.MaxStocks {
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].marketCap != candidates[j].marketCap {
				return candidates[i].marketCap > candidates[j].marketCap
			}
			return candidates[i].symbol < candidates[j].symbol
		})
		candidates = candidates[:s.cfg.MaxStocks]
	}
	for _, c := range candidates {
		res.Selected = append(res.Selected, c.symbol)
	}

	s.logger.WithFields(map[string]interface{}{
		"date":     date.Format("2006-01-02"),
		"universe": len(data),
		"selected": len(res.Selected),
		"filters":  filtered,
	}).Debug("screening completed")

	return res
}

// check runs the criteria in order against the window's last bar.
// Returns the name of the first criterion that rejected, "" when all
// pass, or an error for insufficient history or malformed data.
func (s *Screener) check(bars []contracts.Bar, benchmarkReturn float64) (string, error) {
	snap, err := indicators.Compute(bars, s.cfg.MAShort, s.cfg.MALong)
	if err != nil {
		return "", err
	}
	latest := bars[len(bars)-1]

	// 1. Daily percent change within the gain band, bounds inclusive.
	if latest.PctChange < s.cfg.GainRange[0] || latest.PctChange > s.cfg.GainRange[1] {
		return CriterionGain, nil
	}

	// 2. Volume ratio floor.
	if snap.VolumeRatio < s.cfg.VolumeRatioMin {
		return CriterionVolumeRatio, nil
	}

	// 3. Turnover rate band, bounds inclusive. The free-float fallback
	// was already resolved into TurnoverRate at ingestion.
	if latest.TurnoverRate < s.cfg.TurnoverRateRange[0] || latest.TurnoverRate > s.cfg.TurnoverRateRange[1] {
		return CriterionTurnover, nil
	}

	// 4. Market capitalization band.
	if latest.MarketCap < s.cfg.MarketCapRange[0] || latest.MarketCap > s.cfg.MarketCapRange[1] {
		return CriterionMarketCap, nil
	}

	// 5. Volume stability ceiling.
	if snap.VolumeStability > 1.0 {
		return CriterionVolumeStability, nil
	}

	// 6. Both moving averages trending up.
	if !snap.MAShortUp || !snap.MALongUp {
		return CriterionMATrend, nil
	}

	// 7. Stronger than the benchmark, strictly.
	if latest.PctChange <= benchmarkReturn {
		return CriterionRelativeStrength, nil
	}

	// 8. New high over the trailing window.
	if !snap.IsNewHigh {
		return CriterionNewHigh, nil
	}

	// 9. Close holding above the short average.
	if latest.Close < snap.MAShort {
		return CriterionAboveMA, nil
	}

	return "", nil
}

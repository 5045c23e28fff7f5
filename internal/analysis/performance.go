// Package analysis post-processes a recorded equity curve into return
// and risk statistics. Pure functions: nothing here touches the
// simulation state.
package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/wonny/sycamore/internal/contracts"
)

// tradingDaysPerYear annualizes daily statistics.
const tradingDaysPerYear = 252

// Report holds the performance statistics of one run.
type Report struct {
	TradingDays      int       `json:"trading_days"`
	FinalValue       float64   `json:"final_value"`
	TotalReturn      float64   `json:"total_return"`      // fraction, 0.10 = +10%
	AnnualizedReturn float64   `json:"annualized_return"` // fraction per year
	DailyReturns     []float64 `json:"daily_returns"`
	Sharpe           float64   `json:"sharpe"`
	MaxDrawdown      float64   `json:"max_drawdown"` // fraction, 0 or negative
	WinRate          float64   `json:"win_rate"`     // over trades with realized P&L
	TotalSells       int       `json:"total_sells"`
	WinningSells     int       `json:"winning_sells"`
	LosingSells      int       `json:"losing_sells"`
}

// Analyze computes the report from the ordered daily records and the
// trade log. A single-day series yields zero statistics, never NaN or a
// division error.
func Analyze(records []contracts.DailyRecord, trades []contracts.Trade) Report {
	r := Report{TradingDays: len(records)}
	if len(records) == 0 {
		return r
	}

	last := records[len(records)-1]
	r.FinalValue = last.PortfolioValue
	r.TotalReturn = last.CumulativeReturnPct / 100

	years := float64(len(records)) / tradingDaysPerYear
	if years > 0 {
		r.AnnualizedReturn = r.TotalReturn / years
	}

	r.DailyReturns = dailyReturns(records)
	r.Sharpe = sharpe(r.DailyReturns)
	r.MaxDrawdown = maxDrawdown(records)

	for _, t := range trades {
		if t.Action != contracts.TradeActionSell {
			continue
		}
		r.TotalSells++
		switch {
		case t.RealizedPnL > 0:
			r.WinningSells++
		case t.RealizedPnL < 0:
			r.LosingSells++
		}
	}
	if r.TotalSells > 0 {
		r.WinRate = float64(r.WinningSells) / float64(r.TotalSells)
	}

	return r
}

func dailyReturns(records []contracts.DailyRecord) []float64 {
	if len(records) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(records)-1)
	for i := 1; i < len(records); i++ {
		prev := records[i-1].PortfolioValue
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (records[i].PortfolioValue-prev)/prev)
	}
	return returns
}

// sharpe is mean/stdev of daily returns scaled by sqrt(252), with a 0%
// risk-free rate. Too few returns or zero variance yields 0.
func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, v := range returns {
		mean += v
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, v := range returns {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(returns))

	stdev := math.Sqrt(variance)
	if stdev == 0 {
		return 0
	}
	return mean / stdev * math.Sqrt(tradingDaysPerYear)
}

// maxDrawdown is the minimum over the series of
// (value - runningMax) / runningMax, so it is 0 or negative.
func maxDrawdown(records []contracts.DailyRecord) float64 {
	if len(records) == 0 {
		return 0
	}

	minDrawdown := 0.0
	peak := records[0].PortfolioValue
	for _, rec := range records {
		if rec.PortfolioValue > peak {
			peak = rec.PortfolioValue
		}
		if peak <= 0 {
			continue
		}
		dd := (rec.PortfolioValue - peak) / peak
		if dd < minDrawdown {
			minDrawdown = dd
		}
	}
	return minDrawdown
}

// FormatReport renders the plain-text performance summary.
func FormatReport(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Performance Report\n")
	fmt.Fprintf(&b, "==================\n")
	fmt.Fprintf(&b, "Trading days:      %d\n", r.TradingDays)
	fmt.Fprintf(&b, "Final value:       %.2f\n", r.FinalValue)
	fmt.Fprintf(&b, "Total return:      %.2f%%\n", r.TotalReturn*100)
	fmt.Fprintf(&b, "Annualized return: %.2f%%\n", r.AnnualizedReturn*100)
	fmt.Fprintf(&b, "Sharpe ratio:      %.2f\n", r.Sharpe)
	fmt.Fprintf(&b, "Max drawdown:      %.2f%%\n", r.MaxDrawdown*100)
	fmt.Fprintf(&b, "Win rate:          %.2f%% (%d/%d sells)\n",
		r.WinRate*100, r.WinningSells, r.TotalSells)
	return b.String()
}

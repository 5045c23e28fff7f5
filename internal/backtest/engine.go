// Package backtest drives the walk-forward simulation: one pass over
// the trading calendar, no backtracking, using only information
// available up to each day.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/sycamore/internal/contracts"
	"github.com/wonny/sycamore/internal/indicators"
	"github.com/wonny/sycamore/internal/marketdata"
	"github.com/wonny/sycamore/internal/portfolio"
	"github.com/wonny/sycamore/internal/screening"
	"github.com/wonny/sycamore/internal/strategy"
	"github.com/wonny/sycamore/pkg/logger"
)

// defaultLookbackDays is the per-symbol window loaded each day. It must
// cover the indicator history requirement with headroom.
const defaultLookbackDays = 100

// Config holds one run's parameters.
type Config struct {
	Start        time.Time
	End          time.Time
	Universe     []string // tracked symbols
	LookbackDays int      // bars per snapshot window; 0 means default
	Strategy     strategy.Config
}

// Result is the recorded outcome of one run.
type Result struct {
	StartDate time.Time
	EndDate   time.Time
	Duration  time.Duration
	Records   []contracts.DailyRecord
	Trades    []contracts.Trade
}

// Engine replays the strategy day by day against historical bars.
// Historical fills are instantaneous at the day's close and settle
// directly against the ledger; no orders are involved.
type Engine struct {
	store    *marketdata.Store
	screener *screening.Screener
	logger   *logger.Logger
}

// NewEngine creates a new walk-forward engine.
func NewEngine(store *marketdata.Store, screener *screening.Screener, log *logger.Logger) *Engine {
	return &Engine{
		store:    store,
		screener: screener,
		logger:   log,
	}
}

// Run executes the simulation over the trading calendar. The loop halts
// only on an unrecoverable input error (an empty calendar), reporting
// failure with zero records; per-symbol faults degrade that symbol to
// absent for the day.
func (e *Engine) Run(ctx context.Context, cfg Config) (*Result, error) {
	lookback := cfg.LookbackDays
	if lookback <= 0 {
		lookback = defaultLookbackDays
	}

	calendar, err := e.store.TradingCalendar(ctx, cfg.Start, cfg.End)
	if err != nil {
		if errors.Is(err, marketdata.ErrEmptyCalendar) {
			return nil, fmt.Errorf("backtest %s..%s: %w",
				cfg.Start.Format("2006-01-02"), cfg.End.Format("2006-01-02"), err)
		}
		return nil, err
	}

	e.logger.WithFields(map[string]interface{}{
		"start":           cfg.Start.Format("2006-01-02"),
		"end":             cfg.End.Format("2006-01-02"),
		"trading_days":    len(calendar),
		"universe":        len(cfg.Universe),
		"initial_capital": cfg.Strategy.InitialCapital,
	}).Info("starting backtest")

	startTime := time.Now()
	ledger := portfolio.NewLedger(cfg.Strategy.InitialCapital, e.logger)
	result := &Result{
		StartDate: calendar[0],
		EndDate:   calendar[len(calendar)-1],
	}

	for _, date := range calendar {
		snapshot := e.loadSnapshot(ctx, cfg, date, lookback)
		if len(snapshot) == 0 {
			e.logger.WithField("date", date.Format("2006-01-02")).Warn("no data for trading day")
			continue
		}

		benchReturn := e.store.BenchmarkReturn(ctx, date)
		screened := e.screener.Screen(ctx, date, snapshot, benchReturn)

		prices := latestCloses(snapshot)
		e.rebalance(date, screened.Selected, prices, ledger, cfg.Strategy)

		record := ledger.MarkToMarket(date, prices, benchReturn)
		record.SelectedCount = len(screened.Selected)
		result.Records = append(result.Records, record)
	}

	result.Trades = ledger.Trades()
	result.Duration = time.Since(startTime)

	e.logger.WithFields(map[string]interface{}{
		"trading_days": len(result.Records),
		"trades":       len(result.Trades),
		"duration_s":   result.Duration.Seconds(),
	}).Info("backtest completed")

	return result, nil
}

// loadSnapshot loads every tracked symbol's trailing window ending at
// date. Symbols without enough history for the indicators are silently
// dropped for this date only.
func (e *Engine) loadSnapshot(ctx context.Context, cfg Config, date time.Time, lookback int) map[string][]contracts.Bar {
	required := indicators.RequiredBars(cfg.Strategy.MALong)

	snapshot := make(map[string][]contracts.Bar)
	for _, sym := range cfg.Universe {
		bars := e.store.Get(ctx, sym, date, lookback)
		if len(bars) < required {
			continue
		}
		snapshot[sym] = bars
	}
	return snapshot
}

// rebalance settles the day at closing prices: first fully liquidate
// any held symbol that lost its signal, then size new buys off the
// already-settled total value. A day with only partial portfolio
// construction is expected, not an error.
func (e *Engine) rebalance(date time.Time, selected []string, prices map[string]float64, ledger *portfolio.Ledger, cfg strategy.Config) {
	inSelection := make(map[string]bool, len(selected))
	for _, sym := range selected {
		inSelection[sym] = true
	}

	held := ledger.Positions()
	heldSyms := make([]string, 0, len(held))
	for sym := range held {
		heldSyms = append(heldSyms, sym)
	}
	sort.Strings(heldSyms)

	for _, sym := range heldSyms {
		if inSelection[sym] {
			continue
		}
		price, ok := prices[sym]
		if !ok || price <= 0 {
			// No quote today; the position is held until one appears.
			continue
		}
		if _, err := ledger.Sell(date, sym, held[sym].Quantity, price, cfg.CommissionRate); err != nil {
			e.logger.WithError(err).WithFields(map[string]interface{}{
				"symbol": sym,
				"date":   date.Format("2006-01-02"),
			}).Warn("liquidation rejected")
		}
	}

	// Position sizing depends on the day's already-settled total value.
	targetNotional := ledger.TotalValue(prices) * cfg.PositionFraction

	for _, sym := range selected {
		if _, ok := ledger.Position(sym); ok {
			continue
		}
		price, ok := prices[sym]
		if !ok || price <= 0 {
			continue
		}
		qty := SizeOrder(targetNotional, price, cfg.LotSize)
		if qty < cfg.LotSize {
			continue
		}
		if _, err := ledger.Buy(date, sym, qty, price, cfg.CommissionRate); err != nil {
			// Insufficient funds late in the day's construction; skip.
			continue
		}
	}
}

// SizeOrder converts a target notional into whole board lots:
// floor(notional / price / lotSize) × lotSize. Never rounds up.
func SizeOrder(targetNotional, price float64, lotSize int64) int64 {
	if price <= 0 || lotSize <= 0 || targetNotional <= 0 {
		return 0
	}
	lots := int64(targetNotional / price / float64(lotSize))
	return lots * lotSize
}

// latestCloses maps each snapshot symbol to its last close, held or not.
func latestCloses(snapshot map[string][]contracts.Bar) map[string]float64 {
	prices := make(map[string]float64, len(snapshot))
	for sym, bars := range snapshot {
		prices[sym] = bars[len(bars)-1].Close
	}
	return prices
}

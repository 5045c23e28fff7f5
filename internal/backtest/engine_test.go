package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sycamore/internal/contracts"
	"github.com/wonny/sycamore/internal/marketdata"
	"github.com/wonny/sycamore/internal/screening"
	"github.com/wonny/sycamore/internal/strategy"
	"github.com/wonny/sycamore/pkg/logger"
)

func TestSizeOrder(t *testing.T) {
	tests := []struct {
		name     string
		notional float64
		price    float64
		lot      int64
		want     int64
	}{
		{"exact lots", 1_000_000, 20.00, 100, 50_000},
		{"floors partial lot", 100_000, 33.33, 100, 3000},
		{"below one lot", 1999, 20.00, 100, 0},
		{"one lot exactly", 2000, 20.00, 100, 100},
		{"zero price", 100_000, 0, 100, 0},
		{"zero notional", 0, 20.00, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SizeOrder(tt.notional, tt.price, tt.lot); got != tt.want {
				t.Errorf("SizeOrder(%.2f, %.2f, %d) = %d, want %d",
					tt.notional, tt.price, tt.lot, got, tt.want)
			}
		})
	}
}

// dayOverride drives the synthetic bar builder: rising closes through
// history so trend criteria pass, then explicit values for the run days.
type dayOverride struct {
	close     float64
	pctChange float64
}

// buildSeries returns bars for one symbol: 70 history bars of rising
// closes, then one bar per override. Dates are consecutive from base.
func buildSeries(symbol string, base time.Time, overrides []dayOverride) []contracts.Bar {
	bars := make([]contracts.Bar, 0, 70+len(overrides))
	for i := 0; i < 70; i++ {
		c := 15 + 0.07*float64(i)
		bars = append(bars, contracts.Bar{
			Symbol:       symbol,
			Date:         base.AddDate(0, 0, i),
			Open:         c,
			High:         c + 0.1,
			Low:          c - 0.1,
			Close:        c,
			Volume:       1e6,
			TurnoverRate: 7.0,
			MarketCap:    1e10,
			PctChange:    0.5,
		})
	}
	for i, ov := range overrides {
		bars = append(bars, contracts.Bar{
			Symbol:       symbol,
			Date:         base.AddDate(0, 0, 70+i),
			Open:         ov.close,
			High:         ov.close + 0.1,
			Low:          ov.close - 0.1,
			Close:        ov.close,
			Volume:       2e6,
			TurnoverRate: 7.0,
			MarketCap:    1e10,
			PctChange:    ov.pctChange,
		})
	}
	return bars
}

// benchmarkSeries mirrors the stock's dates so the calendar has every day.
func benchmarkSeries(base time.Time, days int) []contracts.Bar {
	bars := make([]contracts.Bar, days)
	for i := range bars {
		bars[i] = contracts.Bar{
			Symbol:    "000001.SH",
			Date:      base.AddDate(0, 0, i),
			Open:      3000,
			High:      3010,
			Low:       2990,
			Close:     3000,
			Volume:    1e9,
			PctChange: 0.5,
		}
	}
	return bars
}

func TestEngine_Run(t *testing.T) {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	day1 := base.AddDate(0, 0, 70)
	day2 := base.AddDate(0, 0, 71)

	// Day 1 the symbol passes the screen at 20.00; day 2 its gain
	// falls out of band, forcing liquidation at 21.00.
	stock := buildSeries("600000.SH", base, []dayOverride{
		{close: 20.00, pctChange: 4.0},
		{close: 21.00, pctChange: 0.5},
	})
	provider := marketdata.NewStaticProvider(map[string][]contracts.Bar{
		"600000.SH": stock,
		"000001.SH": benchmarkSeries(base, 72),
	})

	cfg := strategy.Default()
	log := logger.Nop()
	store := marketdata.NewStore(provider, cfg.Benchmark, day1, day2, log)
	engine := NewEngine(store, screening.NewScreener(cfg, log), log)

	result, err := engine.Run(context.Background(), Config{
		Start:    day1,
		End:      day2,
		Universe: []string{"600000.SH"},
		Strategy: cfg,
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	require.Len(t, result.Trades, 2)

	// Day 1: one position, sized to one tenth of total value in
	// whole lots. 1,000,000 / 20.00 = 50,000 shares; commission
	// 1,500 at 15 bps.
	buy := result.Trades[0]
	assert.Equal(t, contracts.TradeActionBuy, buy.Action)
	assert.Equal(t, int64(50_000), buy.Quantity)
	assert.InDelta(t, 1500.0, buy.Commission, 1e-6)

	rec1 := result.Records[0]
	assert.Equal(t, 1, rec1.NumPositions)
	assert.Equal(t, 1, rec1.SelectedCount)
	assert.InDelta(t, 8_998_500.0, rec1.Cash, 1e-6)
	assert.InDelta(t, 9_998_500.0, rec1.PortfolioValue, 1e-6)

	// Day 2: signal lost, full liquidation at the close.
	sell := result.Trades[1]
	assert.Equal(t, contracts.TradeActionSell, sell.Action)
	assert.Equal(t, int64(50_000), sell.Quantity)
	assert.InDelta(t, 21.00, sell.Price, 1e-9)

	rec2 := result.Records[1]
	assert.Equal(t, 0, rec2.NumPositions)
	assert.Equal(t, 0, rec2.SelectedCount)
	// 8,998,500 + 50,000×21.00 − 1,575 commission.
	assert.InDelta(t, 10_046_925.0, rec2.PortfolioValue, 1e-6)
	assert.InDelta(t, rec2.Cash, rec2.PortfolioValue, 1e-6)
}

func TestEngine_EmptyCalendarFatal(t *testing.T) {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	provider := marketdata.NewStaticProvider(map[string][]contracts.Bar{
		"600000.SH": buildSeries("600000.SH", base, nil),
		// No benchmark bars at all.
	})

	cfg := strategy.Default()
	log := logger.Nop()
	start := base.AddDate(0, 0, 70)
	store := marketdata.NewStore(provider, cfg.Benchmark, start, start, log)
	engine := NewEngine(store, screening.NewScreener(cfg, log), log)

	result, err := engine.Run(context.Background(), Config{
		Start:    start,
		End:      start,
		Universe: []string{"600000.SH"},
		Strategy: cfg,
	})
	require.ErrorIs(t, err, marketdata.ErrEmptyCalendar)
	assert.Nil(t, result)
}

func TestEngine_InsufficientHistorySkipsDay(t *testing.T) {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	day1 := base.AddDate(0, 0, 30)

	// Only 31 bars of history: below the indicator requirement, so the
	// day produces no snapshot and no record.
	short := buildSeries("600000.SH", base, nil)[:31]
	provider := marketdata.NewStaticProvider(map[string][]contracts.Bar{
		"600000.SH": short,
		"000001.SH": benchmarkSeries(base, 31),
	})

	cfg := strategy.Default()
	log := logger.Nop()
	store := marketdata.NewStore(provider, cfg.Benchmark, day1, day1, log)
	engine := NewEngine(store, screening.NewScreener(cfg, log), log)

	result, err := engine.Run(context.Background(), Config{
		Start:    day1,
		End:      day1,
		Universe: []string{"600000.SH"},
		Strategy: cfg,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Empty(t, result.Trades)
}

func TestEngine_HoldsThroughContinuedSignal(t *testing.T) {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	day1 := base.AddDate(0, 0, 70)
	day2 := base.AddDate(0, 0, 71)

	// The signal persists on day 2: no churn, still one position.
	stock := buildSeries("600000.SH", base, []dayOverride{
		{close: 20.00, pctChange: 4.0},
		{close: 20.80, pctChange: 4.0},
	})
	provider := marketdata.NewStaticProvider(map[string][]contracts.Bar{
		"600000.SH": stock,
		"000001.SH": benchmarkSeries(base, 72),
	})

	cfg := strategy.Default()
	log := logger.Nop()
	store := marketdata.NewStore(provider, cfg.Benchmark, day1, day2, log)
	engine := NewEngine(store, screening.NewScreener(cfg, log), log)

	result, err := engine.Run(context.Background(), Config{
		Start:    day1,
		End:      day2,
		Universe: []string{"600000.SH"},
		Strategy: cfg,
	})
	require.NoError(t, err)
	require.Len(t, result.Trades, 1, "held position must not be rebought")

	rec2 := result.Records[1]
	assert.Equal(t, 1, rec2.NumPositions)
	// Marked at day 2's close.
	assert.InDelta(t, 8_998_500.0+50_000*20.80, rec2.PortfolioValue, 1e-6)
}

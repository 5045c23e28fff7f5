package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sycamore/pkg/logger"
)

const feeRate = 0.0015

var day = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func TestLedger_Buy(t *testing.T) {
	l := NewLedger(10_000_000, logger.Nop())

	trade, err := l.Buy(day, "600000.SH", 50_000, 20.00, feeRate)
	require.NoError(t, err)

	// Cash debited gross plus commission.
	assert.InDelta(t, 1500.0, trade.Commission, 1e-9)
	assert.InDelta(t, 8_998_500.0, l.Cash(), 1e-6)

	pos, ok := l.Position("600000.SH")
	require.True(t, ok)
	assert.Equal(t, int64(50_000), pos.Quantity)
	assert.InDelta(t, 1_001_500.0, pos.CostBasis, 1e-6)
	assert.InDelta(t, 20.03, pos.AveragePrice, 1e-9)
}

func TestLedger_BuyInsufficientCash(t *testing.T) {
	l := NewLedger(1000, logger.Nop())

	_, err := l.Buy(day, "600000.SH", 100, 20.00, feeRate)
	require.ErrorIs(t, err, ErrInsufficientCash)

	// Rejection leaves everything untouched.
	assert.Equal(t, 1000.0, l.Cash())
	assert.Empty(t, l.Positions())
	assert.Empty(t, l.Trades())
}

func TestLedger_BuyBadQuantity(t *testing.T) {
	l := NewLedger(10_000, logger.Nop())

	_, err := l.Buy(day, "600000.SH", 0, 20.00, feeRate)
	assert.ErrorIs(t, err, ErrBadQuantity)

	_, err = l.Buy(day, "600000.SH", 100, -1, feeRate)
	assert.ErrorIs(t, err, ErrBadQuantity)
}

func TestLedger_WeightedAverageCost(t *testing.T) {
	l := NewLedger(100_000, logger.Nop())

	_, err := l.Buy(day, "600000.SH", 100, 10.00, 0)
	require.NoError(t, err)
	_, err = l.Buy(day.AddDate(0, 0, 1), "600000.SH", 100, 20.00, 0)
	require.NoError(t, err)

	pos, ok := l.Position("600000.SH")
	require.True(t, ok)
	assert.Equal(t, int64(200), pos.Quantity)
	assert.InDelta(t, 15.00, pos.AveragePrice, 1e-9)
}

func TestLedger_SellRealizedPnL(t *testing.T) {
	l := NewLedger(100_000, logger.Nop())

	_, err := l.Buy(day, "600000.SH", 1000, 10.00, 0)
	require.NoError(t, err)

	trade, err := l.Sell(day.AddDate(0, 0, 5), "600000.SH", 1000, 12.00, 0)
	require.NoError(t, err)

	assert.InDelta(t, 2000.0, trade.RealizedPnL, 1e-9)
	assert.InDelta(t, 102_000.0, l.Cash(), 1e-6)

	// Fully sold positions disappear.
	_, ok := l.Position("600000.SH")
	assert.False(t, ok)
}

func TestLedger_PartialSellReleasesProportionalCost(t *testing.T) {
	l := NewLedger(100_000, logger.Nop())

	_, err := l.Buy(day, "600000.SH", 1000, 10.00, feeRate)
	require.NoError(t, err)

	_, err = l.Sell(day.AddDate(0, 0, 1), "600000.SH", 400, 11.00, feeRate)
	require.NoError(t, err)

	pos, ok := l.Position("600000.SH")
	require.True(t, ok)
	assert.Equal(t, int64(600), pos.Quantity)
	// 60% of the original basis remains, average price unchanged.
	assert.InDelta(t, 10_015.0*0.6, pos.CostBasis, 1e-6)
	assert.InDelta(t, 10.015, pos.AveragePrice, 1e-9)
}

func TestLedger_OversellRejected(t *testing.T) {
	l := NewLedger(100_000, logger.Nop())

	_, err := l.Buy(day, "600000.SH", 500, 10.00, 0)
	require.NoError(t, err)
	cashBefore := l.Cash()

	_, err = l.Sell(day, "600000.SH", 600, 10.00, 0)
	require.ErrorIs(t, err, ErrInsufficientShares)

	pos, _ := l.Position("600000.SH")
	assert.Equal(t, int64(500), pos.Quantity)
	assert.Equal(t, cashBefore, l.Cash())
	assert.Len(t, l.Trades(), 1)
}

func TestLedger_SellNoPosition(t *testing.T) {
	l := NewLedger(100_000, logger.Nop())

	_, err := l.Sell(day, "600000.SH", 100, 10.00, 0)
	assert.ErrorIs(t, err, ErrNoPosition)
}

func TestLedger_MarkToMarket(t *testing.T) {
	l := NewLedger(100_000, logger.Nop())

	_, err := l.Buy(day, "600000.SH", 1000, 10.00, 0)
	require.NoError(t, err)

	rec := l.MarkToMarket(day, map[string]float64{"600000.SH": 12.00}, 0.3)

	assert.InDelta(t, 12_000.0, rec.StockValue, 1e-6)
	assert.InDelta(t, 102_000.0, rec.PortfolioValue, 1e-6)
	assert.Equal(t, 1, rec.NumPositions)
	assert.InDelta(t, 2.0, rec.CumulativeReturnPct, 1e-9)
	assert.Equal(t, 0.3, rec.BenchmarkReturn)

	// Read-only: marking twice changes nothing.
	again := l.MarkToMarket(day, map[string]float64{"600000.SH": 12.00}, 0.3)
	assert.Equal(t, rec.PortfolioValue, again.PortfolioValue)
	assert.Equal(t, rec.Cash, again.Cash)
}

func TestLedger_MarkToMarketMissingQuote(t *testing.T) {
	l := NewLedger(100_000, logger.Nop())

	_, err := l.Buy(day, "600000.SH", 1000, 10.00, 0)
	require.NoError(t, err)

	// No quote today: the position is carried at its average price.
	rec := l.MarkToMarket(day, nil, 0)
	assert.InDelta(t, 10_000.0, rec.StockValue, 1e-6)
	assert.InDelta(t, 100_000.0, rec.PortfolioValue, 1e-6)
}

func TestLedger_ValueConsistency(t *testing.T) {
	// Cash plus stock value always equals total value, through a
	// buy/sell sequence with fees.
	l := NewLedger(1_000_000, logger.Nop())
	prices := map[string]float64{"600000.SH": 10.00, "600001.SH": 25.00}

	_, err := l.Buy(day, "600000.SH", 5000, 10.00, feeRate)
	require.NoError(t, err)
	_, err = l.Buy(day, "600001.SH", 2000, 25.00, feeRate)
	require.NoError(t, err)
	_, err = l.Sell(day, "600000.SH", 2000, 10.00, feeRate)
	require.NoError(t, err)

	rec := l.MarkToMarket(day, prices, 0)
	assert.InDelta(t, rec.Cash+rec.StockValue, rec.PortfolioValue, 1e-9)
	assert.InDelta(t, l.TotalValue(prices), rec.PortfolioValue, 1e-9)
	assert.GreaterOrEqual(t, l.Cash(), 0.0)
}

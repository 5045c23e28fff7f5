// Package portfolio is the single source of truth for cash, positions,
// and the trade log. The historical loop calls it directly; paper
// trading routes through orders. Fee, rounding, and rejection rules are
// defined here exactly once.
package portfolio

import (
	"errors"
	"sync"
	"time"

	"github.com/wonny/sycamore/internal/contracts"
	"github.com/wonny/sycamore/pkg/logger"
)

// Rejections surfaced to callers as values. None of them mutate state.
var (
	ErrBadQuantity        = errors.New("portfolio: quantity and price must be positive")
	ErrInsufficientCash   = errors.New("portfolio: insufficient cash")
	ErrNoPosition         = errors.New("portfolio: no position to sell")
	ErrInsufficientShares = errors.New("portfolio: sell quantity exceeds holdings")
)

// Position is a holding exclusively owned by the ledger: created on
// first buy, deleted when quantity reaches zero.
type Position struct {
	Symbol       string  `json:"symbol"`
	Quantity     int64   `json:"quantity"`
	CostBasis    float64 `json:"cost_basis"` // total cost including commission
	AveragePrice float64 `json:"average_price"`
}

// Ledger tracks cash, positions, and the append-only trade log. Every
// mutation is a single critical section: a concurrent reader never
// observes a half-applied buy or sell.
type Ledger struct {
	mu             sync.Mutex
	initialCapital float64
	cash           float64
	positions      map[string]*Position
	trades         []contracts.Trade
	logger         *logger.Logger
}

// NewLedger creates a ledger funded with initialCapital.
func NewLedger(initialCapital float64, log *logger.Logger) *Ledger {
	return &Ledger{
		initialCapital: initialCapital,
		cash:           initialCapital,
		positions:      make(map[string]*Position),
		logger:         log,
	}
}

// Buy debits cash for quantity×price plus commission and merges the
// shares into the position at weighted-average cost. Rejected with
// ErrInsufficientCash when the debit would leave cash negative.
func (l *Ledger) Buy(date time.Time, symbol string, quantity int64, price, feeRate float64) (contracts.Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if quantity <= 0 || price <= 0 {
		return contracts.Trade{}, ErrBadQuantity
	}

	gross := float64(quantity) * price
	commission := gross * feeRate
	cost := gross + commission
	if l.cash < cost {
		return contracts.Trade{}, ErrInsufficientCash
	}

	l.cash -= cost

	pos, ok := l.positions[symbol]
	if !ok {
		pos = &Position{Symbol: symbol}
		l.positions[symbol] = pos
	}
	pos.Quantity += quantity
	pos.CostBasis += cost
	pos.AveragePrice = pos.CostBasis / float64(pos.Quantity)

	trade := contracts.Trade{
		Date:       date,
		Symbol:     symbol,
		Action:     contracts.TradeActionBuy,
		Price:      price,
		Quantity:   quantity,
		Commission: commission,
		Amount:     cost,
	}
	l.trades = append(l.trades, trade)

	return trade, nil
}

// Sell credits cash with quantity×price net of commission, releases the
// proportional cost basis, and records the realized P&L. Rejected when
// the position is missing or quantity exceeds holdings.
func (l *Ledger) Sell(date time.Time, symbol string, quantity int64, price, feeRate float64) (contracts.Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if quantity <= 0 || price <= 0 {
		return contracts.Trade{}, ErrBadQuantity
	}

	pos, ok := l.positions[symbol]
	if !ok {
		return contracts.Trade{}, ErrNoPosition
	}
	if quantity > pos.Quantity {
		return contracts.Trade{}, ErrInsufficientShares
	}

	gross := float64(quantity) * price
	commission := gross * feeRate
	proceeds := gross - commission
	costReleased := pos.CostBasis * float64(quantity) / float64(pos.Quantity)

	l.cash += proceeds
	pos.Quantity -= quantity
	pos.CostBasis -= costReleased
	if pos.Quantity == 0 {
		delete(l.positions, symbol)
	} else {
		pos.AveragePrice = pos.CostBasis / float64(pos.Quantity)
	}

	trade := contracts.Trade{
		Date:        date,
		Symbol:      symbol,
		Action:      contracts.TradeActionSell,
		Price:       price,
		Quantity:    quantity,
		Commission:  commission,
		Amount:      proceeds,
		RealizedPnL: proceeds - costReleased,
	}
	l.trades = append(l.trades, trade)

	return trade, nil
}

// MarkToMarket produces the day's immutable snapshot. Read-only: the
// ledger is never mutated here. Positions without a quote fall back to
// their average price as the last-known value.
func (l *Ledger) MarkToMarket(date time.Time, prices map[string]float64, benchmarkReturn float64) contracts.DailyRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	stockValue := l.stockValueLocked(prices)
	total := l.cash + stockValue

	return contracts.DailyRecord{
		Date:                date,
		PortfolioValue:      total,
		Cash:                l.cash,
		StockValue:          stockValue,
		NumPositions:        len(l.positions),
		BenchmarkReturn:     benchmarkReturn,
		CumulativeReturnPct: (total - l.initialCapital) / l.initialCapital * 100,
	}
}

// TotalValue is cash plus position market value at the given prices.
func (l *Ledger) TotalValue(prices map[string]float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash + l.stockValueLocked(prices)
}

func (l *Ledger) stockValueLocked(prices map[string]float64) float64 {
	value := 0.0
	for sym, pos := range l.positions {
		price, ok := prices[sym]
		if !ok {
			price = pos.AveragePrice
		}
		value += float64(pos.Quantity) * price
	}
	return value
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash
}

// InitialCapital returns the capital the ledger was funded with.
func (l *Ledger) InitialCapital() float64 {
	return l.initialCapital
}

// Position returns a copy of one holding.
func (l *Ledger) Position(symbol string) (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// Positions returns a copy of all holdings keyed by symbol.
func (l *Ledger) Positions() map[string]Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]Position, len(l.positions))
	for sym, pos := range l.positions {
		out[sym] = *pos
	}
	return out
}

// Trades returns a copy of the trade log in order.
func (l *Ledger) Trades() []contracts.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]contracts.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

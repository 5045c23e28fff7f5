package contracts

import "time"

// TradeAction represents the cash-moving direction of a trade.
type TradeAction string

const (
	TradeActionBuy  TradeAction = "buy"
	TradeActionSell TradeAction = "sell"
)

// Trade is one append-only entry in the trade log. Every accepted
// buy or sell produces exactly one.
type Trade struct {
	Date       time.Time   `json:"date"`
	Symbol     string      `json:"symbol"`
	Action     TradeAction `json:"action"`
	Price      float64     `json:"price"`
	Quantity   int64       `json:"quantity"`
	Commission float64     `json:"commission"`
	// Amount is the cash moved: debit including commission on a buy,
	// net credit after commission on a sell.
	Amount float64 `json:"amount"`
	// RealizedPnL is set on sells only: net proceeds minus the
	// proportional cost basis released.
	RealizedPnL float64 `json:"realized_pnl"`
}

// DailyRecord is the immutable end-of-day snapshot appended once per
// simulated day; the ordered sequence forms the equity curve.
type DailyRecord struct {
	Date                time.Time `json:"date"`
	PortfolioValue      float64   `json:"portfolio_value"`
	Cash                float64   `json:"cash"`
	StockValue          float64   `json:"stock_value"`
	NumPositions        int       `json:"num_positions"`
	SelectedCount       int       `json:"selected_count"`
	BenchmarkReturn     float64   `json:"benchmark_return"`
	CumulativeReturnPct float64   `json:"cumulative_return_pct"`
}

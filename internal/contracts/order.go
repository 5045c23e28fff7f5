package contracts

import "time"

// Order is a paper-trading order routed through the execution engine.
// Historical simulation bypasses orders entirely and settles against
// the ledger at the day's close.
type Order struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Symbol    string    `json:"symbol"`
	Side      OrderSide `json:"side"`
	Qty       int64     `json:"qty"`
	Price     float64   `json:"price"` // 0 for market orders
	OrderType OrderType `json:"order_type"`
	Status    Status    `json:"status"`

	// Commission and FilledPrice are stamped on fill; an order is
	// immutable once FILLED.
	Commission  float64    `json:"commission"`
	FilledPrice float64    `json:"filled_price"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	FilledAt    *time.Time `json:"filled_at,omitempty"`
}

// OrderSide represents buy or sell
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType represents market or limit order
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// Status represents order status
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSubmitted Status = "SUBMITTED"
	StatusFilled    Status = "FILLED"
	StatusCancelled Status = "CANCELLED"
	StatusRejected  Status = "REJECTED"
)

// Terminal reports whether the order can no longer change state.
func (s Status) Terminal() bool {
	return s == StatusFilled || s == StatusCancelled || s == StatusRejected
}

// IsMarketOrder checks if the order is a market order
func (o *Order) IsMarketOrder() bool {
	return o.OrderType == OrderTypeMarket
}

// IsFilled checks if the order is filled
func (o *Order) IsFilled() bool {
	return o.Status == StatusFilled
}

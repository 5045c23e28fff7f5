// Package papertrade is the live/paper order-execution engine: the
// same accounting rules as the historical simulation, but every fill
// is mediated by an explicit order so asynchronous fills and
// cancellations are representable. An external API layer maps its
// account/order endpoints 1:1 onto the operations here.
package papertrade

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/sycamore/internal/backtest"
	"github.com/wonny/sycamore/internal/contracts"
	"github.com/wonny/sycamore/internal/portfolio"
	"github.com/wonny/sycamore/internal/strategy"
	"github.com/wonny/sycamore/pkg/logger"
)

var (
	ErrNoAccount    = errors.New("papertrade: account not found")
	ErrUnknownOrder = errors.New("papertrade: unknown order")
	ErrOrderState   = errors.New("papertrade: invalid order state for operation")
	ErrRejected     = errors.New("papertrade: order rejected")
)

// account pairs an ID with its ledger. The ledger owns all cash and
// position state.
type account struct {
	id          string
	initialCash float64
	ledger      *portfolio.Ledger
	createdAt   time.Time
}

// AccountSnapshot is a consistent read-only view of one account.
type AccountSnapshot struct {
	AccountID   string                        `json:"account_id"`
	InitialCash float64                       `json:"initial_cash"`
	Cash        float64                       `json:"cash"`
	Positions   map[string]portfolio.Position `json:"positions"`
	TotalValue  float64                       `json:"total_value"`
	TotalPnL    float64                       `json:"total_pnl"`
	ReturnPct   float64                       `json:"return_pct"`
	TradeCount  int                           `json:"trade_count"`
	CreatedAt   time.Time                     `json:"created_at"`
}

// Engine manages paper-trading accounts and the order lifecycle
// PENDING → SUBMITTED → {FILLED, REJECTED, CANCELLED}. Safe for a
// submitting caller and an inspecting reader running concurrently.
type Engine struct {
	mu       sync.Mutex
	feeRate  float64
	accounts map[string]*account
	orders   map[string]*contracts.Order
	logger   *logger.Logger
}

// NewEngine creates a new paper-trading engine. feeRate is the flat
// commission rate applied to both sides of every fill.
func NewEngine(feeRate float64, log *logger.Logger) *Engine {
	return &Engine{
		feeRate:  feeRate,
		accounts: make(map[string]*account),
		orders:   make(map[string]*contracts.Order),
		logger:   log,
	}
}

// CreateAccount opens an account funded with initialCash. Creating an
// existing account returns it unchanged.
func (e *Engine) CreateAccount(id string, initialCash float64) AccountSnapshot {
	e.mu.Lock()
	acct, ok := e.accounts[id]
	if !ok {
		acct = &account{
			id:          id,
			initialCash: initialCash,
			ledger:      portfolio.NewLedger(initialCash, e.logger),
			createdAt:   time.Now(),
		}
		e.accounts[id] = acct
		e.logger.WithFields(map[string]interface{}{
			"account": id,
			"cash":    initialCash,
		}).Info("account created")
	}
	e.mu.Unlock()

	return e.snapshot(acct)
}

// Submit validates the order and moves it PENDING → SUBMITTED, or
// immediately REJECTED when the account is missing or a buy cannot be
// funded at the quoted price. The order is recorded either way.
func (e *Engine) Submit(order *contracts.Order) (contracts.Order, error) {
	return e.SubmitWithDeadline(order, nil)
}

// SubmitWithDeadline is Submit with an expiry: a still-SUBMITTED order
// past its deadline is auto-rejected by ExpireStale.
func (e *Engine) SubmitWithDeadline(order *contracts.Order, deadline *time.Time) (contracts.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	order.Status = contracts.StatusPending
	order.Deadline = deadline
	order.CreatedAt = now
	order.UpdatedAt = now
	e.orders[order.ID] = order

	acct, ok := e.accounts[order.AccountID]
	if !ok {
		order.Status = contracts.StatusRejected
		return *order, fmt.Errorf("%w: %s", ErrNoAccount, order.AccountID)
	}

	if order.Qty <= 0 {
		order.Status = contracts.StatusRejected
		return *order, fmt.Errorf("%w: bad quantity %d", ErrRejected, order.Qty)
	}

	// Buys are funds-checked at the quoted/limit price; a market order
	// without a quote is checked at fill time instead.
	if order.Side == contracts.OrderSideBuy && order.Price > 0 {
		required := float64(order.Qty) * order.Price * (1 + e.feeRate)
		if acct.ledger.Cash() < required {
			order.Status = contracts.StatusRejected
			return *order, fmt.Errorf("%w: insufficient cash for %s", ErrRejected, order.Symbol)
		}
	}

	order.Status = contracts.StatusSubmitted
	return *order, nil
}

// Execute fills a SUBMITTED order at fillPrice, applying the ledger's
// buy/sell rules. A ledger rejection leaves the account unchanged and
// moves the order to REJECTED.
func (e *Engine) Execute(orderID string, fillPrice float64) (contracts.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	if !ok {
		return contracts.Order{}, fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}
	if order.Status != contracts.StatusSubmitted {
		return *order, fmt.Errorf("%w: execute from %s", ErrOrderState, order.Status)
	}

	acct, ok := e.accounts[order.AccountID]
	if !ok {
		order.Status = contracts.StatusRejected
		order.UpdatedAt = time.Now()
		return *order, fmt.Errorf("%w: %s", ErrNoAccount, order.AccountID)
	}

	now := time.Now()
	var trade contracts.Trade
	var err error
	if order.Side == contracts.OrderSideBuy {
		trade, err = acct.ledger.Buy(now, order.Symbol, order.Qty, fillPrice, e.feeRate)
	} else {
		trade, err = acct.ledger.Sell(now, order.Symbol, order.Qty, fillPrice, e.feeRate)
	}
	if err != nil {
		order.Status = contracts.StatusRejected
		order.UpdatedAt = now
		return *order, fmt.Errorf("%w: %v", ErrRejected, err)
	}

	order.Status = contracts.StatusFilled
	order.FilledPrice = fillPrice
	order.Commission = trade.Commission
	order.FilledAt = &now
	order.UpdatedAt = now

	e.logger.WithFields(map[string]interface{}{
		"order":   order.ID,
		"account": order.AccountID,
		"symbol":  order.Symbol,
		"side":    order.Side,
		"qty":     order.Qty,
		"price":   fillPrice,
	}).Info("order filled")

	return *order, nil
}

// Cancel withdraws a PENDING or SUBMITTED order. No cash or position
// effect.
func (e *Engine) Cancel(orderID string) (contracts.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	if !ok {
		return contracts.Order{}, fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}
	if order.Status != contracts.StatusPending && order.Status != contracts.StatusSubmitted {
		return *order, fmt.Errorf("%w: cancel from %s", ErrOrderState, order.Status)
	}

	order.Status = contracts.StatusCancelled
	order.UpdatedAt = time.Now()
	return *order, nil
}

// ExpireStale rejects every SUBMITTED order whose deadline has passed
// and returns how many were expired.
func (e *Engine) ExpireStale(now time.Time) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	expired := 0
	for _, order := range e.orders {
		if order.Status != contracts.StatusSubmitted || order.Deadline == nil {
			continue
		}
		if now.After(*order.Deadline) {
			order.Status = contracts.StatusRejected
			order.UpdatedAt = now
			expired++
			e.logger.WithField("order", order.ID).Warn("order expired past deadline")
		}
	}
	return expired
}

// Order returns a copy of one order.
func (e *Engine) Order(orderID string) (contracts.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	if !ok {
		return contracts.Order{}, fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}
	return *order, nil
}

// Orders returns copies of an account's orders, oldest first.
func (e *Engine) Orders(accountID string) []contracts.Order {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []contracts.Order
	for _, order := range e.orders {
		if order.AccountID == accountID {
			out = append(out, *order)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Account returns a consistent snapshot of one account.
func (e *Engine) Account(id string) (AccountSnapshot, error) {
	e.mu.Lock()
	acct, ok := e.accounts[id]
	e.mu.Unlock()
	if !ok {
		return AccountSnapshot{}, fmt.Errorf("%w: %s", ErrNoAccount, id)
	}
	return e.snapshot(acct), nil
}

// snapshot values positions at their last-known price (cost basis when
// no quote has been seen), mirroring the historical mark-to-market rule.
func (e *Engine) snapshot(acct *account) AccountSnapshot {
	total := acct.ledger.TotalValue(nil)
	snap := AccountSnapshot{
		AccountID:   acct.id,
		InitialCash: acct.initialCash,
		Cash:        acct.ledger.Cash(),
		Positions:   acct.ledger.Positions(),
		TotalValue:  total,
		TotalPnL:    total - acct.initialCash,
		TradeCount:  len(acct.ledger.Trades()),
		CreatedAt:   acct.createdAt,
	}
	if acct.initialCash > 0 {
		snap.ReturnPct = snap.TotalPnL / acct.initialCash * 100
	}
	return snap
}

// RunDaily performs one strategy pass for an account: liquidate held
// symbols that lost their signal, then buy new candidates sized at
// positionFraction of total value, all routed through explicit orders
// filled at the day's close.
func (e *Engine) RunDaily(accountID string, selected []string, prices map[string]float64, cfg strategy.Config) error {
	snap, err := e.Account(accountID)
	if err != nil {
		return err
	}

	inSelection := make(map[string]bool, len(selected))
	for _, sym := range selected {
		inSelection[sym] = true
	}

	heldSyms := make([]string, 0, len(snap.Positions))
	for sym := range snap.Positions {
		heldSyms = append(heldSyms, sym)
	}
	sort.Strings(heldSyms)

	for _, sym := range heldSyms {
		if inSelection[sym] {
			continue
		}
		price, ok := prices[sym]
		if !ok || price <= 0 {
			continue
		}
		e.placeAndFill(&contracts.Order{
			AccountID: accountID,
			Symbol:    sym,
			Side:      contracts.OrderSideSell,
			Qty:       snap.Positions[sym].Quantity,
			Price:     price,
			OrderType: contracts.OrderTypeMarket,
		}, price)
	}

	snap, _ = e.Account(accountID)
	targetNotional := snap.TotalValue * cfg.PositionFraction

	for _, sym := range selected {
		if _, held := snap.Positions[sym]; held {
			continue
		}
		price, ok := prices[sym]
		if !ok || price <= 0 {
			continue
		}
		qty := backtest.SizeOrder(targetNotional, price, cfg.LotSize)
		if qty < cfg.LotSize {
			continue
		}
		e.placeAndFill(&contracts.Order{
			AccountID: accountID,
			Symbol:    sym,
			Side:      contracts.OrderSideBuy,
			Qty:       qty,
			Price:     price,
			OrderType: contracts.OrderTypeLimit,
		}, price)
	}

	return nil
}

// placeAndFill submits and immediately executes one order; rejections
// are logged and skipped, never fatal to the daily pass.
func (e *Engine) placeAndFill(order *contracts.Order, fillPrice float64) {
	submitted, err := e.Submit(order)
	if err != nil {
		e.logger.WithError(err).WithField("symbol", order.Symbol).Warn("daily order rejected at submit")
		return
	}
	if _, err := e.Execute(submitted.ID, fillPrice); err != nil {
		e.logger.WithError(err).WithField("symbol", order.Symbol).Warn("daily order rejected at fill")
	}
}

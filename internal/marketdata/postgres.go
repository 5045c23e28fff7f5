package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/sycamore/internal/contracts"
)

// PostgresProvider reads daily bars from the data.daily_bars table.
type PostgresProvider struct {
	pool *pgxpool.Pool
}

// NewPostgresProvider creates a provider over an existing pool.
func NewPostgresProvider(pool *pgxpool.Pool) *PostgresProvider {
	return &PostgresProvider{pool: pool}
}

// Fetch returns the symbol's bars in [start, end], ascending by date.
func (p *PostgresProvider) Fetch(ctx context.Context, symbol string, start, end time.Time) ([]contracts.Bar, error) {
	query := `
		SELECT symbol, trade_date, open, high, low, close, volume,
		       turnover_amount, turnover_rate, free_turnover_rate,
		       pct_change, market_cap
		FROM data.daily_bars
		WHERE symbol = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := p.pool.Query(ctx, query, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []contracts.Bar
	for rows.Next() {
		var b contracts.Bar
		var turnRate, freeTurnRate, marketCap *float64
		if err := rows.Scan(
			&b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume,
			&b.TurnoverAmount, &turnRate, &freeTurnRate, &b.PctChange, &marketCap,
		); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		if turnRate != nil {
			b.TurnoverRate = *turnRate
		}
		if freeTurnRate != nil {
			b.FreeTurnoverRate = *freeTurnRate
		}
		if marketCap != nil {
			b.MarketCap = *marketCap
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// Symbols returns every distinct symbol with bar data, sorted.
func (p *PostgresProvider) Symbols(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT DISTINCT symbol FROM data.daily_bars ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

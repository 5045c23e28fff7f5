// Package report persists run artifacts: the equity curve as CSV or
// Parquet and the trade log as CSV. Reporting only; nothing here feeds
// back into the simulation.
package report

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/wonny/sycamore/internal/contracts"
)

// WriteCSV writes the daily records keyed by date.
func WriteCSV(path string, records []contracts.DailyRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"date", "portfolio_value", "cash", "stock_value",
		"num_positions", "selected_count", "benchmark_return", "cumulative_return_pct",
	}); err != nil {
		return err
	}

	for _, r := range records {
		if err := w.Write([]string{
			r.Date.Format("2006-01-02"),
			f2s(r.PortfolioValue),
			f2s(r.Cash),
			f2s(r.StockValue),
			strconv.Itoa(r.NumPositions),
			strconv.Itoa(r.SelectedCount),
			f2s(r.BenchmarkReturn),
			f2s(r.CumulativeReturnPct),
		}); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// WriteTradesCSV writes the trade log in order.
func WriteTradesCSV(path string, trades []contracts.Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"date", "symbol", "action", "price", "quantity", "commission", "amount", "realized_pnl",
	}); err != nil {
		return err
	}

	for _, t := range trades {
		if err := w.Write([]string{
			t.Date.Format("2006-01-02"),
			t.Symbol,
			string(t.Action),
			f2s(t.Price),
			strconv.FormatInt(t.Quantity, 10),
			f2s(t.Commission),
			f2s(t.Amount),
			f2s(t.RealizedPnL),
		}); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func f2s(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

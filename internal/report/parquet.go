package report

import (
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/wonny/sycamore/internal/contracts"
)

// equityRow is the flat Parquet schema for one daily record.
type equityRow struct {
	Date                time.Time `parquet:"date"`
	PortfolioValue      float64   `parquet:"portfolio_value"`
	Cash                float64   `parquet:"cash"`
	StockValue          float64   `parquet:"stock_value"`
	NumPositions        int32     `parquet:"num_positions"`
	SelectedCount       int32     `parquet:"selected_count"`
	BenchmarkReturn     float64   `parquet:"benchmark_return"`
	CumulativeReturnPct float64   `parquet:"cumulative_return_pct"`
}

// WriteParquet writes the equity curve as a Parquet file for columnar
// consumers.
func WriteParquet(path string, records []contracts.DailyRecord) error {
	rows := make([]equityRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, equityRow{
			Date:                r.Date,
			PortfolioValue:      r.PortfolioValue,
			Cash:                r.Cash,
			StockValue:          r.StockValue,
			NumPositions:        int32(r.NumPositions),
			SelectedCount:       int32(r.SelectedCount),
			BenchmarkReturn:     r.BenchmarkReturn,
			CumulativeReturnPct: r.CumulativeReturnPct,
		})
	}
	return parquet.WriteFile(path, rows)
}

package contracts

import (
	"fmt"
	"math"
	"time"
)

// Bar is one day of OHLCV history for a single symbol. Bars are
// sourced externally and never mutated after ingestion.
type Bar struct {
	Symbol         string    `json:"symbol"`
	Date           time.Time `json:"date"`
	Open           float64   `json:"open"`
	High           float64   `json:"high"`
	Low            float64   `json:"low"`
	Close          float64   `json:"close"`
	Volume         float64   `json:"volume"`
	TurnoverAmount float64   `json:"turnover_amount"` // traded value, currency units
	TurnoverRate   float64   `json:"turnover_rate"`   // percent of float shares
	// FreeTurnoverRate is the free-float variant some providers report
	// instead of TurnoverRate. Ingestion resolves the fallback order
	// (standard first, free-float second) into TurnoverRate once.
	FreeTurnoverRate float64 `json:"free_turnover_rate"`
	PctChange        float64 `json:"pct_change"` // percent vs previous close

	// MarketCap is the true market capitalization when the provider
	// supplies one. When it is estimated from turnover at ingestion,
	// MarketCapDerived is set so callers know the value is a fallback.
	MarketCap        float64 `json:"market_cap"`
	MarketCapDerived bool    `json:"market_cap_derived"`
}

// Validate reports malformed numeric fields. A bar that fails here is
// excluded from the day's screen, never propagated.
func (b *Bar) Validate() error {
	fields := [...]struct {
		name string
		v    float64
	}{
		{"open", b.Open},
		{"high", b.High},
		{"low", b.Low},
		{"close", b.Close},
		{"volume", b.Volume},
		{"pct_change", b.PctChange},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("bar %s %s: malformed %s", b.Symbol, b.Date.Format("2006-01-02"), f.name)
		}
	}
	if b.Close <= 0 {
		return fmt.Errorf("bar %s %s: non-positive close %.4f", b.Symbol, b.Date.Format("2006-01-02"), b.Close)
	}
	return nil
}

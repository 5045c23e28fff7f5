package strategy

import "fmt"

// Config holds every tunable parameter of the screening strategy.
// Loaded from YAML per run; code never hardcodes these values.
type Config struct {
	// Screening
	GainRange         [2]float64 `yaml:"gain_range" json:"gain_range"`                   // daily pct change bounds, inclusive
	VolumeRatioMin    float64    `yaml:"volume_ratio_min" json:"volume_ratio_min"`       // volume vs 5-day mean
	TurnoverRateRange [2]float64 `yaml:"turnover_rate_range" json:"turnover_rate_range"` // percent, inclusive
	MarketCapRange    [2]float64 `yaml:"market_cap_range" json:"market_cap_range"`       // currency units, inclusive
	MAShort           int        `yaml:"ma_short" json:"ma_short"`
	MALong            int        `yaml:"ma_long" json:"ma_long"`
	MaxStocks         int        `yaml:"max_stocks" json:"max_stocks"`

	// Sizing
	PositionFraction float64 `yaml:"position_fraction" json:"position_fraction"` // share of total value per new position
	LotSize          int64   `yaml:"lot_size" json:"lot_size"`                   // board lot, minimum tradable increment

	// Costs
	CommissionRate float64 `yaml:"commission_rate" json:"commission_rate"` // flat rate on notional, both sides

	// Run
	Benchmark      string  `yaml:"benchmark" json:"benchmark"` // index defining the trading calendar
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital"`
}

// Default returns the reference parameter set.
func Default() Config {
	return Config{
		GainRange:         [2]float64{3.0, 5.0},
		VolumeRatioMin:    1.0,
		TurnoverRateRange: [2]float64{5.0, 10.0},
		MarketCapRange:    [2]float64{5e9, 2e10},
		MAShort:           5,
		MALong:            60,
		MaxStocks:         10,
		PositionFraction:  0.10,
		LotSize:           100,
		CommissionRate:    0.0015,
		Benchmark:         "000001.SH",
		InitialCapital:    10_000_000,
	}
}

// Validate rejects configurations the simulation cannot run with.
func Validate(cfg *Config) error {
	if cfg.GainRange[0] > cfg.GainRange[1] {
		return fmt.Errorf("gain_range inverted: [%.2f, %.2f]", cfg.GainRange[0], cfg.GainRange[1])
	}
	if cfg.TurnoverRateRange[0] > cfg.TurnoverRateRange[1] {
		return fmt.Errorf("turnover_rate_range inverted: [%.2f, %.2f]", cfg.TurnoverRateRange[0], cfg.TurnoverRateRange[1])
	}
	if cfg.MarketCapRange[0] > cfg.MarketCapRange[1] {
		return fmt.Errorf("market_cap_range inverted: [%.0f, %.0f]", cfg.MarketCapRange[0], cfg.MarketCapRange[1])
	}
	if cfg.MAShort <= 0 || cfg.MALong <= 0 {
		return fmt.Errorf("ma periods must be positive: short=%d long=%d", cfg.MAShort, cfg.MALong)
	}
	if cfg.MAShort >= cfg.MALong {
		return fmt.Errorf("ma_short must be below ma_long: short=%d long=%d", cfg.MAShort, cfg.MALong)
	}
	if cfg.MaxStocks <= 0 {
		return fmt.Errorf("max_stocks must be positive: %d", cfg.MaxStocks)
	}
	if cfg.PositionFraction <= 0 || cfg.PositionFraction > 1 {
		return fmt.Errorf("position_fraction must be in (0, 1]: %f", cfg.PositionFraction)
	}
	if cfg.LotSize <= 0 {
		return fmt.Errorf("lot_size must be positive: %d", cfg.LotSize)
	}
	if cfg.CommissionRate < 0 {
		return fmt.Errorf("commission_rate must not be negative: %f", cfg.CommissionRate)
	}
	if cfg.InitialCapital <= 0 {
		return fmt.Errorf("initial_capital must be positive: %f", cfg.InitialCapital)
	}
	if cfg.Benchmark == "" {
		return fmt.Errorf("benchmark symbol is required")
	}
	return nil
}

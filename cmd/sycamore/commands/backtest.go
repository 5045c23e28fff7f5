package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/sycamore/internal/analysis"
	"github.com/wonny/sycamore/internal/backtest"
	"github.com/wonny/sycamore/internal/marketdata"
	"github.com/wonny/sycamore/internal/report"
	"github.com/wonny/sycamore/internal/screening"
	"github.com/wonny/sycamore/internal/strategy"
	"github.com/wonny/sycamore/pkg/config"
	"github.com/wonny/sycamore/pkg/database"
	"github.com/wonny/sycamore/pkg/logger"
	"github.com/wonny/sycamore/pkg/redis"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Historical simulation",
	Long: `Replay the screening strategy against historical daily bars.

Example:
  sycamore backtest run --from 2024-01-01 --to 2024-12-31
  sycamore backtest run --from 2024-01-01 --capital 10000000 --out ./results`,
}

var (
	backtestRunCmd = &cobra.Command{
		Use:   "run",
		Short: "Run a backtest",
		RunE:  runBacktest,
	}

	backtestFrom    string
	backtestTo      string
	backtestCapital float64
	backtestSymbols string
	backtestOut     string
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)

	backtestRunCmd.Flags().StringVar(&backtestFrom, "from", "", "start date (YYYY-MM-DD, required)")
	backtestRunCmd.Flags().StringVar(&backtestTo, "to", "", "end date (YYYY-MM-DD, default: today)")
	backtestRunCmd.Flags().Float64Var(&backtestCapital, "capital", 0, "initial capital (default: strategy config)")
	backtestRunCmd.Flags().StringVar(&backtestSymbols, "symbols", "", "comma-separated universe (default: all symbols with data)")
	backtestRunCmd.Flags().StringVar(&backtestOut, "out", ".", "output directory for run artifacts")
	_ = backtestRunCmd.MarkFlagRequired("from")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	strat, err := loadStrategy(cfg)
	if err != nil {
		return err
	}
	if backtestCapital > 0 {
		strat.InitialCapital = backtestCapital
	}

	start, err := time.Parse("2006-01-02", backtestFrom)
	if err != nil {
		return fmt.Errorf("invalid --from date: %w", err)
	}
	end := time.Now()
	if backtestTo != "" {
		end, err = time.Parse("2006-01-02", backtestTo)
		if err != nil {
			return fmt.Errorf("invalid --to date: %w", err)
		}
	}

	db, err := database.New(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	pgProvider := marketdata.NewPostgresProvider(db.Pool)
	var provider marketdata.Provider = pgProvider

	if cfg.Redis.Enabled {
		rdb, err := redis.New(cfg)
		if err != nil {
			return err
		}
		defer rdb.Close()
		provider = marketdata.NewCachedProvider(provider, redis.NewCache(rdb, "sycamore"), 24*time.Hour)
	}

	ctx := context.Background()

	universe := splitSymbols(backtestSymbols)
	if len(universe) == 0 {
		universe, err = pgProvider.Symbols(ctx)
		if err != nil {
			return err
		}
	}

	store := marketdata.NewStore(provider, strat.Benchmark, start, end, log)
	screener := screening.NewScreener(*strat, log)
	engine := backtest.NewEngine(store, screener, log)

	result, err := engine.Run(ctx, backtest.Config{
		Start:    start,
		End:      end,
		Universe: universe,
		Strategy: *strat,
	})
	if err != nil {
		return err
	}

	perf := analysis.Analyze(result.Records, result.Trades)
	fmt.Print(analysis.FormatReport(perf))

	if hash, err := strategy.Hash(strat); err == nil {
		log.WithField("strategy_hash", hash).Info("run parameters")
	}

	if err := report.WriteCSV(filepath.Join(backtestOut, "equity_curve.csv"), result.Records); err != nil {
		return err
	}
	if err := report.WriteTradesCSV(filepath.Join(backtestOut, "trades.csv"), result.Trades); err != nil {
		return err
	}
	if err := report.WriteParquet(filepath.Join(backtestOut, "equity_curve.parquet"), result.Records); err != nil {
		return err
	}

	log.WithField("dir", backtestOut).Info("artifacts written")
	return nil
}

// loadStrategy resolves the run's strategy parameters: the YAML file
// when given, otherwise the built-in defaults with the environment's
// benchmark symbol.
func loadStrategy(cfg *config.Config) (*strategy.Config, error) {
	if strategyFile == "" {
		s := strategy.Default()
		if cfg.BenchmarkSymbol != "" {
			s.Benchmark = cfg.BenchmarkSymbol
		}
		return &s, nil
	}
	return strategy.Load(strategyFile)
}

func splitSymbols(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

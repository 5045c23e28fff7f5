package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/sycamore/internal/contracts"
	"github.com/wonny/sycamore/internal/indicators"
	"github.com/wonny/sycamore/internal/marketdata"
	"github.com/wonny/sycamore/internal/papertrade"
	"github.com/wonny/sycamore/internal/screening"
	"github.com/wonny/sycamore/pkg/config"
	"github.com/wonny/sycamore/pkg/database"
	"github.com/wonny/sycamore/pkg/logger"
	"github.com/wonny/sycamore/pkg/redis"
)

var paperCmd = &cobra.Command{
	Use:   "paper",
	Short: "Paper trading",
	Long: `Run the paper-trading engine: a cron-driven daily strategy pass
plus a stale-order expiry sweep. Account and order operations are
exposed to callers through the engine.

Example:
  sycamore paper serve --account demo --cash 10000000`,
}

var (
	paperServeCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the daily paper-trading loop",
		RunE:  runPaperServe,
	}

	paperAccount  string
	paperCash     float64
	paperAt       string
	paperSymbols  string
	paperLookback int
)

func init() {
	rootCmd.AddCommand(paperCmd)
	paperCmd.AddCommand(paperServeCmd)

	paperServeCmd.Flags().StringVar(&paperAccount, "account", "default", "paper account ID")
	paperServeCmd.Flags().Float64Var(&paperCash, "cash", 0, "initial cash (default: strategy config)")
	paperServeCmd.Flags().StringVar(&paperAt, "at", "30 15 * * 1-5", "cron spec for the daily strategy pass")
	paperServeCmd.Flags().StringVar(&paperSymbols, "symbols", "", "comma-separated universe (default: all symbols with data)")
	paperServeCmd.Flags().IntVar(&paperLookback, "lookback", 100, "calendar days of history per snapshot")
}

func runPaperServe(cmd *cobra.Command, args []string) error {
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
	initialCash := strat.InitialCapital
	if paperCash > 0 {
		initialCash = paperCash
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
		provider = marketdata.NewCachedProvider(provider, redis.NewCache(rdb, "sycamore"), time.Hour)
	}

	engine := papertrade.NewEngine(strat.CommissionRate, log)
	engine.CreateAccount(paperAccount, initialCash)

	universe := splitSymbols(paperSymbols)
	required := indicators.RequiredBars(strat.MALong)

	dailyPass := func(ctx context.Context) error {
		today := time.Now().Truncate(24 * time.Hour)

		syms := universe
		if len(syms) == 0 {
			var err error
			syms, err = pgProvider.Symbols(ctx)
			if err != nil {
				return err
			}
		}

		// A fresh store per pass so every day sees newly ingested bars.
		store := marketdata.NewStore(provider, strat.Benchmark, today, today, log)

		snapshot := make(map[string][]contracts.Bar, len(syms))
		prices := make(map[string]float64, len(syms))
		for _, sym := range syms {
			bars := store.Get(ctx, sym, today, paperLookback)
			if len(bars) < required {
				continue
			}
			snapshot[sym] = bars
			prices[sym] = bars[len(bars)-1].Close
		}
		if len(snapshot) == 0 {
			log.WithField("date", today.Format("2006-01-02")).Warn("no symbols with sufficient history, skipping pass")
			return nil
		}

		screener := screening.NewScreener(*strat, log)
		result := screener.Screen(ctx, today, snapshot, store.BenchmarkReturn(ctx, today))

		if err := engine.RunDaily(paperAccount, result.Selected, prices, *strat); err != nil {
			return err
		}

		snap, err := engine.Account(paperAccount)
		if err != nil {
			return err
		}
		log.WithFields(map[string]interface{}{
			"account":     paperAccount,
			"selected":    len(result.Selected),
			"positions":   len(snap.Positions),
			"total_value": snap.TotalValue,
			"return_pct":  snap.ReturnPct,
		}).Info("daily strategy pass completed")
		return nil
	}

	scheduler := papertrade.NewScheduler(log)
	if err := scheduler.Schedule("daily_strategy", paperAt, dailyPass); err != nil {
		return err
	}
	if err := scheduler.ScheduleExpiry("*/5 * * * *", engine); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.WithFields(map[string]interface{}{
		"account":  paperAccount,
		"schedule": paperAt,
	}).Info("paper trading started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	return nil
}

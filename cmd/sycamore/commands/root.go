package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sycamore",
	Short: "Walk-forward portfolio simulation core",
	Long: `Sycamore replays a daily equity screening strategy against
historical bars and runs the same accounting engine for incremental
paper trading.

Examples:
  sycamore backtest run --from 2024-01-01 --to 2024-12-31
  sycamore paper serve --account demo`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML (defaults built in)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

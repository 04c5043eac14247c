package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tradeguard",
	Short: "A risk-guarded trade lifecycle simulator",
	Long: `Tradeguard replays historical price bars through a trade lifecycle
simulator with prop-firm style risk controls.

It provides tools for:
  - Backtesting entry signals against bar CSV datasets
  - Stop, target, break-even and trailing stop management
  - Daily and total drawdown guards with risk tapering
  - Risk-based position sizing
  - Trade journaling to SQLite or CSV`,
}

var verbose bool

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cobra.OnInitialize(setupLogging)
}

func setupLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(h))
}

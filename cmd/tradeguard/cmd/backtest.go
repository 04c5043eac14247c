package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradeguard/backtest"
	"github.com/rustyeddy/tradeguard/config"
	"github.com/rustyeddy/tradeguard/engine"
	"github.com/rustyeddy/tradeguard/feed"
	"github.com/rustyeddy/tradeguard/journal"
	"github.com/rustyeddy/tradeguard/strategies"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest SYMBOL=BARS.csv [SYMBOL=BARS.csv...]",
	Short: "Replay bar datasets through the simulator",
	Long: `Backtest replays one or more bar CSV datasets through the lifecycle
simulator and prints the summary.

Each argument names a symbol and its dataset. Files may be plain CSV,
.csv.xz, or a .zip holding a single CSV; UTF-16 exports (MT5) are
decoded automatically.

Supported strategies: ` + strings.Join(strategies.Names(), ", ") + `

Example:
  tradeguard backtest XAUUSD=data/xauusd_h1.csv.xz --strategy asian-breakout`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBacktest,
}

var (
	btConfigPath string
	btBalance    float64
	btStrategy   string
	btFrom       string
	btTo         string
	btKeepOpen   bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btConfigPath, "config", "c", "", "path to config file (yaml or json)")
	backtestCmd.Flags().Float64VarP(&btBalance, "balance", "b", 0, "override starting balance")
	backtestCmd.Flags().StringVarP(&btStrategy, "strategy", "s", "", "override strategy name")
	backtestCmd.Flags().StringVar(&btFrom, "from", "", "replay start (RFC3339 or 2006-01-02)")
	backtestCmd.Flags().StringVar(&btTo, "to", "", "replay end, exclusive (RFC3339 or 2006-01-02)")
	backtestCmd.Flags().BoolVar(&btKeepOpen, "keep-open", false, "do not force-close surviving positions at the end")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if btBalance > 0 {
		cfg.Account.Balance = btBalance
	}
	if btStrategy != "" {
		cfg.Strategy.Name = btStrategy
	}

	from, err := parseBound(btFrom)
	if err != nil {
		return fmt.Errorf("bad --from: %w", err)
	}
	to, err := parseBound(btTo)
	if err != nil {
		return fmt.Errorf("bad --to: %w", err)
	}

	sig, perSymbol, err := cfg.BuildSignals()
	if err != nil {
		return err
	}

	jour, err := buildJournal(cfg)
	if err != nil {
		return err
	}
	defer jour.Close()

	feeds, err := buildFeeds(args, from, to)
	if err != nil {
		return err
	}

	symbols := make([]string, 0, len(feeds))
	for _, f := range feeds {
		symbols = append(symbols, f.Symbol())
	}

	eng, err := engine.New(engine.Options{
		Book:          cfg.BookConfig(),
		Limits:        cfg.Limits(),
		Balance:       cfg.Account.Balance,
		Signal:        sig,
		SymbolSignals: perSymbol,
		Symbols:       symbols,
		Clamp:         cfg.Clamp(),
		Journal:       jour,
		KeepOpenAtEnd: btKeepOpen,
	})
	if err != nil {
		closeFeeds(feeds)
		return err
	}

	fmt.Printf("Running backtest\n")
	fmt.Printf("  Strategy: %s\n", cfg.Strategy.Name)
	fmt.Printf("  Balance:  %.2f %s\n", cfg.Account.Balance, cfg.Account.Currency)
	fmt.Printf("  Datasets: %s\n\n", strings.Join(args, ", "))

	runner := &backtest.Runner{Engine: eng, Feeds: feeds}
	res, err := runner.Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Println(res)
	return nil
}

func loadConfig() (*config.Config, error) {
	if btConfigPath == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(btConfigPath)
}

func buildJournal(cfg *config.Config) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "sqlite":
		return journal.NewSQLite(cfg.Journal.DBPath)
	case "csv":
		return journal.NewCSV(cfg.Journal.TradesFile, cfg.Journal.EquityFile)
	default:
		return journal.Nop{}, nil
	}
}

func buildFeeds(args []string, from, to time.Time) ([]feed.Feed, error) {
	feeds := make([]feed.Feed, 0, len(args))
	for _, arg := range args {
		symbol, path, ok := strings.Cut(arg, "=")
		if !ok {
			closeFeeds(feeds)
			return nil, fmt.Errorf("bad dataset %q, want SYMBOL=PATH", arg)
		}
		f, err := feed.NewCSVBarFeed(symbol, path, from, to)
		if err != nil {
			closeFeeds(feeds)
			return nil, err
		}
		feeds = append(feeds, f)
	}
	return feeds, nil
}

func closeFeeds(feeds []feed.Feed) {
	for _, f := range feeds {
		f.Close()
	}
}

func parseBound(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"backlab/internal/autotrade"
	"backlab/internal/backtest"
	"backlab/internal/config"
	"backlab/internal/fetch"
	"backlab/internal/store"
	"backlab/internal/strategy"
	"backlab/internal/strategy/builtins"
	"backlab/internal/util"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: backlab <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version      Print the version\n")
		fmt.Fprintf(os.Stderr, "  backtest     Run a single-symbol backtest\n")
		fmt.Fprintf(os.Stderr, "  scan         Backtest many symbol/strategy pairs concurrently\n")
		fmt.Fprintf(os.Stderr, "  import       Import CSV bar files into the Parquet store\n")
		fmt.Fprintf(os.Stderr, "  fetch        Fetch bars from Alpaca into the Parquet store\n")
		fmt.Fprintf(os.Stderr, "  autotrade    Run the scheduled paper-trading scanner\n")
		fmt.Fprintf(os.Stderr, "  trades       List recorded trades\n")
		fmt.Fprintf(os.Stderr, "\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("backlab %s\n", version)

	case "backtest":
		err = runBacktest(os.Args[2:])

	case "scan":
		err = runScan(os.Args[2:])

	case "import":
		err = runImport(os.Args[2:])

	case "fetch":
		err = runFetch(os.Args[2:])

	case "autotrade":
		err = runAutotrade(os.Args[2:])

	case "trades":
		err = runTrades(os.Args[2:])

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

// loadConfig reads the config file, falling back to built-in defaults when
// the file is absent and no explicit path was given.
func loadConfig(path string) (*config.Config, error) {
	explicit := path != ""
	if !explicit {
		path = "config/backlab.yaml"
		if p := os.Getenv("BACKLAB_CONFIG"); p != "" {
			path = p
			explicit = true
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return &config.Config{}, nil
		}
		return nil, err
	}
	return cfg, nil
}

func setupLogger(cfg *config.Config) {
	util.SetDefault(util.NewLogger(cfg.Logging.Level))
}

func registryFromConfig(cfg *config.Config) *strategy.Registry {
	sc := cfg.Backtest.Strategy
	p := builtins.Params{
		ShortPeriod: sc.ShortPeriod,
		LongPeriod:  sc.LongPeriod,
		RSIPeriod:   sc.RSIPeriod,
		Oversold:    sc.Oversold,
		Overbought:  sc.Overbought,
	}
	r := strategy.NewRegistry()
	for _, kind := range []string{builtins.KindMACrossover, builtins.KindRSI} {
		s, err := builtins.New(kind, p)
		if err != nil {
			continue
		}
		r.Register(s)
	}
	return r
}

func backtestConfig(cfg *config.Config) backtest.Config {
	return backtest.Config{
		InitialCapital:   cfg.Backtest.InitialCapital,
		PositionFraction: cfg.Backtest.PositionFraction,
	}
}

func parseDateRange(from, to string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing -from %q: %w", from, err)
	}
	var end time.Time
	if to == "" {
		end = time.Now().UTC()
	} else if end, err = time.Parse("2006-01-02", to); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing -to %q: %w", to, err)
	}
	return start, end, nil
}

func runBacktest(args []string) error {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	cfgPath := fs.String("config", "", "config file path")
	symbol := fs.String("symbol", "", "symbol to backtest (required)")
	stratName := fs.String("strategy", "ma-cross", "strategy name")
	from := fs.String("from", "2020-01-01", "start date (YYYY-MM-DD)")
	to := fs.String("to", "", "end date (YYYY-MM-DD), default today")
	fs.Parse(args)

	if *symbol == "" {
		return fmt.Errorf("-symbol is required")
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	setupLogger(cfg)

	start, end, err := parseDateRange(*from, *to)
	if err != nil {
		return err
	}

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	runner := backtest.NewRunner(pstore, registryFromConfig(cfg))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := runner.Run(ctx, *stratName, *symbol, start, end, backtestConfig(cfg))
	if err != nil {
		return err
	}

	printResult(result)
	return nil
}

func runScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	cfgPath := fs.String("config", "", "config file path")
	symbols := fs.String("symbols", "", "comma-separated symbols (default: all stored symbols)")
	strategies := fs.String("strategies", "ma-cross,rsi-reversion", "comma-separated strategy names")
	from := fs.String("from", "2020-01-01", "start date (YYYY-MM-DD)")
	to := fs.String("to", "", "end date (YYYY-MM-DD), default today")
	fs.Parse(args)

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	setupLogger(cfg)

	start, end, err := parseDateRange(*from, *to)
	if err != nil {
		return err
	}

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	runner := backtest.NewRunner(pstore, registryFromConfig(cfg))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var symbolList []string
	if *symbols != "" {
		symbolList = splitList(*symbols)
	} else {
		symbolList, err = pstore.ListSymbols(ctx)
		if err != nil {
			return fmt.Errorf("listing symbols: %w", err)
		}
	}
	if len(symbolList) == 0 {
		return fmt.Errorf("no symbols to scan")
	}

	var jobs []backtest.Job
	for _, stratName := range splitList(*strategies) {
		for _, sym := range symbolList {
			jobs = append(jobs, backtest.Job{Strategy: stratName, Symbol: sym})
		}
	}

	results, err := runner.RunAll(ctx, jobs, start, end, backtestConfig(cfg), cfg.Backtest.Workers)
	if err != nil {
		return err
	}

	fmt.Printf("%-10s %-15s %8s %8s %10s %10s\n", "SYMBOL", "STRATEGY", "TRADES", "WINRATE", "PROFIT", "RETURN%")
	for _, res := range results {
		if res == nil {
			continue
		}
		fmt.Printf("%-10s %-15s %8d %7.1f%% %10.2f %9.2f%%\n",
			res.Symbol, res.Strategy,
			res.Stats.TotalTrades, res.Stats.WinRate,
			res.Stats.TotalProfit, res.Stats.ReturnPercent,
		)
	}
	return nil
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfgPath := fs.String("config", "", "config file path")
	dir := fs.String("dir", "", "directory of <SYMBOL>.csv files (default: storage.csv_dir)")
	symbols := fs.String("symbols", "", "comma-separated symbols (required)")
	from := fs.String("from", "1970-01-01", "start date (YYYY-MM-DD)")
	to := fs.String("to", "", "end date (YYYY-MM-DD), default today")
	fs.Parse(args)

	if *symbols == "" {
		return fmt.Errorf("-symbols is required")
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	setupLogger(cfg)

	csvDir := *dir
	if csvDir == "" {
		csvDir = cfg.Storage.CSVDir
	}
	if csvDir == "" {
		return fmt.Errorf("no CSV directory: pass -dir or set storage.csv_dir")
	}

	start, end, err := parseDateRange(*from, *to)
	if err != nil {
		return err
	}

	fetcher := fetch.NewCSVFetcher(csvDir)
	pstore := store.NewParquetStore(cfg.Storage.DataDir)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	for _, sym := range splitList(*symbols) {
		bars, err := fetcher.Historical(ctx, sym, start, end)
		if err != nil {
			return fmt.Errorf("reading %s: %w", sym, err)
		}
		if err := pstore.WriteBars(ctx, bars); err != nil {
			return fmt.Errorf("writing %s: %w", sym, err)
		}
		fmt.Printf("imported %s: %d bars\n", strings.ToUpper(sym), len(bars))
	}
	return nil
}

func runFetch(args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	cfgPath := fs.String("config", "", "config file path")
	symbols := fs.String("symbols", "", "comma-separated symbols (required)")
	from := fs.String("from", "2020-01-01", "start date (YYYY-MM-DD)")
	to := fs.String("to", "", "end date (YYYY-MM-DD), default today")
	fs.Parse(args)

	if *symbols == "" {
		return fmt.Errorf("-symbols is required")
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	setupLogger(cfg)

	start, end, err := parseDateRange(*from, *to)
	if err != nil {
		return err
	}

	fetcher := fetch.NewAlpacaFetcher(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL,
		cfg.Alpaca.RateLimitPerMin,
	)
	pstore := store.NewParquetStore(cfg.Storage.DataDir)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	for _, sym := range splitList(*symbols) {
		bars, err := fetcher.Historical(ctx, sym, start, end)
		if err != nil {
			return fmt.Errorf("fetching %s: %w", sym, err)
		}
		if err := pstore.WriteBars(ctx, bars); err != nil {
			return fmt.Errorf("writing %s: %w", sym, err)
		}
		fmt.Printf("fetched %s: %d bars\n", strings.ToUpper(sym), len(bars))
	}
	return nil
}

func runAutotrade(args []string) error {
	fs := flag.NewFlagSet("autotrade", flag.ExitOnError)
	cfgPath := fs.String("config", "", "config file path")
	fs.Parse(args)

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	setupLogger(cfg)

	if len(cfg.Autotrade.Watchlist) == 0 {
		return fmt.Errorf("autotrade.watchlist is empty")
	}

	sqlitePath := cfg.Storage.SQLitePath
	if sqlitePath == "" {
		sqlitePath = "backlab.db"
	}
	db, err := store.NewSQLiteStore(sqlitePath)
	if err != nil {
		return fmt.Errorf("opening sqlite store: %w", err)
	}
	defer db.Close()

	var fetcher fetch.Fetcher = fetch.NewAlpacaFetcher(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL,
		cfg.Alpaca.RateLimitPerMin,
	)
	if cfg.Storage.DataDir != "" {
		fetcher = fetch.NewCachedFetcher(fetcher, store.NewParquetStore(cfg.Storage.DataDir))
	}

	stratName := cfg.Autotrade.Strategy
	if stratName == "" {
		stratName = "rsi-reversion"
	}

	trader, err := autotrade.NewTrader(autotrade.Options{
		Watchlist:        cfg.Autotrade.Watchlist,
		Strategy:         stratName,
		InitialCapital:   cfg.Backtest.InitialCapital,
		PositionFraction: cfg.Backtest.PositionFraction,
		ScanInterval:     time.Duration(cfg.Autotrade.ScanIntervalMinutes) * time.Minute,
		MaxTradesPerDay:  cfg.Autotrade.MaxTradesPerDay,
		MaxDailyLoss:     cfg.Autotrade.MaxDailyLoss,
		StopLossPercent:  cfg.Autotrade.StopLossPercent,
		TargetPercent:    cfg.Autotrade.TargetPercent,
		LookbackDays:     cfg.Autotrade.LookbackDays,
	}, fetcher, registryFromConfig(cfg), db, db, db)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := trader.Restore(ctx); err != nil {
		return err
	}
	if err := trader.Start(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func runTrades(args []string) error {
	fs := flag.NewFlagSet("trades", flag.ExitOnError)
	cfgPath := fs.String("config", "", "config file path")
	stratName := fs.String("strategy", "", "filter by strategy name")
	limit := fs.Int("limit", 20, "maximum number of trades to show")
	fs.Parse(args)

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	setupLogger(cfg)

	sqlitePath := cfg.Storage.SQLitePath
	if sqlitePath == "" {
		sqlitePath = "backlab.db"
	}
	db, err := store.NewSQLiteStore(sqlitePath)
	if err != nil {
		return fmt.Errorf("opening sqlite store: %w", err)
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	trades, err := db.ListTrades(ctx, *stratName, *limit)
	if err != nil {
		return err
	}
	if len(trades) == 0 {
		fmt.Println("no trades recorded")
		return nil
	}

	fmt.Printf("%-10s %-15s %-12s %-12s %10s %10s %8s\n",
		"SYMBOL", "STRATEGY", "ENTRY", "EXIT", "PROFIT", "PROFIT%", "QTY")
	for _, tr := range trades {
		fmt.Printf("%-10s %-15s %-12s %-12s %10.2f %9.2f%% %8d\n",
			tr.Symbol, tr.Strategy,
			tr.EntryTime.Format("2006-01-02"), tr.ExitTime.Format("2006-01-02"),
			tr.Profit, tr.ProfitPercent, tr.Quantity,
		)
	}
	return nil
}

func printResult(res *backtest.Result) {
	fmt.Printf("\nBacktest: %s / %s\n", res.Symbol, res.Strategy)
	fmt.Printf("%s\n", strings.Repeat("-", 48))
	fmt.Printf("Initial capital:  %12.2f\n", res.InitialCapital)
	fmt.Printf("Final capital:    %12.2f\n", res.Stats.FinalCapital)
	fmt.Printf("Total profit:     %12.2f\n", res.Stats.TotalProfit)
	fmt.Printf("Return:           %11.2f%%\n", res.Stats.ReturnPercent)
	fmt.Printf("Total trades:     %12d\n", res.Stats.TotalTrades)
	fmt.Printf("Winning trades:   %12d\n", res.Stats.WinningTrades)
	fmt.Printf("Losing trades:    %12d\n", res.Stats.LosingTrades)
	fmt.Printf("Win rate:         %11.2f%%\n", res.Stats.WinRate)
	fmt.Printf("Avg profit:       %12.2f\n", res.Stats.AvgProfit)
	fmt.Printf("Avg win:          %12.2f\n", res.Stats.AvgWin)
	fmt.Printf("Avg loss:         %12.2f\n", res.Stats.AvgLoss)
	fmt.Printf("Max profit:       %12.2f\n", res.Stats.MaxProfit)
	fmt.Printf("Max loss:         %12.2f\n", res.Stats.MaxLoss)
	fmt.Printf("Skipped signals:  %12d\n", res.SkippedSignals)

	if len(res.Trades) > 0 {
		fmt.Printf("\n%-12s %-12s %10s %10s %10s %8s\n",
			"ENTRY", "EXIT", "IN", "OUT", "PROFIT", "QTY")
		for _, tr := range res.Trades {
			fmt.Printf("%-12s %-12s %10.2f %10.2f %10.2f %8d\n",
				tr.EntryTime.Format("2006-01-02"), tr.ExitTime.Format("2006-01-02"),
				tr.EntryPrice, tr.ExitPrice, tr.Profit, tr.Quantity,
			)
		}
	}
	fmt.Println()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

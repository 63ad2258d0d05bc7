package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"strategylab/internal/app"
	"strategylab/internal/config"
	"strategylab/internal/domain"
	"strategylab/internal/report"
	"strategylab/internal/store"
	"strategylab/internal/util"
	"strategylab/pkg/strategylab"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: strategylab-cli <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  run          Run a backtest and print the report\n")
		fmt.Fprintf(os.Stderr, "  show         Print a stored backtest result\n")
		fmt.Fprintf(os.Stderr, "  list         List stored backtest results\n")
		fmt.Fprintf(os.Stderr, "  strategies   List available strategies\n")
		fmt.Fprintf(os.Stderr, "  indicators   Print the latest indicators for a symbol\n")
		fmt.Fprintf(os.Stderr, "  sync         Download bars into the local cache\n")
		fmt.Fprintf(os.Stderr, "  version      Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "\nrun, show, list and strategies accept -server URL to use a running strategylab-server.\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("strategylab-cli %s\n", version)
	case "run":
		err = runCmd(ctx, args)
	case "show":
		err = showCmd(ctx, args)
	case "list":
		err = listCmd(ctx, args)
	case "strategies":
		err = strategiesCmd(ctx, args)
	case "indicators":
		err = indicatorsCmd(ctx, args)
	case "sync":
		err = syncCmd(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

// openApp builds the local service from the config file.
func openApp() (*app.App, error) {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger := util.NewLoggerTo(os.Stderr, cfg.Logging.Level, "text")
	util.SetDefault(logger)
	return app.New(cfg, logger)
}

func runCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	server := fs.String("server", "", "strategylab-server base URL")
	user := fs.String("user", "cli", "user ID recorded with the result")
	symbol := fs.String("symbol", "", "ticker symbol (required)")
	strat := fs.String("strategy", string(domain.StrategySMACrossover), "strategy type")
	timeframe := fs.String("timeframe", "1y", "lookback period: 1mo, 3mo, 6mo, 1y, 2y, 5y")
	interval := fs.String("interval", "1d", "bar interval: 1m, 5m, 15m, 1h, 1d")
	balance := fs.Float64("balance", 0, "initial balance (default from config)")
	commission := fs.Float64("commission", -1, "commission per fill (default from config)")
	params := fs.String("params", "", "strategy parameters as JSON, e.g. '{\"stopLoss\":0.03}'")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	fs.Parse(args)

	if *symbol == "" {
		fs.Usage()
		return fmt.Errorf("-symbol is required")
	}
	cfg := domain.StrategyConfig{
		Symbol:         *symbol,
		Strategy:       domain.StrategyType(strings.ToUpper(*strat)),
		Timeframe:      *timeframe,
		Interval:       *interval,
		InitialBalance: *balance,
	}
	if *params != "" {
		if err := json.Unmarshal([]byte(*params), &cfg.Parameters); err != nil {
			return fmt.Errorf("parsing -params: %w", err)
		}
	}

	var res *domain.BacktestResult
	if *server != "" {
		if *commission >= 0 {
			cfg.Commission = *commission
		}
		r, err := strategylab.NewClient(*server).RunBacktest(ctx, *user, cfg)
		if err != nil {
			return err
		}
		res = r
	} else {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		cfg.Commission = a.Config.Backtest.Commission
		if *commission >= 0 {
			cfg.Commission = *commission
		}
		r, err := a.Service.Run(ctx, *user, cfg)
		if err != nil {
			if r == nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
		res = r
	}

	if *asJSON {
		return printJSON(res)
	}
	fmt.Print(report.Render(res))
	return nil
}

func showCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	server := fs.String("server", "", "strategylab-server base URL")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: strategylab-cli show [-server URL] <result-id>")
	}
	id := fs.Arg(0)

	var res *domain.BacktestResult
	if *server != "" {
		r, err := strategylab.NewClient(*server).GetBacktest(ctx, id)
		if err != nil {
			return err
		}
		res = r
	} else {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		r, err := a.Service.Get(ctx, id)
		if err != nil {
			return err
		}
		res = r
	}
	if *asJSON {
		return printJSON(res)
	}
	fmt.Print(report.Render(res))
	return nil
}

func listCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	server := fs.String("server", "", "strategylab-server base URL")
	user := fs.String("user", "", "filter by user ID")
	symbol := fs.String("symbol", "", "filter by symbol")
	strat := fs.String("strategy", "", "filter by strategy type")
	limit := fs.Int("limit", 20, "maximum rows")
	fs.Parse(args)

	var rows []domain.ResultSummary
	if *server != "" {
		r, err := strategylab.NewClient(*server).ListBacktests(ctx, strategylab.ListOptions{
			UserID:   *user,
			Symbol:   strings.ToUpper(*symbol),
			Strategy: domain.StrategyType(strings.ToUpper(*strat)),
			Limit:    *limit,
		})
		if err != nil {
			return err
		}
		rows = r
	} else {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		r, err := a.Service.List(ctx, store.ResultFilter{
			UserID:   *user,
			Symbol:   strings.ToUpper(*symbol),
			Strategy: domain.StrategyType(strings.ToUpper(*strat)),
			Limit:    *limit,
		})
		if err != nil {
			return err
		}
		rows = r
	}
	fmt.Print(report.Table(rows))
	return nil
}

func strategiesCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("strategies", flag.ExitOnError)
	server := fs.String("server", "", "strategylab-server base URL")
	fs.Parse(args)

	if *server != "" {
		list, err := strategylab.NewClient(*server).ListStrategies(ctx)
		if err != nil {
			return err
		}
		for _, s := range list {
			fmt.Printf("%-22s %s\n", s.Type, s.Description)
		}
		return nil
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	for _, s := range a.Registry.Describe() {
		fmt.Printf("%-22s %s\n", s.Type, s.Description)
	}
	return nil
}

func indicatorsCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("indicators", flag.ExitOnError)
	period := fs.String("period", "6mo", "lookback period")
	interval := fs.String("interval", "1d", "bar interval")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: strategylab-cli indicators [-period P] [-interval I] <symbol>")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	rep, err := a.Service.Indicators(ctx, strings.ToUpper(fs.Arg(0)), *period, *interval)
	if err != nil {
		return err
	}
	return printJSON(rep)
}

func syncCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	period := fs.String("period", "5y", "lookback period")
	interval := fs.String("interval", "1d", "bar interval")
	fs.Parse(args)
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: strategylab-cli sync [-period P] [-interval I] <symbol>...")
	}
	symbols := make([]string, fs.NArg())
	for i, s := range fs.Args() {
		symbols[i] = strings.ToUpper(s)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	counts, err := a.Sync(ctx, symbols, *period, *interval)
	for _, s := range symbols {
		fmt.Printf("%-8s %s bars\n", s, report.FormatInt(counts[s]))
	}
	return err
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Command backtest runs a single CTA strategy backtest (or, with
// -optimize, a parameter search over it) and prints the resulting
// performance report.
//
//	main.go            — entry point: loads config, wires a provider, runs the engine
//	internal/engine     — deterministic replay loop, the two order books, daily accounting
//	internal/stats       — balance/drawdown/Sharpe report, round-trip reconstruction
//	internal/search       — grid and genetic parameter search over internal/engine
//	internal/historical    — CSV/REST historical-data providers
//	internal/strategy/examples — DoubleMA, the bundled reference strategy
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"ctabacktest/internal/config"
	"ctabacktest/internal/engine"
	"ctabacktest/internal/historical"
	"ctabacktest/internal/search"
	"ctabacktest/internal/stats"
	"ctabacktest/internal/store"
	"ctabacktest/internal/strategy/examples"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("CTABT_CONFIG"); p != "" {
		cfgPath = p
	}
	flag.StringVar(&cfgPath, "config", cfgPath, "path to config.yaml")
	optimize := flag.String("optimize", "", "parameter search mode: \"grid\" or \"genetic\" (default: off, run a single backtest)")
	saveDir := flag.String("save-dir", "", "directory to persist search results under (optional)")
	runID := flag.String("run-id", "latest", "identifier this search run's results are saved/loaded under")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(newHandler(cfg.Logging))

	provider, err := newProvider(cfg.Historical)
	if err != nil {
		logger.Error("failed to construct historical provider", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if *optimize != "" {
		results, err := runSearch(ctx, *optimize, *cfg, provider, logger)
		if err != nil {
			logger.Error("search failed", "error", err)
			os.Exit(1)
		}
		printRanked(results)

		if *saveDir != "" {
			s, err := store.Open(*saveDir)
			if err != nil {
				logger.Error("failed to open result store", "error", err)
				os.Exit(1)
			}
			defer s.Close()
			if err := s.SaveRun(*runID, results); err != nil {
				logger.Error("failed to save search results", "error", err)
				os.Exit(1)
			}
		}
		return
	}

	result, dailyResults, err := runOnce(ctx, cfg.Engine, provider, logger, 10, 20)
	if err != nil {
		logger.Error("backtest failed", "error", err)
		os.Exit(1)
	}

	report := stats.Calculate(dailyResults, result.Trades, cfg.Engine.Capital, cfg.Engine.Size, cfg.Engine.Rate, cfg.Engine.RateType, cfg.Engine.Slippage)
	printReport(report)
}

// newProvider builds the historical.Provider named in cfg.
func newProvider(cfg config.HistoricalConfig) (historical.Provider, error) {
	switch cfg.Source {
	case "csv":
		return historical.NewCSVProvider(cfg.CSVPath, "", "", 0), nil
	case "rest":
		return historical.NewRestProvider(cfg.RestURL, cfg.ApiKey), nil
	default:
		return nil, fmt.Errorf("unknown historical.source %q", cfg.Source)
	}
}

// runOnce constructs a fresh engine, loads history, attaches a DoubleMA
// strategy with the given windows, and runs the backtest once.
func runOnce(ctx context.Context, cfg config.EngineConfig, provider historical.Provider, logger *slog.Logger, fastWindow, slowWindow int) (engine.Result, []*engine.DailyResult, error) {
	eng := engine.New(cfg, logger)

	strat := examples.NewDoubleMA(eng, fastWindow, slowWindow, cfg.Size)
	eng.SetStrategy(strat)

	if err := eng.LoadHistory(ctx, provider); err != nil {
		return engine.Result{}, nil, fmt.Errorf("load history: %w", err)
	}

	result, err := eng.Run()
	if err != nil {
		return engine.Result{}, nil, fmt.Errorf("run: %w", err)
	}

	return result, result.DailyResults, nil
}

// runSearch sweeps DoubleMA's (FastWindow, SlowWindow) pair using either
// grid or genetic search and returns the ranked settings.
func runSearch(ctx context.Context, mode string, cfg config.Config, provider historical.Provider, logger *slog.Logger) ([]search.Result, error) {
	eval := func(ctx context.Context, setting search.Setting) (float64, error) {
		fast := int(setting["fast_window"])
		slow := int(setting["slow_window"])
		if fast >= slow {
			return 0, fmt.Errorf("fast_window must be < slow_window")
		}

		result, dailyResults, err := runOnce(ctx, cfg.Engine, provider, logger, fast, slow)
		if err != nil {
			return 0, err
		}
		report := stats.Calculate(dailyResults, result.Trades, cfg.Engine.Capital, cfg.Engine.Size, cfg.Engine.Rate, cfg.Engine.RateType, cfg.Engine.Slippage)
		return targetValue(report, cfg.Search.Target)
	}

	var results []search.Result
	switch mode {
	case "grid":
		var setting search.OptimizationSetting
		fastEnd, fastStep := 20.0, 5.0
		slowEnd, slowStep := 60.0, 10.0
		if err := setting.AddParameter("fast_window", 5, &fastEnd, &fastStep); err != nil {
			return nil, err
		}
		if err := setting.AddParameter("slow_window", 20, &slowEnd, &slowStep); err != nil {
			return nil, err
		}
		results = search.GridSearch(ctx, setting.GenerateSettings(), cfg.Search.Workers, eval)
	case "genetic":
		g := search.GeneticSetting{
			ParamNames:  []string{"fast_window", "slow_window"},
			Candidates:  [][]float64{{5, 10, 15, 20}, {20, 30, 40, 50, 60}},
			PopSize:     cfg.Search.PopSize,
			Mu:          cfg.Search.Mu,
			Generations: cfg.Search.Generations,
			CxProb:      cfg.Search.CxProb,
			MutProb:     cfg.Search.MutProb,
			RandomSeed:  cfg.Search.RandomSeed,
		}
		results = search.GASearch(ctx, g, eval)
	default:
		return nil, fmt.Errorf("unknown -optimize mode %q (want \"grid\" or \"genetic\")", mode)
	}

	return results, nil
}

// printRanked prints the top 10 ranked search results.
func printRanked(results []search.Result) {
	for i, r := range results {
		if i >= 10 {
			break
		}
		if r.Err != nil {
			fmt.Printf("%2d. %v -> error: %v\n", i+1, r.Setting, r.Err)
			continue
		}
		fmt.Printf("%2d. %v -> %.4f\n", i+1, r.Setting, r.Target)
	}
}

// targetValue extracts the named statistic field from a report. Only the
// handful of fields commonly used as a search target are supported.
func targetValue(report stats.Statistics, target string) (float64, error) {
	switch target {
	case "sharpe_ratio":
		return report.SharpeRatio, nil
	case "total_return":
		return report.TotalReturn, nil
	case "annual_return":
		return report.AnnualReturn, nil
	case "return_drawdown_ratio":
		return report.ReturnDrawdownRatio, nil
	case "total_net_pnl":
		return report.TotalNetPnl, nil
	default:
		return 0, fmt.Errorf("unknown search target %q", target)
	}
}

func newHandler(cfg config.LoggingConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.NewTextHandler(os.Stdout, opts)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printReport(r stats.Statistics) {
	fmt.Printf("Trading period: %s -> %s (%d days, %d profit / %d loss)\n", r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"), r.TotalDays, r.ProfitDays, r.LossDays)
	fmt.Printf("Capital: %.2f -> %.2f\n", r.Capital, r.EndBalance)
	fmt.Printf("Max drawdown: %.2f (%.2f%%), duration %d days\n", r.MaxDrawdown, r.MaxDDPercent, r.MaxDrawdownDuration)
	fmt.Printf("Total net pnl: %.2f, turnover: %.2f, trades: %d\n", r.TotalNetPnl, r.TotalTurnover, r.TotalTradeCount)
	fmt.Printf("Total return: %.2f%%, annual return: %.2f%%, Sharpe: %.2f\n", r.TotalReturn, r.AnnualReturn, r.SharpeRatio)
	fmt.Printf("Round trips: %d, win rate: %.2f%%, profit/loss ratio: %.2f\n", r.TotalTrades, r.RateOfWin, r.ProfitLossRatio)
}

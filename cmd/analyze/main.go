package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fin-analysis/internal/analysis"
	"fin-analysis/internal/logger"
	"fin-analysis/internal/report"
	"fin-analysis/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (defaults are used when it does not exist)")
	ticker := flag.String("ticker", "", "ticker symbol to analyze (required)")
	periods := flag.Int("periods", 0, "number of annual periods to analyze (default from config)")
	format := flag.String("format", "", "output format: text, json, or csv (default from config)")
	outputFile := flag.String("output", "", "save report to this file instead of the report directory")
	flag.Parse()

	if *ticker == "" {
		fmt.Println("Error: -ticker is required")
		flag.Usage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(); err != nil {
		fmt.Printf("Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = logger.Shutdown(ctx)
	}()

	numPeriods := cfg.Analysis.Periods
	if *periods != 0 {
		numPeriods = *periods
	}
	if numPeriods <= 0 {
		fmt.Printf("Error: -periods must be positive, got %d\n", numPeriods)
		os.Exit(1)
	}

	formatName := cfg.Report.Format
	if *format != "" {
		formatName = *format
	}
	reportFormat, err := report.ParseFormat(formatName)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	analyzer, cache, err := analysis.NewFromConfig(ctx, cfg)
	if err != nil {
		fmt.Printf("Error creating providers: %v\n", err)
		os.Exit(1)
	}
	defer cache.Close()

	fmt.Printf("Starting financial analysis for %s (%d periods)\n", *ticker, numPeriods)
	fmt.Println("─────────────────────────────────────────────────────────────────────────────")

	result, err := analyzer.Analyze(ctx, *ticker, numPeriods)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		cache.Close()
		os.Exit(1)
	}

	reporter := report.NewReporter(cfg.Report.OutputDir)
	content, err := reporter.Generate(result, reportFormat)
	if err != nil {
		fmt.Printf("Error generating report: %v\n", err)
		cache.Close()
		os.Exit(1)
	}

	fmt.Println(content)

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, []byte(content), 0644); err != nil {
			fmt.Printf("Error saving report to file: %v\n", err)
			cache.Close()
			os.Exit(1)
		}
		fmt.Printf("\nReport saved to: %s\n", *outputFile)
	} else {
		savedPath, err := reporter.Save(result, reportFormat)
		if err != nil {
			fmt.Printf("Warning: could not save report: %v\n", err)
		} else {
			fmt.Printf("\nReport saved to: %s\n", savedPath)
		}
	}

	fmt.Println("\n─────────────────────────────────────────────────────────────────────────────")
	fmt.Printf("Analysis complete for %s\n", result.Company.Ticker)
	fmt.Printf("Verdict: %s\n", result.Verdict)
	fmt.Printf("Statement source: %s\n", result.StatementSource)
}

func loadConfig(path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = store.Default()
		return cfg, cfg.Validate()
	}
	return cfg, err
}

// Package main writes reports from the entity store and exports price and
// liquidity history to ClickHouse.
//
// Outputs in -output-dir:
//   - REPORT.md:   summary with pool, asset and pair tables
//   - pools.csv:   pool liquidity and volume
//   - candles.csv: asset buckets of -bucket seconds
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"pool-analytics-lab/internal/app"
	"pool-analytics-lab/internal/config"
	"pool-analytics-lab/internal/logging"
	"pool-analytics-lab/internal/reporting"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	bucket := flag.Int64("bucket", 86400, "Candle bucket length in seconds")
	asset := flag.String("asset", "", "Restrict candles to one asset address")
	history := flag.Bool("history", false, "Export price and liquidity history to ClickHouse")
	sinceBlock := flag.Uint64("since-block", 0, "Export only history recorded after this block")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *history && cfg.History.ClickHouseDSN == "" {
		logger.Fatal("-history requires history.clickhouse_dsn or CLICKHOUSE_DSN")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("open stores", zap.Error(err))
	}
	defer stores.Close()

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logger.Fatal("create output dir", zap.Error(err))
	}

	report, err := reporting.NewGenerator(stores.Entities).Generate(ctx)
	if err != nil {
		logger.Fatal("generate report", zap.Error(err))
	}
	candles, err := reporting.AssetCandles(ctx, stores.Entities, *asset, *bucket)
	if err != nil {
		logger.Fatal("load candles", zap.Error(err))
	}

	files := map[string]string{
		"REPORT.md":   reporting.RenderMarkdown(report),
		"pools.csv":   reporting.RenderPoolsCSV(report.Pools),
		"candles.csv": reporting.RenderCandlesCSV(candles),
	}
	for name, content := range files {
		path := filepath.Join(*outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			logger.Fatal("write output", zap.String("path", path), zap.Error(err))
		}
		logger.Info("wrote output", zap.String("path", path))
	}

	if !*history {
		return
	}

	hist, closeHist, err := app.OpenHistory(ctx, cfg.History.ClickHouseDSN)
	if err != nil {
		logger.Fatal("open history store", zap.Error(err))
	}
	defer closeHist()

	exported, err := reporting.ExportHistory(ctx, stores.Entities, hist, *sinceBlock)
	if err != nil {
		logger.Fatal("export history", zap.Error(err), zap.Uint64("since_block", *sinceBlock))
	}
	output, _ := json.MarshalIndent(exported, "", "  ")
	fmt.Println(string(output))
}

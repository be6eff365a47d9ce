// Package main replays the stored event log into a fresh in-memory registry
// and optionally verifies that repeated replays produce identical state.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pool-analytics-lab/internal/app"
	"pool-analytics-lab/internal/config"
	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/idhash"
	"pool-analytics-lab/internal/ingestion"
	"pool-analytics-lab/internal/logging"
	"pool-analytics-lab/internal/processor"
	"pool-analytics-lab/internal/replay"
	"pool-analytics-lab/internal/storage"
	"pool-analytics-lab/internal/storage/memory"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	importPath := flag.String("import", "", "JSONL event file to append to the event log before replaying")
	fromBlock := flag.Uint64("from-block", 0, "First block to replay")
	toBlock := flag.Uint64("to-block", 0, "Last block to replay")
	verify := flag.Bool("verify", false, "Replay repeatedly and compare state fingerprints")
	runs := flag.Int("runs", 3, "Number of replays when -verify is set")
	outputJSON := flag.Bool("json", false, "Output as JSON")
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

	// Partial ranges are rejected: a replay must have both bounds or none.
	ranged := *fromBlock > 0 || *toBlock > 0
	if ranged && (*fromBlock == 0 || *toBlock == 0 || *fromBlock > *toBlock) {
		logger.Fatal("-from-block and -to-block must be set together with from <= to")
	}
	if ranged && *verify {
		logger.Fatal("-verify replays the whole log and cannot be combined with a block range")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("open stores", zap.Error(err))
	}
	defer stores.Close()

	if *importPath != "" {
		mgr := ingestion.NewManager(ingestion.ManagerOptions{
			Source: ingestion.NewFileSource(*importPath, logger),
			Events: stores.Events,
			Logger: logger,
		})
		n, err := mgr.IngestRange(ctx, 0, math.MaxUint64)
		if err != nil {
			logger.Fatal("import events", zap.String("path", *importPath), zap.Error(err))
		}
		logger.Info("imported events", zap.String("path", *importPath), zap.Int("stored", n))
	}

	// Replays use static metadata only so results do not depend on RPC availability.
	static, err := cfg.StaticMetadata()
	if err != nil {
		logger.Fatal("static metadata", zap.Error(err))
	}
	sources := &app.Sources{Metadata: static, Weights: static}

	if *verify {
		factory := func(store storage.EntityStore) (replay.ReplayEngine, error) {
			eng, err := app.NewEngine(cfg, store, "memory", sources, logger, nil)
			if err != nil {
				return nil, err
			}
			return eng.Processor, nil
		}
		report, err := replay.NewVerifier(stores.Events, factory, *runs).Verify(ctx)
		if err != nil {
			logger.Fatal("verify replay", zap.Error(err))
		}
		printVerify(report, *outputJSON)
		if !report.Match {
			os.Exit(2)
		}
		return
	}

	store := memory.NewEntityStore()
	eng, err := app.NewEngine(cfg, store, "memory", sources, logger, nil)
	if err != nil {
		logger.Fatal("create engine", zap.Error(err))
	}
	stats := newStatsEngine(eng.Processor)

	runner := replay.NewRunner(stores.Events)
	start := time.Now()
	if ranged {
		logger.Info("replaying block range", zap.Uint64("from", *fromBlock), zap.Uint64("to", *toBlock))
		_, err = runner.Run(ctx, *fromBlock, *toBlock, stats)
	} else {
		logger.Info("replaying all stored events")
		_, err = runner.RunAll(ctx, stats)
	}
	if err != nil {
		logger.Fatal("replay failed", zap.Error(err))
	}
	stats.summary.Elapsed = time.Since(start).String()

	fp, err := idhash.Fingerprint(ctx, store)
	if err != nil {
		logger.Fatal("fingerprint state", zap.Error(err))
	}
	stats.summary.Fingerprint = fp
	printSummary(stats.summary, *outputJSON)
}

// ReplaySummary holds replay statistics.
type ReplaySummary struct {
	TotalEvents int                      `json:"total_events"`
	ByType      map[domain.EventType]int `json:"by_type"`
	Applied     int                      `json:"applied"`
	Duplicates  int                      `json:"duplicates"`
	Skipped     map[string]int           `json:"skipped"`
	FirstBlock  uint64                   `json:"first_block"`
	LastBlock   uint64                   `json:"last_block"`
	Elapsed     string                   `json:"elapsed"`
	Fingerprint string                   `json:"fingerprint"`
}

// statsEngine applies events through the processor and tallies outcomes.
type statsEngine struct {
	proc    *processor.Processor
	summary ReplaySummary
}

func newStatsEngine(p *processor.Processor) *statsEngine {
	return &statsEngine{
		proc: p,
		summary: ReplaySummary{
			ByType:  make(map[domain.EventType]int),
			Skipped: make(map[string]int),
		},
	}
}

// OnEvent implements replay.ReplayEngine.
func (e *statsEngine) OnEvent(ctx context.Context, ev *domain.Event) error {
	res, err := e.proc.Apply(ctx, ev)
	if err != nil {
		return err
	}

	s := &e.summary
	if s.TotalEvents == 0 {
		s.FirstBlock = ev.Block
	}
	s.TotalEvents++
	s.LastBlock = ev.Block
	s.ByType[ev.Type]++

	switch res.Outcome {
	case processor.OutcomeApplied:
		s.Applied++
	case processor.OutcomeDuplicate:
		s.Duplicates++
	case processor.OutcomeSkipped:
		s.Skipped[res.Reason]++
	}
	return nil
}

var _ replay.ReplayEngine = (*statsEngine)(nil)

func printSummary(s ReplaySummary, asJSON bool) {
	if asJSON {
		output, _ := json.MarshalIndent(s, "", "  ")
		fmt.Println(string(output))
		return
	}
	fmt.Printf("\n=== Replay Summary ===\n")
	fmt.Printf("Total Events:  %d\n", s.TotalEvents)
	for _, typ := range []domain.EventType{
		domain.EventTypePoolRegistered,
		domain.EventTypeSwap,
		domain.EventTypeBalanceChange,
		domain.EventTypeShareTransfer,
		domain.EventTypeSwapFeeChange,
		domain.EventTypeInternalBalanceChange,
		domain.EventTypeAmpUpdateStarted,
		domain.EventTypeAmpUpdateStopped,
	} {
		fmt.Printf("  %-25s %d\n", typ+":", s.ByType[typ])
	}
	fmt.Printf("Applied:       %d\n", s.Applied)
	fmt.Printf("Duplicates:    %d\n", s.Duplicates)
	for reason, n := range s.Skipped {
		fmt.Printf("Skipped (%s): %d\n", reason, n)
	}
	if s.TotalEvents > 0 {
		fmt.Printf("Blocks:        %d - %d\n", s.FirstBlock, s.LastBlock)
	} else {
		fmt.Printf("Blocks:        N/A\n")
	}
	fmt.Printf("Elapsed:       %s\n", s.Elapsed)
	fmt.Printf("Fingerprint:   %s\n", s.Fingerprint)
}

func printVerify(r *replay.VerifyReport, asJSON bool) {
	if asJSON {
		output, _ := json.MarshalIndent(r, "", "  ")
		fmt.Println(string(output))
		return
	}
	fmt.Printf("\n=== Replay Verification ===\n")
	fmt.Printf("Events:  %d\n", r.Events)
	for i, fp := range r.Fingerprints {
		fmt.Printf("Run %d:   %s\n", i+1, fp)
	}
	if r.Match {
		fmt.Println("Result:  deterministic")
	} else {
		fmt.Println("Result:  MISMATCH")
	}
}

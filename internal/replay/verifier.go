package replay

import (
	"context"
	"fmt"

	"pool-analytics-lab/internal/idhash"
	"pool-analytics-lab/internal/storage"
	"pool-analytics-lab/internal/storage/memory"
)

// EngineFactory builds a fresh engine writing into store.
type EngineFactory func(store storage.EntityStore) (ReplayEngine, error)

// VerifyReport is the result of a determinism check.
type VerifyReport struct {
	Events       int
	Fingerprints []string
	Match        bool
}

// Verifier replays the event log repeatedly from empty state and compares fingerprints.
type Verifier struct {
	runner  *Runner
	factory EngineFactory
	runs    int
}

// NewVerifier creates a Verifier. runs below 2 is raised to 2.
func NewVerifier(events storage.EventStore, factory EngineFactory, runs int) *Verifier {
	if runs < 2 {
		runs = 2
	}
	return &Verifier{runner: NewRunner(events), factory: factory, runs: runs}
}

// Verify replays every stored event into fresh in-memory stores.
func (v *Verifier) Verify(ctx context.Context) (*VerifyReport, error) {
	report := &VerifyReport{Match: true}

	for i := 0; i < v.runs; i++ {
		store := memory.NewEntityStore()
		engine, err := v.factory(store)
		if err != nil {
			return nil, fmt.Errorf("build engine for run %d: %w", i+1, err)
		}
		n, err := v.runner.RunAll(ctx, engine)
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}
		fp, err := idhash.Fingerprint(ctx, store)
		if err != nil {
			return nil, fmt.Errorf("fingerprint run %d: %w", i+1, err)
		}

		report.Events = n
		if len(report.Fingerprints) > 0 && report.Fingerprints[0] != fp {
			report.Match = false
		}
		report.Fingerprints = append(report.Fingerprints, fp)
	}
	return report, nil
}

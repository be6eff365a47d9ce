package idhash

import (
	"context"
	"testing"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/storage"
	"pool-analytics-lab/internal/storage/memory"
)

func commit(t *testing.T, store *memory.EntityStore, records ...storage.Record) {
	t.Helper()
	if err := store.Commit(context.Background(), records); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
}

func TestFingerprint_Deterministic(t *testing.T) {
	ctx := context.Background()
	a := memory.NewEntityStore()
	b := memory.NewEntityStore()

	recs := []storage.Record{
		{Kind: domain.KindAsset, ID: "0x01", Data: []byte(`{"symbol":"A"}`)},
		{Kind: domain.KindPool, ID: "0x02", Data: []byte(`{"assets":[]}`)},
	}
	commit(t, a, recs[0], recs[1])
	// Insertion order must not matter.
	commit(t, b, recs[1])
	commit(t, b, recs[0])

	fa, err := Fingerprint(ctx, a)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	fb, err := Fingerprint(ctx, b)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}

	if len(fa) != 64 {
		t.Errorf("Fingerprint() length = %d, want 64", len(fa))
	}
	if fa != fb {
		t.Errorf("fingerprints differ: %s vs %s", fa, fb)
	}
}

func TestFingerprint_DetectsChange(t *testing.T) {
	ctx := context.Background()
	a := memory.NewEntityStore()
	b := memory.NewEntityStore()

	commit(t, a, storage.Record{Kind: domain.KindAsset, ID: "0x01", Data: []byte(`{"symbol":"A"}`)})
	commit(t, b, storage.Record{Kind: domain.KindAsset, ID: "0x01", Data: []byte(`{"symbol":"B"}`)})

	fa, _ := Fingerprint(ctx, a)
	fb, _ := Fingerprint(ctx, b)
	if fa == fb {
		t.Error("different data must produce different fingerprints")
	}
}

func TestFingerprintRecords_Empty(t *testing.T) {
	got := FingerprintRecords(nil)
	// SHA256 of the empty string.
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got != want {
		t.Errorf("FingerprintRecords(nil) = %s, want %s", got, want)
	}
}

// Package idhash computes deterministic hashes over derived state.
package idhash

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/storage"
)

// Fingerprint hashes every record of every entity kind in store.
// Formula: SHA256 over "kind|id|data\n" for each record, kinds in domain.Kinds
// order and ids ascending. Returns hex-encoded hash (64 characters).
func Fingerprint(ctx context.Context, store storage.EntityStore) (string, error) {
	h := sha256.New()
	for _, kind := range domain.Kinds {
		records, err := store.List(ctx, kind)
		if err != nil {
			return "", fmt.Errorf("list %s: %w", kind, err)
		}
		writeRecords(h, records)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FingerprintRecords hashes records in the given order.
func FingerprintRecords(records []storage.Record) string {
	h := sha256.New()
	writeRecords(h, records)
	return hex.EncodeToString(h.Sum(nil))
}

func writeRecords(h hash.Hash, records []storage.Record) {
	for _, r := range records {
		fmt.Fprintf(h, "%s|%s|", r.Kind, r.ID)
		h.Write(r.Data)
		h.Write([]byte{'\n'})
	}
}

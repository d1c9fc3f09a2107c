// Package store persists run results: a SQLite runs catalog with
// fingerprint idempotency, a per-run materialized results database, and
// the run manifest sidecar.
package store

import (
	"fmt"
	"os"

	"github.com/spaolacci/murmur3"
)

// Fingerprint returns the 128-bit murmur3 hash of raw dataset bytes,
// hex-encoded. Two byte-identical inputs always fingerprint equal, which
// is what the idempotent-rerun check relies on.
func Fingerprint(data []byte) string {
	h1, h2 := murmur3.Sum128(data)
	return fmt.Sprintf("%016x%016x", h1, h2)
}

// FingerprintFile fingerprints a file's contents.
func FingerprintFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("store: fingerprint %s: %w", path, err)
	}
	return Fingerprint(data), nil
}

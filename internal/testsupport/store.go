package testsupport

import (
	"context"
	"testing"

	"argus/internal/config"
	"argus/internal/records"
)

// MustOpenStore opens a records.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *records.Store {
	t.Helper()

	store, err := records.Open(cfg)
	if err != nil {
		t.Fatalf("records.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewAnalysis creates a pending record for tests using the provided store.
func NewAnalysis(t testing.TB, store *records.Store, contentHash, sourcePath string) *records.Record {
	t.Helper()

	rec, err := store.NewAnalysis(context.Background(), contentHash, sourcePath, 0)
	if err != nil {
		t.Fatalf("store.NewAnalysis: %v", err)
	}
	return rec
}

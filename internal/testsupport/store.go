package testsupport

import (
	"context"
	"testing"

	"annofuse/internal/config"
	"annofuse/internal/ledger"
)

// MustOpenLedger opens the config's ledger for tests and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// StartRun records a run for tests.
func StartRun(t testing.TB, store *ledger.Store, command string, args ...string) *ledger.Run {
	t.Helper()

	run, err := store.StartRun(context.Background(), command, args, "")
	if err != nil {
		t.Fatalf("store.StartRun: %v", err)
	}
	return run
}

package testsupport

import (
	"testing"

	"goldcheck/internal/config"
	"goldcheck/internal/kff"
)

// MustOpenKFFStore opens the known-file store named by cfg and registers
// cleanup.
func MustOpenKFFStore(t testing.TB, cfg *config.Config) *kff.Store {
	t.Helper()

	store, err := kff.Open(cfg.Paths.KFFDB)
	if err != nil {
		t.Fatalf("kff.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

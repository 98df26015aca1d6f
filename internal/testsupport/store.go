package testsupport

import (
	"testing"

	"clearvoice/internal/config"
	"clearvoice/internal/runs"
)

// MustOpenStore opens a runs store against the test config's log directory
// and closes it when the test finishes.
func MustOpenStore(t testing.TB, cfg *config.Config) *runs.Store {
	t.Helper()
	store, err := runs.Open(cfg)
	if err != nil {
		t.Fatalf("open runs store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

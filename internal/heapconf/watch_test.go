package heapconf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatchFileReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "heap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	changes := make(chan *Config, 4)
	errs := make(chan error, 4)
	w, err := WatchFile(path, func(cfg *Config) { changes <- cfg }, func(err error) { errs <- err })
	require.NoError(t, err)
	defer w.Close()

	updated := `
generations:
  - name: young
    level: 0
    initial_size: 2MB
    max_size: 8MB
  - name: old
    level: 1
    initial_size: 8MB
    max_size: 32MB
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	select {
	case cfg := <-changes:
		require.Equal(t, "2MB", cfg.Generations[0].InitialSize)
	case err := <-errs:
		t.Fatalf("unexpected watch error: %v", err)
	case <-time.After(5 * time.Second):
		t.Skip("no filesystem events delivered; watching may be unsupported here")
	}
}

func TestWatchFileReportsBadDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "heap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	changes := make(chan *Config, 4)
	errs := make(chan error, 4)
	w, err := WatchFile(path, func(cfg *Config) { changes <- cfg }, func(err error) { errs <- err })
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("generations: []\n"), 0o644))

	select {
	case <-errs:
		// The previous configuration stays in effect; only the error
		// callback fires.
	case cfg := <-changes:
		t.Fatalf("invalid document was accepted: %+v", cfg)
	case <-time.After(5 * time.Second):
		t.Skip("no filesystem events delivered; watching may be unsupported here")
	}
}

func TestWatchFileIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "heap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	changes := make(chan *Config, 4)
	w, err := WatchFile(path, func(cfg *Config) { changes <- cfg }, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o644))

	select {
	case cfg := <-changes:
		t.Fatalf("sibling write reported as change: %+v", cfg)
	case <-time.After(500 * time.Millisecond):
	}
}

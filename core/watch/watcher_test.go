package watch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startWatcher(t *testing.T, dir string, merge MergeFunc) *Watcher {
	t.Helper()
	w, err := NewWatcher(Config{
		Dir:      dir,
		Debounce: 20 * time.Millisecond,
	}, merge, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Run(ctx)
	return w
}

func TestWatcherMergesDroppedFile(t *testing.T) {
	dir := t.TempDir()
	var merges atomic.Int32
	var lastPath atomic.Value

	w := startWatcher(t, dir, func(ctx context.Context, path string) (*Report, error) {
		merges.Add(1)
		lastPath.Store(path)
		return &Report{ID: "r1", File: path, Proposals: 2}, nil
	})

	target := filepath.Join(dir, "batch.json")
	require.NoError(t, os.WriteFile(target, []byte(`[]`), 0o644))

	require.Eventually(t, func() bool {
		return merges.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, target, lastPath.Load())
	require.Eventually(t, func() bool {
		return w.Reports().Len() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestWatcherIgnoresNonJSON(t *testing.T) {
	dir := t.TempDir()
	var merges atomic.Int32

	startWatcher(t, dir, func(ctx context.Context, path string) (*Report, error) {
		merges.Add(1)
		return &Report{ID: "x"}, nil
	})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))

	assert.Never(t, func() bool {
		return merges.Load() > 0
	}, 200*time.Millisecond, 20*time.Millisecond)
}

func TestWatcherDebouncesRewrites(t *testing.T) {
	dir := t.TempDir()
	var merges atomic.Int32

	startWatcher(t, dir, func(ctx context.Context, path string) (*Report, error) {
		merges.Add(1)
		return &Report{ID: "r"}, nil
	})

	target := filepath.Join(dir, "batch.json")
	// A burst of writes inside the debounce window collapses to one
	// merge.
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(target, []byte(`[]`), 0o644))
		time.Sleep(2 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return merges.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Never(t, func() bool {
		return merges.Load() > 1
	}, 200*time.Millisecond, 20*time.Millisecond)
}

func TestWatcherRecordsFailedMerge(t *testing.T) {
	dir := t.TempDir()

	w := startWatcher(t, dir, func(ctx context.Context, path string) (*Report, error) {
		return nil, errors.New("bad proposals")
	})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{`), 0o644))

	require.Eventually(t, func() bool {
		return w.Reports().Len() == 1
	}, 2*time.Second, 10*time.Millisecond)

	reports := w.Reports().Recent()
	assert.Equal(t, "bad proposals", reports[0].Err)
}

func TestNewWatcherValidation(t *testing.T) {
	_, err := NewWatcher(Config{}, nil, testLogger())
	assert.ErrorIs(t, err, ErrNoDirConfigured)

	_, err = NewWatcher(Config{Dir: "/does/not/exist"}, nil, testLogger())
	assert.ErrorIs(t, err, ErrDirNotExist)
}

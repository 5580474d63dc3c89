// Package watch implements the drop-directory merge daemon: proposal files
// written into a watched directory are debounced, merged into the working
// glossary, and summarized in a bounded report history.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

// DefaultDebounce is the default quiet interval before a changed file is
// merged.
const DefaultDebounce = 200 * time.Millisecond

var (
	// ErrNoDirConfigured indicates no watch directory was specified.
	ErrNoDirConfigured = errors.New("no watch directory configured")

	// ErrDirNotExist indicates the watch directory does not exist.
	ErrDirNotExist = errors.New("watch directory does not exist")
)

// MergeFunc merges one proposal file and returns its report.
type MergeFunc func(ctx context.Context, path string) (*Report, error)

// Config configures the watcher.
type Config struct {
	// Dir is the directory watched for *.json proposal files.
	Dir string

	// Debounce is the quiet interval per path before merging.
	Debounce time.Duration

	// HistorySize caps the retained report history.
	HistorySize int
}

// Watcher monitors a drop directory and merges proposal files as they
// appear. Merges run one at a time, in file-event order.
type Watcher struct {
	cfg     Config
	merge   MergeFunc
	reports *ReportStore
	logger  *slog.Logger

	fs *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan string
}

// NewWatcher creates a watcher over the configured directory.
func NewWatcher(cfg Config, merge MergeFunc, logger *slog.Logger) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, ErrNoDirConfigured
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil || !info.IsDir() {
		return nil, ErrDirNotExist
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 64
	}

	reports, err := NewReportStore(cfg.HistorySize)
	if err != nil {
		return nil, err
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(cfg.Dir); err != nil {
		fs.Close()
		return nil, err
	}

	return &Watcher{
		cfg:     cfg,
		merge:   merge,
		reports: reports,
		logger:  logger,
		fs:      fs,
		pending: make(map[string]*time.Timer),
		ready:   make(chan string, 64),
	}, nil
}

// Reports returns the report history store.
func (w *Watcher) Reports() *ReportStore {
	return w.reports
}

// Run watches until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	w.logger.Info("watching for proposal files",
		"dir", w.cfg.Dir, "debounce", w.cfg.Debounce)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.observe(event)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)

		case path := <-w.ready:
			w.mergeFile(ctx, path)
		}
	}
}

// observe debounces create/write events for proposal files.
func (w *Watcher) observe(event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return
	}
	if !strings.HasSuffix(strings.ToLower(event.Name), ".json") {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	path := event.Name
	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.cfg.Debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.cfg.Debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.ready <- path
	})
}

// mergeFile runs the merge for one settled file and records its report.
func (w *Watcher) mergeFile(ctx context.Context, path string) {
	start := time.Now()
	report, err := w.merge(ctx, path)
	if err != nil {
		w.logger.Warn("proposal file merge failed",
			"file", filepath.Base(path), "error", err)
		if report == nil {
			report = &Report{File: path, When: start}
		}
		report.Err = err.Error()
	}
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	report.Duration = time.Since(start)
	w.reports.Add(report)

	w.logger.Info("merged proposal file",
		"file", filepath.Base(path),
		"proposals", report.Proposals,
		"immediate", report.Immediate,
		"arbitrated", report.Arbitrated,
		"discarded", report.Discarded,
		"entries", report.Entries,
		"duration", report.Duration)
}

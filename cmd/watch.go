package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/adalundhe/termbase/core/glossary"
	"github.com/adalundhe/termbase/core/merge"
	"github.com/adalundhe/termbase/core/prompt"
	"github.com/adalundhe/termbase/core/providers"
	"github.com/adalundhe/termbase/core/watch"
)

var (
	watchDictPath string
	watchDir      string
	watchOutPath  string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a drop directory and merge proposal files as they appear",
	Long: `Watch loads a glossary dictionary and monitors a directory for proposal
JSON files. Each file is merged into the in-memory dictionary as it
appears, and the merged dictionary is rewritten after every merge.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchDictPath, "dict", "", "glossary dictionary JSON file (required)")
	watchCmd.Flags().StringVar(&watchDir, "dir", "", "directory to watch (defaults to config watch.dir)")
	watchCmd.Flags().StringVarP(&watchOutPath, "out", "o", "", "path rewritten after each merge (defaults to --dict)")
	watchCmd.MarkFlagRequired("dict")
	rootCmd.AddCommand(watchCmd)
}

// watchState carries the dictionary across successive file merges.
type watchState struct {
	mu        sync.Mutex
	dict      *glossary.Dictionary
	transport providers.Transport
	cfg       merge.Config
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	dict, err := readDictionary(watchDictPath)
	if err != nil {
		return err
	}

	dir := watchDir
	if dir == "" {
		dir = cfg.Watch.Dir
	}
	outPath := watchOutPath
	if outPath == "" {
		outPath = watchDictPath
	}

	debounce, err := cfg.Watch.DebounceInterval()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	transport, err := cfg.Provider.Transport(ctx, logger)
	if err != nil {
		return err
	}

	state := &watchState{
		dict:      dict,
		transport: transport,
		cfg:       cfg.MergeSession(),
	}

	mergeFile := func(ctx context.Context, path string) (*watch.Report, error) {
		return state.mergeFile(ctx, path, outPath, logger)
	}

	watcher, err := watch.NewWatcher(watch.Config{
		Dir:         dir,
		Debounce:    debounce,
		HistorySize: cfg.Watch.HistorySize,
	}, mergeFile, logger)
	if err != nil {
		return err
	}

	err = watcher.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// mergeFile folds one proposal file into the held dictionary and rewrites
// the output file. Files merge one at a time; the watcher serializes
// calls, the mutex guards against future callers.
func (s *watchState) mergeFile(ctx context.Context, path, outPath string, logger *slog.Logger) (*watch.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	proposals, err := readProposals(path)
	if err != nil {
		return nil, err
	}

	session := merge.NewSession(prompt.NewBuilder(), s.transport, s.cfg, logger)
	started := time.Now()
	merged, err := session.Merge(ctx, s.dict, proposals)
	if err != nil {
		return nil, err
	}
	s.dict = merged

	if err := writeDictionary(outPath, merged); err != nil {
		return nil, err
	}

	stats := session.Stats()
	return &watch.Report{
		ID:         uuid.NewString(),
		File:       path,
		Proposals:  len(proposals),
		Immediate:  stats.Immediate,
		Arbitrated: stats.Arbitrated,
		Discarded:  stats.Discarded,
		Entries:    merged.Len(),
		When:       started,
	}, nil
}

package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/adalundhe/termbase/core/config"
)

var (
	cfgPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "termbase",
	Short: "Termbase - glossary merge engine",
	Long: `Termbase merges proposed terminology entries into a multi-key glossary,
arbitrating key collisions through an LLM provider while running
non-overlapping arbitrations concurrently.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "termbase.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug|info|warn|error)")
}

// loadConfig reads configuration honoring the --log-level override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// newLogger builds the process logger from config. Logs go to stderr so
// stdout stays clean for merged dictionaries.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: cfg.Log.LogLevel()}

	switch cfg.Log.Format {
	case "", "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q", cfg.Log.Format)
}

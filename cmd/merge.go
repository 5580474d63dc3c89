package cmd

import (
	"github.com/spf13/cobra"

	"github.com/adalundhe/termbase/core/merge"
	"github.com/adalundhe/termbase/core/prompt"
)

var (
	mergeDictPath      string
	mergeProposalsPath string
	mergeOutPath       string
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge proposed entries into a glossary dictionary",
	Long: `Merge reads a glossary dictionary and a set of proposed entries, folds the
proposals in (arbitrating key collisions through the configured provider),
and writes the merged dictionary as JSON.`,
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVar(&mergeDictPath, "dict", "", "glossary dictionary JSON file (required)")
	mergeCmd.Flags().StringVar(&mergeProposalsPath, "proposals", "", "proposals JSON file (required)")
	mergeCmd.Flags().StringVarP(&mergeOutPath, "out", "o", "-", "output path (- for stdout)")
	mergeCmd.MarkFlagRequired("dict")
	mergeCmd.MarkFlagRequired("proposals")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	dict, err := readDictionary(mergeDictPath)
	if err != nil {
		return err
	}
	proposals, err := readProposals(mergeProposalsPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	transport, err := cfg.Provider.Transport(ctx, logger)
	if err != nil {
		return err
	}

	session := merge.NewSession(prompt.NewBuilder(), transport, cfg.MergeSession(), logger)
	merged, err := session.Merge(ctx, dict, proposals)
	if err != nil {
		return err
	}

	stats := session.Stats()
	logger.Info("merge complete",
		"proposals", len(proposals),
		"immediate", stats.Immediate,
		"arbitrated", stats.Arbitrated,
		"discarded", stats.Discarded,
		"entries", merged.Len())

	return writeDictionary(mergeOutPath, merged)
}

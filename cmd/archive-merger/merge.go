package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"go-archive-merger/internal/pipeline"
	"go-archive-merger/pkg/utils"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <archive.zip> [output]",
	Short: "Merge one archive without the HTTP service",
	Long: `Runs the batched merge on a local zip and writes the pipe-delimited result.
Without [output] the file is written to the output directory as
<archive name>_pipe.txt. Progress lines go to the log.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := getLogger()
		cfg := getConfig()

		archivePath := args[0]
		var outputPath string
		if len(args) == 2 {
			outputPath = args[1]
		} else {
			base := utils.SecureFilename(strings.TrimSuffix(filepath.Base(archivePath), filepath.Ext(archivePath)))
			if base == "" {
				base = "archive"
			}
			outputPath = filepath.Join(cfg.OutputDir, base+"_pipe.txt")
		}
		if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		summary, err := pipeline.Merge(ctx, pipeline.MergeRequest{
			ArchivePath: archivePath,
			OutputPath:  outputPath,
			BatchSize:   cfg.BatchSize,
			Logger:      logger,
		}, pipeline.LogReporter{Logger: logger})
		if err != nil {
			return fmt.Errorf("merge failed: %w", err)
		}

		logger.Info("Output written",
			"path", outputPath,
			"rows", summary.Rows,
			"columns", len(summary.Columns),
			"skipped_entries", summary.Failed(),
		)
		return nil
	},
}

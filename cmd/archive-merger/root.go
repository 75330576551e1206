package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"go-archive-merger/internal/config"
)

var (
	logFormat string
	logLevel  string

	// Global instances populated in PersistentPreRunE
	rootLogger *slog.Logger
	appConfig  = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "archive-merger",
	Short: "Merge zip archives of CSV files into pipe-delimited files",
	Long: `archive-merger turns a zip of CSV files into a single pipe-delimited file.

'serve' runs the HTTP service that accepts uploads and reports progress,
'merge' processes one archive from the command line and
'history' shows the jobs recorded in the journal database.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rootLogger = newLogger(os.Stderr, logLevel, logFormat)
		slog.SetDefault(rootLogger)

		if err := appConfig.Validate(); err != nil {
			return err
		}
		rootLogger.Debug("Configuration loaded", slog.Any("config", appConfig))
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(historyCmd)

	if err := rootCmd.Execute(); err != nil {
		if rootLogger != nil {
			rootLogger.Error("Command execution failed", "error", err)
		} else {
			fmt.Fprintf(os.Stderr, "Command execution failed: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&appConfig.UploadDir, "upload-dir", appConfig.UploadDir, "Directory for uploaded archives")
	flags.StringVar(&appConfig.OutputDir, "output-dir", appConfig.OutputDir, "Directory for merged output files")
	flags.StringVar(&appConfig.DBPath, "db-path", appConfig.DBPath, "SQLite journal path (empty disables the journal)")
	flags.IntVar(&appConfig.BatchSize, "batch-size", appConfig.BatchSize, "Archive entries merged per batch")
	flags.StringVar(&logFormat, "log-format", "text", "Log output format (text or json)")
	flags.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.Version = "1.0.0"
}

func newLogger(w io.Writer, levelName, format string) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(levelName) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func getLogger() *slog.Logger {
	if rootLogger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return rootLogger
}

func getConfig() config.Config {
	return appConfig
}

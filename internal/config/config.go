package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"
)

const (
	// DefaultBatchSize is the number of archive entries merged per output append.
	DefaultBatchSize = 500

	DefaultPort           = "5000"
	DefaultUploadDir      = "uploads"
	DefaultOutputDir      = "processed_files"
	DefaultDBPath         = "merge_journal.db"
	DefaultQueueSize      = 256
	DefaultMaxUploadBytes = 1 << 30
	DefaultShutdown       = 30 * time.Second
)

var DefaultWorkers = min(runtime.NumCPU(), 4)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds application settings
type Config struct {
	Port            string
	UploadDir       string
	OutputDir       string
	DBPath          string // empty disables the journal
	Workers         int
	QueueSize       int
	BatchSize       int
	MaxUploadBytes  int64
	KeepUploads     bool
	ShutdownTimeout time.Duration
}

// Default returns the built-in settings. PORT is the only environment variable consulted.
func Default() Config {
	return Config{
		Port:            getEnv("PORT", DefaultPort),
		UploadDir:       DefaultUploadDir,
		OutputDir:       DefaultOutputDir,
		DBPath:          DefaultDBPath,
		Workers:         DefaultWorkers,
		QueueSize:       DefaultQueueSize,
		BatchSize:       DefaultBatchSize,
		MaxUploadBytes:  DefaultMaxUploadBytes,
		ShutdownTimeout: DefaultShutdown,
	}
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// Validate checks the settings that have no usable zero value.
func (c Config) Validate() error {
	if c.UploadDir == "" || c.OutputDir == "" {
		return fmt.Errorf("%w: upload and output directories are required", ErrInvalidConfig)
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("%w: port %q is not a number", ErrInvalidConfig, c.Port)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("%w: queue size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("%w: max upload size must be positive", ErrInvalidConfig)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

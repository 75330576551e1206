package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"go-archive-merger/internal/api"
	"go-archive-merger/internal/api/handler"
	"go-archive-merger/internal/pipeline"
	"go-archive-merger/internal/store"
	"go-archive-merger/pkg/router"
)

var _ pipeline.Journal = (*store.Store)(nil)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Long: `Starts the HTTP API:
  POST /api/process           upload a zip (form field "file")
  GET  /api/status/{id}       poll progress
  GET  /api/download/{id}     fetch the merged file
  GET  /api/jobs              list jobs
  GET  /swagger/index.html    API documentation
The port comes from --port or the PORT environment variable (default 5000).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := getLogger()
		cfg := getConfig()

		var journal pipeline.Journal
		if cfg.DBPath != "" {
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()
			journal = st
			logger.Info("Journal opened", "path", cfg.DBPath)
		}

		orch, err := pipeline.NewOrchestrator(cfg, pipeline.NewTracker(), journal, logger)
		if err != nil {
			return err
		}

		r := router.New(logger)
		api.RegisterRoutes(r, handler.New(orch, cfg.MaxUploadBytes, logger))

		srv := &http.Server{
			Addr:              cfg.Addr(),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logger.Info("Server listening", "addr", srv.Addr, "workers", cfg.Workers, "batch_size", cfg.BatchSize)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			orch.Shutdown(context.Background())
			return err
		case <-ctx.Done():
		}

		logger.Info("Shutting down", "timeout", cfg.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown failed", "error", err)
		}
		if err := orch.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Jobs still running at exit", "error", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVarP(&appConfig.Port, "port", "p", appConfig.Port, "Listen port")
	serveCmd.Flags().IntVarP(&appConfig.Workers, "workers", "w", appConfig.Workers, "Jobs processed concurrently")
	serveCmd.Flags().IntVar(&appConfig.QueueSize, "queue-size", appConfig.QueueSize, "Jobs waiting for a worker before submissions are rejected")
	serveCmd.Flags().Int64Var(&appConfig.MaxUploadBytes, "max-upload-bytes", appConfig.MaxUploadBytes, "Largest accepted upload")
	serveCmd.Flags().BoolVar(&appConfig.KeepUploads, "keep-uploads", appConfig.KeepUploads, "Keep uploaded archives after processing")
	serveCmd.Flags().DurationVar(&appConfig.ShutdownTimeout, "shutdown-timeout", appConfig.ShutdownTimeout, "Time allowed for running jobs on shutdown")
}

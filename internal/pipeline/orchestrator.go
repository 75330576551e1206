package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"go-archive-merger/internal/config"
	"go-archive-merger/internal/model"
	"go-archive-merger/internal/worker"
	"go-archive-merger/pkg/utils"
)

// Journal records job history. It is write-only from the orchestrator's
// point of view and never used to rebuild tracker state.
type Journal interface {
	SaveJob(ctx context.Context, id, archiveName string) error
	UpdateJobStatus(ctx context.Context, id string, status model.JobStatus) error
	SaveJobMessage(ctx context.Context, id, message string) error
	SaveJobError(ctx context.Context, id string, jobErr error) error
}

// Orchestrator accepts archives, runs one merge task per job on the worker
// pool and answers status and result queries from the tracker.
type Orchestrator struct {
	cfg     config.Config
	tracker *Tracker
	journal Journal
	paths   *utils.OutputManager
	pool    *worker.Pool
	logger  *slog.Logger
}

// NewOrchestrator validates cfg, creates the upload and output directories
// and starts the worker pool. journal may be nil.
func NewOrchestrator(cfg config.Config, tracker *Tracker, journal Journal, logger *slog.Logger) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tracker == nil {
		tracker = NewTracker()
	}
	if logger == nil {
		logger = slog.Default()
	}

	paths := utils.NewOutputManager(cfg.UploadDir, cfg.OutputDir)
	if err := paths.EnsureDirs(); err != nil {
		return nil, err
	}

	return &Orchestrator{
		cfg:     cfg,
		tracker: tracker,
		journal: journal,
		paths:   paths,
		pool:    worker.NewPool(logger, worker.WithWorkers(cfg.Workers), worker.WithQueueSize(cfg.QueueSize)),
		logger:  logger,
	}, nil
}

// Submit stores the uploaded archive, registers a queued job and schedules
// its merge. It returns the job id without waiting for the merge.
func (o *Orchestrator) Submit(ctx context.Context, filename string, src io.Reader) (string, error) {
	if filename == "" || src == nil {
		return "", fmt.Errorf("%w: %w: no file provided", model.ErrSubmission, model.ErrInvalidUpload)
	}

	id := uuid.New().String()
	uploadPath := o.paths.UploadPath(id, filename)
	outputPath := o.paths.OutputPath(id)
	logger := o.logger.With("job_id", id)

	if err := o.saveUpload(uploadPath, src); err != nil {
		os.Remove(uploadPath)
		return "", fmt.Errorf("%w: %w", model.ErrSubmission, err)
	}

	o.tracker.Queue(id, filename, outputPath)
	if o.journal != nil {
		if err := o.journal.SaveJob(ctx, id, filename); err != nil {
			logger.Warn("failed to journal job", "error", err)
		}
	}

	task := worker.Task{
		ID:  id,
		Run: func(ctx context.Context) { o.run(ctx, id, uploadPath, outputPath) },
	}
	if err := o.pool.Submit(task); err != nil {
		os.Remove(uploadPath)
		o.fail(ctx, id, err)
		return "", fmt.Errorf("%w: %w", model.ErrSubmission, err)
	}

	logger.Info("job submitted", "archive", filename, "upload", uploadPath)
	return id, nil
}

// Status returns a snapshot of the job.
func (o *Orchestrator) Status(id string) (model.Job, error) {
	return o.tracker.Snapshot(id)
}

// Result returns the output path of a completed job.
func (o *Orchestrator) Result(id string) (string, error) {
	job, err := o.tracker.Snapshot(id)
	if err != nil {
		return "", err
	}
	if job.Status != model.StatusCompleted {
		return "", fmt.Errorf("%w: job is %s", model.ErrResultNotReady, job.Status)
	}
	return job.OutputPath, nil
}

func (o *Orchestrator) Jobs() []model.Job {
	return o.tracker.Jobs()
}

// DownloadName is the attachment name of a job's output.
func (o *Orchestrator) DownloadName(id string) string {
	return o.paths.DownloadName(id)
}

// Shutdown stops accepting jobs and waits for queued and running ones until ctx is done.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	return o.pool.Shutdown(ctx)
}

func (o *Orchestrator) saveUpload(dst string, src io.Reader) error {
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to store upload: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(src, o.cfg.MaxUploadBytes+1))
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to store upload: %w", err)
	}
	if n > o.cfg.MaxUploadBytes {
		f.Close()
		return fmt.Errorf("%w: upload exceeds %d bytes", model.ErrInvalidUpload, o.cfg.MaxUploadBytes)
	}
	if n == 0 {
		f.Close()
		return fmt.Errorf("%w: uploaded file is empty", model.ErrInvalidUpload)
	}
	return f.Close()
}

// run is the body of a job's pool task.
func (o *Orchestrator) run(ctx context.Context, id, uploadPath, outputPath string) {
	logger := o.logger.With("job_id", id)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline panicked", "panic", r)
			o.fail(ctx, id, fmt.Errorf("internal error: %v", r))
		}
		if !o.cfg.KeepUploads {
			if err := os.Remove(uploadPath); err != nil && !os.IsNotExist(err) {
				logger.Warn("failed to remove upload", "path", uploadPath, "error", err)
			}
		}
	}()

	o.tracker.Create(id)
	o.journalStatus(ctx, id, model.StatusProcessing)

	summary, err := Merge(ctx, MergeRequest{
		ArchivePath: uploadPath,
		OutputPath:  outputPath,
		BatchSize:   o.cfg.BatchSize,
		Logger:      logger,
	}, &jobReporter{ctx: ctx, id: id, tracker: o.tracker, journal: o.journal, logger: logger})
	if err != nil {
		logger.Error("job failed", "error", err)
		o.fail(ctx, id, err)
		return
	}

	o.tracker.MarkCompleted(id)
	if o.journal != nil {
		if err := o.journal.SaveJobMessage(ctx, id, CompletionMessage); err != nil {
			logger.Warn("failed to journal message", "error", err)
		}
	}
	o.journalStatus(ctx, id, model.StatusCompleted)
	size, _ := o.paths.FileSize(outputPath)
	logger.Info("job completed", "entries", summary.Entries, "failed", summary.Failed(), "rows", summary.Rows, "bytes", size)
}

func (o *Orchestrator) fail(ctx context.Context, id string, jobErr error) {
	o.tracker.MarkError(id, jobErr.Error())
	if o.journal == nil {
		return
	}
	if err := o.journal.SaveJobError(ctx, id, jobErr); err != nil {
		o.logger.Warn("failed to journal error", "job_id", id, "error", err)
	}
	o.journalStatus(ctx, id, model.StatusError)
}

func (o *Orchestrator) journalStatus(ctx context.Context, id string, status model.JobStatus) {
	if o.journal == nil {
		return
	}
	if err := o.journal.UpdateJobStatus(ctx, id, status); err != nil {
		o.logger.Warn("failed to journal status", "job_id", id, "status", status, "error", err)
	}
}

// jobReporter feeds merge lines and progress into the tracker and the journal.
type jobReporter struct {
	ctx     context.Context
	id      string
	tracker *Tracker
	journal Journal
	logger  *slog.Logger
}

func (r *jobReporter) Logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.tracker.AppendLog(r.id, msg)
	r.logger.Debug(msg)
	if r.journal != nil {
		if err := r.journal.SaveJobMessage(r.ctx, r.id, msg); err != nil {
			r.logger.Warn("failed to journal message", "error", err)
		}
	}
}

func (r *jobReporter) Progress(percent float64, current, total int) {
	r.tracker.SetProgress(r.id, percent, current, total)
}

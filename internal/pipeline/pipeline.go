package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go-archive-merger/internal/config"
	"go-archive-merger/internal/model"
)

// Reporter receives the client-visible log lines and progress of a merge.
type Reporter interface {
	Logf(format string, args ...any)
	Progress(percent float64, current, total int)
}

// MergeRequest describes one archive-to-file merge.
type MergeRequest struct {
	ArchivePath string
	OutputPath  string
	BatchSize   int // 0 means config.DefaultBatchSize
	Logger      *slog.Logger
}

// Summary is what a finished merge produced.
type Summary struct {
	Entries     int
	Batches     int
	Parsed      int
	Rows        int
	Columns     []string
	EntryErrors []error
	Duration    time.Duration
}

// Failed returns the number of entries that could not be merged.
func (s Summary) Failed() int { return len(s.EntryErrors) }

// ------------------- Pipeline Runner -------------------

// Merge reads every data entry of the archive in batches and appends each
// batch to the pipe-delimited output. Entry failures are reported and
// skipped; archive and output failures abort the merge. Batches already
// written stay on disk.
func Merge(ctx context.Context, req MergeRequest, rep Reporter) (Summary, error) {
	start := time.Now()
	logger := req.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if rep == nil {
		rep = nopReporter{}
	}
	size := req.BatchSize
	if size == 0 {
		size = config.DefaultBatchSize
	}

	var summary Summary

	archive, err := OpenArchive(req.ArchivePath)
	if err != nil {
		return summary, err
	}
	defer archive.Close()

	total := archive.Len()
	summary.Entries = total
	rep.Logf("Found %d files to process", total)
	rep.Logf("Using batch size of %d files for efficient processing", size)

	batches, err := PlanBatches(total, size)
	if err != nil {
		return summary, err
	}
	summary.Batches = len(batches)
	rep.Logf("Total number of batches: %d", len(batches))

	scratch, err := os.MkdirTemp("", "archive-merge-*")
	if err != nil {
		return summary, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	sink := NewSink(req.OutputPath)
	run := &batchRun{
		archive: archive,
		sink:    sink,
		scratch: scratch,
		total:   total,
		batches: len(batches),
		rep:     rep,
		logger:  logger,
	}

	for _, b := range batches {
		if err := ctx.Err(); err != nil {
			return run.summarize(summary, start), err
		}
		if err := run.process(ctx, b); err != nil {
			logger.Error("batch failed", "batch", b.Number, "error", err)
			return run.summarize(summary, start), err
		}
	}

	if err := sink.Finalize(); err != nil {
		return run.summarize(summary, start), err
	}

	summary = run.summarize(summary, start)
	logger.Info("merge finished",
		"entries", summary.Entries,
		"parsed", summary.Parsed,
		"failed", summary.Failed(),
		"rows", summary.Rows,
		"duration", summary.Duration,
	)
	return summary, nil
}

type batchRun struct {
	archive *Archive
	sink    *Sink
	scratch string
	total   int
	batches int
	rep     Reporter
	logger  *slog.Logger

	parsed      int
	entryErrors []error
}

func (r *batchRun) process(ctx context.Context, b Batch) error {
	r.rep.Logf("Starting batch %d of %d (files %d to %d)", b.Number, r.batches, b.Start+1, b.End)

	var sets []RowSet
	attempted := 0
	for i := b.Start; i < b.End; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := r.archive.Name(i)
		rs, err := r.readEntry(i)
		if err != nil {
			r.entryErrors = append(r.entryErrors, &model.EntryError{Entry: name, Err: err})
			r.logger.Error("entry failed", "entry", name, "error", err)
			r.rep.Logf("Error processing %s: %s", name, err)
		} else {
			sets = append(sets, rs)
			r.parsed++
		}

		attempted++
		current := i + 1
		r.rep.Progress(min(95, 100*float64(current)/float64(r.total)), current, r.total)
		if attempted%100 == 0 || attempted == b.Size() {
			r.rep.Logf("Batch %d: Processed %d of %d files", b.Number, attempted, b.Size())
		}
	}

	if len(sets) > 0 {
		r.rep.Logf("Combining data for batch %d...", b.Number)
		combined := Concat(sets...)

		r.rep.Logf("Processing numeric columns for batch %d...", b.Number)
		FillMissing(&combined)

		r.rep.Logf("Saving processed data for batch %d...", b.Number)
		if err := r.sink.Append(combined); err != nil {
			return err
		}
		r.logger.Debug("batch written", "batch", b.Number, "rows", len(combined.Rows), "columns", len(combined.Columns))
	}

	r.rep.Logf("✓ Completed batch %d of %d", b.Number, r.batches)
	return nil
}

// readEntry extracts one entry to scratch, parses it and removes the extracted file.
func (r *batchRun) readEntry(i int) (RowSet, error) {
	p, err := r.archive.Extract(i, r.scratch)
	if err != nil {
		return RowSet{}, err
	}
	defer os.Remove(p)
	return ParseEntry(p, r.archive.Name(i))
}

func (r *batchRun) summarize(s Summary, start time.Time) Summary {
	s.Parsed = r.parsed
	s.EntryErrors = r.entryErrors
	s.Rows = r.sink.Rows()
	s.Columns = r.sink.Columns()
	s.Duration = time.Since(start)
	return s
}

type nopReporter struct{}

func (nopReporter) Logf(string, ...any)        {}
func (nopReporter) Progress(float64, int, int) {}

// LogReporter sends merge lines to a logger. It serves runs that have no
// tracker, such as the merge command.
type LogReporter struct {
	Logger *slog.Logger
}

func (l LogReporter) Logf(format string, args ...any) {
	l.Logger.Info(fmt.Sprintf(format, args...))
}

func (l LogReporter) Progress(percent float64, current, total int) {
	l.Logger.Debug("progress", "percent", percent, "current", current, "total", total)
}

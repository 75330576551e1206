package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go-archive-merger/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreJobLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveJob(ctx, "job-1", "ipl.zip"); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}
	rec, err := s.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if rec.Status != model.StatusQueued || rec.ArchiveName != "ipl.zip" || rec.Error != "" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	if err := s.UpdateJobStatus(ctx, "job-1", model.StatusProcessing); err != nil {
		t.Fatalf("UpdateJobStatus: %v", err)
	}
	if err := s.SaveJobError(ctx, "job-1", errors.New("cannot write output: disk full")); err != nil {
		t.Fatalf("SaveJobError: %v", err)
	}
	if err := s.UpdateJobStatus(ctx, "job-1", model.StatusError); err != nil {
		t.Fatalf("UpdateJobStatus: %v", err)
	}

	rec, _ = s.GetJob(ctx, "job-1")
	if rec.Status != model.StatusError || rec.Error != "cannot write output: disk full" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.UpdatedAt.Before(rec.CreatedAt) {
		t.Fatalf("updated_at before created_at: %+v", rec)
	}

	if err := s.SaveJobError(ctx, "job-1", nil); err != nil {
		t.Fatalf("SaveJobError(nil): %v", err)
	}
}

func TestStoreUnknownJob(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.GetJob(ctx, "missing"); !errors.Is(err, model.ErrJobNotFound) {
		t.Fatalf("GetJob: expected ErrJobNotFound, got %v", err)
	}
	if err := s.UpdateJobStatus(ctx, "missing", model.StatusCompleted); !errors.Is(err, model.ErrJobNotFound) {
		t.Fatalf("UpdateJobStatus: expected ErrJobNotFound, got %v", err)
	}
}

func TestStoreMessagesInOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.SaveJob(ctx, "job-1", "a.zip")
	s.SaveJob(ctx, "job-2", "b.zip")
	for _, m := range []string{"Found 2 files to process", "Total number of batches: 1", "✓ Completed batch 1 of 1"} {
		if err := s.SaveJobMessage(ctx, "job-1", m); err != nil {
			t.Fatalf("SaveJobMessage: %v", err)
		}
	}
	s.SaveJobMessage(ctx, "job-2", "other job")

	messages, err := s.GetJobMessages(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJobMessages: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	if messages[0].Message != "Found 2 files to process" || messages[2].Message != "✓ Completed batch 1 of 1" {
		t.Fatalf("messages out of order: %+v", messages)
	}
}

func TestStoreListJobs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"first", "second", "third"} {
		if err := s.SaveJob(ctx, id, id+".zip"); err != nil {
			t.Fatalf("SaveJob: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	jobs, err := s.ListJobs(ctx, 0)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 3 || jobs[0].ID != "third" || jobs[2].ID != "first" {
		t.Fatalf("unexpected order: %+v", jobs)
	}

	limited, err := s.ListJobs(ctx, 2)
	if err != nil {
		t.Fatalf("ListJobs(2): %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(limited))
	}
}

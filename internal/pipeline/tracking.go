package pipeline

import (
	"slices"
	"strings"
	"sync"
	"time"

	"go-archive-merger/internal/model"
)

// CompletionMessage is the last log line of a successful job.
const CompletionMessage = "All batches processed successfully! You can now download the processed file."

// Tracker holds the live state of every job for the lifetime of the process.
// Each job is mutated by its own pipeline run only; readers get copies.
// Records are never evicted, so memory grows with the number of jobs.
type Tracker struct {
	mu   sync.RWMutex
	jobs map[string]*model.Job
	now  func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		jobs: make(map[string]*model.Job),
		now:  time.Now,
	}
}

// Queue registers a submitted job that has not started yet.
func (t *Tracker) Queue(id, archiveName, outputPath string) {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[id] = &model.Job{
		ID:          id,
		Status:      model.StatusQueued,
		ArchiveName: archiveName,
		OutputPath:  outputPath,
		Messages:    []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Create starts a job: status processing, progress 0 and an empty log.
// A queued record keeps its archive and output metadata.
func (t *Tracker) Create(id string) {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		job = &model.Job{ID: id, CreatedAt: now}
		t.jobs[id] = job
	}
	job.Status = model.StatusProcessing
	job.Progress = 0
	job.CurrentFile = 0
	job.TotalFiles = 0
	job.Messages = []string{}
	job.Error = ""
	job.UpdatedAt = now
}

// AppendLog adds a "[HH:MM:SS] text" line to the job's log.
func (t *Tracker) AppendLog(id, text string) error {
	return t.update(id, func(job *model.Job, now time.Time) {
		job.Messages = append(job.Messages, "["+now.Format(time.TimeOnly)+"] "+text)
	})
}

func (t *Tracker) SetProgress(id string, percent float64, current, total int) error {
	return t.update(id, func(job *model.Job, _ time.Time) {
		job.Progress = percent
		job.CurrentFile = current
		job.TotalFiles = total
	})
}

func (t *Tracker) MarkCompleted(id string) error {
	return t.update(id, func(job *model.Job, now time.Time) {
		job.Status = model.StatusCompleted
		job.Progress = 100
		job.Messages = append(job.Messages, "["+now.Format(time.TimeOnly)+"] "+CompletionMessage)
	})
}

// MarkError records a fatal failure. Progress keeps its last value.
func (t *Tracker) MarkError(id, msg string) error {
	return t.update(id, func(job *model.Job, now time.Time) {
		job.Status = model.StatusError
		job.Error = msg
		job.Messages = append(job.Messages, "["+now.Format(time.TimeOnly)+"] Error: "+msg)
	})
}

// Snapshot returns a copy of the job that later updates do not touch.
func (t *Tracker) Snapshot(id string) (model.Job, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	job, ok := t.jobs[id]
	if !ok {
		return model.Job{}, model.ErrJobNotFound
	}
	return copyJob(job), nil
}

// Jobs returns copies of all jobs, oldest first.
func (t *Tracker) Jobs() []model.Job {
	t.mu.RLock()
	jobs := make([]model.Job, 0, len(t.jobs))
	for _, job := range t.jobs {
		jobs = append(jobs, copyJob(job))
	}
	t.mu.RUnlock()

	slices.SortFunc(jobs, func(a, b model.Job) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return jobs
}

func (t *Tracker) update(id string, fn func(job *model.Job, now time.Time)) error {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return model.ErrJobNotFound
	}
	fn(job, now)
	job.UpdatedAt = now
	return nil
}

func copyJob(job *model.Job) model.Job {
	c := *job
	c.Messages = slices.Clone(job.Messages)
	if c.Messages == nil {
		c.Messages = []string{}
	}
	return c
}

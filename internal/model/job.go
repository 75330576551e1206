package model

import "time"

// JobStatus is the lifecycle state of a merge job
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusError      JobStatus = "error"
)

// Terminal reports whether no further transitions happen from this status.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Job is the live record of one archive merge run
type Job struct {
	ID          string    `json:"process_id"`
	Status      JobStatus `json:"status"`
	Progress    float64   `json:"progress"`
	CurrentFile int       `json:"current_file"`
	TotalFiles  int       `json:"total_files"`
	Messages    []string  `json:"messages,omitempty"`
	Error       string    `json:"error,omitempty"`
	ArchiveName string    `json:"archive_name,omitempty"`
	OutputPath  string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// JobRecord is a job row as kept in the journal database
type JobRecord struct {
	ID          string    `json:"id"`
	ArchiveName string    `json:"archive_name"`
	Status      JobStatus `json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// JobMessage is a single journaled log line of a job
type JobMessage struct {
	JobID     string    `json:"job_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

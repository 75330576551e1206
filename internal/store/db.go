package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"go-archive-merger/internal/model"
)

// Store is the SQLite journal of submitted jobs, their log lines and fatal
// errors. It is an audit trail; live job state is kept by the tracker.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// one connection serializes writers
	db.SetMaxOpenConns(1)

	// Create tables if not exists
	jobTable := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		archive_name TEXT,
		status TEXT,
		error TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);
	`
	messageTable := `
	CREATE TABLE IF NOT EXISTS job_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT,
		message TEXT,
		created_at DATETIME
	);
	`
	errorTable := `
	CREATE TABLE IF NOT EXISTS job_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT,
		error_message TEXT,
		created_at DATETIME
	);
	`

	for _, stmt := range []string{jobTable, messageTable, errorTable} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create journal tables: %w", err)
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveJob stores a newly submitted job
func (s *Store) SaveJob(ctx context.Context, jobID, archiveName string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, archive_name, status, error, created_at, updated_at) VALUES (?, ?, ?, '', ?, ?)`,
		jobID, archiveName, string(model.StatusQueued), now, now)
	return err
}

// UpdateJobStatus updates job status
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`, string(status), now, jobID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrJobNotFound
	}
	return nil
}

// SaveJobMessage appends one log line of a job
func (s *Store) SaveJobMessage(ctx context.Context, jobID, message string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO job_messages (job_id, message, created_at) VALUES (?, ?, ?)`,
		jobID, message, now)
	return err
}

// SaveJobError records the fatal error of a job
func (s *Store) SaveJobError(ctx context.Context, jobID string, jobErr error) error {
	if jobErr == nil {
		return nil
	}
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, `INSERT INTO job_errors (job_id, error_message, created_at) VALUES (?, ?, ?)`,
		jobID, jobErr.Error(), now); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `UPDATE jobs SET error = ?, updated_at = ? WHERE id = ?`, jobErr.Error(), now, jobID)
	return err
}

// ListJobs returns the newest jobs first. limit <= 0 returns all of them.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]model.JobRecord, error) {
	query := `SELECT id, archive_name, status, COALESCE(error, ''), created_at, updated_at FROM jobs ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []model.JobRecord
	for rows.Next() {
		var rec model.JobRecord
		var status string
		if err := rows.Scan(&rec.ID, &rec.ArchiveName, &status, &rec.Error, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.Status = model.JobStatus(status)
		jobs = append(jobs, rec)
	}
	return jobs, rows.Err()
}

// GetJob fetches one journaled job
func (s *Store) GetJob(ctx context.Context, jobID string) (model.JobRecord, error) {
	var rec model.JobRecord
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, archive_name, status, COALESCE(error, ''), created_at, updated_at FROM jobs WHERE id = ?`, jobID).
		Scan(&rec.ID, &rec.ArchiveName, &status, &rec.Error, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.JobRecord{}, model.ErrJobNotFound
	}
	if err != nil {
		return model.JobRecord{}, err
	}
	rec.Status = model.JobStatus(status)
	return rec, nil
}

// GetJobMessages returns the journaled log lines of a job in order
func (s *Store) GetJobMessages(ctx context.Context, jobID string) ([]model.JobMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, message, created_at FROM job_messages WHERE job_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []model.JobMessage
	for rows.Next() {
		var m model.JobMessage
		if err := rows.Scan(&m.JobID, &m.Message, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/clipforge/remuxd/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id           TEXT PRIMARY KEY,
	url          TEXT NOT NULL,
	status       TEXT NOT NULL,
	attempts     INTEGER NOT NULL DEFAULT 0,
	max_retries  INTEGER NOT NULL DEFAULT 0,
	failure_kind TEXT NOT NULL DEFAULT '',
	last_error   TEXT NOT NULL DEFAULT '',
	media_type   TEXT NOT NULL DEFAULT '',
	size_bytes   INTEGER NOT NULL DEFAULT 0,
	result_data  BLOB,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
`

// SQLiteJobRepository implements JobRepository backed by a SQLite database,
// so queued jobs and delivered payloads survive a daemon restart.
type SQLiteJobRepository struct {
	db *sql.DB
}

// NewSQLiteJobRepository opens (creating if needed) the database at path.
func NewSQLiteJobRepository(path string) (*SQLiteJobRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection sidesteps SQLITE_BUSY under concurrent workers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteJobRepository{db: db}, nil
}

// Close closes the underlying database.
func (r *SQLiteJobRepository) Close() error {
	return r.db.Close()
}

// Enqueue adds a job to the queue.
func (r *SQLiteJobRepository) Enqueue(ctx context.Context, job *domain.Job) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs (id, url, status, attempts, max_retries, failure_kind, last_error, media_type, size_bytes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID.String(), job.URL, string(job.Status), job.Attempts, job.MaxRetries,
		string(job.FailureKind), job.LastError, job.MediaType, job.SizeBytes,
		job.CreatedAt.UTC().Format(time.RFC3339Nano), job.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Dequeue claims the oldest pending job. The claim happens in one
// transaction so concurrent workers never pick the same job.
func (r *SQLiteJobRepository) Dequeue(ctx context.Context) (*domain.Job, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, url, status, attempts, max_retries, failure_kind, last_error, media_type, size_bytes, created_at, updated_at
		FROM jobs
		WHERE status IN (?, ?)
		ORDER BY rowid
		LIMIT 1`,
		string(domain.JobStatusQueued), string(domain.JobStatusRetrying),
	)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNoJobs
		}
		return nil, err
	}

	job.MarkProcessing()
	if _, err := tx.ExecContext(ctx, `UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`,
		string(job.Status), job.UpdatedAt.UTC().Format(time.RFC3339Nano), job.ID.String()); err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return job, nil
}

// Update modifies job state.
func (r *SQLiteJobRepository) Update(ctx context.Context, job *domain.Job) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, attempts = ?, failure_kind = ?, last_error = ?, media_type = ?, size_bytes = ?, updated_at = ?
		WHERE id = ?`,
		string(job.Status), job.Attempts, string(job.FailureKind), job.LastError,
		job.MediaType, job.SizeBytes, job.UpdatedAt.UTC().Format(time.RFC3339Nano), job.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// Get retrieves a job by ID.
func (r *SQLiteJobRepository) Get(ctx context.Context, id domain.JobID) (*domain.Job, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, url, status, attempts, max_retries, failure_kind, last_error, media_type, size_bytes, created_at, updated_at
		FROM jobs WHERE id = ?`, id.String())

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// StoreResult persists the delivered payload for a completed job.
func (r *SQLiteJobRepository) StoreResult(ctx context.Context, id domain.JobID, payload domain.MediaPayload) error {
	res, err := r.db.ExecContext(ctx, `UPDATE jobs SET result_data = ?, media_type = ?, size_bytes = ? WHERE id = ?`,
		payload.Data, payload.MediaType, int64(len(payload.Data)), id.String())
	if err != nil {
		return fmt.Errorf("store result: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// GetResult retrieves the delivered payload of a completed job.
func (r *SQLiteJobRepository) GetResult(ctx context.Context, id domain.JobID) (domain.MediaPayload, error) {
	var (
		data      []byte
		mediaType string
	)
	err := r.db.QueryRowContext(ctx, `SELECT result_data, media_type FROM jobs WHERE id = ? AND result_data IS NOT NULL`, id.String()).
		Scan(&data, &mediaType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.MediaPayload{}, domain.ErrJobNotFound
		}
		return domain.MediaPayload{}, fmt.Errorf("get result: %w", err)
	}

	return domain.MediaPayload{Data: data, MediaType: mediaType}, nil
}

// Stats returns queue statistics.
func (r *SQLiteJobRepository) Stats(ctx context.Context) (*QueueStats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := &QueueStats{}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		switch domain.JobStatus(status) {
		case domain.JobStatusQueued:
			stats.Queued = count
		case domain.JobStatusProcessing:
			stats.Processing = count
		case domain.JobStatusCompleted:
			stats.Completed = count
		case domain.JobStatusFailed:
			stats.Failed = count
		case domain.JobStatusRetrying:
			stats.Retrying = count
		}
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job                  domain.Job
		id, status, kind     string
		createdAt, updatedAt string
	)
	err := row.Scan(&id, &job.URL, &status, &job.Attempts, &job.MaxRetries, &kind,
		&job.LastError, &job.MediaType, &job.SizeBytes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	job.ID = domain.JobID(id)
	job.Status = domain.JobStatus(status)
	job.FailureKind = domain.FailureKind(kind)

	if job.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &job, nil
}

package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/repodoc/internal/errors"
)

// SQLiteStore implements Store using SQLite. It serves single-binary
// deployments where NATS is not configured.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (and if needed initializes) a SQLite-backed store.
// Use ":memory:" for an in-memory database, or a file path for persistence.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		locator TEXT NOT NULL,
		state TEXT NOT NULL,
		status_message TEXT NOT NULL,
		result TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_state ON jobs(state);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Create inserts a new job record.
func (s *SQLiteStore) Create(ctx context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO jobs (id, locator, state, status_message, result, created_at, updated_at) VALUES (?, ?, ?, ?, NULL, ?, ?)",
		job.ID, job.Locator, string(job.State), job.StatusMessage,
		job.CreatedAt.Unix(), job.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// UpdateState advances the job's state, enforcing monotonicity.
func (s *SQLiteStore) UpdateState(ctx context.Context, id string, state State, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.getLocked(ctx, id)
	if err != nil {
		return err
	}
	if !canTransition(current.State, state) {
		return errors.ValidationError(fmt.Sprintf("invalid state transition %s -> %s for job %s", current.State, state, id))
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE jobs SET state = ?, status_message = ?, updated_at = ? WHERE id = ?",
		string(state), message, time.Now().UTC().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("update job state: %w", err)
	}
	return nil
}

// SetResult moves the job to a terminal state and stores the result payload.
func (s *SQLiteStore) SetResult(ctx context.Context, id string, state State, result Result) error {
	if !state.Terminal() {
		return errors.ValidationError(fmt.Sprintf("result state %s is not terminal", state))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.getLocked(ctx, id)
	if err != nil {
		return err
	}
	if !canTransition(current.State, state) {
		return errors.ValidationError(fmt.Sprintf("invalid state transition %s -> %s for job %s", current.State, state, id))
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	message := "Documentation generated successfully"
	if state == StateFailed {
		message = "Documentation generation failed"
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE jobs SET state = ?, status_message = ?, result = ?, updated_at = ? WHERE id = ?",
		string(state), message, string(resultJSON), time.Now().UTC().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("update job result: %w", err)
	}
	return nil
}

// Get returns the job by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(ctx, id)
}

func (s *SQLiteStore) getLocked(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, locator, state, status_message, result, created_at, updated_at FROM jobs WHERE id = ?",
		id,
	)

	var job Job
	var state string
	var resultJSON sql.NullString
	var createdAt, updatedAt int64
	err := row.Scan(&job.ID, &job.Locator, &state, &job.StatusMessage, &resultJSON, &createdAt, &updatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound(fmt.Sprintf("job %s", id))
	}
	if err != nil {
		return nil, fmt.Errorf("query job: %w", err)
	}

	job.State = State(state)
	job.CreatedAt = time.Unix(createdAt, 0).UTC()
	job.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	if resultJSON.Valid && resultJSON.String != "" {
		var result Result
		if err := json.Unmarshal([]byte(resultJSON.String), &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		job.Result = &result
	}
	return &job, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

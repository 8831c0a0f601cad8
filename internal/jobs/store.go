package jobs

import "context"

// Store persists job records and enforces two invariants regardless of
// backend: state changes are monotonic, and terminal jobs are immutable.
type Store interface {
	// Create inserts a new job. It fails if the id already exists.
	Create(ctx context.Context, job *Job) error

	// UpdateState advances the job's state and status message. It returns
	// an error when the transition would regress the state or mutate a
	// terminal job.
	UpdateState(ctx context.Context, id string, state State, message string) error

	// SetResult moves the job to a terminal state and attaches the result.
	SetResult(ctx context.Context, id string, state State, result Result) error

	// Get returns the job or a not_found error.
	Get(ctx context.Context, id string) (*Job, error)

	// Close releases the store's resources.
	Close() error
}

package jobs

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/repodoc/internal/errors"
)

const jobsKVBucket = "repodoc-jobs"

// NATSStore implements Store on a JetStream key-value bucket. Every API
// replica and worker sees the same bucket, so status polls may hit any
// instance.
type NATSStore struct {
	client *NATSClient
	kv     jetstream.KeyValue
}

// NewNATSStore creates or binds the job status bucket.
func NewNATSStore(client *NATSClient) (*NATSStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kv, err := client.js.KeyValue(ctx, jobsKVBucket)
	if err != nil {
		kv, err = client.js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      jobsKVBucket,
			Description: "Job status records for repodoc",
			History:     1,
		})
		if err != nil {
			return nil, fmt.Errorf("create KV bucket: %w", err)
		}
	}

	return &NATSStore{client: client, kv: kv}, nil
}

// Create inserts a new job record, failing if the key exists.
func (s *NATSStore) Create(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if _, err := s.kv.Create(ctx, job.ID, data); err != nil {
		return errors.QueueError("create job record", err)
	}
	return nil
}

// UpdateState advances the job's state via a compare-and-swap so concurrent
// writers cannot regress it.
func (s *NATSStore) UpdateState(ctx context.Context, id string, state State, message string) error {
	return s.mutate(ctx, id, func(job *Job) error {
		if !canTransition(job.State, state) {
			return errors.ValidationError(fmt.Sprintf("invalid state transition %s -> %s for job %s", job.State, state, id))
		}
		job.State = state
		job.StatusMessage = message
		job.UpdatedAt = time.Now().UTC()
		return nil
	})
}

// SetResult moves the job to a terminal state with its result payload.
func (s *NATSStore) SetResult(ctx context.Context, id string, state State, result Result) error {
	if !state.Terminal() {
		return errors.ValidationError(fmt.Sprintf("result state %s is not terminal", state))
	}
	return s.mutate(ctx, id, func(job *Job) error {
		if !canTransition(job.State, state) {
			return errors.ValidationError(fmt.Sprintf("invalid state transition %s -> %s for job %s", job.State, state, id))
		}
		job.State = state
		job.Result = &result
		job.UpdatedAt = time.Now().UTC()
		if state == StateFailed {
			job.StatusMessage = "Documentation generation failed"
		} else {
			job.StatusMessage = "Documentation generated successfully"
		}
		return nil
	})
}

// Get returns the job by id.
func (s *NATSStore) Get(ctx context.Context, id string) (*Job, error) {
	entry, err := s.kv.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, errors.NotFound(fmt.Sprintf("job %s", id))
		}
		return nil, errors.QueueError("get job record", err)
	}

	var job Job
	if err := json.Unmarshal(entry.Value(), &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

// mutate re-reads and conditionally updates the record, retrying when
// another writer won the revision race.
func (s *NATSStore) mutate(ctx context.Context, id string, apply func(*Job) error) error {
	const maxAttempts = 5
	for attempt := 0; attempt < maxAttempts; attempt++ {
		entry, err := s.kv.Get(ctx, id)
		if err != nil {
			if stderrors.Is(err, jetstream.ErrKeyNotFound) {
				return errors.NotFound(fmt.Sprintf("job %s", id))
			}
			return errors.QueueError("get job record", err)
		}

		var job Job
		if err := json.Unmarshal(entry.Value(), &job); err != nil {
			return fmt.Errorf("unmarshal job: %w", err)
		}

		if err := apply(&job); err != nil {
			return err
		}

		data, err := json.Marshal(&job)
		if err != nil {
			return fmt.Errorf("marshal job: %w", err)
		}

		// A failed compare-and-swap means another writer advanced the
		// record first; re-read and re-check the transition.
		if _, err = s.kv.Update(ctx, id, data, entry.Revision()); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return errors.QueueError("update job record", ctx.Err())
		}
	}
	return errors.QueueError("update job record", fmt.Errorf("revision conflict persisted for job %s", id))
}

// Close is a no-op; the shared NATS client owns the connection.
func (s *NATSStore) Close() error {
	return nil
}

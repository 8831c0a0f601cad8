package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/repodoc/internal/errors"
	"git.home.luguber.info/inful/repodoc/internal/logfields"
)

const (
	jobsStreamName   = "REPODOC_JOBS"
	jobsSubject      = "repodoc.jobs.submit"
	jobsConsumerName = "repodoc-workers"
)

// NATSQueue distributes tasks through a JetStream work-queue stream, so each
// task is delivered to exactly one worker across all replicas.
type NATSQueue struct {
	client   *NATSClient
	stream   jetstream.Stream
	consumer jetstream.Consumer
}

// NewNATSQueue creates or binds the work-queue stream and its durable
// consumer.
func NewNATSQueue(client *NATSClient) (*NATSQueue, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stream, err := client.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      jobsStreamName,
		Subjects:  []string{jobsSubject},
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("create work-queue stream: %w", err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:   jobsConsumerName,
		AckPolicy: jetstream.AckExplicitPolicy,
		AckWait:   2 * time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("create durable consumer: %w", err)
	}

	return &NATSQueue{client: client, stream: stream, consumer: consumer}, nil
}

// Enqueue publishes the task to the work-queue subject.
func (q *NATSQueue) Enqueue(ctx context.Context, task Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	if _, err := q.client.js.Publish(ctx, jobsSubject, data); err != nil {
		return errors.QueueError("publish task", err)
	}
	slog.Debug("Task published", logfields.JobID(task.JobID))
	return nil
}

// Consume pulls tasks and hands them to the handler. Messages are
// acknowledged after the handler returns, so a worker crash redelivers the
// task to another worker.
func (q *NATSQueue) Consume(ctx context.Context, handler Handler) error {
	cc, err := q.consumer.Consume(func(msg jetstream.Msg) {
		var task Task
		if err := json.Unmarshal(msg.Data(), &task); err != nil {
			slog.Error("Discarding malformed task", logfields.Error(err))
			_ = msg.Term()
			return
		}
		handler(ctx, task)
		if err := msg.Ack(); err != nil {
			slog.Warn("Failed to ack task", logfields.JobID(task.JobID), logfields.Error(err))
		}
	})
	if err != nil {
		return errors.QueueError("consume", err)
	}
	defer cc.Stop()

	<-ctx.Done()
	return ctx.Err()
}

// Depth returns the number of undelivered tasks in the stream.
func (q *NATSQueue) Depth() int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	info, err := q.stream.Info(ctx)
	if err != nil {
		return -1
	}
	return int(info.State.Msgs)
}

// Close is a no-op; the shared NATS client owns the connection.
func (q *NATSQueue) Close() error {
	return nil
}

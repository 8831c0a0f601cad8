// Package metrics provides observability hooks for job and stage metrics.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics can be enabled by swapping implementations without
// nil checks in call sites.
package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailure ResultLabel = "failure"
)

// Recorder defines observability hooks for job and stage metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc.
type Recorder interface {
	IncJobSubmitted()
	IncJobOutcome(outcome string) // outcome: completed|failed
	ObserveJobDuration(d time.Duration)
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	SetActiveJobs(n int)
	SetQueueDepth(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncJobSubmitted()                           {}
func (NoopRecorder) IncJobOutcome(string)                       {}
func (NoopRecorder) ObserveJobDuration(time.Duration)           {}
func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) SetActiveJobs(int)                          {}
func (NoopRecorder) SetQueueDepth(int)                          {}

package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopRecorderIsSafe(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncJobSubmitted()
	r.IncJobOutcome("completed")
	r.ObserveJobDuration(time.Second)
	r.ObserveStageDuration("analyze", time.Second)
	r.IncStageResult("analyze", ResultSuccess)
	r.SetActiveJobs(1)
	r.SetQueueDepth(3)
}

func TestPrometheusRecorderCounts(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.IncJobSubmitted()
	r.IncJobSubmitted()
	r.IncJobOutcome("completed")
	r.IncStageResult("analyze", ResultFailure)
	r.SetActiveJobs(2)
	r.ObserveStageDuration("analyze", 50*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	assert.Equal(t, float64(2), testutil.ToFloat64(r.jobsSubmitted))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.jobOutcomes.WithLabelValues("completed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.stageResults.WithLabelValues("analyze", "failure")))
	assert.Equal(t, float64(2), testutil.ToFloat64(r.activeJobs))
}

func TestPrometheusRecorderNilSafety(t *testing.T) {
	var r *PrometheusRecorder
	r.IncJobSubmitted()
	r.ObserveJobDuration(time.Second)
	r.SetQueueDepth(1)
}

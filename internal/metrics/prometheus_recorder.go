package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	jobsSubmitted prom.Counter
	jobOutcomes   *prom.CounterVec
	jobDuration   prom.Histogram
	stageDuration *prom.HistogramVec
	stageResults  *prom.CounterVec
	activeJobs    prom.Gauge
	queueDepth    prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.jobsSubmitted = prom.NewCounter(prom.CounterOpts{
			Namespace: "repodoc",
			Name:      "jobs_submitted_total",
			Help:      "Total documentation jobs accepted at submission",
		})
		pr.jobOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "repodoc",
			Name:      "job_outcomes_total",
			Help:      "Job outcomes by terminal state",
		}, []string{"outcome"})
		pr.jobDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "repodoc",
			Name:      "job_duration_seconds",
			Help:      "Total job run duration",
			Buckets:   prom.ExponentialBuckets(1, 2, 12),
		})
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "repodoc",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "repodoc",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.activeJobs = prom.NewGauge(prom.GaugeOpts{
			Namespace: "repodoc",
			Name:      "active_jobs",
			Help:      "Jobs currently executing on this worker",
		})
		pr.queueDepth = prom.NewGauge(prom.GaugeOpts{
			Namespace: "repodoc",
			Name:      "queue_depth",
			Help:      "Pending jobs visible to this process",
		})
		reg.MustRegister(pr.jobsSubmitted, pr.jobOutcomes, pr.jobDuration,
			pr.stageDuration, pr.stageResults, pr.activeJobs, pr.queueDepth)
	})
	return pr
}

func (p *PrometheusRecorder) IncJobSubmitted() {
	if p == nil || p.jobsSubmitted == nil {
		return
	}
	p.jobsSubmitted.Inc()
}

func (p *PrometheusRecorder) IncJobOutcome(outcome string) {
	if p == nil || p.jobOutcomes == nil {
		return
	}
	p.jobOutcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObserveJobDuration(d time.Duration) {
	if p == nil || p.jobDuration == nil {
		return
	}
	p.jobDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) SetActiveJobs(n int) {
	if p == nil || p.activeJobs == nil {
		return
	}
	p.activeJobs.Set(float64(n))
}

func (p *PrometheusRecorder) SetQueueDepth(n int) {
	if p == nil || p.queueDepth == nil {
		return
	}
	p.queueDepth.Set(float64(n))
}

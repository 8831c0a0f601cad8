// Package orchestrator drives one documentation job end to end: working-copy
// acquisition, the pipeline run, bundle assembly, storage hand-off, and the
// terminal status record. It owns the job's state transitions and its
// deadlines.
package orchestrator

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/repodoc/internal/analysis"
	rderrors "git.home.luguber.info/inful/repodoc/internal/errors"
	"git.home.luguber.info/inful/repodoc/internal/gitrepo"
	"git.home.luguber.info/inful/repodoc/internal/jobs"
	"git.home.luguber.info/inful/repodoc/internal/llm"
	"git.home.luguber.info/inful/repodoc/internal/logfields"
	"git.home.luguber.info/inful/repodoc/internal/metrics"
	"git.home.luguber.info/inful/repodoc/internal/pipeline"
	"git.home.luguber.info/inful/repodoc/internal/storage"
)

// Options configures an Orchestrator.
type Options struct {
	Store        jobs.Store
	Backend      storage.Backend
	LLM          llm.Client
	Recorder     metrics.Recorder
	WorkspaceDir string
	// StorageLabel names the backend in user-facing status messages,
	// e.g. "local storage" or "object storage".
	StorageLabel string
	// SoftDeadline cancels the run from inside; deferred cleanup still
	// executes. Must be strictly below HardDeadline.
	SoftDeadline time.Duration
	// HardDeadline abandons the run outright; the reaper reclaims whatever
	// the abandoned goroutine left behind.
	HardDeadline time.Duration
}

// repoAcquirer abstracts working-copy acquisition so runs can be exercised
// against local fixtures.
type repoAcquirer interface {
	Acquire(ctx context.Context, locator string) (path, name string, err error)
	Release(path string)
}

// Orchestrator executes documentation jobs.
type Orchestrator struct {
	opts     Options
	acquirer repoAcquirer
	analyzer *analysis.Analyzer
}

// New creates an orchestrator. Recorder defaults to the no-op implementation.
func New(opts Options) *Orchestrator {
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	return &Orchestrator{
		opts:     opts,
		acquirer: gitrepo.NewAcquirer(opts.WorkspaceDir),
		analyzer: analysis.NewAnalyzer(),
	}
}

// Run processes one task to its terminal state. It always records a terminal
// result off the caller's context, so a status poll never observes a job
// stuck in a non-terminal state after Run returns.
func (o *Orchestrator) Run(ctx context.Context, task jobs.Task) {
	start := time.Now()
	log := slog.With(logfields.JobID(task.JobID), logfields.Locator(task.Locator))
	log.Info("Job started")

	runCtx, cancel := context.WithTimeout(ctx, o.opts.SoftDeadline)
	defer cancel()

	type outcome struct {
		result jobs.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := o.execute(runCtx, task)
		done <- outcome{result, err}
	}()

	hard := time.NewTimer(o.opts.HardDeadline)
	defer hard.Stop()

	select {
	case out := <-done:
		o.finish(task, out.result, out.err, start)
	case <-hard.C:
		// The run goroutine is abandoned. Its working copy and bundle dir
		// are leaked until the workspace reaper sweeps them.
		log.Error("Job exceeded hard deadline, abandoning run")
		o.recordFailure(task, rderrors.HardTimeout(task.JobID), start)
	}
}

// finish records the terminal state for a completed or failed run.
func (o *Orchestrator) finish(task jobs.Task, result jobs.Result, err error, start time.Time) {
	if err != nil {
		o.recordFailure(task, err, start)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if serr := o.opts.Store.SetResult(ctx, task.JobID, jobs.StateCompleted, result); serr != nil {
		slog.Error("Failed to record job completion", logfields.JobID(task.JobID), logfields.Error(serr))
	}
	o.opts.Recorder.IncJobOutcome("completed")
	o.opts.Recorder.ObserveJobDuration(time.Since(start))
	slog.Info("Job completed",
		logfields.JobID(task.JobID),
		logfields.Repository(result.RepoName),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
}

// recordFailure writes the FAILED terminal record. It deliberately uses a
// fresh context so a cancelled run context cannot block the status write.
func (o *Orchestrator) recordFailure(task jobs.Task, cause error, start time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result := jobs.Result{Error: cause.Error()}
	if serr := o.opts.Store.SetResult(ctx, task.JobID, jobs.StateFailed, result); serr != nil {
		slog.Error("Failed to record job failure", logfields.JobID(task.JobID), logfields.Error(serr))
	}
	o.opts.Recorder.IncJobOutcome("failed")
	o.opts.Recorder.ObserveJobDuration(time.Since(start))
	slog.Warn("Job failed", logfields.JobID(task.JobID), logfields.Error(cause))
}

// execute runs the job body. Working copy and bundle directory are released
// on every return path, including panics and context cancellation.
func (o *Orchestrator) execute(ctx context.Context, task jobs.Task) (jobs.Result, error) {
	if err := o.setState(ctx, task.JobID, jobs.StateCloning, "Cloning repository..."); err != nil {
		return jobs.Result{}, err
	}

	repoPath, repoName, err := o.acquirer.Acquire(ctx, task.Locator)
	if err != nil {
		return jobs.Result{}, err
	}
	defer o.acquirer.Release(repoPath)

	if err := o.setState(ctx, task.JobID, jobs.StateAnalyzing, "Analyzing codebase..."); err != nil {
		return jobs.Result{}, err
	}

	engine := pipeline.NewEngine(o.analyzer, o.opts.LLM).
		WithRecorder(o.opts.Recorder).
		WithStageHook(func(name pipeline.StageName) {
			if name == pipeline.StageMainNarrative {
				_ = o.setState(ctx, task.JobID, jobs.StateGenerating, "Generating documentation...")
			}
		})

	st := engine.Run(ctx, pipeline.NewState(repoPath, repoName))
	if st.StageError != "" {
		// The pipeline ran to the end; the last recorded stage failure
		// decides the job outcome.
		return jobs.Result{}, rderrors.New(rderrors.CategoryStage, rderrors.SeverityError, st.StageError)
	}

	bundleDir := filepath.Join(o.opts.WorkspaceDir, "docs_"+task.JobID)
	defer func() { _ = os.RemoveAll(bundleDir) }()

	if err := writeBundle(bundleDir, st); err != nil {
		return jobs.Result{}, rderrors.StorageFailure("assemble bundle", err)
	}

	if err := o.setState(ctx, task.JobID, jobs.StateUploading, "Saving to "+o.opts.StorageLabel+"..."); err != nil {
		return jobs.Result{}, err
	}

	url, err := o.opts.Backend.Store(ctx, task.JobID, bundleDir)
	if err != nil {
		return jobs.Result{}, err
	}

	summary := analysisSummary(st.Analysis)
	meta := storage.Metadata{
		JobID:    task.JobID,
		Locator:  task.Locator,
		RepoName: repoName,
		Analysis: summary,
		Status:   "completed",
	}
	if err := o.opts.Backend.StoreMetadata(ctx, task.JobID, meta); err != nil {
		return jobs.Result{}, err
	}

	return jobs.Result{
		AccessURL: url,
		RepoName:  repoName,
		Analysis:  &summary,
	}, nil
}

// setState advances the job, translating a cancelled run context into the
// timeout error the terminal record should carry.
func (o *Orchestrator) setState(ctx context.Context, jobID string, state jobs.State, message string) error {
	if ctx.Err() != nil {
		return rderrors.SoftTimeout(jobID)
	}
	return o.opts.Store.UpdateState(ctx, jobID, state, message)
}

func analysisSummary(summary *analysis.Summary) storage.AnalysisSummary {
	if summary == nil {
		return storage.AnalysisSummary{Languages: map[string]int{}}
	}
	languages := summary.Languages
	if languages == nil {
		languages = map[string]int{}
	}
	return storage.AnalysisSummary{
		TotalFiles: summary.TotalFiles,
		CodeFiles:  summary.CodeFileCount,
		Languages:  languages,
		Frameworks: summary.Frameworks,
	}
}

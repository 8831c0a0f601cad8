package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/repodoc/internal/analysis"
	"git.home.luguber.info/inful/repodoc/internal/llm"
	"git.home.luguber.info/inful/repodoc/internal/logfields"
	"git.home.luguber.info/inful/repodoc/internal/metrics"
)

// StageName identifies one step of the fixed sequence.
type StageName string

const (
	StageAnalyze             StageName = "analyze"
	StageMainNarrative       StageName = "main_narrative"
	StageDirectoryNarratives StageName = "directory_narratives"
	StageFileNarratives      StageName = "file_narratives"
	StageSetupNarrative      StageName = "setup_narrative"
)

// stage couples a name with its transformation over the shared State.
type stage struct {
	name StageName
	run  func(ctx context.Context, st *State) error
}

// Engine executes the fixed stage sequence over one State.
type Engine struct {
	analyzer *analysis.Analyzer
	llm      llm.Client
	recorder metrics.Recorder
	hook     func(StageName)
	stages   []stage
}

// NewEngine builds the engine around the analysis collaborator and the
// text-completion client.
func NewEngine(analyzer *analysis.Analyzer, client llm.Client) *Engine {
	e := &Engine{
		analyzer: analyzer,
		llm:      client,
		recorder: metrics.NoopRecorder{},
	}
	e.stages = []stage{
		{StageAnalyze, e.analyze},
		{StageMainNarrative, e.mainNarrative},
		{StageDirectoryNarratives, e.directoryNarratives},
		{StageFileNarratives, e.fileNarratives},
		{StageSetupNarrative, e.setupNarrative},
	}
	return e
}

// WithRecorder injects a metrics recorder.
func (e *Engine) WithRecorder(r metrics.Recorder) *Engine {
	if r != nil {
		e.recorder = r
	}
	return e
}

// WithStageHook registers a callback invoked before each stage starts. The
// orchestrator uses it to surface stage progress as job status.
func (e *Engine) WithStageHook(fn func(StageName)) *Engine {
	e.hook = fn
	return e
}

// Run executes the stages strictly in order. A stage failure records a
// message into StageError and the run proceeds to the next stage; there is
// no retry, branching, or skip logic at this layer.
func (e *Engine) Run(ctx context.Context, st *State) *State {
	for _, s := range e.stages {
		if e.hook != nil {
			e.hook(s.name)
		}
		start := time.Now()
		err := s.run(ctx, st)
		e.recorder.ObserveStageDuration(string(s.name), time.Since(start))

		if err != nil {
			st.StageError = fmt.Sprintf("%s: %v", s.name, err)
			e.recorder.IncStageResult(string(s.name), metrics.ResultFailure)
			slog.Warn("Pipeline stage failed, continuing",
				logfields.Stage(string(s.name)),
				logfields.Repository(st.RepoName),
				logfields.Error(err))
			continue
		}

		st.StageStatus = s.name
		e.recorder.IncStageResult(string(s.name), metrics.ResultSuccess)
		slog.Debug("Pipeline stage completed",
			logfields.Stage(string(s.name)),
			logfields.Repository(st.RepoName),
			logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	}
	return st
}

// Package pipeline implements the fixed five-stage documentation pipeline.
//
// The stages share one mutable State record. Each stage may fail on its own;
// a failure records a message and leaves the stage's accumulator untouched,
// but never halts the sequence. The orchestrator decides after the full run
// whether the job failed.
package pipeline

import "git.home.luguber.info/inful/repodoc/internal/analysis"

// State is the value threaded through the pipeline stages. It is owned by
// exactly one run and never shared across jobs.
type State struct {
	// Inputs, set before the run.
	RepoPath string
	RepoName string

	// Accumulators, each populated by exactly one stage.
	Analysis            *analysis.Summary
	MainNarrative       string
	DirectoryNarratives map[string]string
	// DirectoryOrder preserves discovery order for DirectoryNarratives.
	DirectoryOrder []string
	FileNarratives map[string]string
	// FileOrder preserves selection order for FileNarratives.
	FileOrder      []string
	SetupNarrative string

	// StageStatus names the last successfully completed stage.
	StageStatus StageName
	// StageError holds the last error message recorded by any stage. A set
	// value does not imply the pipeline halted.
	StageError string
}

// NewState initializes a fresh State for one working copy.
func NewState(repoPath, repoName string) *State {
	return &State{
		RepoPath:            repoPath,
		RepoName:            repoName,
		DirectoryNarratives: map[string]string{},
		FileNarratives:      map[string]string{},
	}
}

// analysisOrEmpty lets later stages run degraded when Analyze failed.
func (s *State) analysisOrEmpty() *analysis.Summary {
	if s.Analysis != nil {
		return s.Analysis
	}
	return &analysis.Summary{Languages: map[string]int{}}
}

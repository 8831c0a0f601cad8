// Package jobs defines the externally observable job record, the shared
// status store it lives in, and the queue that distributes job runs to
// workers.
package jobs

import (
	"time"

	"git.home.luguber.info/inful/repodoc/internal/storage"
)

// State is the externally observable job state. States are monotonic; a job
// never regresses and reaches exactly one terminal state.
type State string

const (
	StateSubmitted  State = "SUBMITTED"
	StateCloning    State = "CLONING"
	StateAnalyzing  State = "ANALYZING"
	StateGenerating State = "GENERATING"
	StateUploading  State = "UPLOADING"
	StateCompleted  State = "COMPLETED"
	StateFailed     State = "FAILED"
)

// stateRank orders states for the monotonicity guard. Both terminal states
// share the highest rank; moving between them is still forbidden because a
// terminal job is immutable.
var stateRank = map[State]int{
	StateSubmitted:  0,
	StateCloning:    1,
	StateAnalyzing:  2,
	StateGenerating: 3,
	StateUploading:  4,
	StateCompleted:  5,
	StateFailed:     5,
}

// Terminal reports whether the state ends a job's lifecycle.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	_, ok := stateRank[s]
	return ok
}

// canTransition enforces monotonic, terminal-immutable progression.
func canTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	return stateRank[to] >= stateRank[from]
}

// Result is the terminal payload of a job.
type Result struct {
	AccessURL string                   `json:"access_url,omitempty"`
	RepoName  string                   `json:"repo_name,omitempty"`
	Analysis  *storage.AnalysisSummary `json:"analysis,omitempty"`
	Error     string                   `json:"error,omitempty"`
}

// Job is one documentation-generation request tracked end-to-end.
type Job struct {
	ID            string    `json:"id"`
	Locator       string    `json:"locator"`
	State         State     `json:"state"`
	StatusMessage string    `json:"status_message"`
	Result        *Result   `json:"result,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewJob creates a job record in the SUBMITTED state.
func NewJob(id, locator string) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:            id,
		Locator:       locator,
		State:         StateSubmitted,
		StatusMessage: "Repository analysis submitted",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Task is the unit of work placed on the queue at submission.
type Task struct {
	JobID       string    `json:"job_id"`
	Locator     string    `json:"locator"`
	SubmittedAt time.Time `json:"submitted_at"`
}

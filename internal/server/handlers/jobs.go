package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	rderrors "git.home.luguber.info/inful/repodoc/internal/errors"
	"git.home.luguber.info/inful/repodoc/internal/gitrepo"
	"git.home.luguber.info/inful/repodoc/internal/jobs"
	"git.home.luguber.info/inful/repodoc/internal/logfields"
	"git.home.luguber.info/inful/repodoc/internal/metrics"
	"git.home.luguber.info/inful/repodoc/internal/server/responses"
)

// AnalyzeRequest is the submission payload.
type AnalyzeRequest struct {
	Locator string `json:"locator"`
}

// JobHandlers serves submission and polling endpoints.
type JobHandlers struct {
	store        jobs.Store
	queue        jobs.Queue
	recorder     metrics.Recorder
	errorAdapter *rderrors.HTTPErrorAdapter
}

// NewJobHandlers creates the job endpoints. Recorder defaults to no-op.
func NewJobHandlers(store jobs.Store, queue jobs.Queue, recorder metrics.Recorder) *JobHandlers {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &JobHandlers{
		store:        store,
		queue:        queue,
		recorder:     recorder,
		errorAdapter: rderrors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleSubmit accepts a repository locator, records the job, and enqueues
// the task. Invalid locators never reach the queue.
func (h *JobHandlers) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, rderrors.ValidationError("request body must be JSON with a locator field"))
		return
	}

	if !gitrepo.ValidateLocator(req.Locator) {
		h.errorAdapter.WriteErrorResponse(w, r, rderrors.InvalidLocator(req.Locator))
		return
	}

	jobID := uuid.NewString()
	job := jobs.NewJob(jobID, req.Locator)
	if err := h.store.Create(r.Context(), job); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	task := jobs.Task{JobID: jobID, Locator: req.Locator, SubmittedAt: time.Now().UTC()}
	if err := h.queue.Enqueue(r.Context(), task); err != nil {
		// The record exists but no worker will ever pick it up; close it
		// out so polls see a terminal state.
		ferr := h.store.SetResult(r.Context(), jobID, jobs.StateFailed, jobs.Result{Error: err.Error()})
		if ferr != nil {
			slog.Error("Failed to mark unqueued job as failed", logfields.JobID(jobID), logfields.Error(ferr))
		}
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	h.recorder.IncJobSubmitted()
	h.recorder.SetQueueDepth(h.queue.Depth())
	slog.Info("Job submitted", logfields.JobID(jobID), logfields.Locator(req.Locator))

	resp := responses.SubmitResponse{
		JobID:   jobID,
		Status:  string(jobs.StateSubmitted),
		Message: "Repository analysis started. Poll the status endpoint with the job_id.",
	}
	if err := writeJSON(w, http.StatusAccepted, resp); err != nil {
		slog.Error("Failed to write submit response", logfields.Error(err))
	}
}

// HandleStatus reports the job's current state.
func (h *JobHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := h.store.Get(r.Context(), r.PathValue("job_id"))
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	resp := responses.StatusResponse{
		JobID:         job.ID,
		State:         string(job.State),
		StatusMessage: job.StatusMessage,
		CreatedAt:     job.CreatedAt,
		UpdatedAt:     job.UpdatedAt,
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		slog.Error("Failed to write status response", logfields.Error(err))
	}
}

// HandleResult returns the terminal outcome. A poll before the job reaches a
// terminal state answers 202 so clients keep polling.
func (h *JobHandlers) HandleResult(w http.ResponseWriter, r *http.Request) {
	job, err := h.store.Get(r.Context(), r.PathValue("job_id"))
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	if !job.State.Terminal() {
		h.errorAdapter.WriteErrorResponse(w, r, rderrors.NotReady(job.ID))
		return
	}

	resp := responses.ResultResponse{JobID: job.ID}
	if job.State == jobs.StateFailed {
		resp.Status = "failed"
		if job.Result != nil {
			resp.Error = job.Result.Error
		}
	} else {
		resp.Status = "completed"
		if job.Result != nil {
			resp.AccessURL = job.Result.AccessURL
			resp.RepoName = job.Result.RepoName
			resp.Analysis = job.Result.Analysis
		}
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		slog.Error("Failed to write result response", logfields.Error(err))
	}
}

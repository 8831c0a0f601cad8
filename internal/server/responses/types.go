// Package responses defines the JSON payloads returned by the repodoc API.
package responses

import (
	"time"

	"git.home.luguber.info/inful/repodoc/internal/storage"
)

// RootResponse describes the service and its endpoints.
type RootResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// HealthResponse reports overall service health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Queue     string    `json:"queue"`
	Store     string    `json:"store"`
	Timestamp time.Time `json:"timestamp"`
}

// SubmitResponse acknowledges an accepted analysis job.
type SubmitResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// StatusResponse reports a job's current state for polling.
type StatusResponse struct {
	JobID         string    `json:"job_id"`
	State         string    `json:"state"`
	StatusMessage string    `json:"status_message"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ResultResponse carries the terminal outcome of a job.
type ResultResponse struct {
	JobID     string                   `json:"job_id"`
	Status    string                   `json:"status"`
	AccessURL string                   `json:"access_url,omitempty"`
	RepoName  string                   `json:"repo_name,omitempty"`
	Analysis  *storage.AnalysisSummary `json:"analysis,omitempty"`
	Error     string                   `json:"error,omitempty"`
}

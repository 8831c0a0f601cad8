package errors

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// HTTPErrorAdapter handles error presentation and status code determination for HTTP handlers.
type HTTPErrorAdapter struct {
	logger *slog.Logger
}

// NewHTTPErrorAdapter creates a new HTTP error adapter with an optional slog logger.
// If logger is nil, the default package logger will be used.
func NewHTTPErrorAdapter(logger *slog.Logger) *HTTPErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPErrorAdapter{logger: logger}
}

// HTTPErrorResponse represents a standard JSON error payload.
type HTTPErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// StatusCodeFor determines the HTTP status code for a given error based on
// its classification. Unknown errors map to 500.
func (a *HTTPErrorAdapter) StatusCodeFor(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var rde *RepoDocError
	if errors.As(err, &rde) {
		switch rde.Category {
		case CategoryValidation, CategoryConfig:
			return http.StatusBadRequest
		case CategoryDenied:
			return http.StatusForbidden
		case CategoryNotFound:
			return http.StatusNotFound
		case CategoryNotReady:
			return http.StatusAccepted
		case CategoryGit, CategoryLLM:
			return http.StatusBadGateway
		case CategoryStage:
			return http.StatusUnprocessableEntity
		case CategoryQueue, CategoryTimeout:
			return http.StatusServiceUnavailable
		default:
			return http.StatusInternalServerError
		}
	}

	// Fallback
	return http.StatusInternalServerError
}

// WriteErrorResponse writes a JSON error response and logs with appropriate level.
func (a *HTTPErrorAdapter) WriteErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	status := a.StatusCodeFor(err)
	payload := a.FormatErrorResponse(err)

	b, jerr := json.Marshal(payload)
	if jerr != nil {
		// Fall back to a minimal message
		w.WriteHeader(status)
		_, _ = w.Write([]byte("{\"error\":\"internal error\"}"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)

	var rde *RepoDocError
	if errors.As(err, &rde) {
		a.logger.Log(r.Context(), a.slogLevelFromSeverity(rde.Severity), rde.Error())
		return
	}
	a.logger.Error(err.Error())
}

// FormatErrorResponse converts known errors into a canonical error payload.
func (a *HTTPErrorAdapter) FormatErrorResponse(err error) HTTPErrorResponse {
	if err == nil {
		return HTTPErrorResponse{Error: ""}
	}
	var rde *RepoDocError
	if errors.As(err, &rde) {
		resp := HTTPErrorResponse{Error: rde.Message, Code: string(rde.Category)}
		if len(rde.Context) > 0 {
			resp.Details = map[string]any(rde.Context)
		}
		return resp
	}
	return HTTPErrorResponse{Error: err.Error()}
}

func (a *HTTPErrorAdapter) slogLevelFromSeverity(s ErrorSeverity) slog.Level {
	switch s {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

package handlers

import (
	"bytes"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"

	rderrors "git.home.luguber.info/inful/repodoc/internal/errors"
	"git.home.luguber.info/inful/repodoc/internal/logfields"
	"git.home.luguber.info/inful/repodoc/internal/storage"
)

// DocsHandlers serves stored bundle files. It only operates against the
// local backend; presigned object-store URLs bypass this server entirely.
type DocsHandlers struct {
	local        *storage.LocalBackend
	errorAdapter *rderrors.HTTPErrorAdapter
}

// NewDocsHandlers creates the bundle-serving endpoint. local may be nil when
// the service runs against an object store.
func NewDocsHandlers(local *storage.LocalBackend) *DocsHandlers {
	return &DocsHandlers{
		local:        local,
		errorAdapter: rderrors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleServeFile streams one file out of a job's stored bundle. Markdown is
// rendered to HTML when the request carries format=html.
func (h *DocsHandlers) HandleServeFile(w http.ResponseWriter, r *http.Request) {
	if h.local == nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			rderrors.New(rderrors.CategoryConfig, rderrors.SeverityError, "documentation serving requires local storage mode"))
		return
	}

	jobID := r.PathValue("job_id")
	relPath := r.PathValue("path")
	if relPath == "" {
		relPath = storage.PrimaryArtifact
	}

	fullPath, err := h.local.Resolve(jobID, relPath)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			h.errorAdapter.WriteErrorResponse(w, r, rderrors.NotFound(relPath))
			return
		}
		h.errorAdapter.WriteErrorResponse(w, r, rderrors.StorageFailure("read bundle file", err))
		return
	}

	if r.URL.Query().Get("format") == "html" && strings.EqualFold(filepath.Ext(fullPath), ".md") {
		var buf bytes.Buffer
		if err := goldmark.Convert(data, &buf); err != nil {
			h.errorAdapter.WriteErrorResponse(w, r, rderrors.Internal("render markdown", err))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write(buf.Bytes()); err != nil {
			slog.Error("Failed to write rendered markdown", logfields.Error(err))
		}
		return
	}

	w.Header().Set("Content-Type", storage.ContentTypeFor(fullPath))
	if _, err := w.Write(data); err != nil {
		slog.Error("Failed to write bundle file", logfields.Path(relPath), logfields.Error(err))
	}
}

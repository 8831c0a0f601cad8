package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/repodoc/internal/storage"
)

func serveDirect(t *testing.T, h *DocsHandlers, jobID, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/docs/"+jobID+"/ignored", nil)
	req.SetPathValue("job_id", jobID)
	req.SetPathValue("path", path)
	rec := httptest.NewRecorder()
	h.HandleServeFile(rec, req)
	return rec
}

func TestHandleServeFileDeniesTraversal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "job-a"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.txt"), []byte("x"), 0o644))

	local, err := storage.NewLocalBackend(root, "http://localhost:8000")
	require.NoError(t, err)
	h := NewDocsHandlers(local)

	traversals := []string{
		"../secret.txt",
		"../../etc/passwd",
		"/etc/passwd",
		"..",
		"nested/../../job-b/README.md",
	}
	for _, p := range traversals {
		rec := serveDirect(t, h, "job-a", p)
		assert.Equal(t, http.StatusForbidden, rec.Code, "path: %s", p)
	}
}

func TestHandleServeFileDefaultsToPrimaryArtifact(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "job-b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "job-b", "README.md"), []byte("# hi\n"), 0o644))

	local, err := storage.NewLocalBackend(root, "http://localhost:8000")
	require.NoError(t, err)
	h := NewDocsHandlers(local)

	rec := serveDirect(t, h, "job-b", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# hi")
}

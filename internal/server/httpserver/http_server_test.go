package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/repodoc/internal/jobs"
	"git.home.luguber.info/inful/repodoc/internal/storage"
)

type testServer struct {
	srv   *Server
	store *jobs.SQLiteStore
	queue *jobs.MemoryQueue
	root  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := jobs.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	queue := jobs.NewMemoryQueue(8)
	t.Cleanup(func() { _ = queue.Close() })

	root := t.TempDir()
	local, err := storage.NewLocalBackend(root, "http://localhost:8000")
	require.NoError(t, err)

	srv := New(Options{
		Addr:  ":0",
		Store: store,
		Queue: queue,
		Local: local,
	})
	return &testServer{srv: srv, store: store, queue: queue, root: root}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestSubmitAcceptsValidLocator(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/analyze", `{"locator":"https://github.com/octocat/hello-world"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	resp := decodeBody[map[string]any](t, rec)
	jobID, _ := resp["job_id"].(string)
	require.NotEmpty(t, jobID)
	assert.Equal(t, "SUBMITTED", resp["status"])

	// The record is queryable and the task is on the queue.
	job, err := ts.store.Get(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StateSubmitted, job.State)
	assert.Equal(t, 1, ts.queue.Depth())
}

func TestSubmitRejectsInvalidLocator(t *testing.T) {
	ts := newTestServer(t)

	tests := []string{
		`{"locator":"not a url"}`,
		`{"locator":"ftp://example.com/repo"}`,
		`{"locator":"https://gitlab.com/owner/repo"}`,
		`{"locator":""}`,
	}
	for _, body := range tests {
		rec := ts.do(t, http.MethodPost, "/api/analyze", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
	}

	// Nothing was enqueued or recorded.
	assert.Equal(t, 0, ts.queue.Depth())
}

func TestSubmitRejectsMalformedBody(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/analyze", `{"locator":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusReportsState(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, ts.store.Create(ctx, jobs.NewJob("job-1", "https://github.com/octocat/hello-world")))
	require.NoError(t, ts.store.UpdateState(ctx, "job-1", jobs.StateAnalyzing, "Analyzing codebase..."))

	rec := ts.do(t, http.MethodGet, "/api/status/job-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "ANALYZING", resp["state"])
	assert.Equal(t, "Analyzing codebase...", resp["status_message"])
}

func TestStatusUnknownJob(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/status/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResultNotReady(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, ts.store.Create(ctx, jobs.NewJob("job-2", "https://github.com/octocat/hello-world")))

	rec := ts.do(t, http.MethodGet, "/api/result/job-2", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestResultCompleted(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, ts.store.Create(ctx, jobs.NewJob("job-3", "https://github.com/octocat/hello-world")))
	require.NoError(t, ts.store.SetResult(ctx, "job-3", jobs.StateCompleted, jobs.Result{
		AccessURL: "http://localhost:8000/api/docs/job-3/README.md",
		RepoName:  "octocat_hello-world",
		Analysis:  &storage.AnalysisSummary{TotalFiles: 3, CodeFiles: 2, Languages: map[string]int{"Python": 2}},
	}))

	rec := ts.do(t, http.MethodGet, "/api/result/job-3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "completed", resp["status"])
	assert.Equal(t, "http://localhost:8000/api/docs/job-3/README.md", resp["access_url"])
	assert.Equal(t, "octocat_hello-world", resp["repo_name"])
}

func TestResultFailed(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, ts.store.Create(ctx, jobs.NewJob("job-4", "https://github.com/octocat/hello-world")))
	require.NoError(t, ts.store.SetResult(ctx, "job-4", jobs.StateFailed, jobs.Result{Error: "clone failed"}))

	rec := ts.do(t, http.MethodGet, "/api/result/job-4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "failed", resp["status"])
	assert.Equal(t, "clone failed", resp["error"])
	_, hasURL := resp["access_url"]
	assert.False(t, hasURL)
}

func seedBundle(t *testing.T, ts *testServer, jobID string) {
	t.Helper()
	jobDir := filepath.Join(ts.root, jobID)
	require.NoError(t, os.MkdirAll(filepath.Join(jobDir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(jobDir, "README.md"), []byte("# Overview\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(jobDir, "src", "README.md"), []byte("# src\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(jobDir, "metadata.json"), []byte(`{"status":"completed"}`), 0o644))
}

func TestServeBundleFile(t *testing.T) {
	ts := newTestServer(t)
	seedBundle(t, ts, "job-5")

	rec := ts.do(t, http.MethodGet, "/api/docs/job-5/README.md", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/markdown", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "# Overview")

	rec = ts.do(t, http.MethodGet, "/api/docs/job-5/src/README.md", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/docs/job-5/metadata.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestServeBundleFileRendersHTML(t *testing.T) {
	ts := newTestServer(t)
	seedBundle(t, ts, "job-6")

	rec := ts.do(t, http.MethodGet, "/api/docs/job-6/README.md?format=html", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<h1")
}

func TestServeBundleFileMissing(t *testing.T) {
	ts := newTestServer(t)
	seedBundle(t, ts, "job-7")

	rec := ts.do(t, http.MethodGet, "/api/docs/job-7/ABSENT.md", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeBundleFileWithoutLocalBackend(t *testing.T) {
	store, err := jobs.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	queue := jobs.NewMemoryQueue(1)
	defer func() { _ = queue.Close() }()

	srv := New(Options{Addr: ":0", Store: store, Queue: queue, Local: nil})
	req := httptest.NewRequest(http.MethodGet, "/api/docs/job-x/README.md", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "healthy", resp["status"])
}

func TestRootEndpoint(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[map[string]any](t, rec)
	endpoints, ok := resp["endpoints"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "/api/analyze", endpoints["analyze"])
}

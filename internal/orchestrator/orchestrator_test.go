package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rderrors "git.home.luguber.info/inful/repodoc/internal/errors"
	"git.home.luguber.info/inful/repodoc/internal/jobs"
	"git.home.luguber.info/inful/repodoc/internal/storage"
)

// fixtureAcquirer hands out a pre-built local directory instead of cloning.
type fixtureAcquirer struct {
	path string
	name string
	err  error
	// block, when set, ignores the context until released. It simulates a
	// run stuck past every deadline.
	block chan struct{}
	// waitCtx, when true, blocks until the context is cancelled and then
	// fails with its error.
	waitCtx bool

	mu       sync.Mutex
	released bool
}

func (f *fixtureAcquirer) Acquire(ctx context.Context, locator string) (string, string, error) {
	if f.block != nil {
		<-f.block
	}
	if f.waitCtx {
		<-ctx.Done()
		return "", "", rderrors.AcquisitionFailed(locator, ctx.Err())
	}
	if f.err != nil {
		return "", "", f.err
	}
	return f.path, f.name, nil
}

func (f *fixtureAcquirer) Release(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = true
}

func (f *fixtureAcquirer) wasReleased() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

// cannedLLM answers every completion with fixed text, or fails everything.
type cannedLLM struct {
	text    string
	failAll bool
}

func (c *cannedLLM) Complete(ctx context.Context, system, prompt string) (string, error) {
	if c.failAll {
		return "", rderrors.New(rderrors.CategoryLLM, rderrors.SeverityError, "model unavailable")
	}
	return c.text, nil
}

func fixtureRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"main.py":          "def main():\n    print('hi')\n",
		"src/helpers.py":   "def helper():\n    return 1\n",
		"requirements.txt": "flask\n",
	}
	for name, content := range files {
		full := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return dir
}

func testOrchestrator(t *testing.T, acq repoAcquirer, client *cannedLLM) (*Orchestrator, *jobs.SQLiteStore, string) {
	t.Helper()

	store, err := jobs.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	docsRoot := t.TempDir()
	backend, err := storage.NewLocalBackend(docsRoot, "http://localhost:8000")
	require.NoError(t, err)

	o := New(Options{
		Store:        store,
		Backend:      backend,
		LLM:          client,
		WorkspaceDir: t.TempDir(),
		StorageLabel: "local storage",
		SoftDeadline: 10 * time.Second,
		HardDeadline: 20 * time.Second,
	})
	o.acquirer = acq
	return o, store, docsRoot
}

func submit(t *testing.T, store jobs.Store, id, locator string) jobs.Task {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), jobs.NewJob(id, locator)))
	return jobs.Task{JobID: id, Locator: locator, SubmittedAt: time.Now()}
}

func TestRunCompletesJob(t *testing.T) {
	acq := &fixtureAcquirer{path: fixtureRepo(t), name: "octocat_hello-world"}
	o, store, docsRoot := testOrchestrator(t, acq, &cannedLLM{text: "Generated documentation."})

	task := submit(t, store, "job-ok", "https://github.com/octocat/hello-world")
	o.Run(context.Background(), task)

	job, err := store.Get(context.Background(), "job-ok")
	require.NoError(t, err)
	assert.Equal(t, jobs.StateCompleted, job.State)
	require.NotNil(t, job.Result)
	assert.Equal(t, "http://localhost:8000/api/docs/job-ok/README.md", job.Result.AccessURL)
	assert.Equal(t, "octocat_hello-world", job.Result.RepoName)
	require.NotNil(t, job.Result.Analysis)
	assert.Equal(t, 2, job.Result.Analysis.Languages["Python"])
	assert.Contains(t, job.Result.Analysis.Frameworks, "Flask")

	// The stored bundle carries every artifact type.
	jobDir := filepath.Join(docsRoot, "job-ok")
	for _, p := range []string{"README.md", "SETUP.md", "metadata.json", filepath.Join("src", "README.md")} {
		assert.FileExists(t, filepath.Join(jobDir, p))
	}
	entries, err := os.ReadDir(filepath.Join(jobDir, "detailed_docs"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)

	assert.True(t, acq.wasReleased())

	// The bundle staging directory is gone after the run.
	_, err = os.Stat(filepath.Join(o.opts.WorkspaceDir, "docs_job-ok"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunFailsOnAcquisition(t *testing.T) {
	acq := &fixtureAcquirer{err: rderrors.AcquisitionFailed("https://github.com/octocat/missing", fmt.Errorf("repository not found"))}
	o, store, _ := testOrchestrator(t, acq, &cannedLLM{text: "unused"})

	task := submit(t, store, "job-clone-fail", "https://github.com/octocat/missing")
	o.Run(context.Background(), task)

	job, err := store.Get(context.Background(), "job-clone-fail")
	require.NoError(t, err)
	assert.Equal(t, jobs.StateFailed, job.State)
	require.NotNil(t, job.Result)
	assert.Contains(t, job.Result.Error, "repository not found")
	assert.Empty(t, job.Result.AccessURL)
}

func TestRunFailsWhenStageFails(t *testing.T) {
	acq := &fixtureAcquirer{path: fixtureRepo(t), name: "octocat_hello-world"}
	o, store, docsRoot := testOrchestrator(t, acq, &cannedLLM{failAll: true})

	task := submit(t, store, "job-llm-fail", "https://github.com/octocat/hello-world")
	o.Run(context.Background(), task)

	job, err := store.Get(context.Background(), "job-llm-fail")
	require.NoError(t, err)
	assert.Equal(t, jobs.StateFailed, job.State)
	require.NotNil(t, job.Result)
	assert.Contains(t, job.Result.Error, "setup_narrative")

	// Nothing was stored for a failed job.
	_, err = os.Stat(filepath.Join(docsRoot, "job-llm-fail"))
	assert.True(t, os.IsNotExist(err))

	// The working copy is still released.
	assert.True(t, acq.wasReleased())
}

func TestRunSoftDeadlineCancelsRun(t *testing.T) {
	acq := &fixtureAcquirer{waitCtx: true}
	o, store, _ := testOrchestrator(t, acq, &cannedLLM{text: "unused"})
	o.opts.SoftDeadline = 50 * time.Millisecond
	o.opts.HardDeadline = 5 * time.Second

	task := submit(t, store, "job-soft", "https://github.com/octocat/hello-world")
	o.Run(context.Background(), task)

	job, err := store.Get(context.Background(), "job-soft")
	require.NoError(t, err)
	assert.Equal(t, jobs.StateFailed, job.State)
	require.NotNil(t, job.Result)
	assert.Contains(t, strings.ToLower(job.Result.Error), "deadline")
}

func TestRunHardDeadlineAbandonsRun(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	acq := &fixtureAcquirer{block: block}
	o, store, _ := testOrchestrator(t, acq, &cannedLLM{text: "unused"})
	o.opts.SoftDeadline = 50 * time.Millisecond
	o.opts.HardDeadline = 150 * time.Millisecond

	task := submit(t, store, "job-hard", "https://github.com/octocat/hello-world")

	start := time.Now()
	o.Run(context.Background(), task)
	assert.Less(t, time.Since(start), 5*time.Second)

	job, err := store.Get(context.Background(), "job-hard")
	require.NoError(t, err)
	assert.Equal(t, jobs.StateFailed, job.State)
	require.NotNil(t, job.Result)
	assert.Contains(t, job.Result.Error, "hard deadline")
}

func TestEscapeDocName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"main.py", "main_py.md"},
		{"src/app.js", "src_app_js.md"},
		{"a/b/c.txt", "a_b_c_txt.md"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeDocName(tt.in))
	}
}

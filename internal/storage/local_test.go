package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rderrors "git.home.luguber.info/inful/repodoc/internal/errors"
)

func writeBundle(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return dir
}

func TestLocalStorePreservesLayout(t *testing.T) {
	root := t.TempDir()
	b, err := NewLocalBackend(root, "http://localhost:8000/")
	require.NoError(t, err)

	bundle := writeBundle(t, map[string]string{
		"README.md":                "# main",
		"src/README.md":            "# src",
		"detailed_docs/main_py.md": "# main.py",
		"SETUP.md":                 "# setup",
	})

	url, err := b.Store(context.Background(), "job-1", bundle)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api/docs/job-1/README.md", url)

	for _, rel := range []string{"README.md", "src/README.md", "detailed_docs/main_py.md", "SETUP.md"} {
		data, err := os.ReadFile(filepath.Join(root, "job-1", rel))
		require.NoError(t, err, rel)
		assert.NotEmpty(t, data)
	}
}

func TestLocalStoreOverwritesPriorRun(t *testing.T) {
	root := t.TempDir()
	b, err := NewLocalBackend(root, "http://localhost:8000")
	require.NoError(t, err)

	first := writeBundle(t, map[string]string{
		"README.md":     "old",
		"old/README.md": "stale narrative",
	})
	_, err = b.Store(context.Background(), "job-1", first)
	require.NoError(t, err)

	second := writeBundle(t, map[string]string{"README.md": "new"})
	_, err = b.Store(context.Background(), "job-1", second)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "job-1", "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	// Replaced, not merged: files from the first run are gone.
	_, err = os.Stat(filepath.Join(root, "job-1", "old"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStoreMetadata(t *testing.T) {
	root := t.TempDir()
	b, err := NewLocalBackend(root, "http://localhost:8000")
	require.NoError(t, err)

	meta := Metadata{
		JobID:    "job-2",
		Locator:  "https://github.com/owner/repo",
		RepoName: "owner_repo",
		Status:   "completed",
		Analysis: AnalysisSummary{TotalFiles: 4, CodeFiles: 2, Languages: map[string]int{"Python": 2}},
	}
	require.NoError(t, b.StoreMetadata(context.Background(), "job-2", meta))

	data, err := os.ReadFile(filepath.Join(root, "job-2", "metadata.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"repo_name": "owner_repo"`)
	assert.Contains(t, string(data), `"Python": 2`)
}

func TestResolveDeniesTraversal(t *testing.T) {
	root := t.TempDir()
	b, err := NewLocalBackend(root, "http://localhost:8000")
	require.NoError(t, err)

	for _, path := range []string{
		"../../etc/passwd",
		"/etc/passwd",
		"\\windows\\system32",
		"..",
		"nested/../../other-job/README.md",
	} {
		_, err := b.Resolve("job-1", path)
		require.Error(t, err, "path %q must be denied", path)
		assert.True(t, rderrors.IsCategory(err, rderrors.CategoryDenied), "path %q", path)
	}
}

func TestResolveAllowsPathsInsideNamespace(t *testing.T) {
	root := t.TempDir()
	b, err := NewLocalBackend(root, "http://localhost:8000")
	require.NoError(t, err)

	full, err := b.Resolve("job-1", "src/README.md")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "job-1", "src", "README.md"), full)

	// "a/../b" stays inside the namespace once cleaned.
	full, err = b.Resolve("job-1", "a/../README.md")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "job-1", "README.md"), full)
}

func TestContentTypeFor(t *testing.T) {
	cases := map[string]string{
		"README.md":  "text/markdown",
		"index.HTML": "text/html",
		"meta.json":  "application/json",
		"notes.txt":  "text/plain",
		"style.css":  "text/css",
		"app.js":     "application/javascript",
		"blob.bin":   "application/octet-stream",
		"no-ext":     "application/octet-stream",
	}
	for name, want := range cases {
		assert.Equal(t, want, ContentTypeFor(name), name)
	}
}

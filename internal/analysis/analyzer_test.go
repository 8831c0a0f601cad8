package analysis

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFixtureRepo lays out a small polyglot repository.
func writeFixtureRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	write := func(rel, content string) {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	write("main.py", "import flask\n\ndef main():\n    pass\n")
	write("app.js", "const express = require('express');\n")
	write("src/helpers.py", "def helper():\n    return 1\n")
	write("docs/readme.txt", "notes\n")
	write("requirements.txt", "flask==3.0\nrequests\n")
	write("package.json", `{"dependencies":{"express":"^4"}}`)
	write("node_modules/express/index.js", "ignored")
	write("image.png", "\x89PNG")
	return root
}

func TestAnalyzeRepository(t *testing.T) {
	a := NewAnalyzer()
	s, err := a.AnalyzeRepository(writeFixtureRepo(t))
	require.NoError(t, err)

	// node_modules content is excluded from the walk entirely.
	for _, f := range s.CodeFiles {
		assert.NotContains(t, f.Path, "node_modules")
	}

	assert.Equal(t, len(s.CodeFiles), s.CodeFileCount)
	assert.GreaterOrEqual(t, s.TotalFiles, s.CodeFileCount)

	assert.Equal(t, 2, s.Languages["Python"])
	assert.Equal(t, 1, s.Languages["JavaScript"])
	assert.Contains(t, s.Frameworks, "Flask")
	assert.Contains(t, s.Frameworks, "Express.js")

	assert.Contains(t, s.FileTree, "src/")
	assert.Contains(t, s.FileTree, "helpers.py")

	names := s.LanguageNames()
	require.NotEmpty(t, names)
	assert.Equal(t, "Python", names[0])
}

func TestReadFileContentBounds(t *testing.T) {
	a := NewAnalyzer()
	a.MaxFileContent = 8

	dir := t.TempDir()
	small := filepath.Join(dir, "small.txt")
	big := filepath.Join(dir, "big.txt")
	require.NoError(t, os.WriteFile(small, []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(big, []byte(strings.Repeat("x", 64)), 0o644))

	content, err := a.ReadFileContent(small)
	require.NoError(t, err)
	assert.Equal(t, "hi", content)

	_, err = a.ReadFileContent(big)
	assert.Error(t, err)

	_, err = a.ReadFileContent(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestGroupFilesByDirectory(t *testing.T) {
	files := []CodeFile{
		{Path: "main.py"},
		{Path: "src/a.py"},
		{Path: "src/b.py"},
		{Path: "cmd/tool/main.go"},
	}
	order, grouped := GroupFilesByDirectory(files)

	assert.Equal(t, []string{".", "src", "cmd/tool"}, order)
	assert.Len(t, grouped["src"], 2)
	assert.Len(t, grouped["."], 1)
}

func TestDirectoryPurpose(t *testing.T) {
	assert.Equal(t, "Source code", DirectoryPurpose("src"))
	assert.Equal(t, "Test files", DirectoryPurpose("internal/tests"))
	assert.Equal(t, "Application code", DirectoryPurpose("widgets"))
}

func TestSetupDetectionHelpers(t *testing.T) {
	root := writeFixtureRepo(t)

	assert.ElementsMatch(t, []string{"npm/yarn", "pip"}, DetectPackageManagers(root))
	assert.ElementsMatch(t, []string{"package.json", "requirements.txt"}, DetectConfigFiles(root))

	summary := ExtractDependencySummary(root)
	assert.Contains(t, summary, "Python: flask==3.0")
	assert.Contains(t, summary, "Node: express")

	assert.Equal(t, []string{"Unknown"}, DetectPackageManagers(t.TempDir()))
	assert.Equal(t, "No dependencies file found", ExtractDependencySummary(t.TempDir()))
}

// Package analysis walks a repository working copy and extracts the
// structured summary the narrative stages are prompted with: language
// histogram, detected frameworks, directory tree sketch, and dependency hints.
package analysis

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// Directories never worth analyzing.
var ignoreDirs = map[string]struct{}{
	".git": {}, ".svn": {}, ".hg": {},
	"node_modules": {}, "venv": {}, "env": {}, ".venv": {}, "__pycache__": {},
	"dist": {}, "build": {}, "out": {}, ".next": {},
	"coverage": {}, ".pytest_cache": {}, ".mypy_cache": {},
	"vendor": {}, "target": {}, "bin": {}, "obj": {},
}

// Extensions carrying no analyzable source.
var ignoreExtensions = map[string]struct{}{
	".pyc": {}, ".pyo": {}, ".pyd": {}, ".so": {}, ".dll": {}, ".dylib": {},
	".class": {}, ".o": {}, ".a": {}, ".lib": {}, ".exe": {},
	".log": {}, ".lock": {}, ".swp": {}, ".swo": {},
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".ico": {}, ".svg": {},
	".mp4": {}, ".avi": {}, ".mov": {}, ".mp3": {}, ".wav": {},
	".zip": {}, ".tar": {}, ".gz": {}, ".rar": {}, ".7z": {},
}

// Extensions treated as code or code-adjacent text.
var codeExtensions = map[string]struct{}{
	".py": {}, ".js": {}, ".jsx": {}, ".ts": {}, ".tsx": {},
	".java": {}, ".cpp": {}, ".c": {}, ".h": {}, ".hpp": {},
	".go": {}, ".rs": {}, ".rb": {}, ".php": {},
	".cs": {}, ".swift": {}, ".kt": {}, ".scala": {},
	".sh": {}, ".bash": {}, ".zsh": {},
	".sql": {}, ".graphql": {},
	".html": {}, ".css": {}, ".scss": {}, ".sass": {},
	".json": {}, ".yaml": {}, ".yml": {}, ".toml": {}, ".xml": {},
	".md": {}, ".rst": {}, ".txt": {},
}

// CodeFile describes one analyzable file in the working copy.
type CodeFile struct {
	Path      string `json:"path"` // relative to the repository root
	FullPath  string `json:"-"`
	Extension string `json:"extension"`
	Size      int64  `json:"size"`
}

// Summary is the structured analysis record produced by the Analyze stage
// and condensed into the job metadata document.
type Summary struct {
	TotalFiles    int            `json:"total_files"`
	CodeFileCount int            `json:"code_files"`
	CodeFiles     []CodeFile     `json:"-"`
	Directories   []string       `json:"-"`
	Languages     map[string]int `json:"languages"`
	Frameworks    []string       `json:"frameworks"`
	FileTree      string         `json:"-"`
}

// Analyzer performs the file-system walk and heuristic extraction.
type Analyzer struct {
	// MaxFileContent bounds how many bytes ReadFileContent returns.
	MaxFileContent int64
}

// NewAnalyzer returns an Analyzer with the default 1MB content bound.
func NewAnalyzer() *Analyzer {
	return &Analyzer{MaxFileContent: 1 << 20}
}

// AnalyzeRepository walks the working copy and builds the full Summary.
func (a *Analyzer) AnalyzeRepository(repoPath string) (*Summary, error) {
	s := &Summary{Languages: map[string]int{}}

	err := filepath.WalkDir(repoPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, rerr := filepath.Rel(repoPath, path)
		if rerr != nil {
			return rerr
		}
		if d.IsDir() {
			if _, skip := ignoreDirs[d.Name()]; skip && rel != "." {
				return filepath.SkipDir
			}
			if rel != "." {
				s.Directories = append(s.Directories, rel)
			}
			return nil
		}

		s.TotalFiles++

		ext := strings.ToLower(filepath.Ext(d.Name()))
		if _, ignored := ignoreExtensions[ext]; ignored {
			return nil
		}
		if _, isCode := codeExtensions[ext]; !isCode {
			return nil
		}

		info, ierr := d.Info()
		if ierr != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		s.CodeFiles = append(s.CodeFiles, CodeFile{
			Path:      rel,
			FullPath:  path,
			Extension: ext,
			Size:      info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk repository: %w", err)
	}

	sort.Strings(s.Directories)
	s.CodeFileCount = len(s.CodeFiles)
	s.Languages = detectLanguages(s.CodeFiles)
	s.Frameworks = detectFrameworks(repoPath)
	s.FileTree = buildFileTree(s.Directories, s.CodeFiles)
	return s, nil
}

// ReadFileContent reads a file, bounded by MaxFileContent. Oversized or
// unreadable files return an error instead of partial content so callers
// can skip them.
func (a *Analyzer) ReadFileContent(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.Size() > a.MaxFileContent {
		return "", fmt.Errorf("file too large: %d bytes", info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// detectLanguages builds the language histogram using enry's
// filename/content-free classification.
func detectLanguages(files []CodeFile) map[string]int {
	languages := map[string]int{}
	for _, f := range files {
		lang := enry.GetLanguage(filepath.Base(f.Path), nil)
		if lang == "" || lang == enry.OtherLanguage {
			continue
		}
		// Markup and data formats would drown out the histogram.
		if t := enry.GetLanguageType(lang); t != enry.Programming {
			continue
		}
		languages[lang]++
	}
	return languages
}

// LanguageNames returns the histogram keys sorted by descending count.
func (s *Summary) LanguageNames() []string {
	names := make([]string, 0, len(s.Languages))
	for name := range s.Languages {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if s.Languages[names[i]] != s.Languages[names[j]] {
			return s.Languages[names[i]] > s.Languages[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// GroupFilesByDirectory groups code files by their containing directory.
// Insertion order follows the discovery order of the walk.
func GroupFilesByDirectory(files []CodeFile) ([]string, map[string][]CodeFile) {
	var order []string
	grouped := map[string][]CodeFile{}
	for _, f := range files {
		dir := filepath.Dir(f.Path)
		if _, seen := grouped[dir]; !seen {
			order = append(order, dir)
		}
		grouped[dir] = append(grouped[dir], f)
	}
	return order, grouped
}

// DirectoryPurpose infers a one-line purpose for a directory from its name.
func DirectoryPurpose(directory string) string {
	purposes := map[string]string{
		"src":         "Source code",
		"lib":         "Library code",
		"test":        "Test files",
		"tests":       "Test files",
		"docs":        "Documentation",
		"config":      "Configuration files",
		"utils":       "Utility functions",
		"models":      "Data models",
		"views":       "View components",
		"controllers": "Controller logic",
		"services":    "Service layer",
		"api":         "API endpoints",
	}
	if p, ok := purposes[strings.ToLower(filepath.Base(directory))]; ok {
		return p
	}
	return "Application code"
}

// buildFileTree renders a bounded sketch of the directory structure.
func buildFileTree(directories []string, files []CodeFile) string {
	const maxLines = 50
	const maxFilesPerDir = 5

	dirFiles := map[string][]string{}
	for _, f := range files {
		dir := filepath.Dir(f.Path)
		dirFiles[dir] = append(dirFiles[dir], filepath.Base(f.Path))
	}

	lines := []string{"."}
	for _, dir := range directories {
		depth := strings.Count(dir, string(os.PathSeparator))
		indent := strings.Repeat("  ", depth)
		lines = append(lines, fmt.Sprintf("%s├── %s/", indent, filepath.Base(dir)))

		names := dirFiles[dir]
		sort.Strings(names)
		if len(names) > maxFilesPerDir {
			names = names[:maxFilesPerDir]
		}
		for _, name := range names {
			lines = append(lines, fmt.Sprintf("%s│   ├── %s", indent, name))
		}
	}
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return strings.Join(lines, "\n")
}

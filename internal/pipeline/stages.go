package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/repodoc/internal/analysis"
	"git.home.luguber.info/inful/repodoc/internal/llm"
)

// Bounds on how much repository content reaches the narrative prompts.
const (
	maxKeyFilesOverview  = 10
	maxDirectories       = 5
	maxFilesPerDirectory = 3
	maxSnippetChars      = 500
	maxNarrativeFiles    = 3
	maxFileWindowChars   = 5000

	entryPointBonus  = 10
	sizeBonusDivisor = 1000
	sizeBonusCap     = 5
)

// analyze derives the structured analysis summary from the working copy.
func (e *Engine) analyze(_ context.Context, st *State) error {
	summary, err := e.analyzer.AnalyzeRepository(st.RepoPath)
	if err != nil {
		return err
	}
	st.Analysis = summary
	return nil
}

// mainNarrative produces the top-level documentation text.
func (e *Engine) mainNarrative(ctx context.Context, st *State) error {
	a := st.analysisOrEmpty()

	var overview []string
	for i, f := range a.CodeFiles {
		if i == maxKeyFilesOverview {
			break
		}
		overview = append(overview, fmt.Sprintf("- %s (%s)", f.Path, f.Extension))
	}

	prompt := fmt.Sprintf(llm.MainNarrativePrompt,
		st.RepoName,
		a.TotalFiles,
		a.CodeFileCount,
		strings.Join(a.LanguageNames(), ", "),
		a.FileTree,
		strings.Join(overview, "\n"))

	text, err := e.llm.Complete(ctx, llm.SystemTechnicalWriter, prompt)
	if err != nil {
		return err
	}
	st.MainNarrative = text
	return nil
}

// directoryNarratives produces one narrative per top-level directory, bounded
// by maxDirectories. The root directory counts against the bound but is skipped.
func (e *Engine) directoryNarratives(ctx context.Context, st *State) error {
	a := st.analysisOrEmpty()
	order, grouped := analysis.GroupFilesByDirectory(a.CodeFiles)

	if len(order) > maxDirectories {
		order = order[:maxDirectories]
	}

	for _, dir := range order {
		if dir == "." {
			continue
		}
		files := grouped[dir]

		var list []string
		for _, f := range files {
			list = append(list, "- "+f.Path)
		}

		snippets := e.codeSnippets(files)

		prompt := fmt.Sprintf(llm.DirectoryNarrativePrompt,
			dir,
			analysis.DirectoryPurpose(dir),
			strings.Join(list, "\n"),
			snippets)

		text, err := e.llm.Complete(ctx, llm.SystemTechnicalWriter, prompt)
		if err != nil {
			return err
		}
		if _, seen := st.DirectoryNarratives[dir]; !seen {
			st.DirectoryOrder = append(st.DirectoryOrder, dir)
		}
		st.DirectoryNarratives[dir] = text
	}
	return nil
}

// codeSnippets samples bounded snippets from the first files of a directory.
func (e *Engine) codeSnippets(files []analysis.CodeFile) string {
	if len(files) > maxFilesPerDirectory {
		files = files[:maxFilesPerDirectory]
	}
	var snippets []string
	for _, f := range files {
		content, err := e.analyzer.ReadFileContent(f.FullPath)
		if err != nil {
			continue
		}
		if len(content) > maxSnippetChars {
			content = content[:maxSnippetChars]
		}
		snippets = append(snippets, fmt.Sprintf("### %s\n```\n%s\n```", f.Path, content))
	}
	return strings.Join(snippets, "\n\n")
}

// fileNarratives produces a deep-dive narrative for up to maxNarrativeFiles
// key files chosen by priority score.
func (e *Engine) fileNarratives(ctx context.Context, st *State) error {
	a := st.analysisOrEmpty()

	// The candidate list is capped before reading: an unreadable key file
	// yields fewer narratives, it does not promote the next-ranked file.
	selected := selectKeyFiles(a.CodeFiles)
	if len(selected) > maxNarrativeFiles {
		selected = selected[:maxNarrativeFiles]
	}
	for _, f := range selected {
		content, err := e.analyzer.ReadFileContent(f.FullPath)
		if err != nil {
			continue
		}
		if len(content) > maxFileWindowChars {
			content = content[:maxFileWindowChars]
		}

		lang := languageName(f.Extension)
		prompt := fmt.Sprintf(llm.FileNarrativePrompt, f.Path, lang, lang, content)

		text, err := e.llm.Complete(ctx, llm.SystemCodeAnalyst, prompt)
		if err != nil {
			return err
		}
		if _, seen := st.FileNarratives[f.Path]; !seen {
			st.FileOrder = append(st.FileOrder, f.Path)
		}
		st.FileNarratives[f.Path] = text
	}
	return nil
}

// selectKeyFiles orders code files by descending priority score: a fixed
// bonus for entry-point-looking names plus a capped size bonus.
func selectKeyFiles(files []analysis.CodeFile) []analysis.CodeFile {
	scored := make([]analysis.CodeFile, len(files))
	copy(scored, files)

	score := func(f analysis.CodeFile) float64 {
		s := 0.0
		base := strings.ToLower(filepath.Base(f.Path))
		if strings.Contains(base, "main") || strings.Contains(base, "index") || strings.Contains(base, "app") {
			s += entryPointBonus
		}
		bonus := float64(f.Size) / sizeBonusDivisor
		if bonus > sizeBonusCap {
			bonus = sizeBonusCap
		}
		return s + bonus
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return score(scored[i]) > score(scored[j])
	})
	return scored
}

// setupNarrative produces the how-to-run guide from detected package
// managers, frameworks, and a bounded dependency summary.
func (e *Engine) setupNarrative(ctx context.Context, st *State) error {
	a := st.analysisOrEmpty()

	var configList []string
	for _, cf := range analysis.DetectConfigFiles(st.RepoPath) {
		configList = append(configList, "- "+cf)
	}

	prompt := fmt.Sprintf(llm.SetupNarrativePrompt,
		strings.Join(a.LanguageNames(), ", "),
		strings.Join(analysis.DetectPackageManagers(st.RepoPath), ", "),
		strings.Join(a.Frameworks, ", "),
		strings.Join(configList, "\n"),
		analysis.ExtractDependencySummary(st.RepoPath))

	text, err := e.llm.Complete(ctx, llm.SystemDevOpsEngineer, prompt)
	if err != nil {
		return err
	}
	st.SetupNarrative = text
	return nil
}

// languageName maps a file extension to a fence label for prompts.
func languageName(extension string) string {
	names := map[string]string{
		".py":   "python",
		".js":   "javascript",
		".ts":   "typescript",
		".java": "java",
		".go":   "go",
		".rs":   "rust",
		".rb":   "ruby",
	}
	if name, ok := names[extension]; ok {
		return name
	}
	return "text"
}

package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/repodoc/internal/pipeline"
)

// detailedDocsDir holds the per-file deep documentation inside a bundle.
const detailedDocsDir = "detailed_docs"

// docNameEscaper flattens a repository-relative path into a single bundle
// filename. "src/app.py" and "src.app/py" collide by construction; the last
// writer wins, matching the flat-namespace layout.
var docNameEscaper = strings.NewReplacer("/", "_", ".", "_")

// escapeDocName maps a repository path to its detailed_docs filename.
func escapeDocName(path string) string {
	return docNameEscaper.Replace(path) + ".md"
}

// writeBundle materializes the documentation bundle from a completed
// pipeline state:
//
//	README.md                   main narrative
//	{dir}/README.md             one per directory narrative
//	detailed_docs/{escaped}.md  one per file narrative
//	SETUP.md                    setup narrative
func writeBundle(dir string, st *pipeline.State) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create bundle dir: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte(st.MainNarrative), 0o644); err != nil {
		return fmt.Errorf("write README.md: %w", err)
	}

	for _, d := range st.DirectoryOrder {
		dirPath := filepath.Join(dir, filepath.FromSlash(d))
		if err := os.MkdirAll(dirPath, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", d, err)
		}
		if err := os.WriteFile(filepath.Join(dirPath, "README.md"), []byte(st.DirectoryNarratives[d]), 0o644); err != nil {
			return fmt.Errorf("write %s/README.md: %w", d, err)
		}
	}

	if len(st.FileOrder) > 0 {
		docsDir := filepath.Join(dir, detailedDocsDir)
		if err := os.MkdirAll(docsDir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", detailedDocsDir, err)
		}
		for _, f := range st.FileOrder {
			content := fmt.Sprintf("# %s\n\n%s", f, st.FileNarratives[f])
			if err := os.WriteFile(filepath.Join(docsDir, escapeDocName(f)), []byte(content), 0o644); err != nil {
				return fmt.Errorf("write detailed doc for %s: %w", f, err)
			}
		}
	}

	if err := os.WriteFile(filepath.Join(dir, "SETUP.md"), []byte(st.SetupNarrative), 0o644); err != nil {
		return fmt.Errorf("write SETUP.md: %w", err)
	}

	return nil
}

// Package gitrepo acquires shallow working copies of remote repositories
// and owns their lifetime.
package gitrepo

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
	giturls "github.com/whilp/git-urls"

	rderrors "git.home.luguber.info/inful/repodoc/internal/errors"
	"git.home.luguber.info/inful/repodoc/internal/logfields"
)

// Accepted locator shapes for the supported host.
var locatorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https://github\.com/[\w-]+/[\w.-]+/?$`),
	regexp.MustCompile(`^git@github\.com:[\w-]+/[\w.-]+\.git$`),
}

// Acquirer fetches shallow working copies under a workspace directory.
// It holds no state between calls; acquisitions for different jobs are
// safe to run concurrently.
type Acquirer struct {
	workspaceDir string
}

// NewAcquirer creates an Acquirer rooted at workspaceDir.
func NewAcquirer(workspaceDir string) *Acquirer {
	return &Acquirer{workspaceDir: workspaceDir}
}

// ValidateLocator reports whether the locator matches one of the accepted
// repository reference shapes.
func ValidateLocator(locator string) bool {
	locator = strings.TrimSpace(locator)
	for _, p := range locatorPatterns {
		if p.MatchString(locator) {
			return true
		}
	}
	return false
}

// DisplayName derives a stable display name (owner_repo) from a locator.
func DisplayName(locator string) string {
	trimmed := strings.TrimSuffix(strings.TrimRight(strings.TrimSpace(locator), "/"), ".git")
	if u, err := giturls.Parse(trimmed); err == nil {
		path := strings.Trim(u.Path, "/")
		if path != "" {
			return strings.ReplaceAll(path, "/", "_")
		}
	}
	return "unknown_repo"
}

// Acquire clones a shallow working copy of the repository and returns its
// local path together with the repository display name.
func (a *Acquirer) Acquire(ctx context.Context, locator string) (string, string, error) {
	if !ValidateLocator(locator) {
		return "", "", rderrors.InvalidLocator(locator)
	}

	if err := os.MkdirAll(a.workspaceDir, 0o755); err != nil {
		return "", "", rderrors.AcquisitionFailed(locator, fmt.Errorf("create workspace: %w", err))
	}

	name := DisplayName(locator)
	path := filepath.Join(a.workspaceDir, name+"_"+randomSuffix())

	slog.Debug("Cloning repository", logfields.Locator(locator), logfields.Repository(name), logfields.Path(path))

	// Full history is never needed for analysis.
	_, err := git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
		URL:   strings.TrimSpace(locator),
		Depth: 1,
	})
	if err != nil {
		// Clean up the partial clone before reporting failure.
		_ = os.RemoveAll(path)
		return "", "", rderrors.AcquisitionFailed(locator, err)
	}

	slog.Info("Repository cloned", logfields.Repository(name), logfields.Path(path))
	return path, name, nil
}

// Release removes a working copy. It is an idempotent no-op for a path that
// never existed or was already removed, and it never returns an error;
// failures are logged as warnings only.
func (a *Acquirer) Release(path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return
	}
	if err := os.RemoveAll(path); err != nil {
		slog.Warn("Failed to release working copy", logfields.Path(path), logfields.Error(err))
	}
}

func randomSuffix() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		// math/rand fallback is not worth it for a collision-avoidance suffix.
		return "00000000"
	}
	return hex.EncodeToString(b)
}

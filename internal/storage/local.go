package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	rderrors "git.home.luguber.info/inful/repodoc/internal/errors"
	"git.home.luguber.info/inful/repodoc/internal/logfields"
)

// LocalBackend stores bundles under a fixed directory and issues access URLs
// served through the API's bundle-serving endpoint.
type LocalBackend struct {
	root    string
	baseURL string
}

// NewLocalBackend creates a backend rooted at root. baseURL is the externally
// reachable API base used to build access URLs.
func NewLocalBackend(root, baseURL string) (*LocalBackend, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, rderrors.StorageFailure("init", err)
	}
	return &LocalBackend{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Store copies the bundle tree under {root}/{jobID}/, replacing any prior run
// for that id, and returns the serving URL of the primary artifact.
func (b *LocalBackend) Store(ctx context.Context, jobID, bundleDir string) (string, error) {
	jobDir := filepath.Join(b.root, jobID)

	// A rerun with the same id replaces prior output, never merges with it.
	if err := os.RemoveAll(jobDir); err != nil {
		return "", rderrors.StorageFailure("replace prior bundle", err)
	}
	if err := copyTree(ctx, bundleDir, jobDir); err != nil {
		return "", rderrors.StorageFailure("copy bundle", err)
	}

	slog.Info("Bundle stored locally", logfields.JobID(jobID), logfields.Path(jobDir))
	return fmt.Sprintf("%s/api/docs/%s/%s", b.baseURL, jobID, PrimaryArtifact), nil
}

// StoreMetadata writes metadata.json under the job's namespace.
func (b *LocalBackend) StoreMetadata(ctx context.Context, jobID string, meta Metadata) error {
	jobDir := filepath.Join(b.root, jobID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return rderrors.StorageFailure("metadata", err)
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return rderrors.StorageFailure("metadata", err)
	}
	if err := os.WriteFile(filepath.Join(jobDir, MetadataArtifact), data, 0o644); err != nil {
		return rderrors.StorageFailure("metadata", err)
	}
	return nil
}

// Resolve maps a relative path to a file inside the job's namespace. Any path
// that escapes the namespace root once resolved is denied, never served.
func (b *LocalBackend) Resolve(jobID, relativePath string) (string, error) {
	jobDir, err := filepath.Abs(filepath.Join(b.root, jobID))
	if err != nil {
		return "", rderrors.StorageFailure("resolve", err)
	}
	// Join would silently anchor an absolute component inside the namespace,
	// turning "/etc/passwd" into "{jobDir}/etc/passwd". Absolute requests are
	// refused outright.
	if filepath.IsAbs(relativePath) || strings.HasPrefix(relativePath, "\\") {
		return "", rderrors.AccessDenied(relativePath)
	}
	full, err := filepath.Abs(filepath.Join(jobDir, relativePath))
	if err != nil {
		return "", rderrors.AccessDenied(relativePath)
	}
	if full != jobDir && !strings.HasPrefix(full, jobDir+string(os.PathSeparator)) {
		return "", rderrors.AccessDenied(relativePath)
	}
	return full, nil
}

// copyTree copies src recursively into dst, preserving relative paths.
func copyTree(ctx context.Context, src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// Package storage persists finished documentation bundles behind a uniform
// access contract with interchangeable backends.
package storage

import (
	"context"
	"path/filepath"
	"strings"
)

// PrimaryArtifact is the bundle file the access URL resolves to.
const PrimaryArtifact = "README.md"

// MetadataArtifact is the per-job metadata document name.
const MetadataArtifact = "metadata.json"

// Metadata is the durable record written next to a bundle.
type Metadata struct {
	JobID    string          `json:"job_id"`
	Locator  string          `json:"locator"`
	RepoName string          `json:"repo_name"`
	Analysis AnalysisSummary `json:"analysis"`
	Status   string          `json:"status"`
}

// AnalysisSummary is the condensed analysis carried into metadata.
type AnalysisSummary struct {
	TotalFiles int            `json:"total_files"`
	CodeFiles  int            `json:"code_files"`
	Languages  map[string]int `json:"languages"`
	Frameworks []string       `json:"frameworks"`
}

// Backend stores one job's bundle and metadata under a per-job namespace.
// Implementations are selected once by configuration at construction time.
type Backend interface {
	// Store persists every file under bundleDir, preserving relative paths,
	// under the job's namespace, and returns a URL resolving to the primary
	// artifact. The URL must not be returned before the whole bundle is
	// durably stored.
	Store(ctx context.Context, jobID, bundleDir string) (string, error)

	// StoreMetadata writes the metadata record under the same namespace,
	// addressable separately from the bundle.
	StoreMetadata(ctx context.Context, jobID string, meta Metadata) error

	// Resolve maps a relative path inside a job's namespace to a local
	// readable path. Paths escaping the namespace root are rejected with a
	// denied error. Only the local variant supports serving.
	Resolve(jobID, relativePath string) (string, error)
}

// contentTypes maps known bundle extensions; everything else is served as
// generic binary.
var contentTypes = map[string]string{
	".md":   "text/markdown",
	".html": "text/html",
	".json": "application/json",
	".txt":  "text/plain",
	".css":  "text/css",
	".js":   "application/javascript",
}

// ContentTypeFor infers a content type from a file name.
func ContentTypeFor(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Package version exposes build-time version metadata.
package version

// Version is the application version. Set via build-time ldflags:
// go build -ldflags "-X git.home.luguber.info/inful/repodoc/internal/version.Version=v1.0.0".
var Version = "dev"

// Build metadata, also populated through ldflags.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

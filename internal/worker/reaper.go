package worker

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/repodoc/internal/logfields"
)

// Reaper periodically removes workspace directories older than the hard
// deadline. Such directories belong to abandoned runs whose deferred cleanup
// never executed.
type Reaper struct {
	scheduler    gocron.Scheduler
	workspaceDir string
	maxAge       time.Duration
}

// NewReaper creates a reaper sweeping workspaceDir on the given interval.
// Entries younger than maxAge are left alone because their run may still be
// inside its deadline window.
func NewReaper(workspaceDir string, maxAge, interval time.Duration) (*Reaper, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	r := &Reaper{scheduler: s, workspaceDir: workspaceDir, maxAge: maxAge}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(r.Sweep),
		gocron.WithName("workspace-reaper"),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule sweep: %w", err)
	}

	return r, nil
}

// Start begins periodic sweeping.
func (r *Reaper) Start() {
	slog.Info("Workspace reaper started",
		logfields.Path(r.workspaceDir),
		slog.Duration("max_age", r.maxAge))
	r.scheduler.Start()
}

// Stop shuts the scheduler down.
func (r *Reaper) Stop() error {
	return r.scheduler.Shutdown()
}

// Sweep removes every workspace entry older than maxAge. It returns the
// number of entries removed.
func (r *Reaper) Sweep() int {
	entries, err := os.ReadDir(r.workspaceDir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Reaper cannot read workspace", logfields.Path(r.workspaceDir), logfields.Error(err))
		}
		return 0
	}

	cutoff := time.Now().Add(-r.maxAge)
	removed := 0
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(r.workspaceDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			slog.Warn("Reaper failed to remove entry", logfields.Path(path), logfields.Error(err))
			continue
		}
		slog.Info("Reaped abandoned workspace entry", logfields.Path(path))
		removed++
	}
	return removed
}

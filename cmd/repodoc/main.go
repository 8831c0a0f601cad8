package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/repodoc/internal/config"
	"git.home.luguber.info/inful/repodoc/internal/jobs"
	"git.home.luguber.info/inful/repodoc/internal/llm"
	"git.home.luguber.info/inful/repodoc/internal/logfields"
	"git.home.luguber.info/inful/repodoc/internal/metrics"
	"git.home.luguber.info/inful/repodoc/internal/orchestrator"
	"git.home.luguber.info/inful/repodoc/internal/server/httpserver"
	"git.home.luguber.info/inful/repodoc/internal/storage"
	"git.home.luguber.info/inful/repodoc/internal/worker"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"repodoc.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Serve struct {
	} `cmd:"" help:"Run the HTTP API. Without a NATS URL, workers run in-process."`

	Worker struct {
	} `cmd:"" help:"Run a documentation worker consuming the NATS queue"`

	Run struct {
		Locator string `arg:"" help:"Repository locator, e.g. https://github.com/owner/repo"`
	} `cmd:"" help:"Process a single repository locally and print the result"`
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if CLI.Verbose {
		cfg.Verbose = true
	}

	logLevel := slog.LevelInfo
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	switch kctx.Command() {
	case "serve":
		err = runServe(cfg)
	case "worker":
		err = runWorker(cfg)
	case "run <locator>":
		err = runOnce(cfg, CLI.Run.Locator)
	}
	if err != nil {
		slog.Error("Command failed", logfields.Error(err))
		os.Exit(1)
	}
}

// buildBackend selects the storage variant. The local backend is returned
// separately because only it can serve bundle files over HTTP.
func buildBackend(cfg *config.Config) (storage.Backend, *storage.LocalBackend, string, error) {
	if cfg.StorageMode == config.StorageModeS3 {
		b, err := storage.NewS3Backend(cfg.S3)
		if err != nil {
			return nil, nil, "", err
		}
		return b, nil, "object storage", nil
	}
	local, err := storage.NewLocalBackend(cfg.LocalDocsRoot, cfg.PublicBaseURL)
	if err != nil {
		return nil, nil, "", err
	}
	return local, local, "local storage", nil
}

// buildStoreAndQueue wires NATS when configured, or the single-binary
// sqlite + in-memory pair otherwise.
func buildStoreAndQueue(cfg *config.Config) (jobs.Store, jobs.Queue, func(), error) {
	if cfg.NATSURL != "" {
		client, err := jobs.NewNATSClient(cfg.NATSURL)
		if err != nil {
			return nil, nil, nil, err
		}
		store, err := jobs.NewNATSStore(client)
		if err != nil {
			client.Close()
			return nil, nil, nil, err
		}
		queue, err := jobs.NewNATSQueue(client)
		if err != nil {
			client.Close()
			return nil, nil, nil, err
		}
		return store, queue, func() { _ = client.Close() }, nil
	}

	store, err := jobs.NewSQLiteStore(cfg.JobStorePath)
	if err != nil {
		return nil, nil, nil, err
	}
	queue := jobs.NewMemoryQueue(100)
	cleanup := func() {
		_ = queue.Close()
		_ = store.Close()
	}
	return store, queue, cleanup, nil
}

func buildOrchestrator(cfg *config.Config, store jobs.Store, backend storage.Backend, label string, recorder metrics.Recorder) (*orchestrator.Orchestrator, error) {
	client, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if err != nil {
		return nil, err
	}
	return orchestrator.New(orchestrator.Options{
		Store:        store,
		Backend:      backend,
		LLM:          client,
		Recorder:     recorder,
		WorkspaceDir: cfg.WorkspaceDir,
		StorageLabel: label,
		SoftDeadline: cfg.SoftDeadline,
		HardDeadline: cfg.HardDeadline,
	}), nil
}

func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, local, label, err := buildBackend(cfg)
	if err != nil {
		return err
	}

	store, queue, cleanup, err := buildStoreAndQueue(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	registry := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	srv := httpserver.New(httpserver.Options{
		Addr:     cfg.ListenAddr,
		Store:    store,
		Queue:    queue,
		Recorder: recorder,
		Local:    local,
		Registry: registry,
	})

	// Without NATS there is no separate worker process; consume in-process.
	var pool *worker.Pool
	var reaper *worker.Reaper
	if cfg.NATSURL == "" {
		orch, err := buildOrchestrator(cfg, store, backend, label, recorder)
		if err != nil {
			return err
		}
		pool = worker.NewPool(queue, orch, cfg.Workers, recorder)
		if err := pool.Start(ctx); err != nil {
			return err
		}
		reaper, err = worker.NewReaper(cfg.WorkspaceDir, cfg.HardDeadline, cfg.ReaperInterval)
		if err != nil {
			return err
		}
		reaper.Start()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown incomplete", logfields.Error(err))
	}
	if pool != nil {
		if err := pool.Stop(shutdownCtx); err != nil {
			slog.Warn("Worker pool drain incomplete", logfields.Error(err))
		}
	}
	if reaper != nil {
		_ = reaper.Stop()
	}
	return nil
}

func runWorker(cfg *config.Config) error {
	if cfg.NATSURL == "" {
		return fmt.Errorf("worker mode requires NATS_URL; use serve for single-binary mode")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, _, label, err := buildBackend(cfg)
	if err != nil {
		return err
	}

	store, queue, cleanup, err := buildStoreAndQueue(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	recorder := metrics.NewPrometheusRecorder(prometheus.NewRegistry())
	orch, err := buildOrchestrator(cfg, store, backend, label, recorder)
	if err != nil {
		return err
	}

	reaper, err := worker.NewReaper(cfg.WorkspaceDir, cfg.HardDeadline, cfg.ReaperInterval)
	if err != nil {
		return err
	}
	reaper.Start()
	defer func() { _ = reaper.Stop() }()

	pool := worker.NewPool(queue, orch, cfg.Workers, recorder)
	if err := pool.Start(ctx); err != nil {
		return err
	}

	slog.Info("Worker running", logfields.URL(cfg.NATSURL), slog.Int("workers", cfg.Workers))
	<-ctx.Done()

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return pool.Stop(drainCtx)
}

// runOnce processes one locator without the queue and prints the terminal
// job record as JSON.
func runOnce(cfg *config.Config, locator string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, _, label, err := buildBackend(cfg)
	if err != nil {
		return err
	}

	store, err := jobs.NewSQLiteStore(":memory:")
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	orch, err := buildOrchestrator(cfg, store, backend, label, metrics.NoopRecorder{})
	if err != nil {
		return err
	}

	jobID := uuid.NewString()
	if err := store.Create(ctx, jobs.NewJob(jobID, locator)); err != nil {
		return err
	}

	orch.Run(ctx, jobs.Task{JobID: jobID, Locator: locator, SubmittedAt: time.Now().UTC()})

	job, err := store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if job.State == jobs.StateFailed {
		os.Exit(1)
	}
	return nil
}

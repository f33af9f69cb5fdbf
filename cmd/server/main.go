package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/clipforge/remuxd/internal/api"
	"github.com/clipforge/remuxd/internal/api/handler"
	"github.com/clipforge/remuxd/internal/applock"
	"github.com/clipforge/remuxd/internal/config"
	"github.com/clipforge/remuxd/internal/fetcher"
	"github.com/clipforge/remuxd/internal/pipeline"
	"github.com/clipforge/remuxd/internal/repository"
	"github.com/clipforge/remuxd/internal/transcoder"
	"github.com/clipforge/remuxd/internal/worker"
	"github.com/clipforge/remuxd/internal/workspace"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("remuxd %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting remuxd",
		"version", Version,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Prepare the workspace before anything else touches it
	ws := workspace.NewManager(cfg.Workspace.BaseDir, logger)
	if err := ws.EnsureBase(); err != nil {
		logger.Error("failed to create workspace directory", "error", err)
		os.Exit(1)
	}

	// Refuse to run alongside another instance sharing the workspace
	lock := applock.New(filepath.Join(cfg.Workspace.BaseDir, "remuxd.lock"))
	if err := lock.Acquire(); err != nil {
		if errors.Is(err, applock.ErrAlreadyLocked) {
			logger.Error("another instance is already running", "lock", lock.Path())
		} else {
			logger.Error("failed to acquire instance lock", "error", err)
		}
		os.Exit(1)
	}
	defer lock.Release()

	// Select the job repository: SQLite when a db path is configured,
	// in-memory otherwise
	var jobRepo repository.JobRepository
	if cfg.Queue.DBPath != "" {
		sqliteRepo, err := repository.NewSQLiteJobRepository(cfg.Queue.DBPath)
		if err != nil {
			logger.Error("failed to open job database", "error", err, "path", cfg.Queue.DBPath)
			os.Exit(1)
		}
		defer sqliteRepo.Close()
		jobRepo = sqliteRepo
		logger.Info("using sqlite job queue", "path", cfg.Queue.DBPath)
	} else {
		jobRepo = repository.NewInMemoryJobRepository()
		logger.Info("using in-memory job queue")
	}

	// Initialize the pipeline
	fetch := fetcher.NewHTTPFetcher(fetcher.Config{
		Timeout:   cfg.Fetch.Timeout,
		UserAgent: cfg.Fetch.UserAgent,
	}, ws, logger)

	toolPath := cfg.Remux.ToolPath
	if toolPath == "" {
		toolPath = "ffmpeg"
	}
	remux := transcoder.NewRemuxer(
		transcoder.PathResolver(toolPath),
		cfg.Remux.TargetFormat,
		ws,
		logger,
	)
	if err := remux.Available(); err != nil {
		logger.Warn("remux tool not resolvable at startup", "tool", toolPath, "error", err)
	}

	orchestrator := pipeline.NewOrchestrator(fetch, remux, ws, logger)

	// Initialize handlers
	remuxHandler := handler.NewRemuxHandler(orchestrator, jobRepo, cfg.Worker.MaxRetries, logger)
	healthHandler := handler.NewHealthHandler(jobRepo, remux, cfg.Workspace.BaseDir)

	// Setup router
	router := api.NewRouter(remuxHandler, healthHandler, cfg.Server.APIKey, logger)

	// Initialize worker pool
	pool := worker.NewPool(
		worker.Config{
			Workers:      cfg.Worker.Count,
			PollInterval: cfg.Worker.PollInterval,
		},
		jobRepo,
		orchestrator,
		logger,
	)

	// Start worker pool
	pool.Start()

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop accepting new requests
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Stop workers (allow in-flight jobs to complete)
	if err := pool.Stop(25 * time.Second); err != nil {
		logger.Error("worker pool shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

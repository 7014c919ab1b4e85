package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-quest/internal/api"
	"github.com/p-n-ai/pai-quest/internal/catalog"
	"github.com/p-n-ai/pai-quest/internal/content"
	"github.com/p-n-ai/pai-quest/internal/platform/cache"
	"github.com/p-n-ai/pai-quest/internal/platform/config"
	"github.com/p-n-ai/pai-quest/internal/platform/database"
	"github.com/p-n-ai/pai-quest/internal/progress"
	"github.com/p-n-ai/pai-quest/internal/realtime"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(os.Stdout, cfg.Log))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger from LEARN_LOG_LEVEL and LEARN_LOG_FORMAT.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func run(ctx context.Context, cfg *config.Config) error {
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}

	checks := make(map[string]api.Checker)
	var repo progress.Repository = progress.NewMemoryRepository()
	var events progress.EventLogger = progress.NopEventLogger{}

	if cfg.UsesPostgres() {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			return err
		}
		pg, err := progress.NewPostgresRepository(db.Pool)
		if err != nil {
			return err
		}
		repo = pg
		events = progress.NewPostgresEventLogger(db.Pool)
		checks["database"] = db
	}

	var rc *cache.Cache
	if cfg.HasCache() {
		rc, err = cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return err
		}
		defer rc.Close()

		repo = progress.NewCachedRepository(repo, rc.Client, cfg.Cache.SnapshotTTL)
		checks["cache"] = rc
	}

	var cms *content.Client
	if cfg.HasCMS() {
		cms, err = content.NewClient(cfg.CMS.URL, cfg.CMS.Token)
		if err != nil {
			return err
		}
		// Questions must be in the catalog before sessions are seeded from it.
		if _, err := content.FillQuestions(ctx, cms, cat, cfg.CMS.Concurrency); err != nil {
			return err
		}
	}

	hub := realtime.NewHub(0)
	manager := progress.NewManager(progress.ManagerConfig{
		Catalog:    cat,
		Repository: repo,
		Policy:     progress.Policy{Threshold: cfg.Progress.UnlockThreshold},
		Observers:  []progress.Observer{hub, progress.EventObserver{Logger: events}},
	})

	if cms != nil {
		startContentSync(ctx, cfg, cms, cat, manager, rc)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.New(api.Config{Manager: manager, Hub: hub, Checks: checks}).Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting",
			"addr", srv.Addr,
			"storage", cfg.Progress.Storage,
			"unlock_threshold", cfg.Progress.UnlockThreshold,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	for _, learnerID := range manager.ActiveLearners() {
		if err := manager.End(shutdownCtx, learnerID); err != nil {
			slog.Error("saving progress on shutdown failed", "learner_id", learnerID, "error", err)
		}
	}
	return nil
}

// startContentSync replays cached video counts and then refreshes them from
// the CMS in the background.
func startContentSync(ctx context.Context, cfg *config.Config, client *content.Client, cat *catalog.Catalog, manager *progress.Manager, rc *cache.Cache) {
	syncCfg := content.SyncerConfig{
		Fetcher:     client,
		Recorder:    manager,
		Concurrency: cfg.CMS.Concurrency,
	}
	if rc != nil {
		syncCfg.Cache = content.NewCountCache(rc.Client)
	}
	syncer := content.NewSyncer(syncCfg)

	if err := syncer.Warm(ctx); err != nil {
		slog.Warn("warming video counts failed", "error", err)
	}
	go func() {
		if _, err := syncer.Sync(ctx, cat); err != nil {
			slog.Warn("content sync aborted", "error", err)
		}
	}()
}

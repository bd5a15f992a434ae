package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"slideshow/internal/config"
	"slideshow/internal/logger"
	"slideshow/internal/repository"
	"slideshow/internal/repository/sqlite"
	"slideshow/internal/route"
	"slideshow/internal/service"
	"slideshow/internal/service/catalog"
	"slideshow/internal/service/ingest"
	"slideshow/internal/service/notify"
	"slideshow/internal/service/storage"
	"slideshow/internal/service/thumbnail"
	"slideshow/internal/tracing"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config         *config.Config
	logger         *logger.Logger
	manager        *service.Manager
	closers        []func() error
	shutdownTracer func(context.Context) error
}

// OpenRepository opens the SQLite catalog stored at storePath.
func OpenRepository(storePath string) (repository.ImageRepository, error) {
	return sqlite.Open(storePath)
}

// NewApp builds every service from cfg. Optional backends (object mirror, Redis)
// that cannot be reached are logged and replaced by their local fallback.
func NewApp(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*App, error) {
	shutdownTracer, err := tracing.InitTracer(cfg.ServiceName, cfg.OTLPEndpoint, logger)
	if err != nil {
		return nil, err
	}

	a := &App{config: cfg, logger: logger, shutdownTracer: shutdownTracer}

	repo, err := OpenRepository(catalog.StorePath(cfg.ImageDirectory, cfg.DatabaseName))
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	notifier := notify.New()
	deps := service.Deps{
		Catalog:  catalog.New(repo, cfg.ImageDirectory, cfg.DatabaseName, notifier, logger),
		Files:    storage.NewFiles(logger),
		Notifier: notifier,
		Resizer:  thumbnail.NewGocvResizer(),
		Seen:     a.seenSet(ctx),
		Opener:   OpenRepository,
	}

	mirror, err := storage.NewMinioMirror(ctx, cfg, logger)
	if err != nil {
		logger.Warning("Upload mirror disabled: %v", err)
	} else if mirror != nil {
		deps.Mirror = mirror
		logger.Info("Mirroring uploads to bucket %s", cfg.MinIOBucketName)
	}

	a.manager = service.NewManager(deps, cfg, logger)
	return a, nil
}

func (a *App) seenSet(ctx context.Context) ingest.SeenSet {
	addr := a.config.GetRedisAddr()
	if addr == "" {
		return ingest.NewMemorySeenSet()
	}

	ttl := time.Duration(a.config.SeenTTLHours) * time.Hour
	seen, err := ingest.NewRedisSeenSet(ctx, addr, a.config.RedisPassword, a.config.RedisDB, ttl)
	if err != nil {
		a.logger.Warning("Redis unavailable, tracking submissions in memory: %v", err)
		return ingest.NewMemorySeenSet()
	}
	a.closers = append(a.closers, seen.Close)
	a.logger.Info("Tracking submissions in Redis at %s", addr)
	return seen
}

// Manager exposes the wired services, mainly for the CLI.
func (a *App) Manager() *service.Manager {
	return a.manager
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if err := a.manager.Start(ctx); err != nil {
		return err
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.manager.GetWebsocketService().Run(hubCtx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Port),
		Handler:      route.SetupRoutes(a.manager, a.config, a.logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Slideshow server listening on :%d, images in %s", a.config.Port, a.config.ImageDirectory)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			a.Close()
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warning("Server forced to shutdown: %v", err)
	}

	return a.Close()
}

// Close stops background work and releases the catalog and optional backends.
func (a *App) Close() error {
	err := a.manager.Stop()
	for _, closeFn := range a.closers {
		if cerr := closeFn(); cerr != nil {
			a.logger.Warning("Error closing backend: %v", cerr)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if terr := a.shutdownTracer(ctx); terr != nil {
		a.logger.Warning("Error shutting down tracer: %v", terr)
	}
	return err
}

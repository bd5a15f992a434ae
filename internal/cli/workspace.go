package cli

import (
	"fmt"
	"os"

	"slideshow/internal/app"
	"slideshow/internal/logger"
	"slideshow/internal/service"
	"slideshow/internal/service/catalog"
	"slideshow/internal/service/ingest"
	"slideshow/internal/service/notify"
	"slideshow/internal/service/reconcile"
	"slideshow/internal/service/storage"
	"slideshow/internal/service/thumbnail"
)

// workspace is the offline subset of the service: the manager without its
// folder watch or HTTP surface.
type workspace struct {
	manager    *service.Manager
	catalog    *catalog.Catalog
	pipeline   *thumbnail.Pipeline
	reconciler *reconcile.Reconciler
}

func openWorkspace(opts *rootOptions, log *logger.Logger) (*workspace, error) {
	cfg := *opts.cfg
	cfg.WatchFolder = false

	info, err := os.Stat(cfg.ImageDirectory)
	if err != nil {
		return nil, fmt.Errorf("folder %s unavailable: %w", cfg.ImageDirectory, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", cfg.ImageDirectory)
	}

	repo, err := app.OpenRepository(catalog.StorePath(cfg.ImageDirectory, cfg.DatabaseName))
	if err != nil {
		return nil, err
	}

	notifier := notify.New()
	manager := service.NewManager(service.Deps{
		Catalog:  catalog.New(repo, cfg.ImageDirectory, cfg.DatabaseName, notifier, log),
		Files:    storage.NewFiles(log),
		Notifier: notifier,
		Resizer:  newResizer(),
		Seen:     ingest.NewMemorySeenSet(),
		Opener:   app.OpenRepository,
	}, &cfg, log)

	return &workspace{
		manager:    manager,
		catalog:    manager.GetCatalog(),
		pipeline:   manager.GetPipeline(),
		reconciler: manager.GetReconciler(),
	}, nil
}

func (w *workspace) Close() error {
	return w.manager.Stop()
}

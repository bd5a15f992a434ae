package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"slideshow/internal/config"
	"slideshow/internal/dto"
	"slideshow/internal/logger"
	"slideshow/internal/service/catalog"
	"slideshow/internal/service/ingest"
	"slideshow/internal/service/notify"
	"slideshow/internal/service/reconcile"
	"slideshow/internal/service/storage"
	"slideshow/internal/service/thumbnail"
	"slideshow/internal/service/watcher"
	"slideshow/internal/service/websocket"
)

// Manager owns the long-lived services and the order in which they react to
// folder changes.
type Manager struct {
	catalog    *catalog.Catalog
	files      storage.FileStore
	pipeline   *thumbnail.Pipeline
	reconciler *reconcile.Reconciler
	admitter   *ingest.Admitter
	watcher    *watcher.Watcher
	hub        *websocket.HubService
	open       catalog.Opener
	watch      bool
	logger     *logger.Logger
}

// Deps lists the collaborators the manager is built from.
type Deps struct {
	Catalog  *catalog.Catalog
	Files    storage.FileStore
	Notifier *notify.Notifier
	Resizer  thumbnail.Resizer
	Seen     ingest.SeenSet
	Mirror   storage.Mirror
	Opener   catalog.Opener
}

func NewManager(deps Deps, cfg *config.Config, logger *logger.Logger) *Manager {
	m := &Manager{
		catalog: deps.Catalog,
		files:   deps.Files,
		open:    deps.Opener,
		watch:   cfg.WatchFolder,
		logger:  logger,
	}

	m.pipeline = thumbnail.NewPipeline(deps.Catalog, deps.Files, deps.Resizer, cfg.ThumbnailSize, logger)
	m.reconciler = reconcile.New(deps.Catalog, deps.Files, m.pipeline, logger)
	m.admitter = ingest.NewAdmitter(deps.Catalog, deps.Files, deps.Seen, m.pipeline, deps.Mirror, logger)
	m.reconciler.SkipWhen(m.admitter.InFlight)
	m.watcher = watcher.New(m.reconciler, logger)
	m.hub = websocket.NewHubService(deps.Notifier, logger)
	m.pipeline.OnSweep(m.thumbnailsReady)

	return m
}

// thumbnailsReady lets observers refresh their lists once a sweep has produced thumbnails.
func (m *Manager) thumbnailsReady(stats thumbnail.SweepStats) {
	if stats.Generated == 0 {
		return
	}
	message, err := json.Marshal(dto.ThumbnailsMessage{Kind: dto.ThumbnailsKind, Generated: stats.Generated})
	if err != nil {
		m.logger.Error("Error encoding thumbnails message: %v", err)
		return
	}
	m.hub.Broadcast(message)
}

// Start reconciles the configured folder and begins watching it.
func (m *Manager) Start(ctx context.Context) error {
	folder := m.catalog.Folder()
	if err := os.MkdirAll(folder, 0755); err != nil {
		return fmt.Errorf("failed to create image folder: %w", err)
	}

	if m.watch {
		if err := m.watcher.Watch(folder); err != nil {
			m.logger.Warning("Folder watch disabled: %v", err)
		}
	}

	res, err := m.reconciler.ReconcileCurrent(ctx)
	if err != nil {
		return fmt.Errorf("initial reconciliation failed: %w", err)
	}
	m.logger.Info("Catalog ready: %d added, %d removed", res.Added, res.Removed)
	return nil
}

// Relocate moves the service to a new image folder and catalog name.
func (m *Manager) Relocate(ctx context.Context, folder, dbName string) error {
	if dbName == "" {
		dbName = m.catalog.DatabaseName()
	}
	info, err := os.Stat(folder)
	if err != nil {
		return fmt.Errorf("folder %s unavailable: %w", folder, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", folder)
	}

	if err := m.catalog.Relocate(ctx, folder, dbName, m.open); err != nil {
		return err
	}

	if m.watch {
		if err := m.watcher.Watch(folder); err != nil {
			m.logger.Warning("Folder watch disabled: %v", err)
		}
	}

	if _, err := m.reconciler.ReconcileCurrent(ctx); err != nil {
		return fmt.Errorf("reconciliation after relocation failed: %w", err)
	}
	return nil
}

func (m *Manager) GetCatalog() *catalog.Catalog {
	return m.catalog
}

func (m *Manager) GetFiles() storage.FileStore {
	return m.files
}

func (m *Manager) GetPipeline() *thumbnail.Pipeline {
	return m.pipeline
}

func (m *Manager) GetReconciler() *reconcile.Reconciler {
	return m.reconciler
}

func (m *Manager) GetAdmitter() *ingest.Admitter {
	return m.admitter
}

func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.hub
}

// Stop closes the watcher, waits for a running thumbnail sweep and closes the catalog.
func (m *Manager) Stop() error {
	m.watcher.Close()
	m.pipeline.Wait()
	return m.catalog.Close()
}

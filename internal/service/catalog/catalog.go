// Package catalog is the notifying facade over the image repository. It owns the
// single write lock that serializes every mutation, including rotation.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"slideshow/internal/logger"
	"slideshow/internal/model"
	"slideshow/internal/repository"
	"slideshow/internal/service/notify"
)

const (
	thumbnailDirName = "thumbnails"
	storeFileName    = "catalog.db"
)

var (
	ErrNotFound        = errors.New("image not found")
	ErrExists          = errors.New("image already in catalog")
	ErrInvalidMutation = errors.New("invalid mutation")
	ErrNoImages        = errors.New("no visible images")
)

// Opener opens (or creates) the repository stored at storePath.
type Opener func(storePath string) (repository.ImageRepository, error)

type Catalog struct {
	mu     sync.RWMutex
	repo   repository.ImageRepository
	folder string
	dbName string

	notifier *notify.Notifier
	logger   *logger.Logger
	tracer   trace.Tracer

	now   func() time.Time
	newID func() string
}

type Option func(*Catalog)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) { c.now = now }
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(newID func() string) Option {
	return func(c *Catalog) { c.newID = newID }
}

func New(repo repository.ImageRepository, folder, dbName string, notifier *notify.Notifier, logger *logger.Logger, opts ...Option) *Catalog {
	c := &Catalog{
		repo:     repo,
		folder:   folder,
		dbName:   dbName,
		notifier: notifier,
		logger:   logger,
		tracer:   otel.Tracer("slideshow/catalog"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StorePath returns where the repository for folder/dbName lives.
func StorePath(folder, dbName string) string {
	return filepath.Join(folder, dbName, storeFileName)
}

func (c *Catalog) Folder() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.folder
}

func (c *Catalog) DatabaseName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dbName
}

func (c *Catalog) StorePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return StorePath(c.folder, c.dbName)
}

func (c *Catalog) ImagePath(filename string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return filepath.Join(c.folder, filename)
}

func (c *Catalog) ThumbnailDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return filepath.Join(c.folder, c.dbName, thumbnailDirName)
}

func (c *Catalog) ThumbnailPath(filename string) string {
	return filepath.Join(c.ThumbnailDir(), filename)
}

// Now returns the catalog clock's current time.
func (c *Catalog) Now() time.Time {
	return c.now()
}

// NewID returns a fresh identifier from the catalog's generator.
func (c *Catalog) NewID() string {
	return c.newID()
}

func (c *Catalog) All() ([]model.Image, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	images, err := c.repo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}
	return images, nil
}

func (c *Catalog) FindByFilename(filename string) (*model.Image, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	img, err := c.repo.GetByFilename(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", filename, err)
	}
	if img == nil {
		return nil, fmt.Errorf("%s: %w", filename, ErrNotFound)
	}
	return img, nil
}

func (c *Catalog) FindByID(id string) (*model.Image, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	img, err := c.repo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", id, err)
	}
	if img == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return img, nil
}

// Create admits filename with a sort count seeded to the current catalog minimum.
// If the filename is already catalogued the existing record is returned with ErrExists.
func (c *Catalog) Create(ctx context.Context, filename string, createdDate time.Time, uploadedFrom string) (*model.Image, error) {
	_, span := c.tracer.Start(ctx, "catalog.Create", trace.WithAttributes(attribute.String("image.filename", filename)))
	defer span.End()

	c.mu.Lock()
	img, err := c.create(filename, createdDate, uploadedFrom)
	c.mu.Unlock()

	if err != nil {
		if !errors.Is(err, ErrExists) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return img, err
	}

	c.notifier.Publish(notify.Event{Kind: notify.Created, Image: img})
	return img, nil
}

func (c *Catalog) create(filename string, createdDate time.Time, uploadedFrom string) (*model.Image, error) {
	existing, err := c.repo.GetByFilename(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", filename, err)
	}
	if existing != nil {
		return existing, fmt.Errorf("%s: %w", filename, ErrExists)
	}

	seed, _, err := c.repo.MinSortViewCount("", false)
	if err != nil {
		return nil, fmt.Errorf("failed to seed sort count: %w", err)
	}

	img := &model.Image{
		ID:            c.newID(),
		Filename:      filename,
		UploadedFrom:  uploadedFrom,
		CreatedDate:   createdDate,
		SortViewCount: seed,
		Show:          true,
	}
	if err := c.repo.Insert(img); err != nil {
		if errors.Is(err, repository.ErrDuplicateFilename) {
			return nil, fmt.Errorf("%s: %w", filename, ErrExists)
		}
		return nil, fmt.Errorf("failed to insert %s: %w", filename, err)
	}
	return img, nil
}

// Remove drops the record for filename. The backing file is never touched.
// It reports whether a record was removed.
func (c *Catalog) Remove(ctx context.Context, filename string) (bool, error) {
	_, span := c.tracer.Start(ctx, "catalog.Remove", trace.WithAttributes(attribute.String("image.filename", filename)))
	defer span.End()

	c.mu.Lock()
	existing, err := c.repo.GetByFilename(filename)
	if err != nil || existing == nil {
		c.mu.Unlock()
		if err != nil {
			span.RecordError(err)
			return false, fmt.Errorf("failed to look up %s: %w", filename, err)
		}
		return false, nil
	}
	removed, err := c.repo.DeleteByFilename(filename)
	c.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("failed to remove %s: %w", filename, err)
	}
	if removed {
		c.notifier.Publish(notify.Event{Kind: notify.Removed, Image: existing})
	}
	return removed, nil
}

// Mutate applies fn to a copy of the record and persists the result.
// Results that change the id or filename, or drive a counter negative, are rejected
// with ErrInvalidMutation and the store is left untouched. A no-op fn writes nothing
// and publishes nothing.
func (c *Catalog) Mutate(ctx context.Context, id string, fn func(img *model.Image)) (*model.Image, error) {
	_, span := c.tracer.Start(ctx, "catalog.Mutate", trace.WithAttributes(attribute.String("image.id", id)))
	defer span.End()

	c.mu.Lock()
	img, changed, err := c.mutate(id, fn)
	c.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if changed {
		c.notifier.Publish(notify.Event{Kind: notify.Updated, Image: img})
	}
	return img, nil
}

// mutate must be called with the write lock held.
func (c *Catalog) mutate(id string, fn func(img *model.Image)) (*model.Image, bool, error) {
	current, err := c.repo.GetByID(id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load %s: %w", id, err)
	}
	if current == nil {
		return nil, false, fmt.Errorf("%s: %w", id, ErrNotFound)
	}

	next := current.Clone()
	fn(next)

	if err := validateMutation(current, next); err != nil {
		return nil, false, err
	}
	if sameFields(current, next) {
		return current, false, nil
	}

	if err := c.repo.Update(next); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return nil, false, fmt.Errorf("failed to update %s: %w", id, err)
	}
	return next, true, nil
}

func validateMutation(before, after *model.Image) error {
	switch {
	case after.ID != before.ID:
		return fmt.Errorf("%w: id is immutable", ErrInvalidMutation)
	case after.Filename != before.Filename:
		return fmt.Errorf("%w: filename is immutable", ErrInvalidMutation)
	case after.TotalViewCount < 0 || after.SortViewCount < 0:
		return fmt.Errorf("%w: negative view count", ErrInvalidMutation)
	case after.TotalViewCount < before.TotalViewCount:
		return fmt.Errorf("%w: total view count cannot decrease", ErrInvalidMutation)
	}
	return nil
}

func sameFields(a, b *model.Image) bool {
	if a.UploadedFrom != b.UploadedFrom ||
		!a.CreatedDate.Equal(b.CreatedDate) ||
		a.TotalViewCount != b.TotalViewCount ||
		a.SortViewCount != b.SortViewCount ||
		a.Show != b.Show {
		return false
	}
	switch {
	case a.LastViewedDate == nil && b.LastViewedDate == nil:
		return true
	case a.LastViewedDate == nil || b.LastViewedDate == nil:
		return false
	default:
		return a.LastViewedDate.Equal(*b.LastViewedDate)
	}
}

// Relocate switches the catalog to folder/dbName, opening or creating the store there.
// The previous repository is closed once the swap is done.
func (c *Catalog) Relocate(ctx context.Context, folder, dbName string, open Opener) error {
	_, span := c.tracer.Start(ctx, "catalog.Relocate", trace.WithAttributes(attribute.String("catalog.folder", folder)))
	defer span.End()

	repo, err := open(StorePath(folder, dbName))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to open catalog at %s: %w", folder, err)
	}

	c.mu.Lock()
	old := c.repo
	c.repo, c.folder, c.dbName = repo, folder, dbName
	c.mu.Unlock()

	if err := old.Close(); err != nil {
		c.logger.Warning("Failed to close previous catalog: %v", err)
	}

	c.logger.Info("Catalog relocated to %s", StorePath(folder, dbName))
	c.notifier.Publish(notify.Event{Kind: notify.Reset})
	return nil
}

func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.repo.Close()
}

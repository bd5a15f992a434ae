// Package reconcile keeps catalog membership in line with the files in the image folder.
package reconcile

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"slideshow/internal/config"
	"slideshow/internal/logger"
	"slideshow/internal/model"
	"slideshow/internal/service/catalog"
	"slideshow/internal/service/storage"
)

func init() {
	exif.RegisterParsers(mknote.All...)
}

var tracer = otel.Tracer("slideshow/reconcile")

// EventKind is the kind of filesystem change delivered by the watcher.
type EventKind string

const (
	Created EventKind = "created"
	Removed EventKind = "removed"
	Renamed EventKind = "renamed"
)

// Catalog is the catalog surface the reconciler needs.
type Catalog interface {
	All() ([]model.Image, error)
	FindByFilename(filename string) (*model.Image, error)
	Create(ctx context.Context, filename string, createdDate time.Time, uploadedFrom string) (*model.Image, error)
	Remove(ctx context.Context, filename string) (bool, error)
	Folder() string
	ImagePath(filename string) string
	Now() time.Time
}

// Trigger starts thumbnail generation.
type Trigger interface {
	EnsureThumbnails()
}

// Result counts the mutations made by one reconciliation.
type Result struct {
	Added   int
	Removed int
	Failed  int
}

type Reconciler struct {
	catalog Catalog
	files   storage.FileStore
	thumbs  Trigger
	logger  *logger.Logger
	skip    func(filename string) bool

	mu sync.Mutex
}

func New(catalog Catalog, files storage.FileStore, thumbs Trigger, logger *logger.Logger) *Reconciler {
	return &Reconciler{
		catalog: catalog,
		files:   files,
		thumbs:  thumbs,
		logger:  logger,
		skip:    func(string) bool { return false },
	}
}

// SkipWhen installs a predicate for files owned by someone else, such as an
// upload still being admitted. Skipped files are neither added nor removed.
func (r *Reconciler) SkipWhen(skip func(filename string) bool) {
	r.skip = skip
}

// ReconcileCurrent reconciles the catalog's currently configured folder.
func (r *Reconciler) ReconcileCurrent(ctx context.Context) (Result, error) {
	return r.Reconcile(ctx, r.catalog.Folder())
}

// Reconcile lists the JPEG files in folder, catalogs the ones without a record and
// removes records whose file is gone. A folder that is no longer the configured one
// is ignored. Running it twice on an unchanged folder makes no mutations.
func (r *Reconciler) Reconcile(ctx context.Context, folder string) (Result, error) {
	ctx, span := tracer.Start(ctx, "reconcile.Reconcile", trace.WithAttributes(attribute.String("folder", folder)))
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	var res Result
	if !sameDir(folder, r.catalog.Folder()) {
		return res, nil
	}

	// Records are read before the listing: a record created after this point
	// belongs to a file written before it, so it can never look orphaned.
	records, err := r.catalog.All()
	if err != nil {
		span.RecordError(err)
		return res, err
	}
	names, err := r.files.ListImages(folder)
	if err != nil {
		span.RecordError(err)
		return res, err
	}

	present := make(map[string]struct{}, len(names))
	for _, name := range names {
		present[name] = struct{}{}
	}
	known := make(map[string]struct{}, len(records))
	for _, rec := range records {
		known[rec.Filename] = struct{}{}
	}

	for _, name := range names {
		if _, ok := known[name]; ok || r.skip(name) {
			continue
		}
		added, err := r.admit(ctx, name)
		switch {
		case err != nil:
			res.Failed++
		case added:
			res.Added++
		}
	}

	for _, rec := range records {
		if _, ok := present[rec.Filename]; ok || r.skip(rec.Filename) {
			continue
		}
		if r.files.Exists(r.catalog.ImagePath(rec.Filename)) {
			continue
		}
		removed, err := r.catalog.Remove(ctx, rec.Filename)
		if err != nil {
			r.logger.Error("Failed to remove record for %s: %v", rec.Filename, err)
			res.Failed++
			continue
		}
		if removed {
			res.Removed++
		}
	}

	span.SetAttributes(
		attribute.Int("reconcile.added", res.Added),
		attribute.Int("reconcile.removed", res.Removed),
	)
	if res.Added > 0 || res.Removed > 0 {
		r.logger.Info("Reconciled %s: %d added, %d removed", folder, res.Added, res.Removed)
	}

	r.thumbs.EnsureThumbnails()
	return res, nil
}

// HandleEvent applies a single watcher event without rescanning the folder.
// Events for other folders or non-JPEG names are dropped. Both directions are idempotent.
func (r *Reconciler) HandleEvent(ctx context.Context, path string, kind EventKind) {
	name := filepath.Base(path)
	if !storage.IsImageName(name) || strings.HasPrefix(name, ".") {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !sameDir(filepath.Dir(path), r.catalog.Folder()) || r.skip(name) {
		return
	}

	exists := r.files.Exists(path)
	switch {
	case kind == Created && !exists, kind == Removed && exists:
		// stale event, the file changed again since
		return
	case exists:
		if _, err := r.catalog.FindByFilename(name); err == nil {
			return
		} else if !errors.Is(err, catalog.ErrNotFound) {
			r.logger.Error("Failed to look up %s: %v", name, err)
			return
		}
		if added, _ := r.admit(ctx, name); added {
			r.thumbs.EnsureThumbnails()
		}
	default:
		if _, err := r.catalog.Remove(ctx, name); err != nil {
			r.logger.Error("Failed to remove record for %s: %v", name, err)
		}
	}
}

// admit catalogs name. added is false when another writer created the record first.
func (r *Reconciler) admit(ctx context.Context, name string) (added bool, err error) {
	created := r.createdDate(r.catalog.ImagePath(name))
	if _, err := r.catalog.Create(ctx, name, created, config.FilesystemOrigin); err != nil {
		if errors.Is(err, catalog.ErrExists) {
			return false, nil
		}
		r.logger.Error("Failed to catalog %s: %v", name, err)
		return false, err
	}
	return true, nil
}

// createdDate prefers the EXIF capture time, then the file's modification time, then now.
func (r *Reconciler) createdDate(path string) time.Time {
	if data, err := r.files.ReadFile(path); err == nil {
		if x, err := exif.Decode(bytes.NewReader(data)); err == nil {
			if tm, err := x.DateTime(); err == nil && !tm.IsZero() {
				return tm
			}
		}
	}
	if tm, err := r.files.ModTime(path); err == nil {
		return tm
	}
	return r.catalog.Now()
}

func sameDir(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

// Package ingest admits images submitted by remote devices.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"slideshow/internal/logger"
	"slideshow/internal/model"
	"slideshow/internal/service/catalog"
	"slideshow/internal/service/storage"
)

var tracer = otel.Tracer("slideshow/ingest")

var ErrInvalidPayload = errors.New("invalid payload")

const mirrorTimeout = 30 * time.Second

// Catalog is the part of the catalog the admitter writes to.
type Catalog interface {
	Create(ctx context.Context, filename string, createdDate time.Time, uploadedFrom string) (*model.Image, error)
	ImagePath(filename string) string
	Now() time.Time
	NewID() string
}

// Trigger starts thumbnail generation.
type Trigger interface {
	EnsureThumbnails()
}

// Result describes the outcome of an admission. Duplicate submissions are not errors.
type Result struct {
	Duplicate bool
	Image     *model.Image
}

type Admitter struct {
	catalog Catalog
	files   storage.FileStore
	seen    SeenSet
	thumbs  Trigger
	mirror  storage.Mirror
	logger  *logger.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewAdmitter wires the admitter. mirror may be nil.
func NewAdmitter(catalog Catalog, files storage.FileStore, seen SeenSet, thumbs Trigger, mirror storage.Mirror, logger *logger.Logger) *Admitter {
	return &Admitter{
		catalog:  catalog,
		files:    files,
		seen:     seen,
		thumbs:   thumbs,
		mirror:   mirror,
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

// Admit stores data under a fresh filename and catalogs it, unless submissionID
// was already admitted. Bytes are written before the record is created; if the
// write fails nothing is catalogued and the submission id is released.
func (a *Admitter) Admit(ctx context.Context, submissionID string, data []byte, origin string) (Result, error) {
	ctx, span := tracer.Start(ctx, "ingest.Admit", trace.WithAttributes(
		attribute.String("submission_id", submissionID),
		attribute.String("origin", origin),
		attribute.Int("size_bytes", len(data)),
	))
	defer span.End()

	if err := validate(submissionID, data); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	added, err := a.seen.Add(ctx, submissionID)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}
	if !added {
		span.SetAttributes(attribute.Bool("duplicate", true))
		a.logger.Info("Duplicate submission %s from %s ignored", submissionID, origin)
		return Result{Duplicate: true}, nil
	}

	filename := a.catalog.NewID() + ".jpg"
	a.claim(filename)
	defer a.release(filename)

	if err := a.files.WriteFile(a.catalog.ImagePath(filename), data); err != nil {
		if ferr := a.seen.Forget(ctx, submissionID); ferr != nil {
			a.logger.Error("Failed to release submission %s: %v", submissionID, ferr)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		a.logger.Error("Failed to store upload %s: %v", submissionID, err)
		return Result{}, fmt.Errorf("failed to store upload: %w", err)
	}

	img, err := a.catalog.Create(ctx, filename, a.catalog.Now(), origin)
	if err != nil && !errors.Is(err, catalog.ErrExists) {
		// The bytes are on disk, so the submission counts as received; the next
		// reconciliation catalogs the file.
		span.RecordError(err)
		a.logger.Error("Stored upload %s but failed to catalog it: %v", filename, err)
		return Result{}, fmt.Errorf("failed to catalog upload: %w", err)
	}

	a.logger.Info("Admitted %s from %s as %s", submissionID, origin, filename)
	a.thumbs.EnsureThumbnails()
	a.mirrorAsync(ctx, filename, data)

	return Result{Image: img}, nil
}

// InFlight reports whether filename is being written by an admission right now.
// The reconciler uses it to leave such files to the admitter.
func (a *Admitter) InFlight(filename string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.inflight[filename]
	return ok
}

func (a *Admitter) claim(filename string) {
	a.mu.Lock()
	a.inflight[filename] = struct{}{}
	a.mu.Unlock()
}

func (a *Admitter) release(filename string) {
	a.mu.Lock()
	delete(a.inflight, filename)
	a.mu.Unlock()
}

func (a *Admitter) mirrorAsync(ctx context.Context, filename string, data []byte) {
	if a.mirror == nil {
		return
	}
	go func() {
		mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mirrorTimeout)
		defer cancel()
		if err := a.mirror.Put(mctx, filename, data); err != nil {
			a.logger.Warning("Mirror upload of %s failed: %v", filename, err)
		}
	}()
}

func validate(submissionID string, data []byte) error {
	if strings.TrimSpace(submissionID) == "" {
		return fmt.Errorf("%w: missing submission id", ErrInvalidPayload)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: empty image", ErrInvalidPayload)
	}
	if ct := http.DetectContentType(data); !strings.HasPrefix(ct, "image/") {
		return fmt.Errorf("%w: content type %s is not an image", ErrInvalidPayload, ct)
	}
	return nil
}

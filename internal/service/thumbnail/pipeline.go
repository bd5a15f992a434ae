// Package thumbnail keeps the thumbnail cache in step with the catalog.
package thumbnail

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"slideshow/internal/logger"
	"slideshow/internal/model"
	"slideshow/internal/service/storage"
)

// Resizer turns encoded image bytes into an encoded JPEG of exactly width x height.
type Resizer interface {
	Resize(data []byte, width, height int) ([]byte, error)
}

// Source is the catalog view the pipeline needs.
type Source interface {
	All() ([]model.Image, error)
	ImagePath(filename string) string
	ThumbnailPath(filename string) string
}

// SweepStats summarizes one pass over the catalog.
type SweepStats struct {
	Generated int
	Skipped   int
	Failed    int
}

// Pipeline generates missing thumbnails on a background goroutine. Triggers that
// arrive while a sweep is running collapse into a single follow-up sweep.
type Pipeline struct {
	source  Source
	files   storage.FileStore
	resizer Resizer
	size    int
	logger  *logger.Logger

	mu      sync.Mutex
	idle    *sync.Cond
	running bool
	rerun   bool
	sweeps  int
	last    SweepStats
	onSweep func(SweepStats)
}

func NewPipeline(source Source, files storage.FileStore, resizer Resizer, size int, logger *logger.Logger) *Pipeline {
	if size <= 0 {
		size = 100
	}
	p := &Pipeline{
		source:  source,
		files:   files,
		resizer: resizer,
		size:    size,
		logger:  logger,
	}
	p.idle = sync.NewCond(&p.mu)
	return p
}

// OnSweep installs fn to be called after every completed sweep, before the
// pipeline reports idle. Call it before the first trigger.
func (p *Pipeline) OnSweep(fn func(SweepStats)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onSweep = fn
}

// EnsureThumbnails starts a sweep, or marks a rerun if one is already in progress.
// It never blocks on the sweep itself.
func (p *Pipeline) EnsureThumbnails() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		p.rerun = true
		return
	}
	p.running = true
	go p.run()
}

func (p *Pipeline) run() {
	for {
		stats := p.sweep()

		p.mu.Lock()
		hook := p.onSweep
		p.mu.Unlock()
		if hook != nil {
			hook(stats)
		}

		p.mu.Lock()
		p.sweeps++
		p.last = stats
		if p.rerun {
			p.rerun = false
			p.mu.Unlock()
			continue
		}
		p.running = false
		p.idle.Broadcast()
		p.mu.Unlock()
		return
	}
}

// Wait blocks until no sweep is running or pending.
func (p *Pipeline) Wait() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.running {
		p.idle.Wait()
	}
}

// Running reports whether a sweep is in progress.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Sweeps returns how many sweeps have completed since start.
func (p *Pipeline) Sweeps() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sweeps
}

// LastSweep returns the stats of the most recent completed sweep.
func (p *Pipeline) LastSweep() SweepStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *Pipeline) sweep() SweepStats {
	_, span := otel.Tracer("slideshow/thumbnail").Start(context.Background(), "thumbnail.sweep")
	defer span.End()

	var stats SweepStats

	images, err := p.source.All()
	if err != nil {
		p.logger.Error("Thumbnail sweep could not list catalog: %v", err)
		span.RecordError(err)
		return stats
	}

	for _, img := range images {
		thumbPath := p.source.ThumbnailPath(img.Filename)
		if p.files.Exists(thumbPath) {
			stats.Skipped++
			continue
		}
		if err := p.generate(p.source.ImagePath(img.Filename), thumbPath); err != nil {
			p.logger.Warning("Skipping thumbnail for %s: %v", img.Filename, err)
			stats.Failed++
			continue
		}
		stats.Generated++
	}

	span.SetAttributes(
		attribute.Int("thumbnails.generated", stats.Generated),
		attribute.Int("thumbnails.failed", stats.Failed),
	)
	if stats.Generated > 0 || stats.Failed > 0 {
		p.logger.Info("Thumbnail sweep done: %d generated, %d failed", stats.Generated, stats.Failed)
	}
	return stats
}

func (p *Pipeline) generate(src, dst string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("resize panicked: %v", r)
		}
	}()

	data, err := p.files.ReadFile(src)
	if err != nil {
		return err
	}
	thumb, err := p.resizer.Resize(data, p.size, p.size)
	if err != nil {
		return err
	}
	return p.files.WriteFile(dst, thumb)
}

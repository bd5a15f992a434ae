package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"slideshow/internal/model"
	"slideshow/internal/service/notify"
)

// SelectNext picks the next image to present and records the view.
//
// Visible images that were never shown come first, oldest first. Otherwise the
// visible image with the lowest sort count wins, ties broken by creation date and
// then id. Selection and write-back happen under the write lock as one update.
// ErrNoImages is returned when nothing is visible.
func (c *Catalog) SelectNext(ctx context.Context) (*model.Image, error) {
	_, span := c.tracer.Start(ctx, "catalog.SelectNext")
	defer span.End()

	c.mu.Lock()
	img, err := c.selectNext()
	c.mu.Unlock()

	if err != nil {
		if !errors.Is(err, ErrNoImages) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.String("image.id", img.ID),
		attribute.Int("image.sort_view_count", img.SortViewCount),
	)
	c.notifier.Publish(notify.Event{Kind: notify.Updated, Image: img})
	return img, nil
}

func (c *Catalog) selectNext() (*model.Image, error) {
	images, err := c.repo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}

	idx := pickNext(images)
	if idx < 0 {
		return nil, ErrNoImages
	}

	chosen := images[idx].Clone()
	viewed := c.now()
	chosen.LastViewedDate = &viewed
	chosen.SortViewCount++
	chosen.TotalViewCount++

	if err := c.repo.Update(chosen); err != nil {
		return nil, fmt.Errorf("failed to record view of %s: %w", chosen.ID, err)
	}
	return chosen, nil
}

// pickNext returns the index of the image to show next, or -1 if none is visible.
func pickNext(images []model.Image) int {
	best := -1
	for i := range images {
		if !images[i].Show {
			continue
		}
		if best < 0 || ranksBefore(&images[i], &images[best]) {
			best = i
		}
	}
	return best
}

func ranksBefore(a, b *model.Image) bool {
	if a.NeverShown() != b.NeverShown() {
		return a.NeverShown()
	}
	if !a.NeverShown() && a.SortViewCount != b.SortViewCount {
		return a.SortViewCount < b.SortViewCount
	}
	if !a.CreatedDate.Equal(b.CreatedDate) {
		return a.CreatedDate.Before(b.CreatedDate)
	}
	return a.ID < b.ID
}

// SetShow toggles visibility. Re-enabling an image moves its sort count to the
// minimum among the other visible images so it competes right away; with no other
// visible image the count is kept.
func (c *Catalog) SetShow(ctx context.Context, id string, show bool) (*model.Image, error) {
	_, span := c.tracer.Start(ctx, "catalog.SetShow", trace.WithAttributes(
		attribute.String("image.id", id),
		attribute.Bool("image.show", show),
	))
	defer span.End()

	c.mu.Lock()
	img, changed, err := c.setShow(id, show)
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

func (c *Catalog) setShow(id string, show bool) (*model.Image, bool, error) {
	floor, hasFloor := 0, false
	if show {
		current, err := c.repo.GetByID(id)
		if err != nil {
			return nil, false, fmt.Errorf("failed to load %s: %w", id, err)
		}
		if current != nil && !current.Show {
			floor, hasFloor, err = c.repo.MinSortViewCount(id, true)
			if err != nil {
				return nil, false, fmt.Errorf("failed to compute fairness floor: %w", err)
			}
		}
	}

	return c.mutate(id, func(img *model.Image) {
		img.Show = show
		if hasFloor {
			img.SortViewCount = floor
		}
	})
}

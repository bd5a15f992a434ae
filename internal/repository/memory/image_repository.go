// Package memory provides an in-process catalog repository for tests and dry runs.
package memory

import (
	"sort"
	"sync"

	"slideshow/internal/model"
	"slideshow/internal/repository"
)

// ImageRepository keeps records in a map guarded by a RWMutex.
type ImageRepository struct {
	mu     sync.RWMutex
	images map[string]*model.Image
}

func NewImageRepository() *ImageRepository {
	return &ImageRepository{images: make(map[string]*model.Image)}
}

func (r *ImageRepository) Insert(img *model.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.images {
		if existing.Filename == img.Filename {
			return repository.ErrDuplicateFilename
		}
	}
	r.images[img.ID] = img.Clone()
	return nil
}

func (r *ImageRepository) GetByID(id string) (*model.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if img, ok := r.images[id]; ok {
		return img.Clone(), nil
	}
	return nil, nil
}

func (r *ImageRepository) GetByFilename(filename string) (*model.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, img := range r.images {
		if img.Filename == filename {
			return img.Clone(), nil
		}
	}
	return nil, nil
}

func (r *ImageRepository) GetAll() ([]model.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	images := make([]model.Image, 0, len(r.images))
	for _, img := range r.images {
		images = append(images, *img.Clone())
	}
	sort.Slice(images, func(i, j int) bool {
		if !images[i].CreatedDate.Equal(images[j].CreatedDate) {
			return images[i].CreatedDate.Before(images[j].CreatedDate)
		}
		return images[i].ID < images[j].ID
	})
	return images, nil
}

func (r *ImageRepository) MinSortViewCount(excludeID string, visibleOnly bool) (int, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	minCount, found := 0, false
	for id, img := range r.images {
		if id == excludeID || (visibleOnly && !img.Show) {
			continue
		}
		if !found || img.SortViewCount < minCount {
			minCount, found = img.SortViewCount, true
		}
	}
	return minCount, found, nil
}

func (r *ImageRepository) Update(img *model.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.images[img.ID]
	if !ok {
		return repository.ErrNotFound
	}
	updated := img.Clone()
	updated.Filename = existing.Filename
	r.images[img.ID] = updated
	return nil
}

func (r *ImageRepository) DeleteByFilename(filename string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, img := range r.images {
		if img.Filename == filename {
			delete(r.images, id)
			return true, nil
		}
	}
	return false, nil
}

func (r *ImageRepository) Close() error {
	return nil
}

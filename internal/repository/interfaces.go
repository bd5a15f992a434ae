package repository

import (
	"errors"

	"slideshow/internal/model"
)

var (
	// ErrDuplicateFilename is returned by Insert when a record already owns the filename.
	ErrDuplicateFilename = errors.New("image with this filename already exists")
	// ErrNotFound is returned by Update when no record has the given id.
	ErrNotFound = errors.New("image not found")
)

// ImageRepository defines the persistence operations of the catalog.
// Every mutating call is applied atomically: either fully persisted or not at all.
type ImageRepository interface {
	// Create operations
	Insert(img *model.Image) error

	// Read operations
	GetByID(id string) (*model.Image, error)
	GetByFilename(filename string) (*model.Image, error)
	GetAll() ([]model.Image, error)
	MinSortViewCount(excludeID string, visibleOnly bool) (int, bool, error)

	// Update operations
	Update(img *model.Image) error

	// Delete operations
	DeleteByFilename(filename string) (bool, error)

	Close() error
}

package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"slideshow/internal/model"
	"slideshow/internal/repository"
)

const imageColumns = `id, filename, uploaded_from, created_date, last_viewed_date, total_view_count, sort_view_count, show`

// ImageRepository implements repository.ImageRepository for SQLite.
type ImageRepository struct {
	db *DB
}

// NewImageRepository creates a new SQLite image repository.
func NewImageRepository(db *DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// Open is a shortcut for New followed by NewImageRepository.
func Open(dbPath string) (*ImageRepository, error) {
	db, err := New(dbPath)
	if err != nil {
		return nil, err
	}
	return NewImageRepository(db), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanImage(row rowScanner) (*model.Image, error) {
	var (
		img        model.Image
		lastViewed sql.NullTime
	)
	if err := row.Scan(&img.ID, &img.Filename, &img.UploadedFrom, &img.CreatedDate, &lastViewed,
		&img.TotalViewCount, &img.SortViewCount, &img.Show); err != nil {
		return nil, err
	}
	if lastViewed.Valid {
		t := lastViewed.Time
		img.LastViewedDate = &t
	}
	return &img, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// Insert adds a new image record to the database.
func (r *ImageRepository) Insert(img *model.Image) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO images (`+imageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, img.ID, img.Filename, img.UploadedFrom, img.CreatedDate.UTC(), nullTime(img.LastViewedDate),
		img.TotalViewCount, img.SortViewCount, img.Show)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return repository.ErrDuplicateFilename
		}
		return fmt.Errorf("failed to insert image: %w", err)
	}

	return tx.Commit()
}

// GetByID retrieves an image by its ID.
func (r *ImageRepository) GetByID(id string) (*model.Image, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	img, err := scanImage(r.db.Conn().QueryRow(`SELECT `+imageColumns+` FROM images WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return img, nil
}

// GetByFilename retrieves an image by its filename.
func (r *ImageRepository) GetByFilename(filename string) (*model.Image, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	img, err := scanImage(r.db.Conn().QueryRow(`SELECT `+imageColumns+` FROM images WHERE filename = ?`, filename))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return img, nil
}

// GetAll returns every record ordered by creation date, oldest first.
func (r *ImageRepository) GetAll() ([]model.Image, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT ` + imageColumns + ` FROM images ORDER BY created_date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	var images []model.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, *img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating images: %w", err)
	}

	return images, nil
}

// MinSortViewCount returns the smallest sort view count, ignoring excludeID and,
// when visibleOnly is set, hidden records. ok is false when nothing qualifies.
func (r *ImageRepository) MinSortViewCount(excludeID string, visibleOnly bool) (int, bool, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `SELECT MIN(sort_view_count) FROM images WHERE id != ?`
	if visibleOnly {
		query += ` AND show = 1`
	}

	var minCount sql.NullInt64
	if err := r.db.Conn().QueryRow(query, excludeID).Scan(&minCount); err != nil {
		return 0, false, fmt.Errorf("failed to query minimum sort view count: %w", err)
	}
	if !minCount.Valid {
		return 0, false, nil
	}
	return int(minCount.Int64), true, nil
}

// Update overwrites every mutable field of the record identified by img.ID.
func (r *ImageRepository) Update(img *model.Image) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE images
		SET uploaded_from = ?, created_date = ?, last_viewed_date = ?,
			total_view_count = ?, sort_view_count = ?, show = ?
		WHERE id = ?
	`, img.UploadedFrom, img.CreatedDate.UTC(), nullTime(img.LastViewedDate),
		img.TotalViewCount, img.SortViewCount, img.Show, img.ID)
	if err != nil {
		return fmt.Errorf("failed to update image: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	return tx.Commit()
}

// DeleteByFilename removes an image by its filename. It reports whether a row was deleted.
func (r *ImageRepository) DeleteByFilename(filename string) (bool, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`DELETE FROM images WHERE filename = ?`, filename)
	if err != nil {
		return false, fmt.Errorf("failed to delete image: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

// Close closes the underlying database.
func (r *ImageRepository) Close() error {
	return r.db.Close()
}

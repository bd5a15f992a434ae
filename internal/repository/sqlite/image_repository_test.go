package sqlite

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"slideshow/internal/model"
	"slideshow/internal/repository"
)

var _ repository.ImageRepository = (*ImageRepository)(nil)

func setupTestRepo(t *testing.T) *ImageRepository {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "catalog", "test.db")
	repo, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

func newImage(id, filename string, created time.Time) *model.Image {
	return &model.Image{
		ID:           id,
		Filename:     filename,
		UploadedFrom: "test",
		CreatedDate:  created,
		Show:         true,
	}
}

func TestDatabase_CreatesFileAndDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "catalog.db")
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should exist")
	}
	if db.Path() != dbPath {
		t.Errorf("Path mismatch: expected %s, got %s", dbPath, db.Path())
	}
}

func TestImageRepository_InsertAndGet(t *testing.T) {
	repo := setupTestRepo(t)

	created := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	img := newImage("id-1", "a.jpg", created)
	img.SortViewCount = 3

	if err := repo.Insert(img); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	byID, err := repo.GetByID("id-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if byID == nil {
		t.Fatal("Expected image, got nil")
	}
	if byID.Filename != "a.jpg" || byID.UploadedFrom != "test" || !byID.Show {
		t.Errorf("Unexpected record: %+v", byID)
	}
	if !byID.CreatedDate.Equal(created) {
		t.Errorf("CreatedDate mismatch: expected %v, got %v", created, byID.CreatedDate)
	}
	if byID.LastViewedDate != nil {
		t.Errorf("Expected nil LastViewedDate, got %v", byID.LastViewedDate)
	}
	if byID.SortViewCount != 3 {
		t.Errorf("SortViewCount mismatch: expected 3, got %d", byID.SortViewCount)
	}

	byName, err := repo.GetByFilename("a.jpg")
	if err != nil {
		t.Fatalf("GetByFilename failed: %v", err)
	}
	if byName == nil || byName.ID != "id-1" {
		t.Errorf("Expected id-1, got %+v", byName)
	}
}

func TestImageRepository_NotFound(t *testing.T) {
	repo := setupTestRepo(t)

	img, err := repo.GetByID("missing")
	if err != nil {
		t.Fatalf("GetByID should not error for non-existent ID: %v", err)
	}
	if img != nil {
		t.Error("Expected nil for non-existent image")
	}

	img, err = repo.GetByFilename("missing.jpg")
	if err != nil {
		t.Fatalf("GetByFilename should not error for non-existent file: %v", err)
	}
	if img != nil {
		t.Error("Expected nil for non-existent filename")
	}
}

func TestImageRepository_Insert_DuplicateFilename(t *testing.T) {
	repo := setupTestRepo(t)

	if err := repo.Insert(newImage("id-1", "dup.jpg", time.Now())); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := repo.Insert(newImage("id-2", "dup.jpg", time.Now()))
	if !errors.Is(err, repository.ErrDuplicateFilename) {
		t.Errorf("Expected ErrDuplicateFilename, got %v", err)
	}

	all, _ := repo.GetAll()
	if len(all) != 1 {
		t.Errorf("Expected 1 record after rejected insert, got %d", len(all))
	}
}

func TestImageRepository_GetAll_OrderedByCreatedDate(t *testing.T) {
	repo := setupTestRepo(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.Insert(newImage("c", "c.jpg", base.Add(2*time.Hour)))
	repo.Insert(newImage("a", "a.jpg", base))
	repo.Insert(newImage("b", "b.jpg", base.Add(time.Hour)))

	images, err := repo.GetAll()
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}

	expected := []string{"a", "b", "c"}
	if len(images) != len(expected) {
		t.Fatalf("Expected %d images, got %d", len(expected), len(images))
	}
	for i, id := range expected {
		if images[i].ID != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, images[i].ID)
		}
	}
}

func TestImageRepository_Update(t *testing.T) {
	repo := setupTestRepo(t)

	img := newImage("id-1", "a.jpg", time.Now())
	repo.Insert(img)

	viewed := time.Date(2024, 5, 5, 12, 0, 0, 0, time.UTC)
	img.LastViewedDate = &viewed
	img.TotalViewCount = 7
	img.SortViewCount = 4
	img.Show = false

	if err := repo.Update(img); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, _ := repo.GetByID("id-1")
	if got.TotalViewCount != 7 || got.SortViewCount != 4 || got.Show {
		t.Errorf("Update not persisted: %+v", got)
	}
	if got.LastViewedDate == nil || !got.LastViewedDate.Equal(viewed) {
		t.Errorf("LastViewedDate mismatch: expected %v, got %v", viewed, got.LastViewedDate)
	}
}

func TestImageRepository_Update_NotFound(t *testing.T) {
	repo := setupTestRepo(t)

	err := repo.Update(newImage("ghost", "ghost.jpg", time.Now()))
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestImageRepository_Update_RejectsNegativeCounters(t *testing.T) {
	repo := setupTestRepo(t)

	img := newImage("id-1", "a.jpg", time.Now())
	repo.Insert(img)

	img.SortViewCount = -1
	if err := repo.Update(img); err == nil {
		t.Fatal("Expected constraint violation for negative counter")
	}

	got, _ := repo.GetByID("id-1")
	if got.SortViewCount != 0 {
		t.Errorf("Rejected update must not be applied, got SortViewCount=%d", got.SortViewCount)
	}
}

func TestImageRepository_DeleteByFilename(t *testing.T) {
	repo := setupTestRepo(t)

	repo.Insert(newImage("id-1", "a.jpg", time.Now()))

	deleted, err := repo.DeleteByFilename("a.jpg")
	if err != nil {
		t.Fatalf("DeleteByFilename failed: %v", err)
	}
	if !deleted {
		t.Error("Expected deleted=true")
	}

	deleted, err = repo.DeleteByFilename("a.jpg")
	if err != nil {
		t.Fatalf("Second DeleteByFilename failed: %v", err)
	}
	if deleted {
		t.Error("Expected deleted=false for already removed record")
	}
}

func TestImageRepository_MinSortViewCount(t *testing.T) {
	repo := setupTestRepo(t)

	if _, ok, err := repo.MinSortViewCount("", false); err != nil || ok {
		t.Fatalf("Expected no minimum on empty catalog, got ok=%v err=%v", ok, err)
	}

	a := newImage("a", "a.jpg", time.Now())
	a.SortViewCount = 2
	b := newImage("b", "b.jpg", time.Now())
	b.SortViewCount = 5
	hidden := newImage("h", "h.jpg", time.Now())
	hidden.SortViewCount = 1
	hidden.Show = false
	repo.Insert(a)
	repo.Insert(b)
	repo.Insert(hidden)

	tests := []struct {
		name        string
		exclude     string
		visibleOnly bool
		expected    int
	}{
		{"all records", "", false, 1},
		{"visible only", "", true, 2},
		{"visible excluding a", "a", true, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := repo.MinSortViewCount(tt.exclude, tt.visibleOnly)
			if err != nil || !ok {
				t.Fatalf("MinSortViewCount failed: ok=%v err=%v", ok, err)
			}
			if got != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestImageRepository_ConcurrentInserts(t *testing.T) {
	repo := setupTestRepo(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			name := "concurrent_" + string(rune('a'+idx))
			if err := repo.Insert(newImage(name, name+".jpg", time.Now())); err != nil {
				t.Errorf("Concurrent insert %d failed: %v", idx, err)
			}
		}(i)
	}
	wg.Wait()

	images, err := repo.GetAll()
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(images) != 10 {
		t.Errorf("Expected 10 images, got %d", len(images))
	}
}

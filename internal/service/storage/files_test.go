package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"slideshow/internal/logger"
)

func TestFiles_WriteAndRead(t *testing.T) {
	files := NewFiles(logger.NewDiscard())
	path := filepath.Join(t.TempDir(), "nested", "a.jpg")

	if err := files.WriteFile(path, []byte("jpeg bytes")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if !files.Exists(path) {
		t.Fatal("Expected file to exist after write")
	}

	data, err := files.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "jpeg bytes" {
		t.Errorf("Content mismatch: %q", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("Expected no leftover temp files, found %d entries", len(entries))
	}
}

func TestFiles_ReadMissing(t *testing.T) {
	files := NewFiles(logger.NewDiscard())

	_, err := files.ReadFile(filepath.Join(t.TempDir(), "missing.jpg"))
	if !errors.Is(err, ErrNotExist) {
		t.Errorf("Expected ErrNotExist, got %v", err)
	}
}

func TestFiles_WriteIntoUnwritableLocation(t *testing.T) {
	files := NewFiles(logger.NewDiscard())

	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	// A regular file in place of the parent directory makes the write fail.
	if err := files.WriteFile(filepath.Join(blocker, "a.jpg"), []byte("data")); err == nil {
		t.Error("Expected write to fail")
	}
}

func TestFiles_ListImages(t *testing.T) {
	files := NewFiles(logger.NewDiscard())
	dir := t.TempDir()

	for _, name := range []string{"b.jpg", "a.JPEG", "notes.txt", ".hidden.jpg", "c.png"} {
		os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644)
	}
	os.Mkdir(filepath.Join(dir, "sub.jpg"), 0755)

	got, err := files.ListImages(dir)
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}
	expected := []string{"a.JPEG", "b.jpg"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestFiles_ListImagesMissingDirectory(t *testing.T) {
	files := NewFiles(logger.NewDiscard())

	got, err := files.ListImages(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("Expected no error for missing directory, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected empty list, got %v", got)
	}
}

func TestIsImageName(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"photo.jpg", true},
		{"photo.JPG", true},
		{"photo.jpeg", true},
		{"photo.png", false},
		{"photo", false},
		{"jpg", false},
	}
	for _, tt := range tests {
		if got := IsImageName(tt.name); got != tt.expected {
			t.Errorf("IsImageName(%q) = %v, expected %v", tt.name, got, tt.expected)
		}
	}
}

package filestore

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T, maxBytes int64) *DiskStore {
	t.Helper()
	root := t.TempDir()
	s := NewDiskStore(Config{
		UploadDir:   filepath.Join(root, "uploads"),
		NotebookDir: filepath.Join(root, "notebooks"),
		MaxBytes:    maxBytes,
	})
	s.now = func() time.Time { return time.UnixMilli(1700000000123) }
	s.newID = func() string { return "0b6f3c52-9d1e-4c1b-8f0a-3d2f6e7a9b10" }
	return s
}

func TestSaveNamesAndSizes(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, 10<<20)
	payload := bytes.Repeat([]byte{0xFF}, 2048)

	got, err := s.Save(context.Background(), "Scan.JPG", "image/jpeg", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if got.Name != "1700000000123-0b6f3c52-9d1e-4c1b-8f0a-3d2f6e7a9b10.jpg" {
		t.Fatalf("unexpected name: %s", got.Name)
	}
	if got.Size != 2048 {
		t.Fatalf("unexpected size: %d", got.Size)
	}
	if filepath.Dir(got.Path) != s.UploadDir() {
		t.Fatalf("file stored outside upload dir: %s", got.Path)
	}
	onDisk, err := os.ReadFile(got.Path)
	if err != nil || !bytes.Equal(onDisk, payload) {
		t.Fatalf("content mismatch: %v", err)
	}
}

func TestSaveExtensionFromContentType(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, 0)
	got, err := s.Save(context.Background(), "blob", "image/png", strings.NewReader("png"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Ext(got.Name) != ".png" {
		t.Fatalf("unexpected extension: %s", got.Name)
	}
}

func TestSaveTooLarge(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, 16)
	_, err := s.Save(context.Background(), "big.png", "image/png", strings.NewReader(strings.Repeat("x", 17)))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	files, _ := s.List()
	if len(files) != 0 {
		t.Fatalf("oversized upload must not remain on disk: %v", files)
	}

	if _, err := s.Save(context.Background(), "exact.png", "image/png", strings.NewReader(strings.Repeat("x", 16))); err != nil {
		t.Fatalf("upload at the limit must succeed: %v", err)
	}
}

func TestSaveRejectsBrokenPDF(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, 0)
	_, err := s.Save(context.Background(), "doc.pdf", "application/pdf", strings.NewReader("%PDF-1.4\nthis is not a pdf"))
	if !errors.Is(err, ErrInvalidPDF) {
		t.Fatalf("expected ErrInvalidPDF, got %v", err)
	}
	files, _ := s.List()
	if len(files) != 0 {
		t.Fatalf("invalid pdf must be removed: %v", files)
	}
}

func TestSaveCancelled(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Save(ctx, "a.png", "image/png", strings.NewReader("data")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestSaveNotebook(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, 0)
	path, err := s.SaveNotebook(context.Background(), strings.NewReader(`{"cells": [], "nbformat": 4}`))
	if err != nil {
		t.Fatalf("save notebook: %v", err)
	}
	if filepath.Base(path) != "ocr_notebook.ipynb" {
		t.Fatalf("unexpected notebook path: %s", path)
	}

	if _, err := s.SaveNotebook(context.Background(), strings.NewReader("print('hi')")); !errors.Is(err, ErrInvalidNotebook) {
		t.Fatalf("expected ErrInvalidNotebook, got %v", err)
	}
	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), "nbformat") {
		t.Fatalf("rejected upload must keep the previous notebook")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %d entries", len(entries))
	}
}

func TestRemoveAndList(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, 0)
	if files, err := s.List(); err != nil || len(files) != 0 {
		t.Fatalf("missing upload dir should list empty: %v %v", files, err)
	}

	saved, err := s.Save(context.Background(), "a.gif", "image/gif", strings.NewReader("GIF89a"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := os.Mkdir(filepath.Join(s.UploadDir(), "nested"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(s.UploadDir(), ".upload-tmp"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	files, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 1 || files[0].Name != saved.Name || files[0].Size != 6 {
		t.Fatalf("unexpected listing: %+v", files)
	}

	if err := s.Remove(saved.Path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Remove(saved.Path); err != nil {
		t.Fatalf("removing a missing file must succeed: %v", err)
	}
	outside := filepath.Join(filepath.Dir(s.UploadDir()), "notebooks", "x")
	if err := s.Remove(outside); !errors.Is(err, ErrOutsideStore) {
		t.Fatalf("expected ErrOutsideStore, got %v", err)
	}
	if err := s.Remove(s.UploadDir()); !errors.Is(err, ErrOutsideStore) {
		t.Fatalf("upload dir itself must not be removable, got %v", err)
	}
}

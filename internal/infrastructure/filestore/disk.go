package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"OCRPortal/internal/ports"
)

var (
	// ErrTooLarge is returned when an upload exceeds the size limit.
	ErrTooLarge = errors.New("file too large")
	// ErrInvalidPDF is returned for PDF uploads pdfcpu cannot read.
	ErrInvalidPDF = errors.New("invalid pdf")
	// ErrInvalidNotebook is returned for notebook uploads that are not JSON.
	ErrInvalidNotebook = errors.New("invalid notebook")
	// ErrOutsideStore is returned when asked to remove a path it does not own.
	ErrOutsideStore = errors.New("path outside upload directory")
)

const tempPrefix = ".upload-"

var extByContentType = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"application/pdf": ".pdf",
}

var disablePDFConfigDir sync.Once

// Config describes the on-disk layout.
type Config struct {
	UploadDir    string
	NotebookDir  string
	NotebookName string
	MaxBytes     int64
}

// DiskStore writes uploads as <unixMillis>-<uuid>.<ext> under UploadDir.
type DiskStore struct {
	uploadDir    string
	notebookDir  string
	notebookName string
	maxBytes     int64

	now   func() time.Time
	newID func() string
}

var _ ports.FileStore = (*DiskStore)(nil)

// NewDiskStore builds a store; directories are created on first write.
func NewDiskStore(cfg Config) *DiskStore {
	disablePDFConfigDir.Do(api.DisableConfigDir)

	name := cfg.NotebookName
	if name == "" {
		name = "ocr_notebook.ipynb"
	}
	return &DiskStore{
		uploadDir:    cfg.UploadDir,
		notebookDir:  cfg.NotebookDir,
		notebookName: name,
		maxBytes:     cfg.MaxBytes,
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// UploadDir returns the directory holding uploaded documents.
func (s *DiskStore) UploadDir() string {
	return s.uploadDir
}

// Save streams r into a freshly named file. PDFs are checked with pdfcpu and
// removed again when unreadable.
func (s *DiskStore) Save(ctx context.Context, originalName, contentType string, r io.Reader) (ports.StoredFile, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return ports.StoredFile{}, fmt.Errorf("create upload dir: %w", err)
	}

	name := fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), s.newID(), extension(originalName, contentType))
	path := filepath.Join(s.uploadDir, name)

	size, err := s.writeFile(ctx, path, r)
	if err != nil {
		return ports.StoredFile{}, err
	}

	if contentType == "application/pdf" {
		if err := validatePDF(path); err != nil {
			_ = os.Remove(path)
			return ports.StoredFile{}, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return ports.StoredFile{}, fmt.Errorf("stat upload: %w", err)
	}
	return ports.StoredFile{Name: name, Path: path, Size: size, ModTime: info.ModTime()}, nil
}

// SaveNotebook replaces the notebook file atomically and returns its path.
func (s *DiskStore) SaveNotebook(ctx context.Context, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.notebookDir, 0o755); err != nil {
		return "", fmt.Errorf("create notebook dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.notebookDir, tempPrefix+"*.ipynb")
	if err != nil {
		return "", fmt.Errorf("create temp notebook: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if _, err := s.writeFile(ctx, tmpPath, r); err != nil {
		return "", err
	}

	raw, err := os.ReadFile(tmpPath)
	if err != nil {
		return "", fmt.Errorf("read notebook: %w", err)
	}
	if !json.Valid(raw) {
		return "", fmt.Errorf("%w: notebook is not valid JSON", ErrInvalidNotebook)
	}

	dest := filepath.Join(s.notebookDir, s.notebookName)
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", fmt.Errorf("install notebook: %w", err)
	}
	return dest, nil
}

// Remove deletes an upload. Missing files are not an error.
func (s *DiskStore) Remove(path string) error {
	if !s.owns(path) {
		return fmt.Errorf("%w: %s", ErrOutsideStore, path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

// List returns the regular files of the upload directory.
func (s *DiskStore) List() ([]ports.StoredFile, error) {
	entries, err := os.ReadDir(s.uploadDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read upload dir: %w", err)
	}

	files := make([]ports.StoredFile, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, ports.StoredFile{
			Name:    entry.Name(),
			Path:    filepath.Join(s.uploadDir, entry.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return files, nil
}

func (s *DiskStore) writeFile(ctx context.Context, path string, r io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(f, ctxReader{ctx: ctx, r: src})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("write file: %w", err)
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		_ = os.Remove(path)
		return 0, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, s.maxBytes)
	}
	return n, nil
}

func (s *DiskStore) owns(path string) bool {
	dir, err := filepath.Abs(s.uploadDir)
	if err != nil {
		return false
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..") && !strings.ContainsRune(rel, filepath.Separator)
}

func validatePDF(path string) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, conf); err != nil {
		return err
	}
	pages, err := api.PageCountFile(path)
	if err != nil {
		return err
	}
	if pages == 0 {
		return errors.New("document has no pages")
	}
	return nil
}

func extension(originalName, contentType string) string {
	if ext := strings.ToLower(filepath.Ext(originalName)); ext != "" && len(ext) <= 8 {
		return ext
	}
	return extByContentType[contentType]
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

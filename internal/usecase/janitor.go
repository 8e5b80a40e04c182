package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"OCRPortal/internal/logging"
	"OCRPortal/internal/metrics"
	"OCRPortal/internal/ports"
)

// JanitorDeps wires the janitor's collaborators.
type JanitorDeps struct {
	Files       ports.FileStore
	Documents   ports.DocumentRepository
	GracePeriod time.Duration
	Logger      *slog.Logger
}

// Janitor removes upload files that no document references.
type Janitor struct {
	files     ports.FileStore
	documents ports.DocumentRepository
	grace     time.Duration
	logger    *slog.Logger
}

// NewJanitor constructs the sweeper.
func NewJanitor(deps JanitorDeps) *Janitor {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Janitor{
		files:     deps.Files,
		documents: deps.Documents,
		grace:     deps.GracePeriod,
		logger:    logger,
	}
}

// Sweep deletes unreferenced files whose modification time is at least the
// grace period before now. Files younger than that may belong to an upload
// whose document has not been created yet.
func (j *Janitor) Sweep(ctx context.Context, now time.Time) (int, error) {
	if j.files == nil || j.documents == nil {
		return 0, nil
	}

	docs, err := j.documents.ListDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("list documents: %w", err)
	}
	referenced := make(map[string]bool, len(docs))
	for _, doc := range docs {
		if doc.FilePath != nil && *doc.FilePath != "" {
			referenced[filepath.Base(*doc.FilePath)] = true
		}
	}

	files, err := j.files.List()
	if err != nil {
		return 0, fmt.Errorf("list uploads: %w", err)
	}

	removed := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if referenced[f.Name] || now.Sub(f.ModTime) < j.grace {
			continue
		}
		if err := j.files.Remove(f.Path); err != nil {
			j.logger.Warn("remove orphan upload", "path", f.Path, "error", err)
			continue
		}
		removed++
		metrics.OrphanFilesRemovedTotal.Add(1)
		j.logger.Debug("removed orphan upload", "path", f.Path, "age", now.Sub(f.ModTime))
	}

	if removed > 0 {
		j.logger.Info("upload sweep finished", "removed", removed, "scanned", len(files))
	}
	return removed, nil
}

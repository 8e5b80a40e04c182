package usecase

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"OCRPortal/internal/infrastructure/storage"
	"OCRPortal/internal/ports"
)

type fakeFiles struct {
	mu        sync.Mutex
	files     []ports.StoredFile
	removed   []string
	removeErr map[string]error
}

func (f *fakeFiles) Save(context.Context, string, string, io.Reader) (ports.StoredFile, error) {
	return ports.StoredFile{}, errors.New("not implemented")
}

func (f *fakeFiles) SaveNotebook(context.Context, io.Reader) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeFiles) Remove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.removeErr[path]; err != nil {
		return err
	}
	f.removed = append(f.removed, path)
	return nil
}

func (f *fakeFiles) List() ([]ports.StoredFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ports.StoredFile(nil), f.files...), nil
}

func TestJanitorSweep(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	old := now.Add(-48 * time.Hour)

	store := storage.NewMemoryRepository()
	seedDocument(t, store, strPtr("uploads/kept.jpg"))
	seedDocument(t, store, nil)

	files := &fakeFiles{
		files: []ports.StoredFile{
			{Name: "kept.jpg", Path: "uploads/kept.jpg", ModTime: old},
			{Name: "orphan.png", Path: "uploads/orphan.png", ModTime: old},
			{Name: "fresh.png", Path: "uploads/fresh.png", ModTime: now.Add(-time.Minute)},
			{Name: "locked.pdf", Path: "uploads/locked.pdf", ModTime: old},
		},
		removeErr: map[string]error{"uploads/locked.pdf": errors.New("permission denied")},
	}

	j := NewJanitor(JanitorDeps{Files: files, Documents: store, GracePeriod: 24 * time.Hour})
	removed, err := j.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	sort.Strings(files.removed)
	if len(files.removed) != 1 || files.removed[0] != "uploads/orphan.png" {
		t.Fatalf("unexpected removals: %v", files.removed)
	}
}

func TestJanitorSweepCancelled(t *testing.T) {
	t.Parallel()

	files := &fakeFiles{files: []ports.StoredFile{{Name: "a", Path: "uploads/a"}}}
	j := NewJanitor(JanitorDeps{Files: files, Documents: storage.NewMemoryRepository()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := j.Sweep(ctx, time.Now()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if len(files.removed) != 0 {
		t.Fatalf("cancelled sweep must not remove files")
	}
}

type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestSchedulerDrivesJanitor(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryRepository()
	files := &fakeFiles{files: []ports.StoredFile{{Name: "x.png", Path: "uploads/x.png", ModTime: time.Unix(0, 0)}}}
	driver := &manualDriver{}

	s := NewScheduler(driver, NewJanitor(JanitorDeps{Files: files, Documents: store, GracePeriod: time.Hour}), nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if driver.job == nil {
		t.Fatalf("janitor job not registered")
	}
	driver.job(time.Now())
	if len(files.removed) != 1 {
		t.Fatalf("expected the orphan to be removed, got %v", files.removed)
	}
	if err := s.Stop(context.Background()); err != nil || !driver.stopped {
		t.Fatalf("stop: %v stopped=%v", err, driver.stopped)
	}
}

func TestSchedulerWithoutDriver(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil, nil, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

var _ ports.FileStore = (*fakeFiles)(nil)

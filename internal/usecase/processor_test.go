package usecase

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"

	"OCRPortal/internal/domain"
	"OCRPortal/internal/infrastructure/storage"
)

type fakeRecognizer struct {
	result domain.ProcessingResult
	err    error
	panic  bool
	calls  []string
}

func (f *fakeRecognizer) Name() string { return "fake" }

func (f *fakeRecognizer) Recognize(_ context.Context, imagePath string) (domain.ProcessingResult, error) {
	f.calls = append(f.calls, imagePath)
	if f.panic {
		panic("boom")
	}
	return f.result, f.err
}

func seedDocument(t *testing.T, store *storage.MemoryRepository, path *string) *domain.Document {
	t.Helper()
	doc, err := store.CreateDocument(context.Background(), domain.NewDocument{
		FileName:            "scan.jpg",
		ContentType:         "image/jpeg",
		FileSize:            2048,
		UploadDate:          "2025-01-01T00:00:00.000Z",
		FilePath:            path,
		ConfidenceThreshold: domain.DefaultConfidenceThreshold,
	})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	return doc
}

func strPtr(s string) *string { return &s }

func newTestProcessor(store *storage.MemoryRepository, rec *fakeRecognizer) *Processor {
	deps := ProcessorDeps{Store: store, Rand: rand.New(rand.NewPCG(1, 2))}
	if rec != nil {
		deps.Recognizer = rec
	}
	return NewProcessor(deps)
}

func TestProcessUnknownDocument(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryRepository()
	res, err := newTestProcessor(store, &fakeRecognizer{}).ProcessDocument(context.Background(), 42)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res != nil {
		t.Fatalf("expected nil result for unknown id, got %+v", res)
	}
}

func TestProcessSuccess(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryRepository()
	doc := seedDocument(t, store, strPtr("uploads/1-a.jpg"))
	rec := &fakeRecognizer{result: domain.ProcessingResult{
		ExtractedText:  "recognized",
		Confidence:     77,
		ProcessingTime: 1000,
		CharCount:      10,
		Stages:         domain.SplitElapsed(1000),
	}}

	res, err := newTestProcessor(store, rec).ProcessDocument(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(rec.calls) != 1 || rec.calls[0] != "uploads/1-a.jpg" {
		t.Fatalf("unexpected recognizer calls: %v", rec.calls)
	}
	if res.DocumentID != doc.ID || res.ExtractedText != "recognized" || res.Degraded {
		t.Fatalf("unexpected result: %+v", res)
	}

	stored, _ := store.GetDocument(context.Background(), doc.ID)
	if stored.Status != domain.StatusProcessed {
		t.Fatalf("expected processed, got %s", stored.Status)
	}
	if stored.ProcessedText == nil || *stored.ProcessedText != "recognized" {
		t.Fatalf("processed text not stored: %v", stored.ProcessedText)
	}
	if stored.ProcessingSummary == nil || stored.ProcessingSummary.Confidence != 77 || stored.ProcessingSummary.DocumentID != doc.ID {
		t.Fatalf("summary not stored: %+v", stored.ProcessingSummary)
	}
}

func TestProcessFallbackOnRecognizerFailure(t *testing.T) {
	t.Parallel()

	failures := map[string]*fakeRecognizer{
		"error": {err: errors.New("notebook missing")},
		"panic": {panic: true},
		"none":  nil,
	}

	for name, rec := range failures {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := storage.NewMemoryRepository()
			doc := seedDocument(t, store, strPtr("uploads/1-a.jpg"))

			res, err := newTestProcessor(store, rec).ProcessDocument(context.Background(), doc.ID)
			if err != nil {
				t.Fatalf("process: %v", err)
			}
			assertFallback(t, res)

			stored, _ := store.GetDocument(context.Background(), doc.ID)
			if stored.Status != domain.StatusProcessed {
				t.Fatalf("expected processed, got %s", stored.Status)
			}
			if stored.ProcessedText == nil || *stored.ProcessedText != res.ExtractedText {
				t.Fatalf("processed text mismatch")
			}
			if stored.ProcessingSummary == nil || !stored.ProcessingSummary.Degraded {
				t.Fatalf("stored summary must be flagged degraded")
			}
		})
	}
}

func TestProcessFallbackBoundsAcrossSeeds(t *testing.T) {
	t.Parallel()

	for seed := uint64(0); seed < 50; seed++ {
		store := storage.NewMemoryRepository()
		doc := seedDocument(t, store, strPtr("uploads/x.png"))
		p := NewProcessor(ProcessorDeps{
			Store:      store,
			Recognizer: &fakeRecognizer{err: errors.New("unreachable")},
			Rand:       rand.New(rand.NewPCG(seed, seed*7+3)),
		})
		res, err := p.ProcessDocument(context.Background(), doc.ID)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		assertFallback(t, res)
	}
}

func assertFallback(t *testing.T, res *domain.ProcessingResult) {
	t.Helper()
	if res == nil {
		t.Fatalf("expected a result")
	}
	if !res.Degraded {
		t.Fatalf("fallback must be flagged degraded")
	}
	if !slices.Contains(FallbackCorpus, res.ExtractedText) {
		t.Fatalf("text not from corpus: %q", res.ExtractedText)
	}
	if res.Confidence < 85 || res.Confidence >= 95 {
		t.Fatalf("confidence out of range: %d", res.Confidence)
	}
	if res.CharCount != domain.CountChars(res.ExtractedText) {
		t.Fatalf("char count mismatch: %d", res.CharCount)
	}
	if len(res.Stages) != 3 {
		t.Fatalf("expected 3 stages, got %d", len(res.Stages))
	}
	bounds := [][2]int64{{300, 500}, {980, 1280}, {320, 470}}
	for i, s := range res.Stages {
		if s.Status != domain.StageCompleted || s.Progress != 100 {
			t.Fatalf("stage %d not completed: %+v", i, s)
		}
		if s.TimeMs < bounds[i][0] || s.TimeMs >= bounds[i][1] {
			t.Fatalf("stage %d time %d outside %v", i, s.TimeMs, bounds[i])
		}
	}
	if res.ProcessingTime != domain.TotalStageTime(res.Stages) {
		t.Fatalf("processing time %d != stage sum", res.ProcessingTime)
	}
}

func TestProcessWithoutFilePath(t *testing.T) {
	t.Parallel()

	for name, path := range map[string]*string{"nil": nil, "empty": strPtr("")} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := storage.NewMemoryRepository()
			doc := seedDocument(t, store, path)
			rec := &fakeRecognizer{}

			res, err := newTestProcessor(store, rec).ProcessDocument(context.Background(), doc.ID)
			if err != nil {
				t.Fatalf("process: %v", err)
			}
			if len(rec.calls) != 0 {
				t.Fatalf("recognizer must not run without a file")
			}
			if res.Confidence != 0 || res.ProcessingTime != 0 || res.ExtractedText != FailureText {
				t.Fatalf("unexpected failure result: %+v", res)
			}
			if res.Stages[0].Status != domain.StageFailed || res.Stages[0].Progress != 0 {
				t.Fatalf("running stage must be failed: %+v", res.Stages[0])
			}
			for _, s := range res.Stages[1:] {
				if s.Status != domain.StagePending {
					t.Fatalf("waiting stages stay pending: %+v", s)
				}
			}

			stored, _ := store.GetDocument(context.Background(), doc.ID)
			if stored.Status != domain.StatusError {
				t.Fatalf("expected error status, got %s", stored.Status)
			}
			if stored.ProcessingSummary == nil || stored.ProcessingSummary.Confidence != 0 {
				t.Fatalf("summary must reflect failure: %+v", stored.ProcessingSummary)
			}
		})
	}
}

type failingStore struct {
	*storage.MemoryRepository
	updateErr error
}

func (f failingStore) UpdateDocument(context.Context, int64, domain.DocumentPatch) (*domain.Document, error) {
	return nil, f.updateErr
}

func TestProcessStoreFailure(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemoryRepository()
	doc := seedDocument(t, mem, strPtr("uploads/a.png"))
	wantErr := errors.New("disk full")

	p := NewProcessor(ProcessorDeps{
		Store:      failingStore{MemoryRepository: mem, updateErr: wantErr},
		Recognizer: &fakeRecognizer{result: domain.ProcessingResult{ExtractedText: "x"}},
	})
	_, err := p.ProcessDocument(context.Background(), doc.ID)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestProcessConcurrentCalls(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryRepository()
	p := NewProcessor(ProcessorDeps{Store: store, Rand: rand.New(rand.NewPCG(9, 9))})

	var ids []int64
	for i := 0; i < 8; i++ {
		ids = append(ids, seedDocument(t, store, strPtr("uploads/c.png")).ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if _, err := p.ProcessDocument(context.Background(), id); err != nil {
				t.Errorf("process %d: %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	docs, _ := store.ListDocuments(context.Background())
	for _, d := range docs {
		if d.Status != domain.StatusProcessed {
			t.Fatalf("document %d left in %s", d.ID, d.Status)
		}
	}
}

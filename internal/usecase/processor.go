package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"OCRPortal/internal/domain"
	"OCRPortal/internal/logging"
	"OCRPortal/internal/metrics"
	"OCRPortal/internal/ports"
)

// errNoFile marks a document that cannot be processed at all.
var errNoFile = errors.New("document has no associated image file")

// ProcessorDeps wires the driven adapters into the processor.
type ProcessorDeps struct {
	Store      ports.DocumentRepository
	Recognizer ports.Recognizer
	Logger     *slog.Logger
	// Rand drives fallback timings and text selection. Nil uses the
	// package-level generator.
	Rand *rand.Rand
}

// Processor drives a single document through recognition and persists the
// outcome. It holds no document state between calls.
type Processor struct {
	store      ports.DocumentRepository
	recognizer ports.Recognizer
	logger     *slog.Logger

	randMu sync.Mutex
	rand   *rand.Rand
}

var _ ports.DocumentProcessor = (*Processor)(nil)

// NewProcessor constructs the orchestration component.
func NewProcessor(deps ProcessorDeps) *Processor {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Processor{
		store:      deps.Store,
		recognizer: deps.Recognizer,
		logger:     logger,
		rand:       deps.Rand,
	}
}

// ProcessDocument recognizes the document's file and stores the result.
//
// Unknown ids yield (nil, nil). A recognizer failure is absorbed into a
// degraded placeholder result with status processed; a document without a
// file ends in status error. Only store failures are returned as errors.
func (p *Processor) ProcessDocument(ctx context.Context, id int64) (*domain.ProcessingResult, error) {
	if p.store == nil {
		return nil, errors.New("processor has no document store")
	}

	doc, err := p.store.GetDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load document %d: %w", id, err)
	}
	if doc == nil {
		return nil, nil
	}
	metrics.ProcessingRequestsTotal.Add(1)

	stages := domain.PendingStages()
	if doc.FilePath == nil || *doc.FilePath == "" {
		return p.fail(ctx, id, stages, errNoFile)
	}

	result, err := p.recognize(ctx, *doc.FilePath)
	if err != nil {
		p.logger.Warn("recognition failed, using placeholder result",
			"document_id", id,
			"error", err,
		)
		return p.fallback(ctx, id)
	}

	result.DocumentID = id
	result.Degraded = false
	if err := p.persist(ctx, id, domain.StatusProcessed, result); err != nil {
		return nil, err
	}
	metrics.ProcessingRecognizedTotal.Add(1)
	p.logger.Info("document processed",
		"document_id", id,
		"recognizer", p.recognizer.Name(),
		"confidence", result.Confidence,
		"chars", result.CharCount,
		"processing_ms", result.ProcessingTime,
	)
	return &result, nil
}

// recognize calls the recognizer and converts a panic into an error so a
// misbehaving backend degrades like any other failure.
func (p *Processor) recognize(ctx context.Context, path string) (result domain.ProcessingResult, err error) {
	if p.recognizer == nil {
		return domain.ProcessingResult{}, errors.New("no recognizer configured")
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("recognizer %s panicked: %v", p.recognizer.Name(), rec)
		}
	}()
	return p.recognizer.Recognize(ctx, path)
}

func (p *Processor) fallback(ctx context.Context, id int64) (*domain.ProcessingResult, error) {
	p.randMu.Lock()
	stages := domain.CompletedStages(
		int64(fallbackEnhancementBase+p.intN(fallbackEnhancementSpread)),
		int64(fallbackRecognitionBase+p.intN(fallbackRecognitionSpread)),
		int64(fallbackPostBase+p.intN(fallbackPostSpread)),
	)
	text := FallbackCorpus[p.intN(len(FallbackCorpus))]
	confidence := fallbackConfidenceBase + p.intN(fallbackConfidenceSpread)
	p.randMu.Unlock()

	result := domain.ProcessingResult{
		DocumentID:     id,
		ExtractedText:  text,
		Confidence:     confidence,
		ProcessingTime: domain.TotalStageTime(stages),
		CharCount:      domain.CountChars(text),
		Stages:         stages,
		Degraded:       true,
	}
	if err := p.persist(ctx, id, domain.StatusProcessed, result); err != nil {
		return nil, err
	}
	metrics.ProcessingDegradedTotal.Add(1)
	return &result, nil
}

func (p *Processor) fail(ctx context.Context, id int64, stages []domain.Stage, cause error) (*domain.ProcessingResult, error) {
	for i := range stages {
		if stages[i].Status == domain.StageInProgress {
			stages[i].Status = domain.StageFailed
			stages[i].Progress = 0
		}
	}

	result := domain.ProcessingResult{
		DocumentID:     id,
		ExtractedText:  FailureText,
		Confidence:     0,
		ProcessingTime: 0,
		CharCount:      domain.CountChars(FailureText),
		Stages:         stages,
		Degraded:       true,
	}
	p.logger.Error("document processing failed", "document_id", id, "error", cause)
	if err := p.persist(ctx, id, domain.StatusError, result); err != nil {
		return nil, err
	}
	metrics.ProcessingFailedTotal.Add(1)
	return &result, nil
}

func (p *Processor) persist(ctx context.Context, id int64, status domain.DocumentStatus, result domain.ProcessingResult) error {
	text := result.ExtractedText
	summary := result.Clone()
	_, err := p.store.UpdateDocument(ctx, id, domain.DocumentPatch{
		Status:            &status,
		ProcessedText:     &text,
		ProcessingSummary: &summary,
	})
	if err != nil {
		return fmt.Errorf("persist document %d: %w", id, err)
	}
	return nil
}

// intN must be called with randMu held.
func (p *Processor) intN(n int) int {
	if p.rand == nil {
		return rand.IntN(n)
	}
	return p.rand.IntN(n)
}

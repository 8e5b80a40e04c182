//go:build tesseract

package recognizer

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/otiai10/gosseract/v2"

	"OCRPortal/internal/domain"
	"OCRPortal/internal/ports"
)

// TesseractRecognizer runs Tesseract in-process through gosseract.
type TesseractRecognizer struct {
	languages     []string
	clientFactory func() *gosseract.Client
	now           func() time.Time
}

// NewTesseract constructs a Tesseract-backed recognizer.
func NewTesseract(languages []string) (ports.Recognizer, error) {
	return &TesseractRecognizer{
		languages:     languages,
		clientFactory: gosseract.NewClient,
		now:           time.Now,
	}, nil
}

func (t *TesseractRecognizer) Name() string { return "tesseract" }

// Recognize extracts text and reports the mean word confidence.
func (t *TesseractRecognizer) Recognize(ctx context.Context, imagePath string) (domain.ProcessingResult, error) {
	if _, err := os.Stat(imagePath); err != nil {
		return domain.ProcessingResult{}, &RecognitionError{
			Reason:  ReasonMissingImage,
			Message: fmt.Sprintf("image file not found at %s", imagePath),
			Err:     err,
		}
	}
	if err := ctx.Err(); err != nil {
		return domain.ProcessingResult{}, &RecognitionError{Reason: ReasonTimeout, Message: "cancelled before start", Err: err}
	}

	c := t.clientFactory()
	defer c.Close()

	start := t.now()
	if len(t.languages) > 0 {
		if err := c.SetLanguage(t.languages...); err != nil {
			return domain.ProcessingResult{}, &RecognitionError{Reason: ReasonExec, Message: "set languages", Err: err}
		}
	}
	if err := c.SetImage(imagePath); err != nil {
		return domain.ProcessingResult{}, &RecognitionError{Reason: ReasonExec, Message: "set image", Err: err}
	}

	text, err := c.Text()
	if err != nil {
		return domain.ProcessingResult{}, &RecognitionError{Reason: ReasonExec, Message: "recognize text", Err: err}
	}

	confidence := float64(defaultConfidence)
	if boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD); err == nil && len(boxes) > 0 {
		var sum float64
		for _, b := range boxes {
			sum += b.Confidence
		}
		confidence = sum / float64(len(boxes))
	}
	elapsed := t.now().Sub(start).Milliseconds()

	return domain.ProcessingResult{
		ExtractedText:  text,
		Confidence:     clampConfidence(confidence),
		ProcessingTime: elapsed,
		CharCount:      domain.CountChars(text),
		Stages:         domain.SplitElapsed(elapsed),
	}, nil
}

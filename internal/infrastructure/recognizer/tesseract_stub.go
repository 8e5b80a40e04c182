//go:build !tesseract

package recognizer

import (
	"errors"

	"OCRPortal/internal/ports"
)

// ErrTesseractUnavailable is returned when the binary was built without the
// tesseract build tag.
var ErrTesseractUnavailable = errors.New("tesseract backend not compiled in, rebuild with -tags tesseract")

// NewTesseract reports that the in-process engine is unavailable.
func NewTesseract(_ []string) (ports.Recognizer, error) {
	return nil, ErrTesseractUnavailable
}

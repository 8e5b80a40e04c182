package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDocument marks documents or patches that violate field constraints.
var ErrInvalidDocument = errors.New("invalid document")

// DocumentStatus enumerates the processing lifecycle of an uploaded file.
type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusProcessed  DocumentStatus = "processed"
	StatusError      DocumentStatus = "error"
)

// Valid reports whether s is one of the known statuses.
func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusUploaded, StatusProcessing, StatusProcessed, StatusError:
		return true
	}
	return false
}

// OCRMode hints the recognizer about the script era of the document.
type OCRMode string

const (
	OCRModeAuto       OCRMode = "auto"
	OCRModeModern     OCRMode = "modern"
	OCRModeHistorical OCRMode = "historical"
	OCRModePalm       OCRMode = "palm"
)

func (m OCRMode) Valid() bool {
	switch m {
	case OCRModeAuto, OCRModeModern, OCRModeHistorical, OCRModePalm:
		return true
	}
	return false
}

// OutputFormat is the export format requested for the recognized text.
type OutputFormat string

const (
	OutputTXT  OutputFormat = "txt"
	OutputPDF  OutputFormat = "pdf"
	OutputJSON OutputFormat = "json"
)

func (f OutputFormat) Valid() bool {
	switch f {
	case OutputTXT, OutputPDF, OutputJSON:
		return true
	}
	return false
}

const (
	DefaultConfidenceThreshold = 80
	uploadDateLayout           = "2006-01-02T15:04:05.000Z07:00"
)

// FormatUploadDate renders t the way upload timestamps are stored.
func FormatUploadDate(t time.Time) string {
	return t.UTC().Format(uploadDateLayout)
}

// Document is one uploaded file together with its processing lifecycle.
type Document struct {
	ID                    int64             `json:"id"`
	FileName              string            `json:"fileName"`
	ContentType           string            `json:"contentType"`
	FileSize              int64             `json:"fileSize"`
	UploadDate            string            `json:"uploadDate"`
	FilePath              *string           `json:"filePath"`
	Status                DocumentStatus    `json:"status"`
	EnhancementEnabled    bool              `json:"enhancementEnabled"`
	SpellCheckEnabled     bool              `json:"spellCheckEnabled"`
	LayoutAnalysisEnabled bool              `json:"layoutAnalysisEnabled"`
	OCRMode               OCRMode           `json:"ocrMode"`
	OutputFormat          OutputFormat      `json:"outputFormat"`
	ConfidenceThreshold   int               `json:"confidenceThreshold"`
	OriginalText          *string           `json:"originalText"`
	ProcessedText         *string           `json:"processedText"`
	ProcessingSummary     *ProcessingResult `json:"processingSummary"`
}

// Clone returns a deep copy so stored records never alias caller memory.
func (d Document) Clone() Document {
	out := d
	out.FilePath = cloneString(d.FilePath)
	out.OriginalText = cloneString(d.OriginalText)
	out.ProcessedText = cloneString(d.ProcessedText)
	if d.ProcessingSummary != nil {
		summary := d.ProcessingSummary.Clone()
		out.ProcessingSummary = &summary
	}
	return out
}

// NewDocument carries the fields supplied when a file is uploaded.
type NewDocument struct {
	FileName              string
	ContentType           string
	FileSize              int64
	UploadDate            string
	FilePath              *string
	Status                DocumentStatus
	EnhancementEnabled    bool
	SpellCheckEnabled     bool
	LayoutAnalysisEnabled bool
	OCRMode               OCRMode
	OutputFormat          OutputFormat
	ConfidenceThreshold   int
}

// WithDefaults fills unset enum fields and status.
func (n NewDocument) WithDefaults() NewDocument {
	if n.Status == "" {
		n.Status = StatusUploaded
	}
	if n.OCRMode == "" {
		n.OCRMode = OCRModeAuto
	}
	if n.OutputFormat == "" {
		n.OutputFormat = OutputTXT
	}
	return n
}

// Validate checks enum membership and the confidence threshold bound.
func (n NewDocument) Validate() error {
	if n.FileName == "" {
		return fmt.Errorf("%w: file name is required", ErrInvalidDocument)
	}
	if n.ContentType == "" {
		return fmt.Errorf("%w: content type is required", ErrInvalidDocument)
	}
	if n.FileSize < 0 {
		return fmt.Errorf("%w: file size must not be negative", ErrInvalidDocument)
	}
	if n.Status != "" && !n.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidDocument, n.Status)
	}
	if n.OCRMode != "" && !n.OCRMode.Valid() {
		return fmt.Errorf("%w: unknown ocr mode %q", ErrInvalidDocument, n.OCRMode)
	}
	if n.OutputFormat != "" && !n.OutputFormat.Valid() {
		return fmt.Errorf("%w: unknown output format %q", ErrInvalidDocument, n.OutputFormat)
	}
	if err := validateThreshold(n.ConfidenceThreshold); err != nil {
		return err
	}
	return nil
}

// Build materializes a stored Document with the given id.
func (n NewDocument) Build(id int64) Document {
	n = n.WithDefaults()
	return Document{
		ID:                    id,
		FileName:              n.FileName,
		ContentType:           n.ContentType,
		FileSize:              n.FileSize,
		UploadDate:            n.UploadDate,
		FilePath:              cloneString(n.FilePath),
		Status:                n.Status,
		EnhancementEnabled:    n.EnhancementEnabled,
		SpellCheckEnabled:     n.SpellCheckEnabled,
		LayoutAnalysisEnabled: n.LayoutAnalysisEnabled,
		OCRMode:               n.OCRMode,
		OutputFormat:          n.OutputFormat,
		ConfidenceThreshold:   n.ConfidenceThreshold,
	}
}

// DocumentPatch is a partial update; nil fields are left untouched.
type DocumentPatch struct {
	FileName              *string
	Status                *DocumentStatus
	EnhancementEnabled    *bool
	SpellCheckEnabled     *bool
	LayoutAnalysisEnabled *bool
	OCRMode               *OCRMode
	OutputFormat          *OutputFormat
	ConfidenceThreshold   *int
	OriginalText          *string
	ProcessedText         *string
	ProcessingSummary     *ProcessingResult
}

// IsEmpty reports whether the patch carries no fields at all.
func (p DocumentPatch) IsEmpty() bool {
	return p == DocumentPatch{}
}

// Validate checks the supplied fields only.
func (p DocumentPatch) Validate() error {
	if p.FileName != nil && *p.FileName == "" {
		return fmt.Errorf("%w: file name must not be empty", ErrInvalidDocument)
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidDocument, *p.Status)
	}
	if p.OCRMode != nil && !p.OCRMode.Valid() {
		return fmt.Errorf("%w: unknown ocr mode %q", ErrInvalidDocument, *p.OCRMode)
	}
	if p.OutputFormat != nil && !p.OutputFormat.Valid() {
		return fmt.Errorf("%w: unknown output format %q", ErrInvalidDocument, *p.OutputFormat)
	}
	if p.ConfidenceThreshold != nil {
		if err := validateThreshold(*p.ConfidenceThreshold); err != nil {
			return err
		}
	}
	return nil
}

// Apply merges the patch into doc (shallow merge).
func (p DocumentPatch) Apply(doc *Document) {
	if p.FileName != nil {
		doc.FileName = *p.FileName
	}
	if p.Status != nil {
		doc.Status = *p.Status
	}
	if p.EnhancementEnabled != nil {
		doc.EnhancementEnabled = *p.EnhancementEnabled
	}
	if p.SpellCheckEnabled != nil {
		doc.SpellCheckEnabled = *p.SpellCheckEnabled
	}
	if p.LayoutAnalysisEnabled != nil {
		doc.LayoutAnalysisEnabled = *p.LayoutAnalysisEnabled
	}
	if p.OCRMode != nil {
		doc.OCRMode = *p.OCRMode
	}
	if p.OutputFormat != nil {
		doc.OutputFormat = *p.OutputFormat
	}
	if p.ConfidenceThreshold != nil {
		doc.ConfidenceThreshold = *p.ConfidenceThreshold
	}
	if p.OriginalText != nil {
		doc.OriginalText = cloneString(p.OriginalText)
	}
	if p.ProcessedText != nil {
		doc.ProcessedText = cloneString(p.ProcessedText)
	}
	if p.ProcessingSummary != nil {
		summary := p.ProcessingSummary.Clone()
		doc.ProcessingSummary = &summary
	}
}

func validateThreshold(v int) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("%w: confidence threshold must be between 0 and 100, got %d", ErrInvalidDocument, v)
	}
	return nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"OCRPortal/internal/domain"
	"OCRPortal/internal/infrastructure/filestore"
	"OCRPortal/internal/metrics"
)

var allowedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"application/pdf": true,
}

// multipartSlack covers form fields and boundaries on top of the file limit.
const multipartSlack = 1 << 20

// uploadForm carries the string-typed option fields of an upload.
type uploadForm struct {
	EnhancementEnabled    string `form:"enhancementEnabled"`
	SpellCheckEnabled     string `form:"spellCheckEnabled"`
	LayoutAnalysisEnabled string `form:"layoutAnalysisEnabled"`
	OCRMode               string `form:"ocrMode" validate:"omitempty,oneof=auto modern historical palm"`
	OutputFormat          string `form:"outputFormat" validate:"omitempty,oneof=txt pdf json"`
	ConfidenceThreshold   string `form:"confidenceThreshold"`
}

// patchRequest is the JSON body of PATCH /api/documents/:id.
type patchRequest struct {
	FileName              *string                  `json:"fileName"`
	Status                *domain.DocumentStatus   `json:"status"`
	EnhancementEnabled    *bool                    `json:"enhancementEnabled"`
	SpellCheckEnabled     *bool                    `json:"spellCheckEnabled"`
	LayoutAnalysisEnabled *bool                    `json:"layoutAnalysisEnabled"`
	OCRMode               *domain.OCRMode          `json:"ocrMode"`
	OutputFormat          *domain.OutputFormat     `json:"outputFormat"`
	ConfidenceThreshold   *int                     `json:"confidenceThreshold"`
	OriginalText          *string                  `json:"originalText"`
	ProcessedText         *string                  `json:"processedText"`
	ProcessingSummary     *domain.ProcessingResult `json:"processingSummary"`
}

func (r patchRequest) toPatch() domain.DocumentPatch {
	return domain.DocumentPatch{
		FileName:              r.FileName,
		Status:                r.Status,
		EnhancementEnabled:    r.EnhancementEnabled,
		SpellCheckEnabled:     r.SpellCheckEnabled,
		LayoutAnalysisEnabled: r.LayoutAnalysisEnabled,
		OCRMode:               r.OCRMode,
		OutputFormat:          r.OutputFormat,
		ConfidenceThreshold:   r.ConfidenceThreshold,
		OriginalText:          r.OriginalText,
		ProcessedText:         r.ProcessedText,
		ProcessingSummary:     r.ProcessingSummary,
	}
}

func (s *Server) listDocuments(c echo.Context) error {
	docs, err := s.documents.ListDocuments(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch documents").SetInternal(err)
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	return c.JSON(http.StatusOK, docs)
}

func (s *Server) getDocument(c echo.Context) error {
	id, err := documentID(c)
	if err != nil {
		return err
	}

	doc, err := s.documents.GetDocument(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch document").SetInternal(err)
	}
	if doc == nil {
		return errDocumentNotFound
	}
	return c.JSON(http.StatusOK, doc)
}

func (s *Server) uploadDocument(c echo.Context) error {
	ctx := c.Request().Context()

	if s.maxUpload > 0 {
		c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, s.maxUpload+multipartSlack)
	}

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return echo.NewHTTPError(http.StatusBadRequest, "File too large")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "No file uploaded")
	}

	contentType := mediaType(header.Header.Get(echo.HeaderContentType))
	if !allowedContentTypes[contentType] {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid file type. Only JPG, PNG, GIF, and PDF files are allowed.")
	}
	if s.maxUpload > 0 && header.Size > s.maxUpload {
		return echo.NewHTTPError(http.StatusBadRequest, "File too large")
	}

	form := uploadForm{
		EnhancementEnabled:    c.FormValue("enhancementEnabled"),
		SpellCheckEnabled:     c.FormValue("spellCheckEnabled"),
		LayoutAnalysisEnabled: c.FormValue("layoutAnalysisEnabled"),
		OCRMode:               c.FormValue("ocrMode"),
		OutputFormat:          c.FormValue("outputFormat"),
		ConfidenceThreshold:   c.FormValue("confidenceThreshold"),
	}
	if err := s.validate.Struct(form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
	}

	threshold := domain.DefaultConfidenceThreshold
	if raw := strings.TrimSpace(form.ConfidenceThreshold); raw != "" {
		threshold, err = strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "confidenceThreshold must be an integer")
		}
	}

	in := domain.NewDocument{
		FileName:              header.Filename,
		ContentType:           contentType,
		FileSize:              header.Size,
		UploadDate:            domain.FormatUploadDate(s.now()),
		Status:                domain.StatusUploaded,
		EnhancementEnabled:    form.EnhancementEnabled == "true",
		SpellCheckEnabled:     form.SpellCheckEnabled == "true",
		LayoutAnalysisEnabled: form.LayoutAnalysisEnabled == "true",
		OCRMode:               domain.OCRMode(form.OCRMode),
		OutputFormat:          domain.OutputFormat(form.OutputFormat),
		ConfidenceThreshold:   threshold,
	}
	if err := in.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	src, err := header.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to upload document").SetInternal(err)
	}
	defer src.Close()

	stored, err := s.files.Save(ctx, header.Filename, contentType, src)
	switch {
	case errors.Is(err, filestore.ErrTooLarge):
		return echo.NewHTTPError(http.StatusBadRequest, "File too large")
	case errors.Is(err, filestore.ErrInvalidPDF):
		return echo.NewHTTPError(http.StatusBadRequest, "The uploaded PDF could not be read")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to upload document").SetInternal(err)
	}

	in.FileSize = stored.Size
	in.FilePath = &stored.Path

	doc, err := s.documents.CreateDocument(ctx, in)
	if err != nil {
		s.removeFile(stored.Path)
		if errors.Is(err, domain.ErrInvalidDocument) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to upload document").SetInternal(err)
	}

	metrics.DocumentsUploadedTotal.Add(1)
	s.logger.Info("document uploaded", "document_id", doc.ID, "file", doc.FileName, "size", doc.FileSize)
	return c.JSON(http.StatusCreated, doc)
}

func (s *Server) processDocument(c echo.Context) error {
	id, err := documentID(c)
	if err != nil {
		return err
	}

	result, err := s.processor.ProcessDocument(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to process document").SetInternal(err)
	}
	if result == nil {
		return errDocumentNotFound
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) updateDocument(c echo.Context) error {
	id, err := documentID(c)
	if err != nil {
		return err
	}

	var body patchRequest
	dec := json.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}

	patch := body.toPatch()
	if err := patch.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	doc, err := s.documents.UpdateDocument(c.Request().Context(), id, patch)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update document").SetInternal(err)
	}
	if doc == nil {
		return errDocumentNotFound
	}
	return c.JSON(http.StatusOK, doc)
}

func (s *Server) deleteDocument(c echo.Context) error {
	id, err := documentID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	doc, err := s.documents.GetDocument(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete document").SetInternal(err)
	}

	deleted, err := s.documents.DeleteDocument(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete document").SetInternal(err)
	}
	if !deleted {
		return errDocumentNotFound
	}

	if doc != nil && doc.FilePath != nil && *doc.FilePath != "" {
		s.removeFile(*doc.FilePath)
	}
	metrics.DocumentsDeletedTotal.Add(1)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) removeFile(path string) {
	if s.files == nil {
		return
	}
	if err := s.files.Remove(path); err != nil {
		s.logger.Warn("remove upload", "path", path, "error", err)
	}
}

var errDocumentNotFound = echo.NewHTTPError(http.StatusNotFound, "Document not found")

func documentID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid document ID")
	}
	return id, nil
}

func mediaType(header string) string {
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(header))
	}
	return mt
}

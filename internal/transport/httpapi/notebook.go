package httpapi

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"OCRPortal/internal/infrastructure/filestore"
)

type notebookResponse struct {
	Message string `json:"message,omitempty"`
	Path    string `json:"path"`
}

func (s *Server) getNotebook(c echo.Context) error {
	if s.notebook == nil {
		return echo.NewHTTPError(http.StatusNotFound, "The active recognizer does not use a notebook")
	}
	return c.JSON(http.StatusOK, notebookResponse{Path: s.notebook.NotebookPath()})
}

func (s *Server) uploadNotebook(c echo.Context) error {
	if s.notebook == nil {
		return echo.NewHTTPError(http.StatusNotFound, "The active recognizer does not use a notebook")
	}

	if s.maxUpload > 0 {
		c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, s.maxUpload+multipartSlack)
	}

	header, err := c.FormFile("notebook")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "No notebook uploaded")
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".ipynb") {
		return echo.NewHTTPError(http.StatusBadRequest, "Only .ipynb notebooks are accepted")
	}

	src, err := header.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to upload notebook").SetInternal(err)
	}
	defer src.Close()

	path, err := s.files.SaveNotebook(c.Request().Context(), src)
	switch {
	case errors.Is(err, filestore.ErrInvalidNotebook), errors.Is(err, filestore.ErrTooLarge):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to upload notebook").SetInternal(err)
	}

	effective := s.notebook.SetNotebookPath(path)
	s.logger.Info("notebook replaced", "path", effective)
	return c.JSON(http.StatusOK, notebookResponse{Message: "Notebook uploaded successfully", Path: effective})
}

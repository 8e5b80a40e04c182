package httpapi

import (
	"errors"
	"expvar"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"OCRPortal/internal/logging"
	"OCRPortal/internal/metrics"
	"OCRPortal/internal/ports"
)

// Deps wires the driven adapters into the HTTP surface. Notebook and
// Notifier are optional.
type Deps struct {
	Documents      ports.DocumentRepository
	Processor      ports.DocumentProcessor
	Files          ports.FileStore
	Notebook       ports.NotebookLocator
	Notifier       ports.Notifier
	MaxUploadBytes int64
	Logger         *slog.Logger
	Now            func() time.Time
}

// Server holds the handlers of the JSON API.
type Server struct {
	documents ports.DocumentRepository
	processor ports.DocumentProcessor
	files     ports.FileStore
	notebook  ports.NotebookLocator
	notifier  ports.Notifier
	maxUpload int64
	logger    *slog.Logger
	now       func() time.Time
	validate  *validator.Validate
}

// NewRouter builds the echo instance serving the API, health and metrics
// endpoints.
func NewRouter(deps Deps) *echo.Echo {
	s := newServer(deps)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(s.requestLogger())

	api := e.Group("/api")
	api.GET("/documents", s.listDocuments)
	api.GET("/documents/:id", s.getDocument)
	api.POST("/documents/upload", s.uploadDocument)
	api.POST("/documents/:id/process", s.processDocument)
	api.PATCH("/documents/:id", s.updateDocument)
	api.DELETE("/documents/:id", s.deleteDocument)
	api.POST("/contact", s.submitContact)
	api.GET("/notebook", s.getNotebook)
	api.POST("/notebook/upload", s.uploadNotebook)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/debug/vars", echo.WrapHandler(expvar.Handler()))

	return e
}

func newServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Server{
		documents: deps.Documents,
		processor: deps.Processor,
		files:     deps.Files,
		notebook:  deps.Notebook,
		notifier:  deps.Notifier,
		maxUpload: deps.MaxUploadBytes,
		logger:    logger,
		now:       now,
		validate:  newValidator(),
	}
}

// handleError renders every error as {"message": ...}. Unexpected errors
// are logged with their cause and answered with the handler's generic text.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		message = fmt.Sprint(he.Message)
		if he.Internal != nil {
			err = he.Internal
		}
	}

	if code >= http.StatusInternalServerError {
		metrics.APIErrorsTotal.Add(1)
		s.logger.Error("request failed",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", code,
			"error", err,
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, map[string]string{"message": message})
	}
	if err != nil {
		s.logger.Warn("write error response", "error", err)
	}
}

// requestLogger logs one line per /api request.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return !strings.HasPrefix(c.Request().URL.Path, "/api")
		},
		HandleError:  true,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			s.logger.LogAttrs(c.Request().Context(), level, "api request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			)
			return nil
		},
	})
}

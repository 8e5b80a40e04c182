package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"OCRPortal/internal/config"
	"OCRPortal/internal/infrastructure/filestore"
	"OCRPortal/internal/infrastructure/recognizer"
	"OCRPortal/internal/infrastructure/scheduler"
	"OCRPortal/internal/infrastructure/storage"
	"OCRPortal/internal/infrastructure/telegram"
	"OCRPortal/internal/logging"
	"OCRPortal/internal/ports"
	"OCRPortal/internal/recognition"
	"OCRPortal/internal/transport/httpapi"
	"OCRPortal/internal/usecase"
	"OCRPortal/pkg/logger"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	store      ports.Store
	recognizer ports.Recognizer
	handler    http.Handler
	scheduler  *usecase.Scheduler
}

// New builds the application: it selects the store, resolves the configured
// recognizer backend and assembles the HTTP router. Unknown backends fail.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store := openStore(ctx, cfg.Database.DSN, baseLogger.With("component", "storage"))

	registry := recognition.NewRegistry()
	registry.Register(recognizer.NewNotebookRecognizer(recognizer.NotebookConfig{
		Interpreter: cfg.Recognizer.Interpreter,
		Script:      cfg.Recognizer.Script,
		Notebook:    cfg.Recognizer.Notebook,
		Timeout:     cfg.Recognizer.Timeout,
	}, baseLogger.With("component", "recognizer.notebook")))
	registry.Register(recognizer.NewRemoteRecognizer(
		cfg.Recognizer.Remote.Endpoint,
		cfg.Recognizer.Remote.APIKey,
		cfg.Recognizer.Timeout,
	))
	if tess, err := recognizer.NewTesseract(cfg.Recognizer.Tesseract.Languages); err == nil {
		registry.Register(tess)
	} else {
		baseLogger.Debug("tesseract backend not registered", "error", err)
	}

	rec, err := registry.Resolve(cfg.Recognizer.Backend)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("resolve recognizer: %w", err)
	}

	files := filestore.NewDiskStore(filestore.Config{
		UploadDir:    cfg.Storage.UploadDir,
		NotebookDir:  cfg.Recognizer.NotebookDir,
		NotebookName: config.DefaultNotebookName,
		MaxBytes:     cfg.Storage.MaxUploadBytes,
	})

	processor := usecase.NewProcessor(usecase.ProcessorDeps{
		Store:      store,
		Recognizer: rec,
		Logger:     baseLogger.With("component", "processor"),
	})

	var notebook ports.NotebookLocator
	if locator, ok := rec.(ports.NotebookLocator); ok {
		notebook = locator
	}

	var notifier ports.Notifier
	if tg := telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID); tg.Configured() {
		notifier = tg
	}

	handler := httpapi.NewRouter(httpapi.Deps{
		Documents:      store,
		Processor:      processor,
		Files:          files,
		Notebook:       notebook,
		Notifier:       notifier,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		Logger:         baseLogger.With("component", "http"),
	})

	janitor := usecase.NewJanitor(usecase.JanitorDeps{
		Files:       files,
		Documents:   store,
		GracePeriod: cfg.Storage.OrphanGracePeriod,
		Logger:      baseLogger.With("component", "janitor"),
	})
	sched := usecase.NewScheduler(
		scheduler.NewIntervalScheduler(cfg.Storage.SweepInterval),
		janitor,
		baseLogger.With("component", "scheduler"),
	)

	baseLogger.Info("application configured",
		"recognizer", rec.Name(),
		"store", fmt.Sprintf("%T", store),
		"upload_dir", cfg.Storage.UploadDir,
	)

	return &Application{
		cfg:        cfg,
		logger:     baseLogger,
		store:      store,
		recognizer: rec,
		handler:    handler,
		scheduler:  sched,
	}, nil
}

// Handler exposes the HTTP router.
func (a *Application) Handler() http.Handler {
	return a.handler
}

// Store exposes the selected document store.
func (a *Application) Store() ports.Store {
	return a.store
}

// Run serves HTTP and sweeps uploads until ctx is cancelled or the server
// fails, then shuts everything down within the configured timeout.
func (a *Application) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           a.handler,
		ErrorLog:          logger.New("http", a.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := a.scheduler.Start(ctx); err != nil {
		if cerr := a.store.Close(); cerr != nil {
			a.logger.Error("close store", "error", cerr)
		}
		return fmt.Errorf("start janitor: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http: %w", err))
		}
		if err := a.scheduler.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("stop janitor: %w", err))
		}
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		a.logger.Info("application stopped")
		return errors.Join(errs...)
	})

	return g.Wait()
}

// openStore selects the relational store when a DSN is configured and falls
// back to memory when it is absent or unusable.
func openStore(ctx context.Context, dsn string, log *slog.Logger) ports.Store {
	if dsn == "" {
		log.Info("no database configured, using in-memory store")
		return storage.NewMemoryRepository()
	}

	repo, err := storage.Open(ctx, dsn)
	if err != nil {
		log.Warn("database unavailable, using in-memory store", "error", err)
		return storage.NewMemoryRepository()
	}
	return repo
}

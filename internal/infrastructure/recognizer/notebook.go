package recognizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"OCRPortal/internal/domain"
	"OCRPortal/internal/ports"
)

// NotebookConfig describes how to launch the external recognizer.
type NotebookConfig struct {
	Interpreter string
	Script      string
	Notebook    string
	Timeout     time.Duration
}

// NotebookRecognizer runs `<interpreter> <script> <notebook> <image>` and
// reads a JSON result from the program's stdout.
type NotebookRecognizer struct {
	interpreter string
	script      string
	timeout     time.Duration
	logger      *slog.Logger

	mu       sync.RWMutex
	notebook string

	runner commandRunner
	stat   func(name string) (os.FileInfo, error)
	now    func() time.Time
}

var _ ports.Recognizer = (*NotebookRecognizer)(nil)
var _ ports.NotebookLocator = (*NotebookRecognizer)(nil)

// NewNotebookRecognizer builds the production recognizer with OS dependencies.
func NewNotebookRecognizer(cfg NotebookConfig, logger *slog.Logger) *NotebookRecognizer {
	interpreter := cfg.Interpreter
	if interpreter == "" {
		interpreter = "python3"
	}
	return &NotebookRecognizer{
		interpreter: interpreter,
		script:      cfg.Script,
		timeout:     cfg.Timeout,
		logger:      logger,
		notebook:    cfg.Notebook,
		runner:      &execRunner{},
		stat:        os.Stat,
		now:         time.Now,
	}
}

// Name identifies the backend inside the registry.
func (r *NotebookRecognizer) Name() string {
	return "notebook"
}

// NotebookPath returns the notebook passed to the recognizer script.
func (r *NotebookRecognizer) NotebookPath() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.notebook
}

// SetNotebookPath replaces the notebook and returns the effective path.
// Blank paths are ignored.
func (r *NotebookRecognizer) SetNotebookPath(path string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if strings.TrimSpace(path) != "" {
		r.notebook = path
	}
	return r.notebook
}

// Recognize validates inputs, runs the external program and parses its output.
// Every failure is reported as a *RecognitionError.
func (r *NotebookRecognizer) Recognize(ctx context.Context, imagePath string) (domain.ProcessingResult, error) {
	notebook := r.NotebookPath()

	if err := r.requireFile(imagePath); err != nil {
		return domain.ProcessingResult{}, &RecognitionError{
			Reason:  ReasonMissingImage,
			Message: fmt.Sprintf("image file not found at %s", imagePath),
			Err:     err,
		}
	}
	if err := r.requireFile(notebook); err != nil {
		return domain.ProcessingResult{}, &RecognitionError{
			Reason:  ReasonMissingNotebook,
			Message: fmt.Sprintf("OCR notebook not found at %s, upload a notebook first", notebook),
			Err:     err,
		}
	}
	if err := r.requireFile(r.script); err != nil {
		return domain.ProcessingResult{}, &RecognitionError{
			Reason:  ReasonMissingScript,
			Message: fmt.Sprintf("recognizer script not found at %s", r.script),
			Err:     err,
		}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	args := []string{r.script, notebook, imagePath}
	r.debug("run recognizer", "command", r.interpreter, "args", args)

	start := r.now()
	res, runErr := r.runner.Run(ctx, r.interpreter, args...)
	elapsed := r.now().Sub(start).Milliseconds()

	if strings.TrimSpace(res.Stderr) != "" {
		r.debug("recognizer stderr", "stderr", res.Stderr)
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.ProcessingResult{}, &RecognitionError{
			Reason:  ReasonTimeout,
			Message: fmt.Sprintf("recognizer did not finish within %s", r.timeout),
			Stdout:  res.Stdout,
			Stderr:  res.Stderr,
			Err:     ctx.Err(),
		}
	}

	if runErr != nil {
		// wrappers often print {"error": ...} before exiting non-zero
		if _, perr := decodePayload([]byte(res.Stdout), elapsed); perr != nil {
			var recErr *RecognitionError
			if errors.As(perr, &recErr) && recErr.Reason == ReasonPayload {
				recErr.Stderr = res.Stderr
				recErr.Err = runErr
				return domain.ProcessingResult{}, recErr
			}
		}
		return domain.ProcessingResult{}, &RecognitionError{
			Reason:  ReasonExec,
			Message: fmt.Sprintf("recognizer exited with code %d", res.ExitCode),
			Stdout:  res.Stdout,
			Stderr:  res.Stderr,
			Err:     runErr,
		}
	}

	result, err := decodePayload([]byte(res.Stdout), elapsed)
	if err != nil {
		var recErr *RecognitionError
		if errors.As(err, &recErr) {
			recErr.Stderr = res.Stderr
			if recErr.Reason == ReasonParse {
				r.warn("recognizer output is not json", "stdout", res.Stdout)
			}
		}
		return domain.ProcessingResult{}, err
	}

	return result, nil
}

func (r *NotebookRecognizer) requireFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("path is empty")
	}
	info, err := r.stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

func (r *NotebookRecognizer) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

func (r *NotebookRecognizer) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}

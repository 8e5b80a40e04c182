package recognizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"OCRPortal/internal/domain"
	"OCRPortal/internal/ports"
)

const maxRemoteResponse = 8 << 20

// RemoteRecognizer posts images to an HTTP inference service that answers
// with the same JSON object the notebook wrapper prints.
type RemoteRecognizer struct {
	endpoint string
	apiKey   string
	http     *http.Client
	now      func() time.Time
}

var _ ports.Recognizer = (*RemoteRecognizer)(nil)

// NewRemoteRecognizer creates a reusable HTTP client.
func NewRemoteRecognizer(endpoint, apiKey string, timeout time.Duration) *RemoteRecognizer {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &RemoteRecognizer{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
		now:      time.Now,
	}
}

func (c *RemoteRecognizer) Name() string {
	return "remote"
}

// Recognize uploads the image as multipart field "image".
func (c *RemoteRecognizer) Recognize(ctx context.Context, imagePath string) (domain.ProcessingResult, error) {
	if strings.TrimSpace(c.endpoint) == "" {
		return domain.ProcessingResult{}, &RecognitionError{
			Reason:  ReasonUnavailable,
			Message: "remote recognizer endpoint is not configured",
		}
	}

	file, err := os.Open(imagePath)
	if err != nil {
		return domain.ProcessingResult{}, &RecognitionError{
			Reason:  ReasonMissingImage,
			Message: fmt.Sprintf("image file not found at %s", imagePath),
			Err:     err,
		}
	}
	defer file.Close()

	body, contentType, err := multipartImage(file, filepath.Base(imagePath))
	if err != nil {
		return domain.ProcessingResult{}, &RecognitionError{
			Reason:  ReasonExec,
			Message: "build upload body",
			Err:     err,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return domain.ProcessingResult{}, &RecognitionError{Reason: ReasonExec, Message: "new request", Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.ProcessingResult{}, &RecognitionError{Reason: ReasonExec, Message: "do request", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteResponse))
	elapsed := c.now().Sub(start).Milliseconds()
	if err != nil {
		return domain.ProcessingResult{}, &RecognitionError{Reason: ReasonExec, Message: "read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		// error bodies may still follow the {"error": ...} contract
		if _, perr := decodePayload(raw, elapsed); perr != nil {
			var recErr *RecognitionError
			if errors.As(perr, &recErr) && recErr.Reason == ReasonPayload {
				return domain.ProcessingResult{}, recErr
			}
		}
		return domain.ProcessingResult{}, &RecognitionError{
			Reason:  ReasonExec,
			Message: fmt.Sprintf("unexpected status %s", resp.Status),
			Stdout:  truncate(string(raw), 1024),
		}
	}

	return decodePayload(raw, elapsed)
}

func multipartImage(r io.Reader, name string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", name)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, "", fmt.Errorf("copy image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}

package recognizer

import "fmt"

// Reason classifies why a recognition attempt failed.
type Reason string

const (
	ReasonMissingImage    Reason = "missing_image"
	ReasonMissingNotebook Reason = "missing_notebook"
	ReasonMissingScript   Reason = "missing_script"
	ReasonExec            Reason = "exec"
	ReasonTimeout         Reason = "timeout"
	ReasonParse           Reason = "parse"
	ReasonPayload         Reason = "payload"
	ReasonUnavailable     Reason = "unavailable"
)

// RecognitionError describes a failed recognition attempt. Stdout and Stderr
// hold whatever the external program printed, for diagnostics.
type RecognitionError struct {
	Reason  Reason
	Message string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *RecognitionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *RecognitionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

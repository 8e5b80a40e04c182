package recognizer

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"

	"OCRPortal/internal/domain"
)

const defaultConfidence = 90

var errNotObject = errors.New("output is not a json object")

// payload is the JSON object printed by a recognizer backend.
type payload struct {
	Error         json.RawMessage `json:"error"`
	ExtractedText *string         `json:"extracted_text"`
	Text          *string         `json:"text"`
	HOCR          *string         `json:"hocr"`
	Confidence    *float64        `json:"confidence"`
}

// decodePayload parses raw strictly as a JSON object and turns it into a
// ProcessingResult whose stages split elapsedMs 30/50/20. DocumentID is left
// at zero for the caller to fill in.
func decodePayload(raw []byte, elapsedMs int64) (domain.ProcessingResult, error) {
	trimmed := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(trimmed, []byte("{")) {
		return domain.ProcessingResult{}, &RecognitionError{
			Reason:  ReasonParse,
			Message: "recognizer output is not a json object",
			Stdout:  string(raw),
			Err:     errNotObject,
		}
	}

	var p payload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return domain.ProcessingResult{}, &RecognitionError{
			Reason:  ReasonParse,
			Message: "failed to parse recognizer output",
			Stdout:  string(raw),
			Err:     err,
		}
	}

	if msg := errorMessage(p.Error); msg != "" {
		return domain.ProcessingResult{}, &RecognitionError{
			Reason:  ReasonPayload,
			Message: msg,
			Stdout:  string(raw),
		}
	}

	text, err := p.text()
	if err != nil {
		return domain.ProcessingResult{}, &RecognitionError{
			Reason:  ReasonParse,
			Message: "failed to read hocr output",
			Stdout:  string(raw),
			Err:     err,
		}
	}

	if elapsedMs < 0 {
		elapsedMs = 0
	}

	return domain.ProcessingResult{
		DocumentID:     0,
		ExtractedText:  text,
		Confidence:     p.confidence(),
		ProcessingTime: elapsedMs,
		CharCount:      domain.CountChars(text),
		Stages:         domain.SplitElapsed(elapsedMs),
	}, nil
}

// text picks extracted_text, then text, then the hOCR body; empty values fall
// through to the next candidate.
func (p payload) text() (string, error) {
	if p.ExtractedText != nil && *p.ExtractedText != "" {
		return *p.ExtractedText, nil
	}
	if p.Text != nil && *p.Text != "" {
		return *p.Text, nil
	}
	if p.HOCR != nil && strings.TrimSpace(*p.HOCR) != "" {
		return TextFromHOCR(*p.HOCR)
	}
	return "", nil
}

func (p payload) confidence() int {
	if p.Confidence == nil || *p.Confidence == 0 || math.IsNaN(*p.Confidence) {
		return defaultConfidence
	}
	return clampConfidence(*p.Confidence)
}

func clampConfidence(v float64) int {
	c := int(math.Round(v))
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

// errorMessage returns the error field as text, or "" when it is absent or falsy.
func errorMessage(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", "false", `""`:
		return ""
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	return string(trimmed)
}

package recognition

import (
	"context"
	"strings"
	"testing"

	"OCRPortal/internal/domain"
)

type stubRecognizer struct {
	name string
	text string
}

func (s stubRecognizer) Name() string { return s.name }

func (s stubRecognizer) Recognize(context.Context, string) (domain.ProcessingResult, error) {
	return domain.ProcessingResult{ExtractedText: s.text}, nil
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(stubRecognizer{name: "notebook", text: "first"})
	reg.Register(stubRecognizer{name: "remote"})
	reg.Register(stubRecognizer{name: "notebook", text: "second"})
	reg.Register(nil)

	rec, err := reg.Resolve("notebook")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	res, _ := rec.Recognize(context.Background(), "img.png")
	if res.ExtractedText != "second" {
		t.Fatalf("later registration must replace earlier one, got %q", res.ExtractedText)
	}

	names := reg.Names()
	if len(names) != 2 || names[0] != "notebook" || names[1] != "remote" {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestRegistryResolveUnknown(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(stubRecognizer{name: "notebook"})

	_, err := reg.Resolve("tesseract")
	if err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	if !strings.Contains(err.Error(), "tesseract") || !strings.Contains(err.Error(), "notebook") {
		t.Fatalf("error should name the backend and the alternatives: %v", err)
	}
}

func TestZeroRegistry(t *testing.T) {
	t.Parallel()

	var reg Registry
	reg.Register(stubRecognizer{name: "remote"})
	if _, err := reg.Resolve("remote"); err != nil {
		t.Fatalf("zero registry should accept registrations: %v", err)
	}
}

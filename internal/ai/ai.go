package ai

import (
	"context"
	"strings"

	"github.com/thywilljoshua/pdf-to-pptx/internal/ocr"
)

// Enhancer is an optional model-backed helper for the conversion.
type Enhancer interface {
	Transcribe(ctx context.Context, image []byte, mimeType string) (string, error)
	SuggestTitle(ctx context.Context, firstPage string) (string, error)
}

type Noop struct{}

func (Noop) Transcribe(ctx context.Context, image []byte, mimeType string) (string, error) {
	return "", nil
}
func (Noop) SuggestTitle(ctx context.Context, firstPage string) (string, error) { return "", nil }

// OCR lets an Enhancer stand in for an OCR engine. It produces text only,
// no word boxes.
type OCR struct {
	Enhancer Enhancer
	Label    string
}

func (o OCR) Name() string {
	if o.Label == "" {
		return "ai"
	}
	return o.Label
}

func (o OCR) Recognize(ctx context.Context, image []byte) (ocr.Result, error) {
	text, err := o.Enhancer.Transcribe(ctx, image, "image/png")
	if err != nil {
		return ocr.Result{}, err
	}
	return ocr.Result{Text: strings.TrimSpace(text)}, nil
}

//go:build !ocr

package ocr

import (
	"context"
	"fmt"
)

// Gosseract is unavailable in this build; rebuild with -tags ocr to link
// libtesseract.
type Gosseract struct{}

func NewGosseract(dpi int, langs ...string) (*Gosseract, error) {
	return nil, fmt.Errorf("%w: gosseract support not compiled in; rebuild with -tags ocr", ErrUnavailable)
}

func (g *Gosseract) Name() string { return "gosseract" }

func (g *Gosseract) Recognize(ctx context.Context, img []byte) (Result, error) {
	return Result{}, fmt.Errorf("%w: gosseract support not compiled in", ErrUnavailable)
}

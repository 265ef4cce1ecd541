//go:build !ocr

package ocr

import (
	"context"
	"errors"
	"testing"
)

func TestNewGosseractReturnsUnavailable(t *testing.T) {
	g, err := NewGosseract(300, "eng")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if g != nil {
		t.Fatal("expected nil engine when gosseract is not compiled in")
	}
	var zero *Gosseract
	if _, err := zero.Recognize(context.Background(), nil); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Recognize: expected ErrUnavailable, got %v", err)
	}
}

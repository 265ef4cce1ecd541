package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/thywilljoshua/pdf-to-pptx/internal/ocr"
	"github.com/thywilljoshua/pdf-to-pptx/internal/pdftest"
)

type fakeEngine struct {
	text  string
	err   error
	panic bool
	calls int
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Recognize(ctx context.Context, image []byte) (ocr.Result, error) {
	f.calls++
	if f.panic {
		panic("boom")
	}
	if f.err != nil {
		return ocr.Result{}, f.err
	}
	return ocr.Result{Text: f.text, Words: []ocr.Word{{Text: f.text}}}, nil
}

func TestTextLayer(t *testing.T) {
	doc := pdftest.Document("Hello World\nSecond line", "", "Third (page)")
	layer, err := TextLayer(doc)
	if err != nil {
		t.Fatalf("TextLayer error: %v", err)
	}
	if len(layer) != 3 {
		t.Fatalf("got %d pages, want 3", len(layer))
	}
	if got := layer.Page(1); got != "Hello World\nSecond line" {
		t.Fatalf("page 1 = %q", got)
	}
	if got := layer.Page(2); got != "" {
		t.Fatalf("page 2 = %q, want empty", got)
	}
	if got := layer.Page(3); got != "Third (page)" {
		t.Fatalf("page 3 = %q", got)
	}
	if got := layer.Page(4); got != "" {
		t.Fatalf("out of range page = %q", got)
	}
}

func TestTextLayerRejectsGarbage(t *testing.T) {
	if _, err := TextLayer([]byte("nope")); err == nil {
		t.Fatal("expected error")
	}
}

func TestExtractPrefersTextLayer(t *testing.T) {
	eng := &fakeEngine{text: "from ocr"}
	out := New(eng).Extract(context.Background(), nil, "This page has plenty of embedded text")
	if out.Source != SourceTextLayer {
		t.Fatalf("Source = %q", out.Source)
	}
	if eng.calls != 0 {
		t.Fatalf("OCR called %d times", eng.calls)
	}
}

func TestExtractFallsBackToOCR(t *testing.T) {
	eng := &fakeEngine{text: "scanned  words\r\nhere"}
	out := New(eng).Extract(context.Background(), []byte("png"), "")
	if out.Source != SourceOCR {
		t.Fatalf("Source = %q", out.Source)
	}
	if out.Text != "scanned words\nhere" {
		t.Fatalf("Text = %q", out.Text)
	}
	if len(out.Words) != 1 {
		t.Fatalf("expected OCR words to be kept")
	}
}

func TestExtractAbsorbsOCRFailure(t *testing.T) {
	tests := []struct {
		name   string
		engine *fakeEngine
		layer  string
		want   string
		source Source
	}{
		{"error, no layer", &fakeEngine{err: errors.New("unreadable")}, "", "", SourceNone},
		{"panic, no layer", &fakeEngine{panic: true}, "", "", SourceNone},
		{"error keeps short layer", &fakeEngine{err: errors.New("unreadable")}, "Fig. 2", "Fig. 2", SourceTextLayer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := New(tt.engine).Extract(context.Background(), []byte("png"), tt.layer)
			if out.Err == nil {
				t.Fatal("expected the absorbed error to be reported")
			}
			if out.Text != tt.want || out.Source != tt.source {
				t.Fatalf("got (%q, %q), want (%q, %q)", out.Text, out.Source, tt.want, tt.source)
			}
		})
	}
}

func TestExtractEmptyOCRKeepsShortLayer(t *testing.T) {
	eng := &fakeEngine{text: "  \n "}
	out := New(eng).Extract(context.Background(), []byte("png"), "Fig. 2")
	if eng.calls != 1 {
		t.Fatalf("OCR ran %d times, want 1", eng.calls)
	}
	if out.Text != "Fig. 2" || out.Source != SourceTextLayer || out.Err != nil {
		t.Fatalf("unexpected output: %+v", out)
	}

	out = New(&fakeEngine{}).Extract(context.Background(), []byte("png"), "")
	if out.Text != "" || out.Source != SourceOCR {
		t.Fatalf("empty OCR on a blank layer: %+v", out)
	}
}

func TestExtractWithoutEngine(t *testing.T) {
	out := New(nil).Extract(context.Background(), nil, "")
	if out.Source != SourceNone || out.Text != "" || out.Err != nil {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  a   b  ", "a b"},
		{"\n\nfirst\n\n\n\nsecond\n", "first\n\nsecond"},
		{"tab\there", "tab here"},
		{"bell\x07char", "bellchar"},
		{"e\u0301", "\u00e9"},
		{"form\ffeed", "form\nfeed"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if strings.ContainsRune(Normalize("x\uFFFEy"), 0xFFFE) {
		t.Error("U+FFFE survived normalization")
	}
}

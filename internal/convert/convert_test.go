package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/thywilljoshua/pdf-to-pptx/internal/extract"
	"github.com/thywilljoshua/pdf-to-pptx/internal/ocr"
	"github.com/thywilljoshua/pdf-to-pptx/internal/pdftest"
	"github.com/thywilljoshua/pdf-to-pptx/internal/render"
	"github.com/thywilljoshua/pdf-to-pptx/internal/slides"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// fakeRenderer validates like the real renderer and returns one small
// PNG per page.
type fakeRenderer struct{}

func (fakeRenderer) Render(ctx context.Context, data []byte) ([]render.Image, error) {
	n, err := render.Validate(data)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// pdftoppm would fail on a document no parser can read.
		return nil, &render.RenderError{Op: "rasterize", Err: errors.New("unreadable document")}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 17, 22))); err != nil {
		return nil, err
	}
	images := make([]render.Image, n)
	for i := range images {
		images[i] = render.Image{Page: i + 1, PNG: buf.Bytes(), Width: 17, Height: 22, DPI: 200}
	}
	return images, nil
}

// pageEngine answers per call, in page order. Pages listed in fail error.
type pageEngine struct {
	fail  map[int]bool
	words map[int][]ocr.Word
	calls int
}

func (e *pageEngine) Name() string { return "page-engine" }

func (e *pageEngine) Recognize(ctx context.Context, img []byte) (ocr.Result, error) {
	e.calls++
	if e.fail[e.calls] {
		return ocr.Result{}, errors.New("unreadable page")
	}
	return ocr.Result{Text: fmt.Sprintf("text of page %d", e.calls), Words: e.words[e.calls]}, nil
}

type titleEnhancer struct{ title string }

func (t titleEnhancer) Transcribe(ctx context.Context, image []byte, mimeType string) (string, error) {
	return "", nil
}

func (t titleEnhancer) SuggestTitle(ctx context.Context, firstPage string) (string, error) {
	return t.title, nil
}

func baseConfig(engine ocr.Engine) Config {
	return Config{Renderer: fakeRenderer{}, OCR: engine, Now: fixedNow}
}

func deckTexts(t *testing.T, data []byte) []string {
	t.Helper()
	deck, err := slides.InspectBytes(data)
	if err != nil {
		t.Fatalf("Inspect error: %v", err)
	}
	texts := make([]string, len(deck.Slides))
	for i, s := range deck.Slides {
		texts[i] = s.Text()
	}
	return texts
}

func TestRunOneSlidePerPageWithOCRFailure(t *testing.T) {
	doc := pdftest.Document("", "", "")
	engine := &pageEngine{fail: map[int]bool{2: true}}

	res, err := Run(context.Background(), "scan.pdf", doc, baseConfig(engine))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Slides != 3 || len(res.Pages) != 3 {
		t.Fatalf("got %d slides / %d pages, want 3", res.Slides, len(res.Pages))
	}
	want := []string{"text of page 1", "", "text of page 3"}
	got := deckTexts(t, res.Data)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slide %d text = %q, want %q", i+1, got[i], want[i])
		}
	}
	if res.Pages[1].Error == "" || res.Pages[1].Source != extract.SourceNone {
		t.Fatalf("page 2 should record the absorbed failure: %+v", res.Pages[1])
	}
	for i, p := range res.Pages {
		if p.Index != i+1 {
			t.Fatalf("page %d has index %d", i, p.Index)
		}
	}
}

func TestRunCorruptInput(t *testing.T) {
	for _, r := range []render.Renderer{fakeRenderer{}, render.NewPdftoppm(72)} {
		res, err := Run(context.Background(), "bad.pdf", []byte("definitely not a pdf"), Config{Renderer: r})
		var re *render.RenderError
		if !errors.As(err, &re) {
			t.Fatalf("expected RenderError, got %v", err)
		}
		if res.Slides != 0 || res.Data != nil {
			t.Fatalf("expected no output, got %+v", res)
		}
	}
}

func TestRunUsesTextLayer(t *testing.T) {
	doc := pdftest.Document("Annual Report Overview\nbody text on the cover", "Second page with enough text")
	engine := &pageEngine{}

	res, err := Run(context.Background(), "report.pdf", doc, baseConfig(engine))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if engine.calls != 0 {
		t.Fatalf("OCR ran %d times on pages with a text layer", engine.calls)
	}
	if res.Title != "Annual Report Overview" {
		t.Fatalf("Title = %q", res.Title)
	}
	if res.FileName != "Annual Report Overview.pptx" {
		t.Fatalf("FileName = %q", res.FileName)
	}
	got := deckTexts(t, res.Data)
	if got[0] != "Annual Report Overview\nbody text on the cover" || got[1] != "Second page with enough text" {
		t.Fatalf("unexpected slide texts: %q", got)
	}
}

func TestRunTitleFromOCRWords(t *testing.T) {
	words := []ocr.Word{
		{Text: "small", Line: 1, Confidence: 90, Box: image.Rect(0, 0, 50, 10)},
		{Text: "Big", Line: 2, Confidence: 90, Box: image.Rect(0, 40, 50, 80)},
		{Text: "Title", Line: 2, Confidence: 90, Box: image.Rect(60, 40, 120, 80)},
	}
	engine := &pageEngine{words: map[int][]ocr.Word{1: words}}
	res, err := Run(context.Background(), "x.pdf", pdftest.Document(""), baseConfig(engine))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Title != "Big Title" {
		t.Fatalf("Title = %q", res.Title)
	}
}

func TestRunTitleFromEnhancer(t *testing.T) {
	cfg := baseConfig(nil)
	cfg.Enhancer = titleEnhancer{title: "Suggested Title"}
	res, err := Run(context.Background(), "x.pdf", pdftest.Document("Some cover page text here"), cfg)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Title != "Suggested Title" {
		t.Fatalf("Title = %q", res.Title)
	}
}

func TestRunTitleFallsBackToFileName(t *testing.T) {
	res, err := Run(context.Background(), "uploads/scan 7.pdf", pdftest.Document("", ""), baseConfig(nil))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Title != "scan 7" || res.FileName != "scan 7.pptx" {
		t.Fatalf("got title %q, file %q", res.Title, res.FileName)
	}
	if res.Slides != 2 {
		t.Fatalf("got %d slides", res.Slides)
	}
}

func TestRunIsRepeatable(t *testing.T) {
	doc := pdftest.Document("first page words here", "", "third page words here")
	a, err := Run(context.Background(), "a.pdf", doc, baseConfig(&pageEngine{}))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Run(context.Background(), "a.pdf", doc, baseConfig(&pageEngine{}))
	if err != nil {
		t.Fatal(err)
	}
	if a.Slides != b.Slides {
		t.Fatalf("slide counts differ: %d vs %d", a.Slides, b.Slides)
	}
	ta, tb := deckTexts(t, a.Data), deckTexts(t, b.Data)
	for i := range ta {
		if ta[i] != tb[i] {
			t.Fatalf("slide %d differs: %q vs %q", i+1, ta[i], tb[i])
		}
	}
	if !bytes.Equal(a.Data, b.Data) {
		t.Fatal("identical runs produced different decks")
	}
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, "a.pdf", pdftest.Document("x"), baseConfig(nil))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunReportsProgress(t *testing.T) {
	var out bytes.Buffer
	cfg := baseConfig(&pageEngine{fail: map[int]bool{1: true}})
	cfg.Progress = &out
	if _, err := Run(context.Background(), "p.pdf", pdftest.Document(""), cfg); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Page 1: text extraction failed") {
		t.Fatalf("progress output missing warning:\n%s", out.String())
	}
}

func TestRunAll(t *testing.T) {
	files := []File{
		{Name: "good.pdf", Data: pdftest.Document("Good document title text")},
		{Name: "bad.pdf", Data: []byte("nope")},
		{Name: "also.pdf", Data: pdftest.Document("Another good document", "page two")},
	}
	results, errs := RunAll(context.Background(), files, baseConfig(nil))
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if len(errs) != 1 || !strings.HasPrefix(errs[0].Error(), "bad.pdf: ") {
		t.Fatalf("unexpected errors: %v", errs)
	}
	var fe *FileError
	if !errors.As(errs[0], &fe) || fe.Name != "bad.pdf" {
		t.Fatalf("expected FileError for bad.pdf, got %v", errs[0])
	}
	var re *render.RenderError
	if !errors.As(errs[0], &re) {
		t.Fatalf("expected wrapped RenderError, got %v", errs[0])
	}
	if results[1].Slides != 2 {
		t.Fatalf("second result has %d slides", results[1].Slides)
	}
}

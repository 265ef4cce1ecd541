package web

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/thywilljoshua/pdf-to-pptx/internal/convert"
	"github.com/thywilljoshua/pdf-to-pptx/internal/pdftest"
	"github.com/thywilljoshua/pdf-to-pptx/internal/render"
	"github.com/thywilljoshua/pdf-to-pptx/internal/slides"
)

type fakeRenderer struct{ badImage bool }

func (f fakeRenderer) Render(ctx context.Context, data []byte) ([]render.Image, error) {
	n, err := render.Validate(data)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// pdftoppm would fail on a document no parser can read.
		return nil, &render.RenderError{Op: "rasterize", Err: errors.New("unreadable document")}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))); err != nil {
		return nil, err
	}
	img := buf.Bytes()
	if f.badImage {
		img = []byte("not an image")
	}
	out := make([]render.Image, n)
	for i := range out {
		out[i] = render.Image{Page: i + 1, PNG: img, Width: 8, Height: 8, DPI: 200}
	}
	return out, nil
}

type upload struct {
	name string
	data []byte
}

func newTestServer(t *testing.T, r render.Renderer, maxBytes int64) http.Handler {
	t.Helper()
	s, err := New(Config{
		MaxUploadBytes: maxBytes,
		Convert: convert.Config{
			Renderer: r,
			Now:      time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		},
		Logger: log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return s.Handler()
}

func postFiles(t *testing.T, h http.Handler, files ...upload) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, files...))
	return rec
}

func uploadRequest(t *testing.T, files ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		w, err := mw.CreateFormFile("files", f.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(f.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/convert", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestIndexAndHealth(t *testing.T) {
	h := newTestServer(t, fakeRenderer{}, 0)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `name="files"`) {
		t.Fatalf("index: %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown path: %d", rec.Code)
	}
}

func TestConvertSinglePDF(t *testing.T) {
	h := newTestServer(t, fakeRenderer{}, 0)
	doc := pdftest.Document("Board Meeting Notes\nagenda items follow", "second page text goes here")

	rec := postFiles(t, h, upload{"notes.pdf", doc})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != slides.MediaType {
		t.Fatalf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "Board Meeting Notes.pptx") {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	if w := rec.Header().Get(WarningsHeader); w != "" {
		t.Fatalf("unexpected warnings %q", w)
	}
	deck, err := slides.InspectBytes(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("Inspect error: %v", err)
	}
	if len(deck.Slides) != 2 || deck.Title != "Board Meeting Notes" {
		t.Fatalf("got %d slides titled %q", len(deck.Slides), deck.Title)
	}
}

func TestConvertSeveralFilesBundles(t *testing.T) {
	h := newTestServer(t, fakeRenderer{}, 0)
	rec := postFiles(t, h,
		upload{"a.pdf", pdftest.Document("First deck title line")},
		upload{"b.pdf", pdftest.Document("Second deck title line")},
	)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, convert.BundleName) {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	b := rec.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		t.Fatalf("bundle is not a zip: %v", err)
	}
	if len(zr.File) != 2 || zr.File[0].Name != "First deck title line.pptx" {
		t.Fatalf("unexpected bundle entries")
	}
}

func TestConvertPartialFailure(t *testing.T) {
	h := newTestServer(t, fakeRenderer{}, 0)
	rec := postFiles(t, h,
		upload{"good.pdf", pdftest.Document("A perfectly fine page")},
		upload{"bad.pdf", []byte("%PDF-1.4\ngarbage")},
		upload{"notes.txt", []byte("hello")},
	)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	w := rec.Header().Get(WarningsHeader)
	if !strings.Contains(w, "Unsupported file type: notes.txt") || !strings.Contains(w, "bad.pdf: invalid or corrupted PDF file") {
		t.Fatalf("warnings = %q", w)
	}
	if ct := rec.Header().Get("Content-Type"); ct != slides.MediaType {
		t.Fatalf("Content-Type = %q", ct)
	}
}

func TestConvertErrors(t *testing.T) {
	tests := []struct {
		name     string
		renderer render.Renderer
		maxBytes int64
		files    []upload
		status   int
		message  string
	}{
		{"corrupt pdf", fakeRenderer{}, 0, []upload{{"broken.pdf", []byte("%PDF-1.7 but nothing else")}}, http.StatusUnprocessableEntity, "broken.pdf: invalid or corrupted PDF file"},
		{"wrong type", fakeRenderer{}, 0, []upload{{"photo.png", []byte("\x89PNG")}}, http.StatusUnprocessableEntity, "Unsupported file type: photo.png"},
		{"bad zip", fakeRenderer{}, 0, []upload{{"docs.zip", []byte("PK nope")}}, http.StatusUnprocessableEntity, "Invalid ZIP file provided"},
		{"no files", fakeRenderer{}, 0, nil, http.StatusUnprocessableEntity, "No file selected"},
		{"build failure", fakeRenderer{badImage: true}, 0, []upload{{"ok.pdf", pdftest.Document("x")}}, http.StatusInternalServerError, "ok.pdf: could not generate the presentation"},
		{"too large", fakeRenderer{}, 64, []upload{{"big.pdf", pdftest.Document("x")}}, http.StatusRequestEntityTooLarge, "Upload is larger than"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, tt.renderer, tt.maxBytes)
			rec := postFiles(t, h, tt.files...)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.message) {
				t.Fatalf("body missing %q:\n%s", tt.message, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), `name="files"`) {
				t.Fatal("error response should re-render the form")
			}
		})
	}
}

func TestConvertTooLargeWithoutLength(t *testing.T) {
	h := newTestServer(t, fakeRenderer{}, 64)
	req := uploadRequest(t, upload{"big.pdf", pdftest.Document("x")})
	req.ContentLength = -1

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusRequestEntityTooLarge, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Upload is larger than") {
		t.Fatalf("body missing size message:\n%s", rec.Body.String())
	}
}

func TestHeaderValue(t *testing.T) {
	got := headerValue([]string{"a\r\nb", "c"})
	if got != "a  b; c" {
		t.Fatalf("headerValue = %q", got)
	}
}

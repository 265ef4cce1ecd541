// Package render rasterizes PDF documents into one image per page.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	rpdf "rsc.io/pdf"
)

func init() {
	// Keep pdfcpu from creating a configuration directory on first use.
	model.ConfigPath = "disable"
}

// DefaultDPI matches the resolution the web converter has always used.
const DefaultDPI = 300

var (
	// ErrNotPDF is returned for input without a PDF header.
	ErrNotPDF = errors.New("not a PDF document")
	// ErrNoPages is returned for documents with an empty page tree.
	ErrNoPages = errors.New("document has no pages")
	// ErrUnavailable is returned when the rasterizer binary cannot be found.
	ErrUnavailable = errors.New("pdftoppm is not installed or not on PATH")
)

// lookPath is replaced in tests to simulate a missing rasterizer.
var lookPath = exec.LookPath

// Image is one rendered page.
type Image struct {
	Page   int // 1-based
	PNG    []byte
	Width  int
	Height int
	DPI    int
}

// Renderer turns PDF bytes into page images, in page order.
type Renderer interface {
	Render(ctx context.Context, data []byte) ([]Image, error)
}

// RenderError reports a document that could not be rasterized. Any
// RenderError aborts the whole conversion.
type RenderError struct {
	Op   string // validate, parse, rasterize, decode
	Page int    // 0 when not page specific
	Err  error
}

func (e *RenderError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("render %s page %d: %v", e.Op, e.Page, e.Err)
	}
	return fmt.Sprintf("render %s: %v", e.Op, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// IsPDF checks the %PDF magic number.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF"))
}

// PageCount parses the document and returns its number of pages. rsc.io/pdf
// is tried first; pdfcpu reads what it rejects, such as PDF 2.0 headers,
// bytes after %%EOF and AES-256 encryption.
func PageCount(data []byte) (int, error) {
	n, err := rscPageCount(data)
	if err == nil {
		return n, nil
	}
	n, cpuErr := pdfcpuPageCount(data)
	if cpuErr == nil {
		return n, nil
	}
	return 0, fmt.Errorf("%v; pdfcpu: %w", err, cpuErr)
}

func rscPageCount(data []byte) (n int, err error) {
	// rsc.io/pdf panics on some malformed object graphs.
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	r, err := rpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return r.NumPage(), nil
}

func pdfcpuPageCount(data []byte) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return pdfapi.PageCount(bytes.NewReader(data), conf)
}

// Validate runs the checks every renderer performs before rasterizing. It
// returns the page count, or 0 when no parser could read the document; the
// rasterizer then decides whether the file is usable.
func Validate(data []byte) (int, error) {
	if !IsPDF(data) {
		return 0, &RenderError{Op: "validate", Err: ErrNotPDF}
	}
	n, err := PageCount(data)
	if err != nil {
		return 0, nil
	}
	if n == 0 {
		return 0, &RenderError{Op: "parse", Err: ErrNoPages}
	}
	return n, nil
}

// Pdftoppm rasterizes with the poppler-utils pdftoppm binary.
type Pdftoppm struct {
	DPI    int
	Binary string
}

func NewPdftoppm(dpi int) *Pdftoppm {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Pdftoppm{DPI: dpi, Binary: "pdftoppm"}
}

func (p *Pdftoppm) Render(ctx context.Context, data []byte) ([]Image, error) {
	n, err := Validate(data)
	if err != nil {
		return nil, err
	}
	bin := p.Binary
	if bin == "" {
		bin = "pdftoppm"
	}
	path, err := lookPath(bin)
	if err != nil {
		return nil, &RenderError{Op: "rasterize", Err: ErrUnavailable}
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	dir, err := os.MkdirTemp("", "pdf2pptx-render-*")
	if err != nil {
		return nil, &RenderError{Op: "rasterize", Err: err}
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, &RenderError{Op: "rasterize", Err: err}
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "-r", strconv.Itoa(dpi), "-png", in, filepath.Join(dir, "page"))
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, &RenderError{Op: "rasterize", Err: err}
	}

	files, err := pageFiles(dir)
	if err != nil {
		return nil, &RenderError{Op: "rasterize", Err: err}
	}
	if len(files) == 0 {
		return nil, &RenderError{Op: "rasterize", Err: ErrNoPages}
	}
	if n > 0 && len(files) != n {
		return nil, &RenderError{Op: "rasterize", Err: fmt.Errorf("expected %d page images, got %d", n, len(files))}
	}

	images := make([]Image, 0, len(files))
	for i, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, &RenderError{Op: "decode", Page: i + 1, Err: err}
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(b))
		if err != nil {
			return nil, &RenderError{Op: "decode", Page: i + 1, Err: err}
		}
		images = append(images, Image{Page: i + 1, PNG: b, Width: cfg.Width, Height: cfg.Height, DPI: dpi})
	}
	return images, nil
}

var pageFileRe = regexp.MustCompile(`^page-(\d+)\.png$`)

// pageFiles lists pdftoppm output sorted by page number. pdftoppm pads the
// number to the width of the page count, so lexical order is not enough.
func pageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	type numbered struct {
		page int
		path string
	}
	var out []numbered
	for _, e := range entries {
		m := pageFileRe.FindStringSubmatch(e.Name())
		if len(m) != 2 {
			continue
		}
		pg, _ := strconv.Atoi(m[1])
		out = append(out, numbered{page: pg, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].page < out[j].page })
	paths := make([]string, len(out))
	for i, f := range out {
		paths[i] = f.path
	}
	return paths, nil
}

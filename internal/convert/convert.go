// Package convert runs the PDF to PowerPoint pipeline: render every page,
// extract its text, and emit one slide per page in page order.
package convert

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/thywilljoshua/pdf-to-pptx/internal/extract"
	"github.com/thywilljoshua/pdf-to-pptx/internal/ocr"
	"github.com/thywilljoshua/pdf-to-pptx/internal/render"
	"github.com/thywilljoshua/pdf-to-pptx/internal/slides"
)

// Run converts one PDF. A *render.RenderError means the input was not a
// usable PDF; a *slides.BuildError means the deck could not be written.
// Per-page extraction failures never fail the run; they are reported on
// the page.
func Run(ctx context.Context, name string, data []byte, cfg Config) (Result, error) {
	out := cfg.Progress
	if out == nil {
		out = io.Discard
	}
	renderer := cfg.Renderer
	if renderer == nil {
		renderer = render.NewPdftoppm(render.DefaultDPI)
	}

	fmt.Fprintf(out, "📄 Rendering %s\n", name)
	images, err := renderer.Render(ctx, data)
	if err != nil {
		return Result{}, err
	}
	if len(images) == 0 {
		return Result{}, &render.RenderError{Op: "rasterize", Err: render.ErrNoPages}
	}

	layer, err := extract.TextLayer(data)
	if err != nil {
		// The renderer accepted the file, so OCR can still cover every page.
		fmt.Fprintf(out, "⚠️  No readable text layer in %s: %v\n", name, err)
	}

	ex := extract.New(cfg.OCR)
	if cfg.MinTextLayerRunes > 0 {
		ex.MinTextLayerRunes = cfg.MinTextLayerRunes
	}

	doc := Document{Name: name, Pages: make([]Page, 0, len(images))}
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		idx := i + 1
		res := ex.Extract(ctx, img.PNG, layer.Page(idx))
		p := Page{Index: idx, Image: img, Text: res.Text, Source: res.Source, Words: res.Words}
		if res.Err != nil {
			p.Error = res.Err.Error()
			fmt.Fprintf(out, "⚠️  Page %d: text extraction failed, continuing with empty text: %v\n", idx, res.Err)
		}
		fmt.Fprintf(out, "   page %d/%d: %s, %d chars\n", idx, len(images), p.Source, len([]rune(p.Text)))
		doc.Pages = append(doc.Pages, p)
	}

	title := deriveTitle(ctx, doc, cfg)
	pres := slides.Presentation{Title: title, Slides: make([]slides.Slide, len(doc.Pages))}
	for i, p := range doc.Pages {
		pres.Slides[i] = slides.Slide{Page: p.Index, Image: p.Image.PNG, Text: p.Text}
	}

	b, err := slides.Build(pres, slides.Options{
		Layout:        cfg.Layout,
		MaxImageWidth: cfg.MaxImageWidth,
		Now:           cfg.Now,
	})
	if err != nil {
		return Result{}, err
	}

	fileName := sanitizeFileName(title) + ".pptx"
	fmt.Fprintf(out, "✅ %s: %d slides\n", fileName, len(pres.Slides))
	return Result{
		FileName: fileName,
		Title:    title,
		Slides:   len(pres.Slides),
		Pages:    doc.Pages,
		Data:     b,
	}, nil
}

// deriveTitle prefers the OCR title heuristic on page 1, then a model
// suggestion, then the first plain line of page 1, then the file name.
func deriveTitle(ctx context.Context, doc Document, cfg Config) string {
	fallback := baseName(doc.Name)
	if len(doc.Pages) == 0 {
		return fallback
	}
	first := doc.Pages[0]

	if len(first.Words) > 0 {
		if t := ocr.Title(first.Words, first.Image.DPI); t != "" {
			return truncateRunes(t, maxTitleRunes)
		}
	}
	if cfg.Enhancer != nil && first.Text != "" {
		if t, err := cfg.Enhancer.SuggestTitle(ctx, first.Text); err == nil && strings.TrimSpace(t) != "" {
			return truncateRunes(strings.TrimSpace(t), maxTitleRunes)
		}
	}
	for _, ln := range firstLines(first.Text) {
		if !ocr.IsBoilerplate(ln) {
			return truncateRunes(ln, maxTitleRunes)
		}
	}
	if fallback == "" || fallback == "." || fallback == "/" {
		return "presentation"
	}
	return fallback
}

// FileError ties a failed conversion to its upload name.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string { return e.Name + ": " + e.Err.Error() }

func (e *FileError) Unwrap() error { return e.Err }

// RunAll converts files one after another. A failing file does not stop
// the others; its error is returned in errs as a *FileError.
func RunAll(ctx context.Context, files []File, cfg Config) (results []Result, errs []error) {
	for i, f := range files {
		if cfg.Progress != nil {
			fmt.Fprintf(cfg.Progress, "Processing %s (%d/%d)\n", f.Name, i+1, len(files))
		}
		res, err := Run(ctx, f.Name, f.Data, cfg)
		if err != nil {
			errs = append(errs, &FileError{Name: f.Name, Err: err})
			if ctx.Err() != nil {
				return results, errs
			}
			continue
		}
		results = append(results, res)
	}
	return results, errs
}

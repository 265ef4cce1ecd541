package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/thywilljoshua/pdf-to-pptx/internal/ai"
	"github.com/thywilljoshua/pdf-to-pptx/internal/convert"
	"github.com/thywilljoshua/pdf-to-pptx/internal/ocr"
	"github.com/thywilljoshua/pdf-to-pptx/internal/render"
	"github.com/thywilljoshua/pdf-to-pptx/internal/slides"
)

// pipelineFlags are shared by serve and convert.
type pipelineFlags struct {
	dpi      int
	layout   string
	ocr      string
	langs    []string
	ai       string
	model    string
	minText  int
	maxWidth int
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.dpi, "dpi", render.DefaultDPI, "rasterization resolution")
	cmd.Flags().StringVar(&f.layout, "layout", string(slides.LayoutImage), "slide layout: image|text|split")
	cmd.Flags().StringVar(&f.ocr, "ocr", "tesseract", "OCR engine for pages without a text layer: tesseract|gosseract|gemini|off")
	cmd.Flags().StringSliceVar(&f.langs, "lang", []string{"eng"}, "OCR languages (tesseract codes)")
	cmd.Flags().StringVar(&f.ai, "ai", "off", "AI provider for title suggestions: off|gemini")
	cmd.Flags().StringVar(&f.model, "model", ai.DefaultModel, "Gemini model")
	cmd.Flags().IntVar(&f.minText, "min-text", 0, "minimum text-layer characters before OCR is skipped (0: default)")
	cmd.Flags().IntVar(&f.maxWidth, "max-image-width", slides.DefaultMaxImageWidth, "downscale page images wider than this")
}

// config assembles a convert.Config from the flags. GOOGLE_API_KEY is read
// only when Gemini is selected.
func (f *pipelineFlags) config(ctx context.Context) (convert.Config, error) {
	layout, err := slides.ParseLayout(f.layout)
	if err != nil {
		return convert.Config{}, err
	}

	var gemini *ai.Gemini
	useGemini := strings.EqualFold(f.ocr, "gemini") || strings.EqualFold(f.ai, "gemini")
	if useGemini {
		gemini, err = ai.NewGemini(ctx, os.Getenv("GOOGLE_API_KEY"), f.model)
		if err != nil {
			return convert.Config{}, fmt.Errorf("gemini: %w", err)
		}
	}

	var engine ocr.Engine
	switch strings.ToLower(f.ocr) {
	case "tesseract":
		engine = ocr.NewTesseract(f.dpi, f.langs...)
	case "gosseract":
		g, err := ocr.NewGosseract(f.dpi, f.langs...)
		if err != nil {
			return convert.Config{}, err
		}
		engine = g
	case "gemini":
		engine = ai.OCR{Enhancer: gemini, Label: "gemini"}
	case "off", "":
	default:
		return convert.Config{}, fmt.Errorf("unknown OCR engine %q", f.ocr)
	}

	now, err := sourceDate()
	if err != nil {
		return convert.Config{}, err
	}

	cfg := convert.Config{
		Now:               now,
		Renderer:          render.NewPdftoppm(f.dpi),
		OCR:               engine,
		Layout:            layout,
		MaxImageWidth:     f.maxWidth,
		MinTextLayerRunes: f.minText,
	}
	if strings.EqualFold(f.ai, "gemini") {
		cfg.Enhancer = gemini
	}
	return cfg, nil
}

// sourceDate reads SOURCE_DATE_EPOCH so rebuilt decks are byte for byte
// identical. Unset means the current time.
func sourceDate() (time.Time, error) {
	v := strings.TrimSpace(os.Getenv("SOURCE_DATE_EPOCH"))
	if v == "" {
		return time.Time{}, nil
	}
	sec, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("SOURCE_DATE_EPOCH: %w", err)
	}
	return time.Unix(sec, 0).UTC(), nil
}

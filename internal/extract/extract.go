// Package extract pulls the text of each rendered page, preferring the
// PDF's embedded text and falling back to OCR.
package extract

import (
	"context"
	"fmt"

	"github.com/thywilljoshua/pdf-to-pptx/internal/ocr"
)

// DefaultMinTextLayerRunes is the amount of embedded text below which a
// page is treated as scanned.
const DefaultMinTextLayerRunes = 16

// Source tells where a page's text came from.
type Source string

const (
	SourceTextLayer Source = "text-layer"
	SourceOCR       Source = "ocr"
	SourceNone      Source = "none"
)

// Output is the extraction result for one page.
type Output struct {
	Text   string
	Source Source
	Words  []ocr.Word // only set for OCR output
	Err    error      // the failure that was absorbed, if any
}

// Extractor decides per page between the text layer and OCR. A nil Engine
// disables OCR.
type Extractor struct {
	Engine            ocr.Engine
	MinTextLayerRunes int
}

func New(engine ocr.Engine) *Extractor {
	return &Extractor{Engine: engine, MinTextLayerRunes: DefaultMinTextLayerRunes}
}

// Extract never fails: when OCR errors, the page keeps whatever embedded
// text it had (usually none) and the error is reported in Output.Err.
func (e *Extractor) Extract(ctx context.Context, image []byte, layerText string) Output {
	layerText = Normalize(layerText)
	minRunes := e.MinTextLayerRunes
	if minRunes <= 0 {
		minRunes = DefaultMinTextLayerRunes
	}
	if letterCount(layerText) >= minRunes || e.Engine == nil {
		return fromLayer(layerText, nil)
	}

	res, err := e.recognize(ctx, image)
	if err != nil {
		return fromLayer(layerText, err)
	}
	text := Normalize(res.Text)
	if text == "" && layerText != "" {
		return fromLayer(layerText, nil)
	}
	return Output{Text: text, Source: SourceOCR, Words: res.Words}
}

func (e *Extractor) recognize(ctx context.Context, image []byte) (res ocr.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", e.Engine.Name(), r)
		}
	}()
	res, err = e.Engine.Recognize(ctx, image)
	if err != nil {
		return ocr.Result{}, fmt.Errorf("%s: %w", e.Engine.Name(), err)
	}
	return res, nil
}

func fromLayer(text string, err error) Output {
	if text == "" {
		return Output{Source: SourceNone, Err: err}
	}
	return Output{Text: text, Source: SourceTextLayer, Err: err}
}

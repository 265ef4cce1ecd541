// Package ocr recognizes text in rendered page images.
//
// Engines are small adapters over an OCR provider: the tesseract binary,
// libtesseract through gosseract (build with -tags ocr), or a remote model.
package ocr

import (
	"context"
	"errors"
	"image"
	"sort"
	"strings"
)

// ErrUnavailable is returned when an engine's backend is not installed or
// not compiled in.
var ErrUnavailable = errors.New("ocr engine unavailable")

// Word is a single recognized token in pixel coordinates.
type Word struct {
	Text       string
	Box        image.Rectangle
	Confidence float64 // 0-100, negative when unknown
	Line       int     // identifies the text line across block and paragraph
}

// Result is the OCR output for one image.
type Result struct {
	Text  string
	Words []Word
}

// Engine recognizes text in an encoded image (PNG, JPEG, TIFF).
type Engine interface {
	Name() string
	Recognize(ctx context.Context, image []byte) (Result, error)
}

// lineKey packs tesseract's block/paragraph/line numbers into one key.
func lineKey(block, par, line int) int {
	return block*1_000_000 + par*1_000 + line
}

// Lines joins words into text lines, ordered by first appearance.
func Lines(words []Word) []string {
	var keys []int
	byKey := map[int][]string{}
	for _, w := range words {
		t := strings.TrimSpace(w.Text)
		if t == "" {
			continue
		}
		if _, ok := byKey[w.Line]; !ok {
			keys = append(keys, w.Line)
		}
		byKey[w.Line] = append(byKey[w.Line], t)
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.Join(byKey[k], " "))
	}
	return out
}

func sortByTop(words []Word) {
	sort.SliceStable(words, func(i, j int) bool { return words[i].Box.Min.Y < words[j].Box.Min.Y })
}

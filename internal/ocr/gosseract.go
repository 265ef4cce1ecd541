//go:build ocr

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Gosseract runs libtesseract in process. It requires the tesseract
// development headers at build time.
type Gosseract struct {
	Languages []string
	DPI       int
}

func NewGosseract(dpi int, langs ...string) (*Gosseract, error) {
	return &Gosseract{Languages: langs, DPI: dpi}, nil
}

func (g *Gosseract) Name() string { return "gosseract" }

func (g *Gosseract) Recognize(ctx context.Context, img []byte) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	c := gosseract.NewClient()
	defer c.Close()

	if len(g.Languages) > 0 {
		if err := c.SetLanguage(g.Languages...); err != nil {
			return Result{}, fmt.Errorf("set languages: %w", err)
		}
	}
	if g.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(g.DPI)); err != nil {
			return Result{}, fmt.Errorf("set dpi: %w", err)
		}
	}
	if err := c.SetImageFromBytes(img); err != nil {
		return Result{}, fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return Result{}, fmt.Errorf("recognize text: %w", err)
	}

	res := Result{Text: strings.TrimSpace(text)}
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		// Text without boxes is still usable; only the title heuristic
		// needs word geometry.
		return res, nil
	}
	for _, b := range boxes {
		res.Words = append(res.Words, Word{
			Text:       b.Word,
			Box:        b.Box,
			Confidence: b.Confidence,
			Line:       lineKey(b.BlockNum, b.ParNum, b.LineNum),
		})
	}
	return res, nil
}

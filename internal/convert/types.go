package convert

import (
	"io"
	"time"

	"github.com/thywilljoshua/pdf-to-pptx/internal/ai"
	"github.com/thywilljoshua/pdf-to-pptx/internal/extract"
	"github.com/thywilljoshua/pdf-to-pptx/internal/ocr"
	"github.com/thywilljoshua/pdf-to-pptx/internal/render"
	"github.com/thywilljoshua/pdf-to-pptx/internal/slides"
)

// Page is one page of the source document after extraction.
type Page struct {
	Index  int            `json:"index"` // 1-based
	Image  render.Image   `json:"-"`
	Text   string         `json:"text"`
	Source extract.Source `json:"source"`
	Error  string         `json:"error,omitempty"`
	Words  []ocr.Word     `json:"-"`
}

// Document is the ordered list of pages of one upload.
type Document struct {
	Name  string `json:"name"`
	Pages []Page `json:"pages"`
}

// Result is one finished conversion.
type Result struct {
	FileName string `json:"file"`
	Title    string `json:"title"`
	Slides   int    `json:"slides"`
	Pages    []Page `json:"pages"`
	Data     []byte `json:"-"`
}

// File is a named PDF waiting to be converted.
type File struct {
	Name string
	Data []byte
}

type Config struct {
	Renderer          render.Renderer
	OCR               ocr.Engine  // nil: text layer only
	Enhancer          ai.Enhancer // nil: no model-backed title suggestions
	Layout            slides.Layout
	MaxImageWidth     int
	MinTextLayerRunes int
	Progress          io.Writer // nil discards progress lines
	Now               time.Time // deck timestamp; zero uses time.Now
}

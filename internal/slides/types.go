// Package slides writes one-slide-per-page PowerPoint decks and reads them
// back.
package slides

import (
	"fmt"
	"strings"
	"time"
)

// MediaType is the MIME type of a .pptx file.
const MediaType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

// Layout selects how a page is placed on its slide.
type Layout string

const (
	// LayoutImage shows the page picture with a page label; the text is
	// kept as the picture's alt text.
	LayoutImage Layout = "image"
	// LayoutText shows only the extracted text.
	LayoutText Layout = "text"
	// LayoutSplit puts the picture on the left and the text on the right.
	LayoutSplit Layout = "split"
)

func ParseLayout(s string) (Layout, error) {
	switch l := Layout(strings.ToLower(strings.TrimSpace(s))); l {
	case "":
		return LayoutImage, nil
	case LayoutImage, LayoutText, LayoutSplit:
		return l, nil
	}
	return "", fmt.Errorf("unknown layout %q (want image, text or split)", s)
}

// Slide is the content of one page.
type Slide struct {
	Page  int    // 1-based page number shown on the slide
	Image []byte // PNG or JPEG; may be nil
	Text  string
}

// Presentation is an ordered list of slides, index-aligned with the pages
// of the source document.
type Presentation struct {
	Title  string
	Slides []Slide
}

// Options control Build.
type Options struct {
	Layout        Layout
	MaxImageWidth int       // pictures wider than this are downscaled; <= 0 uses DefaultMaxImageWidth
	Creator       string    // written to docProps/core.xml
	Now           time.Time // creation timestamp; zero uses time.Now
}

// DefaultMaxImageWidth keeps 300 DPI renders of letter pages from bloating
// the deck while staying sharp on a 4K screen.
const DefaultMaxImageWidth = 2000

// BuildError reports a failure while writing the package. It is fatal for
// the conversion.
type BuildError struct {
	Part string
	Err  error
}

func (e *BuildError) Error() string { return fmt.Sprintf("build %s: %v", e.Part, e.Err) }

func (e *BuildError) Unwrap() error { return e.Err }

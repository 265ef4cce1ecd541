package ocr

import (
	"regexp"
	"strings"
)

// boilerplate matches header and footer lines that are never a title.
var boilerplate = regexp.MustCompile(`(?i)Gartner.*Usage Policy|Copyright|Confidential|Page \d+`)

const (
	titleMinConfidence = 50
	// titleMinHeight is in pixels at titleBaseDPI.
	titleMinHeight = 15
	titleBaseDPI   = 200
)

// Title picks a document title from the words of the first page: the
// topmost line holding a confidently recognized, tall word. When no word
// qualifies, the first line that is not boilerplate is used. An empty
// string means nothing usable was found.
func Title(words []Word, dpi int) string {
	if dpi <= 0 {
		dpi = titleBaseDPI
	}
	minHeight := titleMinHeight * dpi / titleBaseDPI

	lineText := map[int]string{}
	for _, w := range words {
		t := strings.TrimSpace(w.Text)
		if t == "" {
			continue
		}
		if cur, ok := lineText[w.Line]; ok {
			lineText[w.Line] = cur + " " + t
		} else {
			lineText[w.Line] = t
		}
	}

	var candidates []Word
	for _, w := range words {
		if strings.TrimSpace(w.Text) == "" || w.Confidence <= titleMinConfidence {
			continue
		}
		if w.Box.Dy() > minHeight {
			candidates = append(candidates, w)
		}
	}
	sortByTop(candidates)

	for _, c := range candidates {
		line := strings.TrimSpace(lineText[c.Line])
		if line != "" && !boilerplate.MatchString(line) {
			return line
		}
	}

	for _, line := range Lines(words) {
		if line = strings.TrimSpace(line); line != "" && !boilerplate.MatchString(line) {
			return line
		}
	}
	return ""
}

// IsBoilerplate reports whether a line looks like a header or footer.
func IsBoilerplate(line string) bool {
	return boilerplate.MatchString(line)
}

package extract

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	rpdf "rsc.io/pdf"
)

// Layer holds the embedded text of each page; Layer[0] is page 1.
type Layer []string

// Page returns the text of a 1-based page, or "" when out of range.
func (l Layer) Page(n int) string {
	if n < 1 || n > len(l) {
		return ""
	}
	return l[n-1]
}

// TextLayer reads the text drawn by the document's own content streams.
// A page whose content cannot be decoded contributes an empty string.
func TextLayer(data []byte) (layer Layer, err error) {
	defer func() {
		if r := recover(); r != nil {
			layer, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	r, err := rpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	n := r.NumPage()
	layer = make(Layer, n)
	for i := 1; i <= n; i++ {
		layer[i-1] = pageText(r.Page(i))
	}
	return layer, nil
}

func pageText(p rpdf.Page) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = ""
		}
	}()
	if p.V.IsNull() {
		return ""
	}
	return joinGlyphs(p.Content().Text)
}

// joinGlyphs rebuilds lines from positioned glyphs: top to bottom, then
// left to right, with a space wherever the horizontal gap is wider than a
// fraction of the font size.
func joinGlyphs(glyphs []rpdf.Text) string {
	if len(glyphs) == 0 {
		return ""
	}
	g := make([]rpdf.Text, len(glyphs))
	copy(g, glyphs)
	sort.SliceStable(g, func(i, j int) bool { return g[i].Y > g[j].Y })

	var lines [][]rpdf.Text
	var cur []rpdf.Text
	for _, t := range g {
		if len(cur) > 0 {
			ref := cur[0]
			tol := math.Max(ref.FontSize, t.FontSize) / 2
			if math.Abs(ref.Y-t.Y) > tol {
				lines = append(lines, cur)
				cur = nil
			}
		}
		cur = append(cur, t)
	}
	lines = append(lines, cur)

	var b strings.Builder
	for i, line := range lines {
		sort.SliceStable(line, func(a, c int) bool { return line[a].X < line[c].X })
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, t := range line {
			if j > 0 {
				prev := line[j-1]
				if t.X-(prev.X+prev.W) > t.FontSize*0.2 {
					b.WriteByte(' ')
				}
			}
			b.WriteString(t.S)
		}
	}
	return b.String()
}

package slides

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/net/html/charset"
)

// Deck is what Inspect reads back from a .pptx file.
type Deck struct {
	Title  string      `json:"title"`
	Slides []SlideInfo `json:"slides"`
}

// SlideInfo describes one slide in presentation order.
type SlideInfo struct {
	Number   int     `json:"number"`
	Shapes   []Shape `json:"shapes"`
	Pictures int     `json:"pictures"`
}

// Shape is a named shape with its visible text and alt text.
type Shape struct {
	Name  string `json:"name"`
	Text  string `json:"text,omitempty"`
	Descr string `json:"descr,omitempty"`
}

// Text returns the page text of a slide written by Build: the text body
// when there is one, otherwise the picture's alt text.
func (s SlideInfo) Text() string {
	var alt string
	for _, sh := range s.Shapes {
		if sh.Name == shapeText {
			return sh.Text
		}
		if alt == "" && strings.HasSuffix(sh.Name, " Image") {
			alt = sh.Descr
		}
	}
	return alt
}

// Label returns the page label ("Page N"), if present.
func (s SlideInfo) Label() string {
	for _, sh := range s.Shapes {
		if sh.Name == shapeLabel {
			return sh.Text
		}
	}
	return ""
}

// InspectBytes is Inspect over an in-memory file.
func InspectBytes(b []byte) (Deck, error) {
	return Inspect(bytes.NewReader(b), int64(len(b)))
}

// Inspect reads slide order from ppt/presentation.xml and collects every
// slide's shapes.
func Inspect(r io.ReaderAt, size int64) (Deck, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return Deck{}, fmt.Errorf("opening ZIP archive: %w", err)
	}
	files := map[string]*zip.File{}
	for _, f := range zr.File {
		files[f.Name] = f
	}

	var deck Deck
	if b, err := readPart(files, "docProps/core.xml"); err == nil {
		deck.Title = coreTitle(b)
	}

	pres, err := readPart(files, "ppt/presentation.xml")
	if err != nil {
		return Deck{}, err
	}
	rels, err := readPart(files, "ppt/_rels/presentation.xml.rels")
	if err != nil {
		return Deck{}, err
	}
	targets, err := relTargets(rels)
	if err != nil {
		return Deck{}, fmt.Errorf("parsing presentation relationships: %w", err)
	}
	ids, err := slideRelIDs(pres)
	if err != nil {
		return Deck{}, fmt.Errorf("parsing presentation: %w", err)
	}

	for i, id := range ids {
		target, ok := targets[id]
		if !ok {
			return Deck{}, fmt.Errorf("slide %d: relationship %s not found", i+1, id)
		}
		b, err := readPart(files, path.Join("ppt", target))
		if err != nil {
			return Deck{}, err
		}
		info, err := parseSlide(b)
		if err != nil {
			return Deck{}, fmt.Errorf("parsing slide %d: %w", i+1, err)
		}
		info.Number = i + 1
		deck.Slides = append(deck.Slides, info)
	}
	return deck, nil
}

func readPart(files map[string]*zip.File, name string) ([]byte, error) {
	f, ok := files[name]
	if !ok {
		return nil, fmt.Errorf("file %s not found in package", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func newDecoder(b []byte) *xml.Decoder {
	d := xml.NewDecoder(bytes.NewReader(b))
	d.CharsetReader = charset.NewReaderLabel
	return d
}

func attr(e xml.StartElement, local string) string {
	for _, a := range e.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func relTargets(b []byte) (map[string]string, error) {
	out := map[string]string{}
	d := newDecoder(b)
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "Relationship" {
			out[attr(se, "Id")] = attr(se, "Target")
		}
	}
}

func slideRelIDs(b []byte) ([]string, error) {
	var ids []string
	d := newDecoder(b)
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return ids, nil
		}
		if err != nil {
			return nil, err
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "sldId" {
			for _, a := range se.Attr {
				// r:id, not the numeric slide id
				if a.Name.Local == "id" && a.Name.Space != "" {
					ids = append(ids, a.Value)
				}
			}
		}
	}
}

func coreTitle(b []byte) string {
	d := newDecoder(b)
	in := false
	var sb strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return sb.String()
		}
		switch e := tok.(type) {
		case xml.StartElement:
			in = e.Name.Local == "title"
		case xml.EndElement:
			if e.Name.Local == "title" {
				return sb.String()
			}
		case xml.CharData:
			if in {
				sb.Write(e)
			}
		}
	}
}

func parseSlide(b []byte) (SlideInfo, error) {
	var info SlideInfo
	var cur *Shape
	var paras []string
	var para strings.Builder
	inText := false

	d := newDecoder(b)
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return info, nil
		}
		if err != nil {
			return SlideInfo{}, err
		}
		switch e := tok.(type) {
		case xml.StartElement:
			switch e.Name.Local {
			case "sp", "pic":
				cur = &Shape{}
				paras = nil
				if e.Name.Local == "pic" {
					info.Pictures++
				}
			case "cNvPr":
				if cur != nil && cur.Name == "" {
					cur.Name = attr(e, "name")
					cur.Descr = attr(e, "descr")
				}
			case "p":
				para.Reset()
			case "t":
				inText = true
			}
		case xml.EndElement:
			switch e.Name.Local {
			case "t":
				inText = false
			case "p":
				if cur != nil {
					paras = append(paras, para.String())
				}
			case "sp", "pic":
				if cur != nil {
					cur.Text = strings.Join(paras, "\n")
					info.Shapes = append(info.Shapes, *cur)
					cur = nil
				}
			}
		case xml.CharData:
			if inText {
				para.Write(e)
			}
		}
	}
}

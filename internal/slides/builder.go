package slides

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"time"

	"golang.org/x/image/draw"
)

const defaultCreator = "pdf2pptx"

type picture struct {
	data []byte
	ext  string // png or jpeg
	w, h int
}

// Build writes p as a .pptx package. Slide i of the output shows
// p.Slides[i]; the order is never changed.
func Build(p Presentation, opts Options) ([]byte, error) {
	layout := opts.Layout
	if layout == "" {
		layout = LayoutImage
	}
	if _, err := ParseLayout(string(layout)); err != nil {
		return nil, &BuildError{Part: "options", Err: err}
	}
	maxW := opts.MaxImageWidth
	if maxW <= 0 {
		maxW = DefaultMaxImageWidth
	}
	creator := opts.Creator
	if creator == "" {
		creator = defaultCreator
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	pics := make([]*picture, len(p.Slides))
	var exts []string
	if layout != LayoutText {
		for i, s := range p.Slides {
			if len(s.Image) == 0 {
				continue
			}
			pic, err := preparePicture(s.Image, maxW)
			if err != nil {
				return nil, &BuildError{Part: fmt.Sprintf("slide %d image", i+1), Err: err}
			}
			pics[i] = pic
			exts = append(exts, pic.ext)
		}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	put := func(name, content string) error {
		return writePart(zw, name, []byte(content), now)
	}

	n := len(p.Slides)
	parts := []struct{ name, content string }{
		{"[Content_Types].xml", contentTypesXML(exts, n)},
		{"_rels/.rels", rootRelsXML()},
		{"docProps/core.xml", corePropsXML(p.Title, creator, now)},
		{"docProps/app.xml", appPropsXML(creator, n)},
		{"ppt/presentation.xml", presentationXML(n)},
		{"ppt/_rels/presentation.xml.rels", presentationRelsXML(n)},
		{"ppt/slideMasters/slideMaster1.xml", slideMasterXML()},
		{"ppt/slideMasters/_rels/slideMaster1.xml.rels", slideMasterRelsXML()},
		{"ppt/slideLayouts/slideLayout1.xml", slideLayoutXML()},
		{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", slideLayoutRelsXML()},
		{"ppt/theme/theme1.xml", themeXML()},
	}
	for _, part := range parts {
		if err := put(part.name, part.content); err != nil {
			_ = zw.Close()
			return nil, &BuildError{Part: part.name, Err: err}
		}
	}

	for i, s := range p.Slides {
		num := i + 1
		page := s.Page
		if page <= 0 {
			page = num
		}
		var media string
		if pic := pics[i]; pic != nil {
			media = fmt.Sprintf("image%d.%s", num, pic.ext)
			if err := writePart(zw, "ppt/media/"+media, pic.data, now); err != nil {
				_ = zw.Close()
				return nil, &BuildError{Part: media, Err: err}
			}
		}
		name := fmt.Sprintf("ppt/slides/slide%d.xml", num)
		if err := put(name, slideXML(shapesFor(layout, page, s.Text, pics[i]))); err != nil {
			_ = zw.Close()
			return nil, &BuildError{Part: name, Err: err}
		}
		rels := fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", num)
		if err := put(rels, slideRelsXML(media)); err != nil {
			_ = zw.Close()
			return nil, &BuildError{Part: rels, Err: err}
		}
	}

	if err := zw.Close(); err != nil {
		return nil, &BuildError{Part: "package", Err: err}
	}
	return buf.Bytes(), nil
}

func writePart(zw *zip.Writer, name string, data []byte, mod time.Time) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: mod})
	if err != nil {
		return fmt.Errorf("create zip entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write zip entry %s: %w", name, err)
	}
	return nil
}

// shapesFor lays out one slide. Shape ids: picture 2, text 3, label 4.
func shapesFor(layout Layout, page int, text string, pic *picture) string {
	const (
		margin = emuPerInch / 2
		top    = emuPerInch * 3 / 10
		labelH = emuPerInch * 4 / 10
		labelW = emuPerInch * 3 / 2
		gap    = emuPerInch / 4
	)
	labelY := slideCY - labelH - emuPerInch/10
	content := rect{x: margin, y: top, cx: slideCX - 2*margin, cy: labelY - top}
	label := textBoxXML(4, shapeLabel, fmt.Sprintf("Page %d", page), rect{x: slideCX - margin - labelW, y: labelY, cx: labelW, cy: labelH}, 1200, "r")

	if pic == nil {
		layout = LayoutText
	}
	switch layout {
	case LayoutSplit:
		leftW := (content.cx - gap) * 3 / 5
		left := rect{x: content.x, y: content.y, cx: leftW, cy: content.cy}
		right := rect{x: content.x + leftW + gap, y: content.y, cx: content.cx - leftW - gap, cy: content.cy}
		return pictureXML(2, pictureName(page), text, fit(pic.w, pic.h, left)) +
			textBoxXML(3, shapeText, text, right, 1200, "l") +
			label
	case LayoutText:
		return textBoxXML(3, shapeText, text, content, 1400, "l") + label
	default:
		return pictureXML(2, pictureName(page), text, fit(pic.w, pic.h, content)) + label
	}
}

// preparePicture validates the image and downscales it when it is wider
// than maxW. Downscaled pictures are re-encoded as PNG.
func preparePicture(data []byte, maxW int) (*picture, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if format != "png" && format != "jpeg" {
		return nil, fmt.Errorf("unsupported image format %q (expected png or jpeg)", format)
	}
	if cfg.Width <= maxW {
		return &picture{data: data, ext: format, w: cfg.Width, h: cfg.Height}, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	w := maxW
	h := cfg.Height * maxW / cfg.Width
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var out bytes.Buffer
	if err := png.Encode(&out, dst); err != nil {
		return nil, fmt.Errorf("encode scaled image: %w", err)
	}
	return &picture{data: out.Bytes(), ext: "png", w: w, h: h}, nil
}

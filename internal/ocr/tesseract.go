package ocr

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// lookPath is replaced in tests to simulate a missing tesseract binary.
var lookPath = exec.LookPath

// Tesseract runs the tesseract command line tool and parses its TSV output.
type Tesseract struct {
	Binary    string
	Languages []string
	DPI       int
}

func NewTesseract(dpi int, langs ...string) *Tesseract {
	return &Tesseract{Binary: "tesseract", Languages: langs, DPI: dpi}
}

func (t *Tesseract) Name() string { return "tesseract" }

// Available reports whether the binary is on PATH.
func (t *Tesseract) Available() bool {
	_, err := lookPath(t.binary())
	return err == nil
}

func (t *Tesseract) binary() string {
	if t.Binary == "" {
		return "tesseract"
	}
	return t.Binary
}

func (t *Tesseract) Recognize(ctx context.Context, img []byte) (Result, error) {
	path, err := lookPath(t.binary())
	if err != nil {
		return Result{}, fmt.Errorf("%w: tesseract is not installed or not on PATH", ErrUnavailable)
	}

	// tesseract sniffs the format from the file, so the suffix is cosmetic.
	tmp, err := os.CreateTemp("", "pdf2pptx-ocr-*.png")
	if err != nil {
		return Result{}, fmt.Errorf("create temp file for OCR: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(img); err != nil {
		_ = tmp.Close()
		return Result{}, fmt.Errorf("write temp file for OCR: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Result{}, fmt.Errorf("close temp file for OCR: %w", err)
	}

	args := []string{tmpPath, "stdout"}
	if len(t.Languages) > 0 {
		args = append(args, "-l", strings.Join(t.Languages, "+"))
	}
	if t.DPI > 0 {
		args = append(args, "--dpi", strconv.Itoa(t.DPI))
	}
	args = append(args, "tsv")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return Result{}, fmt.Errorf("tesseract: %w: %s", err, msg)
		}
		return Result{}, fmt.Errorf("tesseract: %w", err)
	}
	return ParseTSV(out)
}

// ParseTSV decodes tesseract's tsv output. Only word rows (level 5) are
// kept; the text is rebuilt line by line with a blank line between blocks.
func ParseTSV(data []byte) (Result, error) {
	var res Result
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	cols := map[string]int{}
	header := true
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if header {
			for i, f := range fields {
				cols[strings.TrimSpace(f)] = i
			}
			for _, need := range []string{"level", "block_num", "par_num", "line_num", "left", "top", "width", "height", "conf", "text"} {
				if _, ok := cols[need]; !ok {
					return Result{}, fmt.Errorf("tsv header missing %q", need)
				}
			}
			header = false
			continue
		}
		get := func(name string) string {
			i := cols[name]
			if i >= len(fields) {
				return ""
			}
			return fields[i]
		}
		if atoi(get("level")) != 5 {
			continue
		}
		text := strings.TrimSpace(get("text"))
		if text == "" {
			continue
		}
		conf, err := strconv.ParseFloat(strings.TrimSpace(get("conf")), 64)
		if err != nil {
			conf = -1
		}
		left, top := atoi(get("left")), atoi(get("top"))
		res.Words = append(res.Words, Word{
			Text:       text,
			Box:        image.Rect(left, top, left+atoi(get("width")), top+atoi(get("height"))),
			Confidence: conf,
			Line:       lineKey(atoi(get("block_num")), atoi(get("par_num")), atoi(get("line_num"))),
		})
	}
	if err := sc.Err(); err != nil {
		return Result{}, err
	}
	res.Text = wordsToText(res.Words)
	return res, nil
}

func wordsToText(words []Word) string {
	var b strings.Builder
	prevLine, prevBlock := -1, -1
	for _, w := range words {
		block := w.Line / 1_000_000
		if w.Line != prevLine {
			if prevLine != -1 {
				b.WriteByte('\n')
				if block != prevBlock {
					b.WriteByte('\n')
				}
			}
			prevLine, prevBlock = w.Line, block
		} else {
			b.WriteByte(' ')
		}
		b.WriteString(w.Text)
	}
	return b.String()
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

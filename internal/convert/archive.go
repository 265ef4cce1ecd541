package convert

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/thywilljoshua/pdf-to-pptx/internal/render"
)

// BundleName is the file name of the archive holding several decks.
const BundleName = "all_presentations.zip"

// maxArchiveEntry caps a single decompressed PDF taken from an archive.
const maxArchiveEntry = 256 << 20

var ErrInvalidArchive = errors.New("invalid ZIP file provided")

// ExtractArchive returns the PDFs inside a ZIP archive, by base name, in
// archive order. Files are selected by their .pdf extension.
func ExtractArchive(data []byte) ([]File, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	var out []File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		if !strings.EqualFold(path.Ext(f.Name), ".pdf") {
			continue
		}
		b, err := readEntry(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArchive, f.Name, err)
		}
		out = append(out, File{Name: path.Base(f.Name), Data: b})
	}
	return out, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, err := io.ReadAll(io.LimitReader(rc, maxArchiveEntry+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxArchiveEntry {
		return nil, fmt.Errorf("entry larger than %d bytes", maxArchiveEntry)
	}
	return b, nil
}

// Collect sorts one upload into PDFs to convert. ZIP archives are
// expanded; anything else must carry a .pdf name and a PDF header. The
// returned warnings are user-facing.
func Collect(name string, data []byte) (files []File, warnings []string, err error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".zip":
		files, err = ExtractArchive(data)
		if err != nil {
			return nil, nil, err
		}
		if len(files) == 0 {
			warnings = append(warnings, fmt.Sprintf("No PDF files found in ZIP archive: %s", name))
		}
		return files, warnings, nil
	case ".pdf":
		if render.IsPDF(data) {
			return []File{{Name: name, Data: data}}, nil, nil
		}
	}
	return nil, []string{fmt.Sprintf("Unsupported file type: %s", name)}, nil
}

// Bundle zips several decks together, renaming duplicates as
// "name (2).pptx".
func Bundle(results []Result) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	used := map[string]int{}
	for _, r := range results {
		name := uniqueName(r.FileName, used)
		w, err := zw.Create(name)
		if err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("create zip entry %s: %w", name, err)
		}
		if _, err := w.Write(r.Data); err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("write zip entry %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func uniqueName(name string, used map[string]int) string {
	key := strings.ToLower(name)
	used[key]++
	if n := used[key]; n > 1 {
		ext := path.Ext(name)
		candidate := fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), n, ext)
		return uniqueName(candidate, used)
	}
	return name
}

// Package web serves the upload form and runs conversions synchronously,
// one request at a time per connection.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/thywilljoshua/pdf-to-pptx/internal/convert"
	"github.com/thywilljoshua/pdf-to-pptx/internal/render"
	"github.com/thywilljoshua/pdf-to-pptx/internal/slides"
)

// DefaultMaxUploadBytes caps one multipart submission.
const DefaultMaxUploadBytes = 200 << 20

// WarningsHeader lists per-file problems of a partially successful batch.
const WarningsHeader = "X-Conversion-Warnings"

//go:embed templates/index.html
var templates embed.FS

type Config struct {
	MaxUploadBytes int64
	Convert        convert.Config
	Logger         *log.Logger // nil uses log.Default()
}

type Server struct {
	cfg  Config
	tmpl *template.Template
	log  *log.Logger
}

type page struct {
	Errors []string
	Bundle string
	MaxMB  int64
}

func New(cfg Config) (*Server, error) {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	tmpl, err := template.ParseFS(templates, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{cfg: cfg, tmpl: tmpl, log: logger}, nil
}

// Handler returns the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /convert", s.handleConvert)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "ok")
	})
	return s.logRequests(mux)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Printf("listening on %s", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderForm(w, http.StatusOK, nil)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	tooLarge := []string{fmt.Sprintf("Upload is larger than %d MB", s.cfg.MaxUploadBytes>>20)}
	if r.ContentLength > s.cfg.MaxUploadBytes {
		s.renderForm(w, http.StatusRequestEntityTooLarge, tooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			s.renderForm(w, http.StatusRequestEntityTooLarge, tooLarge)
			return
		}
		s.renderForm(w, http.StatusBadRequest, []string{"Could not read the upload"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.renderForm(w, http.StatusUnprocessableEntity, []string{"No file selected"})
		return
	}

	var (
		files    []convert.File
		messages []string
	)
	for _, fh := range headers {
		data, err := readUpload(fh)
		if err != nil {
			messages = append(messages, fmt.Sprintf("%s: could not read upload", fh.Filename))
			continue
		}
		found, warnings, err := convert.Collect(fh.Filename, data)
		if err != nil {
			messages = append(messages, fmt.Sprintf("%s: %s", fh.Filename, userMessage(err)))
			continue
		}
		files = append(files, found...)
		messages = append(messages, warnings...)
	}
	if len(files) == 0 {
		s.renderForm(w, http.StatusUnprocessableEntity, messages)
		return
	}

	results, errs := convert.RunAll(r.Context(), files, s.cfg.Convert)
	status := http.StatusUnprocessableEntity
	for _, err := range errs {
		s.log.Printf("convert: %v", err)
		messages = append(messages, userMessage(err))
		if isServerError(err) {
			status = http.StatusInternalServerError
		}
	}
	if len(results) == 0 {
		s.renderForm(w, status, messages)
		return
	}

	name, contentType, body := results[0].FileName, slides.MediaType, results[0].Data
	if len(results) > 1 {
		b, err := convert.Bundle(results)
		if err != nil {
			s.log.Printf("bundle: %v", err)
			s.renderForm(w, http.StatusInternalServerError, []string{"Could not package the presentations"})
			return
		}
		name, contentType, body = convert.BundleName, "application/zip", b
	}
	if len(messages) > 0 {
		w.Header().Set(WarningsHeader, headerValue(messages))
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", fmt.Sprint(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) renderForm(w http.ResponseWriter, status int, errs []string) {
	var buf bytes.Buffer
	err := s.tmpl.Execute(&buf, page{
		Errors: errs,
		Bundle: convert.BundleName,
		MaxMB:  s.cfg.MaxUploadBytes >> 20,
	})
	if err != nil {
		s.log.Printf("render form: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// userMessage turns a pipeline error into text for the form.
func userMessage(err error) string {
	prefix := ""
	var fe *convert.FileError
	if errors.As(err, &fe) {
		prefix = fe.Name + ": "
	}
	var (
		re *render.RenderError
		be *slides.BuildError
	)
	switch {
	case errors.Is(err, convert.ErrInvalidArchive):
		return "Invalid ZIP file provided"
	case errors.Is(err, render.ErrUnavailable):
		return prefix + "PDF rendering is not available on this server"
	case errors.Is(err, context.Canceled):
		return prefix + "conversion canceled"
	case errors.As(err, &re):
		return prefix + "invalid or corrupted PDF file"
	case errors.As(err, &be):
		return prefix + "could not generate the presentation"
	}
	return err.Error()
}

// isServerError reports failures the uploader cannot fix by sending a
// different file.
func isServerError(err error) bool {
	var (
		re *render.RenderError
		be *slides.BuildError
	)
	if errors.As(err, &be) || errors.Is(err, render.ErrUnavailable) {
		return true
	}
	return !errors.As(err, &re)
}

// headerValue joins messages into one header-safe line.
func headerValue(messages []string) string {
	v := strings.Join(messages, "; ")
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		s.log.Printf("%s %s %d %dB %s", r.Method, r.URL.Path, rec.status, rec.bytes, time.Since(start).Round(time.Millisecond))
	})
}

package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	genai "google.golang.org/genai"
)

// DefaultModel is used when NewGemini gets an empty model name.
const DefaultModel = "gemini-2.5-flash"

// ErrMissingKey is returned when no API key is configured.
var ErrMissingKey = errors.New("missing GOOGLE_API_KEY")

type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrMissingKey
	}
	if model == "" {
		model = DefaultModel
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	return &Gemini{client: c, model: model}, nil
}

func (g *Gemini) generate(ctx context.Context, parts ...*genai.Part) (string, error) {
	res, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{
		{Role: genai.RoleUser, Parts: parts},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}
	return stripCodeFences(res.Text()), nil
}

// Transcribe returns the text visible on a page image, in reading order.
func (g *Gemini) Transcribe(ctx context.Context, image []byte, mimeType string) (string, error) {
	if g.client == nil {
		return "", errors.New("gemini not configured")
	}
	if len(image) == 0 {
		return "", nil
	}
	if mimeType == "" {
		mimeType = "image/png"
	}
	prompt := "Transcribe all text visible on this document page in reading order. " +
		"Keep one line per visual line and a blank line between paragraphs. " +
		"Return ONLY the text - no commentary, no markdown, no code fences. " +
		"If the page has no text, return an empty response."
	return g.generate(ctx,
		&genai.Part{Text: prompt},
		&genai.Part{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
	)
}

// SuggestTitle proposes a short document title from the first page text.
func (g *Gemini) SuggestTitle(ctx context.Context, firstPage string) (string, error) {
	if g.client == nil {
		return "", errors.New("gemini not configured")
	}
	if strings.TrimSpace(firstPage) == "" {
		return "", nil
	}
	firstPage = truncateRunes(firstPage, maxPromptRunes)
	prompt := "This is the text of the first page of a document. Reply with the document's title " +
		"on a single line (max 12 words), exactly as written on the page when a title is present. " +
		"Ignore headers, footers, copyright and confidentiality notices.\n\n" + firstPage
	out, err := g.generate(ctx, &genai.Part{Text: prompt})
	if err != nil {
		return "", err
	}
	return firstLine(out), nil
}

const maxPromptRunes = 4000

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.Index(s, "\n"); nl != -1 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

func firstLine(s string) string {
	for _, ln := range strings.Split(s, "\n") {
		ln = strings.Trim(strings.TrimSpace(ln), `"*#`)
		if ln = strings.TrimSpace(ln); ln != "" {
			return ln
		}
	}
	return ""
}

package ocr

import (
	"image"
	"testing"
)

func word(text string, line, top, height int, conf float64) Word {
	return Word{Text: text, Line: line, Confidence: conf, Box: image.Rect(0, top, 10*len(text), top+height)}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name  string
		words []Word
		dpi   int
		want  string
	}{
		{
			name: "tall confident line wins over earlier small text",
			words: []Word{
				word("draft", 1, 10, 10, 95),
				word("Annual", 2, 80, 40, 92),
				word("Report", 2, 80, 40, 90),
				word("body", 3, 200, 10, 95),
			},
			dpi:  200,
			want: "Annual Report",
		},
		{
			name: "boilerplate lines are skipped",
			words: []Word{
				word("Confidential", 1, 10, 30, 95),
				word("Roadmap", 2, 60, 30, 95),
			},
			dpi:  200,
			want: "Roadmap",
		},
		{
			name: "low confidence falls back to first plain line",
			words: []Word{
				word("Page", 1, 10, 10, 90),
				word("1", 1, 10, 10, 90),
				word("Summary", 2, 40, 40, 20),
				word("notes", 3, 90, 10, 90),
			},
			dpi:  200,
			want: "Summary",
		},
		{
			name: "height threshold scales with dpi",
			words: []Word{
				word("small", 1, 10, 20, 95),
				word("Big", 2, 50, 30, 95),
			},
			dpi:  300,
			want: "Big",
		},
		{
			name:  "nothing usable",
			words: []Word{word("Copyright", 1, 0, 40, 99)},
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Title(tt.words, tt.dpi); got != tt.want {
				t.Fatalf("Title = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLines(t *testing.T) {
	words := []Word{word("a", 1, 0, 1, 90), word("b", 1, 0, 1, 90), word(" ", 2, 0, 1, 90), word("c", 3, 0, 1, 90)}
	got := Lines(words)
	if len(got) != 2 || got[0] != "a b" || got[1] != "c" {
		t.Fatalf("Lines = %q", got)
	}
}

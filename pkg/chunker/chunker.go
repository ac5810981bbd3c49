// Package chunker splits extracted textbook text into page-like chunks.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"textbook-qa-be/pkg/textnorm"
)

type Strategy string

const (
	StrategyNatural Strategy = "natural"
	StrategyFixed   Strategy = "fixed"
)

type Options struct {
	FixedWidth  int
	MaxLen      int
	MinLen      int
	IndexMaxLen int
	// SkipFirst force-skips the first N chunks and disables index detection.
	SkipFirst *int
}

func DefaultOptions() Options {
	return Options{
		FixedWidth:  2000,
		MaxLen:      4000,
		MinLen:      50,
		IndexMaxLen: 1500,
	}
}

type Piece struct {
	Ordinal int
	Text    string
}

type Result struct {
	Chunks   []Piece
	Strategy Strategy
	// Raw is the chunk count before skipping and filtering.
	Raw     int
	Skipped int
}

var (
	// Form feed, two or more blank lines, or a line holding only a page marker.
	naturalDelimiter = regexp.MustCompile(`\f|\n[ \t\r]*\n([ \t\r]*\n)+|(?im)^[ \t]*(?:page|صفحة)[ \t]+\d+[ \t]*$`)

	tocKeywords = []string{"table of contents", "contents", "index", "فهرس", "المحتويات", "الفهرس"}
)

func Split(text string, totalPages int, opts Options) Result {
	opts = withDefaults(opts)

	res := Result{Strategy: StrategyNatural}
	raw := splitNatural(text)
	if !acceptNatural(len(raw), totalPages) {
		res.Strategy = StrategyFixed
		raw = splitFixed(text, opts.FixedWidth)
	}
	res.Raw = len(raw)

	skip := 0
	switch {
	case opts.SkipFirst != nil:
		skip = max(*opts.SkipFirst, 0)
	case len(raw) > 0 && looksLikeIndex(raw[0], opts.IndexMaxLen):
		skip = 1
	}
	skip = min(skip, len(raw))
	res.Skipped = skip

	for i := skip; i < len(raw); i++ {
		body := textnorm.CollapseSpace(raw[i])
		body = clip(body, opts.MaxLen)
		if utf8.RuneCountInString(body) < opts.MinLen {
			continue
		}
		res.Chunks = append(res.Chunks, Piece{Ordinal: i + 1, Text: body})
	}
	return res
}

// acceptNatural guards against under- and over-splitting.
func acceptNatural(count, totalPages int) bool {
	if totalPages <= 0 {
		return false
	}
	return count >= totalPages/2 && count <= totalPages*3
}

func splitNatural(text string) []string {
	parts := naturalDelimiter.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitFixed cuts non-overlapping windows of width runes.
func splitFixed(text string, width int) []string {
	runes := []rune(textnorm.CollapseSpace(text))
	var out []string
	for start := 0; start < len(runes); start += width {
		end := min(start+width, len(runes))
		out = append(out, string(runes[start:end]))
	}
	return out
}

func looksLikeIndex(chunk string, maxLen int) bool {
	if utf8.RuneCountInString(strings.TrimSpace(chunk)) >= maxLen {
		return false
	}
	lower := textnorm.FoldLower(chunk)
	for _, kw := range tocKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func clip(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:maxLen]))
}

func withDefaults(o Options) Options {
	d := DefaultOptions()
	if o.FixedWidth <= 0 {
		o.FixedWidth = d.FixedWidth
	}
	if o.MaxLen <= 0 {
		o.MaxLen = d.MaxLen
	}
	if o.MinLen < 0 {
		o.MinLen = d.MinLen
	}
	if o.IndexMaxLen <= 0 {
		o.IndexMaxLen = d.IndexMaxLen
	}
	return o
}

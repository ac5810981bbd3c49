// Package citation parses the [[SOURCES]] block models emit for web-augmented
// answers and renders source lists.
package citation

import (
	"encoding/json"
	"regexp"
	"strings"

	"textbook-qa-be/internal/constant"
)

type Kind string

const (
	KindTextbook Kind = "textbook"
	KindGeneral  Kind = "general"
	KindWeb      Kind = "web"
)

type Source struct {
	Kind  Kind   `json:"kind"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
	Page  int    `json:"page,omitempty"`
}

type Parsed struct {
	// Text is the model output with every marker block removed.
	Text    string
	Sources []Source
	// Found is true when at least one marker block was present, even if empty.
	Found bool
}

type rawEntry struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

var fence = regexp.MustCompile("(?m)^\\s*```[a-zA-Z]*\\s*$")

// Parse extracts web sources from every marker block in output. An unclosed
// block runs to the end of the text.
func Parse(output string) Parsed {
	var (
		res  Parsed
		seen = make(map[string]bool)
		rest = output
		kept strings.Builder
	)

	for {
		start := strings.Index(rest, constant.CitationOpen)
		if start < 0 {
			kept.WriteString(rest)
			break
		}
		res.Found = true
		kept.WriteString(rest[:start])
		rest = rest[start+len(constant.CitationOpen):]

		body := rest
		if end := strings.Index(rest, constant.CitationClose); end >= 0 {
			body = rest[:end]
			rest = rest[end+len(constant.CitationClose):]
		} else {
			rest = ""
		}

		for _, s := range parseBody(body) {
			key := strings.ToLower(s.URL)
			if key == "" {
				key = strings.ToLower(s.Title)
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			res.Sources = append(res.Sources, s)
		}
	}

	res.Text = strings.TrimSpace(kept.String())
	return res
}

func parseBody(body string) []Source {
	body = strings.TrimSpace(fence.ReplaceAllString(body, ""))
	if body == "" {
		return nil
	}

	if strings.HasPrefix(body, "[") {
		var entries []rawEntry
		if err := json.Unmarshal([]byte(body), &entries); err == nil {
			out := make([]Source, 0, len(entries))
			for _, e := range entries {
				if s, ok := newWebSource(e.Title, e.URL); ok {
					out = append(out, s)
				}
			}
			return out
		}
	}

	var out []Source
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•"))
		if line == "" {
			continue
		}
		title, url := line, ""
		if t, u, ok := strings.Cut(line, "|"); ok {
			title, url = strings.TrimSpace(t), strings.TrimSpace(u)
		} else if looksLikeURL(line) {
			title, url = "", line
		}
		if s, ok := newWebSource(title, url); ok {
			out = append(out, s)
		}
	}
	return out
}

func newWebSource(title, url string) (Source, bool) {
	title = strings.TrimSpace(title)
	url = strings.TrimSpace(url)
	if url != "" && !looksLikeURL(url) {
		url = ""
	}
	if title == "" {
		title = url
	}
	if title == "" {
		return Source{}, false
	}
	return Source{Kind: KindWeb, Title: title, URL: url}, true
}

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

var sourcesHeading = regexp.MustCompile(`(?im)^[ \t#*>]*(?:sources|references|المصادر|المراجع)[ \t*]*[:：]`)

// HasSourcesSection reports whether text already carries a sources heading.
func HasSourcesSection(text string) bool {
	return sourcesHeading.MatchString(text)
}

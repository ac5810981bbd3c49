// Package response turns model output and retrieval provenance into the
// answer returned to the client.
package response

import (
	"fmt"
	"strings"

	"textbook-qa-be/internal/constant"
	"textbook-qa-be/pkg/rag"
	"textbook-qa-be/pkg/rag/citation"
)

type Input struct {
	// Text is the model output with the source marker block already removed.
	Text       string
	WebSources []citation.Source
	Retrieval  *rag.RetrievalResult
	Mode       rag.Mode
	Lang       string
}

type Answer struct {
	AnswerText       string
	SourceKind       string
	SourceBookName   string
	SourcePageNumber int
	Language         string
	Sources          []citation.Source
}

func Assemble(in Input) Answer {
	text := strings.TrimSpace(in.Text)
	ans := Answer{
		SourceKind: Kind(false, in.Mode, in.Retrieval),
		Language:   in.Lang,
	}

	primary, hasProvenance := in.Retrieval.Primary()
	if hasProvenance {
		ans.SourceBookName = primary.BookName
		ans.SourcePageNumber = primary.Page
		ans.Sources = append(ans.Sources, citation.Source{Kind: citation.KindTextbook, Title: primary.BookName, Page: primary.Page})
	}
	ans.Sources = append(ans.Sources, in.WebSources...)

	switch {
	case IsRefusal(text), in.Mode == rag.ModeStrict && containsRefusal(text):
		ans.AnswerText = rag.Refusal(refusalLang(text, in.Lang))
		ans.SourceKind = constant.SourceGeneral
		ans.Sources = nil
		ans.SourceBookName, ans.SourcePageNumber = "", 0
	case citation.HasSourcesSection(text):
		ans.AnswerText = text
	case in.Mode == rag.ModeExpanded:
		ans.AnswerText = text + "\n\n" + expandedFooter(ans.Sources, in.Lang)
	case hasProvenance:
		ans.AnswerText = text + "\n\n" + strictFooter(primary, in.Lang)
	default:
		ans.AnswerText = text
	}
	return ans
}

// Kind classifies where an answer came from.
func Kind(cacheHit bool, mode rag.Mode, r *rag.RetrievalResult) string {
	switch {
	case cacheHit:
		return constant.SourceCache
	case mode == rag.ModeExpanded:
		return constant.SourceWeb
	case r.Found():
		return constant.SourceTextbook
	default:
		return constant.SourceGeneral
	}
}

// FromCache returns a stored answer unchanged, with the textbook provenance
// recorded when it was first produced.
func FromCache(answer, lang, bookName string, page int) Answer {
	ans := Answer{AnswerText: answer, SourceKind: constant.SourceCache, Language: lang}
	if bookName != "" {
		ans.SourceBookName = bookName
		ans.SourcePageNumber = page
		ans.Sources = []citation.Source{{Kind: citation.KindTextbook, Title: bookName, Page: page}}
	}
	return ans
}

// Apology is the answer used when every backend failed.
func Apology(lang string) Answer {
	return Answer{AnswerText: rag.Apology(lang), SourceKind: constant.SourceGeneral, Language: lang}
}

// Refusal is the canonical strict-mode answer when the textbook has nothing.
func Refusal(lang string) Answer {
	return Answer{AnswerText: rag.Refusal(lang), SourceKind: constant.SourceGeneral, Language: lang}
}

func IsRefusal(text string) bool {
	text = strings.TrimSpace(text)
	return text == constant.RefusalEN || text == constant.RefusalAR
}

// containsRefusal catches models that wrap the refusal sentence in extra words.
func containsRefusal(text string) bool {
	return strings.Contains(text, constant.RefusalEN) || strings.Contains(text, constant.RefusalAR)
}

func refusalLang(text, fallback string) string {
	switch {
	case strings.Contains(text, constant.RefusalAR):
		return constant.LangArabic
	case strings.Contains(text, constant.RefusalEN):
		return constant.LangEnglish
	default:
		return fallback
	}
}

func strictFooter(p rag.Passage, lang string) string {
	if lang == constant.LangArabic {
		return fmt.Sprintf(constant.FooterStrictAR, p.BookName, p.Page)
	}
	return fmt.Sprintf(constant.FooterStrictEN, p.BookName, p.Page)
}

func expandedFooter(sources []citation.Source, lang string) string {
	hasWeb := false
	for _, s := range sources {
		if s.Kind == citation.KindWeb {
			hasWeb = true
		}
	}
	if len(sources) == 0 {
		if lang == constant.LangArabic {
			return constant.GeneralFooterAR
		}
		return constant.GeneralFooterEN
	}

	heading, textbook, general, page := constant.SourcesHeadingEN, constant.TextbookLabelEN, constant.GeneralLabelEN, "page"
	if lang == constant.LangArabic {
		heading, textbook, general, page = constant.SourcesHeadingAR, constant.TextbookLabelAR, constant.GeneralLabelAR, "صفحة"
	}

	var b strings.Builder
	b.WriteString(heading)
	for _, s := range sources {
		switch s.Kind {
		case citation.KindTextbook:
			fmt.Fprintf(&b, "\n- %s: %s, %s %d", textbook, s.Title, page, s.Page)
		case citation.KindWeb:
			if s.URL != "" && s.URL != s.Title {
				fmt.Fprintf(&b, "\n- %s: %s", s.Title, s.URL)
			} else {
				fmt.Fprintf(&b, "\n- %s", s.Title)
			}
		}
	}
	if !hasWeb {
		fmt.Fprintf(&b, "\n- %s", general)
	}
	return b.String()
}

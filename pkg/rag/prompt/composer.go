// Package prompt composes the system prompt for strict and expanded answering.
package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"textbook-qa-be/internal/constant"
	"textbook-qa-be/pkg/llm"
	"textbook-qa-be/pkg/rag"
)

const maxAttachmentRunes = 8000

type Input struct {
	Retrieval      *rag.RetrievalResult
	AttachmentText string
	Question       string
	Mode           rag.Mode
}

type Output struct {
	System string
	Lang   string
}

func Compose(in Input) Output {
	lang := rag.DetectLanguage(in.Question, in.AttachmentText)

	var b strings.Builder
	if in.Mode == rag.ModeExpanded {
		heading := constant.SourcesHeadingEN
		if lang == constant.LangArabic {
			heading = constant.SourcesHeadingAR
		}
		fmt.Fprintf(&b, constant.QAExpandedPromptV1, heading, constant.CitationOpen, constant.CitationClose, LanguageName(lang))
	} else {
		fmt.Fprintf(&b, constant.QAStrictPromptV1, rag.Refusal(lang), LanguageName(lang))
	}

	b.WriteString("\n")
	writeContext(&b, in.Retrieval)
	writeAttachment(&b, in.AttachmentText)

	return Output{System: b.String(), Lang: lang}
}

func writeContext(b *strings.Builder, r *rag.RetrievalResult) {
	b.WriteString("<textbook_context>\n")
	if !r.Found() {
		b.WriteString("(no matching textbook passages)\n")
	} else {
		for _, p := range r.Passages {
			fmt.Fprintf(b, "[Book: %s | Page %d]\n%s\n\n", p.BookName, p.Page, strings.TrimSpace(p.Text))
		}
	}
	b.WriteString("</textbook_context>\n")
}

func writeAttachment(b *strings.Builder, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if utf8.RuneCountInString(text) > maxAttachmentRunes {
		text = string([]rune(text)[:maxAttachmentRunes])
	}
	b.WriteString("\n<attachment_text>\n")
	b.WriteString(text)
	b.WriteString("\n</attachment_text>\n")
}

// LanguageName is the English name of lang, used inside prompts.
func LanguageName(lang string) string {
	if lang == constant.LangArabic {
		return "Arabic"
	}
	return "English"
}

// Messages assembles the conversation sent to the dispatcher: system prompt,
// history tail, then the question with any passthrough attachment.
func Messages(system string, q rag.Query) []llm.Message {
	msgs := make([]llm.Message, 0, len(q.History)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: system})
	msgs = append(msgs, q.History...)

	user := llm.Message{Role: llm.RoleUser, Content: strings.TrimSpace(q.Question)}
	if user.Content == "" {
		user.Content = "Explain the attached material."
	}
	if q.Attachment != nil {
		user.Attachments = []llm.Attachment{*q.Attachment}
	}
	return append(msgs, user)
}

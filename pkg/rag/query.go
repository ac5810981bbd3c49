// Package rag holds the per-request types shared by the retrieval and
// answer-composition packages under pkg/rag.
package rag

import (
	"strings"
	"unicode/utf8"

	"textbook-qa-be/internal/constant"
	"textbook-qa-be/pkg/llm"
	"textbook-qa-be/pkg/textnorm"

	"github.com/google/uuid"
)

type Mode string

const (
	ModeStrict   Mode = constant.ModeStrict
	ModeExpanded Mode = constant.ModeExpanded
)

func ModeFromExpand(expand bool) Mode {
	if expand {
		return ModeExpanded
	}
	return ModeStrict
}

// attachmentQueryRunes caps how much attachment text enriches the retrieval query.
const attachmentQueryRunes = 500

// Query is built once per request at the HTTP boundary and passed by value
// through retrieval, composition and dispatch.
type Query struct {
	Question       string
	AttachmentText string
	// Attachment is an image or PDF forwarded to vision-capable models.
	Attachment *llm.Attachment
	Branch     string
	Mode       Mode
	BookIDs    []uuid.UUID
	History    []llm.Message
}

func (q Query) HasAttachment() bool {
	return q.Attachment != nil || strings.TrimSpace(q.AttachmentText) != ""
}

// RetrievalText is the question followed by the head of the attachment text.
func (q Query) RetrievalText() string {
	question := strings.TrimSpace(q.Question)
	extra := strings.TrimSpace(q.AttachmentText)
	if extra == "" {
		return question
	}
	if utf8.RuneCountInString(extra) > attachmentQueryRunes {
		extra = string([]rune(extra)[:attachmentQueryRunes])
	}
	if question == "" {
		return extra
	}
	return question + "\n" + extra
}

// Language is Arabic when the question or attachment text contains Arabic script.
func (q Query) Language() string {
	return DetectLanguage(q.Question, q.AttachmentText)
}

func DetectLanguage(texts ...string) string {
	for _, t := range texts {
		if textnorm.ContainsArabic(t) {
			return constant.LangArabic
		}
	}
	return constant.LangEnglish
}

// TrimHistory keeps the most recent n turns. System messages are dropped;
// the composer supplies its own.
func TrimHistory(history []llm.Message, n int) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		if m.Role == llm.RoleSystem || strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, m)
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

func Refusal(lang string) string {
	if lang == constant.LangArabic {
		return constant.RefusalAR
	}
	return constant.RefusalEN
}

func Apology(lang string) string {
	if lang == constant.LangArabic {
		return constant.ApologyAR
	}
	return constant.ApologyEN
}

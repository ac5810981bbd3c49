package rag

import (
	"strings"
	"testing"

	"textbook-qa-be/internal/constant"
	"textbook-qa-be/pkg/llm"

	"github.com/stretchr/testify/assert"
)

func TestRetrievalText(t *testing.T) {
	q := Query{Question: "  What is osmosis? "}
	assert.Equal(t, "What is osmosis?", q.RetrievalText())

	q.AttachmentText = strings.Repeat("x", 800)
	got := q.RetrievalText()
	assert.True(t, strings.HasPrefix(got, "What is osmosis?\n"))
	assert.Len(t, strings.TrimPrefix(got, "What is osmosis?\n"), 500)
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, constant.LangEnglish, DetectLanguage("What is a cell?"))
	assert.Equal(t, constant.LangArabic, DetectLanguage("explain", "ما هي الخلية؟"))
	assert.Equal(t, constant.LangArabic, Query{Question: "ما هي الخلية"}.Language())
}

func TestTrimHistory(t *testing.T) {
	var h []llm.Message
	h = append(h, llm.Message{Role: llm.RoleSystem, Content: "ignored"})
	for i := 0; i < 10; i++ {
		h = append(h, llm.Message{Role: llm.RoleUser, Content: string(rune('a' + i))})
	}

	got := TrimHistory(h, 6)
	assert.Len(t, got, 6)
	assert.Equal(t, "e", got[0].Content)
	assert.Equal(t, "j", got[5].Content)
}

func TestRefusalAndApology(t *testing.T) {
	assert.Equal(t, constant.RefusalAR, Refusal(constant.LangArabic))
	assert.Equal(t, constant.RefusalEN, Refusal("fr"))
	assert.Equal(t, constant.ApologyAR, Apology(constant.LangArabic))
}

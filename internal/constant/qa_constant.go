package constant

const (
	LangEnglish = "en"
	LangArabic  = "ar"

	ModeStrict   = "strict"
	ModeExpanded = "expanded"

	SourceCache    = "cache"
	SourceTextbook = "textbook"
	SourceWeb      = "web"
	SourceGeneral  = "general"
)

// Refusal sentences are returned verbatim in strict mode when the textbook
// has no matching context. The prompt asks the model for the exact same text.
const (
	RefusalEN = "I could not find the answer to this question in the textbook."
	RefusalAR = "لم أجد إجابة لهذا السؤال في الكتاب المدرسي."

	ApologyEN = "Sorry, I could not generate an answer right now. Please try again later."
	ApologyAR = "عذرًا، لم أتمكن من إنشاء إجابة الآن. يرجى المحاولة لاحقًا."
)

// Footers appended by the response assembler.
const (
	FooterStrictEN = "Source: %s, page %d"
	FooterStrictAR = "المصدر: %s، صفحة %d"

	SourcesHeadingEN = "Sources:"
	SourcesHeadingAR = "المصادر:"

	TextbookLabelEN = "Textbook"
	TextbookLabelAR = "الكتاب المدرسي"
	GeneralLabelEN  = "General knowledge"
	GeneralLabelAR  = "معرفة عامة"

	GeneralFooterEN = "Sources:\n- General knowledge (not taken from the textbook)"
	GeneralFooterAR = "المصادر:\n- معرفة عامة (ليست من الكتاب المدرسي)"
)

// CitationOpen and CitationClose wrap the machine-readable source list the
// model emits in expanded mode.
const (
	CitationOpen  = "[[SOURCES]]"
	CitationClose = "[[/SOURCES]]"
)

const QAStrictPromptV1 = `You are a study assistant for a school textbook.

First decide what kind of message the student sent:
- Casual conversation (greetings, thanks, small talk): reply briefly and naturally. Do not cite anything.
- Study content (a question about the subject, an exercise, a definition): answer ONLY from the textbook context below.

Rules for study content:
1. Use only facts that appear in the textbook context. Do not add outside knowledge.
2. Every fact you state must carry its page number, for example "(page 12)".
3. If the context does not contain the answer, reply with exactly this sentence and nothing else:
%s
4. Answer in %s.
`

const QAExpandedPromptV1 = `You are a study assistant for a school textbook.

Prefer the textbook context below when it answers the question. When it is not enough, you may use general knowledge and web search.

Rules:
1. Cite textbook facts with their page number, for example "(page 12)".
2. Clearly separate what comes from the textbook and what comes from general knowledge.
3. Always end your answer with a sources section titled "%s" listing the textbook pages and the general or web sources you used.
4. If you used web pages, also emit them in this exact block after the answer, one JSON array of {"title","url"} objects:
%s
[{"title": "Page title", "url": "https://example.org"}]
%s
5. Answer in %s.
`

// QuickPromptV1 takes the branch and the answer language.
const QuickPromptV1 = `You are a study assistant for %s students. Answer the question briefly, in at most three sentences, in %s. Do not add a sources section.`

package service

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"textbook-qa-be/internal/constant"
	"textbook-qa-be/internal/dto"
	"textbook-qa-be/internal/entity"
	"textbook-qa-be/internal/pkg/logger"
	"textbook-qa-be/internal/repository/memory"
	"textbook-qa-be/pkg/embedding"
	"textbook-qa-be/pkg/llm"
	"textbook-qa-be/pkg/llm/dispatcher"
	"textbook-qa-be/pkg/rag/cache"
	"textbook-qa-be/pkg/rag/retriever"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedEmbedder struct{}

func (fixedEmbedder) Generate(ctx context.Context, text, taskType string) (*embedding.EmbeddingResponse, error) {
	return &embedding.EmbeddingResponse{Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{1, 0}}}, nil
}

type scriptedLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	calls [][]llm.Message
}

func (s *scriptedLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, history)
	return s.reply, s.err
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, options...)
}

func (s *scriptedLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type staticPlan []dispatcher.Backend

func (p staticPlan) For(string) []dispatcher.Backend { return p }

type qaFixture struct {
	svc   IQAService
	model *scriptedLLM
	quick *scriptedLLM
}

func newQAFixture(t *testing.T, reply string, replyErr error) *qaFixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	uow := store.NewUnitOfWork(ctx)

	book := &entity.Book{Name: "Biology 10", Branch: "scientific", Status: entity.BookStatusAnalyzed}
	require.NoError(t, uow.BookRepository().Create(ctx, book))
	_, err := uow.ChunkRepository().InsertIfAbsent(ctx, &entity.Chunk{
		BookId:         book.Id,
		PageNumber:     12,
		Content:        "Photosynthesis converts light energy into chemical energy in the chloroplast.",
		EmbeddingValue: []float32{1, 0},
	})
	require.NoError(t, err)

	nop := logger.NewNopLogger()
	f := &qaFixture{
		model: &scriptedLLM{reply: reply, err: replyErr},
		quick: &scriptedLLM{reply: "Plants make food from light."},
	}
	f.svc = NewQAService(
		retriever.New(store, fixedEmbedder{}, retriever.DefaultConfig(), nop),
		cache.New(cache.NewMemoryStore(0), nop, 0),
		dispatcher.New(time.Second, nop),
		staticPlan{{Name: "fake", Model: "m1", Provider: f.model}},
		f.quick,
		QAConfig{TopK: 5, HistoryWindow: 2},
		nop,
	)
	return f
}

func TestAskStrictWithContextAddsFooterAndCaches(t *testing.T) {
	f := newQAFixture(t, "Photosynthesis turns light into chemical energy (page 12).", nil)
	ctx := context.Background()

	res, err := f.svc.Ask(ctx, &dto.AskRequest{Question: "What is photosynthesis?", Branch: "Scientific"})
	require.NoError(t, err)
	assert.Equal(t, constant.SourceTextbook, res.Source)
	assert.Equal(t, "Biology 10", res.SourceBookName)
	assert.Equal(t, 12, res.SourcePageNumber)
	assert.Equal(t, constant.LangEnglish, res.Lang)
	assert.True(t, strings.HasSuffix(res.Answer, "Source: Biology 10, page 12"))

	again, err := f.svc.Ask(ctx, &dto.AskRequest{Question: "what is  PHOTOSYNTHESIS", Branch: "scientific"})
	require.NoError(t, err)
	assert.Equal(t, constant.SourceCache, again.Source)
	assert.Equal(t, res.Answer, again.Answer)
	assert.Equal(t, "Biology 10", again.SourceBookName)
	assert.Equal(t, 12, again.SourcePageNumber)
	require.Len(t, again.Sources, 1)
	assert.Equal(t, "textbook", again.Sources[0].Kind)
	assert.Equal(t, 1, f.model.callCount())
}

func TestAskCacheIsScopedToBooks(t *testing.T) {
	f := newQAFixture(t, "Photosynthesis turns light into chemical energy (page 12).", nil)
	ctx := context.Background()

	_, err := f.svc.Ask(ctx, &dto.AskRequest{Question: "What is photosynthesis?", Branch: "scientific"})
	require.NoError(t, err)
	require.Equal(t, 1, f.model.callCount())

	scoped, err := f.svc.Ask(ctx, &dto.AskRequest{
		Question: "What is photosynthesis?",
		Branch:   "scientific",
		BookIds:  []uuid.UUID{uuid.New()},
	})
	require.NoError(t, err)
	assert.NotEqual(t, constant.SourceCache, scoped.Source)
	assert.Empty(t, scoped.SourceBookName, "an unknown book has no passages")
	assert.Equal(t, 2, f.model.callCount())
}

func TestAskStrictWithoutContextRefuses(t *testing.T) {
	f := newQAFixture(t, "للأسف. "+constant.RefusalAR+" راجع الفصل الثالث.", nil)

	res, err := f.svc.Ask(context.Background(), &dto.AskRequest{Question: "من كتب رواية الأيام؟", Branch: "literary"})
	require.NoError(t, err)
	assert.Equal(t, constant.RefusalAR, res.Answer)
	assert.Equal(t, constant.LangArabic, res.Lang)
	assert.Empty(t, res.Sources)
	assert.Empty(t, res.SourceBookName)

	// Refusals are never cached.
	_, err = f.svc.Ask(context.Background(), &dto.AskRequest{Question: "من كتب رواية الأيام؟", Branch: "literary"})
	require.NoError(t, err)
	assert.Equal(t, 2, f.model.callCount())
}

func TestAskExhaustedReturnsApology(t *testing.T) {
	f := newQAFixture(t, "", llm.ErrRateLimited)

	res, err := f.svc.Ask(context.Background(), &dto.AskRequest{Question: "What is photosynthesis?", Branch: "scientific"})
	require.NoError(t, err)
	assert.Equal(t, constant.ApologyEN, res.Answer)
	assert.Equal(t, constant.SourceGeneral, res.Source)

	_, err = f.svc.Ask(context.Background(), &dto.AskRequest{Question: "What is photosynthesis?", Branch: "scientific"})
	require.NoError(t, err)
	assert.Equal(t, 2, f.model.callCount(), "apologies must not be cached")
}

func TestAskExpandedListsTextbookAndWebSources(t *testing.T) {
	reply := "Plants use light to build sugar.\n[[SOURCES]]\n" +
		`[{"title": "Photosynthesis", "url": "https://en.wikipedia.org/wiki/Photosynthesis"}]` +
		"\n[[/SOURCES]]"
	f := newQAFixture(t, reply, nil)

	res, err := f.svc.Ask(context.Background(), &dto.AskRequest{
		Question:           "What is photosynthesis?",
		Branch:             "scientific",
		ExpandSearchOnline: true,
	})
	require.NoError(t, err)
	assert.Equal(t, constant.SourceWeb, res.Source)
	assert.NotContains(t, res.Answer, constant.CitationOpen)
	assert.Contains(t, res.Answer, constant.SourcesHeadingEN)
	require.Len(t, res.Sources, 2)
	assert.Equal(t, "textbook", res.Sources[0].Kind)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Photosynthesis", res.Sources[1].Url)
}

func TestAskAttachmentBypassesCache(t *testing.T) {
	f := newQAFixture(t, "The exercise asks about chloroplasts (page 12).", nil)
	req := &dto.AskRequest{
		Question:     "Solve this",
		Branch:       "scientific",
		FileBase64:   base64.StdEncoding.EncodeToString([]byte("Exercise 4: describe the chloroplast.")),
		FileMimeType: "text/plain",
	}

	for i := 0; i < 2; i++ {
		res, err := f.svc.Ask(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, constant.SourceTextbook, res.Source)
	}
	require.Equal(t, 2, f.model.callCount())
	system := f.model.calls[0][0].Content
	assert.Contains(t, system, "<attachment_text>")
	assert.Contains(t, system, "Exercise 4")
}

func TestAskPassesImageThrough(t *testing.T) {
	f := newQAFixture(t, "It is a leaf cell (page 12).", nil)
	img := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G'})

	_, err := f.svc.Ask(context.Background(), &dto.AskRequest{Branch: "scientific", ImageBase64: img})
	require.NoError(t, err)

	msgs := f.model.calls[0]
	user := msgs[len(msgs)-1]
	require.Len(t, user.Attachments, 1)
	assert.Equal(t, "image/png", user.Attachments[0].MimeType)
}

func TestAskRejectsBadPayloads(t *testing.T) {
	f := newQAFixture(t, "unused", nil)

	cases := []*dto.AskRequest{
		{Branch: "scientific", ImageBase64: "!!not base64!!"},
		{Branch: "scientific", ImageBase64: base64.StdEncoding.EncodeToString([]byte("x")), FileBase64: base64.StdEncoding.EncodeToString([]byte("%PDF")), FileMimeType: "application/pdf"},
		{Branch: "scientific", FileBase64: base64.StdEncoding.EncodeToString([]byte("junk")), FileMimeType: "application/octet-stream"},
	}
	for _, req := range cases {
		_, err := f.svc.Ask(context.Background(), req)
		var fe *fiber.Error
		require.True(t, errors.As(err, &fe), "got %v", err)
		assert.Equal(t, fiber.StatusBadRequest, fe.Code)
	}
	assert.Zero(t, f.model.callCount())
}

func TestAskTrimsHistory(t *testing.T) {
	f := newQAFixture(t, "Yes (page 12).", nil)

	_, err := f.svc.Ask(context.Background(), &dto.AskRequest{
		Question: "And in the chloroplast?",
		Branch:   "scientific",
		History: []dto.HistoryTurnDTO{
			{Role: "user", Content: "one"},
			{Role: "assistant", Content: "two"},
			{Role: "user", Content: "three"},
			{Role: "assistant", Content: "four"},
		},
	})
	require.NoError(t, err)

	msgs := f.model.calls[0]
	require.Len(t, msgs, 4)
	assert.Equal(t, "three", msgs[1].Content)
	assert.Equal(t, llm.RoleAssistant, msgs[2].Role)
	assert.Equal(t, "And in the chloroplast?", msgs[3].Content)
}

func TestQuick(t *testing.T) {
	f := newQAFixture(t, "unused", nil)

	res, err := f.svc.Quick(context.Background(), &dto.QuickRequest{Question: "What do plants eat?", Branch: "scientific"})
	require.NoError(t, err)
	assert.Equal(t, "Plants make food from light.", res.Answer)
	assert.Equal(t, constant.LangEnglish, res.Lang)
	assert.Contains(t, f.quick.calls[0][0].Content, "scientific")

	f.quick.err = errors.New("down")
	res, err = f.svc.Quick(context.Background(), &dto.QuickRequest{Question: "ماذا تأكل النباتات؟"})
	require.NoError(t, err)
	assert.Equal(t, constant.ApologyAR, res.Answer)
	assert.Equal(t, constant.LangArabic, res.Lang)
}

func TestDecodePayload(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString([]byte("hello"))

	data, mt, err := decodePayload("data:text/plain;base64,"+raw, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "text/plain", mt)

	data, mt, err = decodePayload(strings.TrimRight(raw, "="), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "text/plain", mt)

	_, _, err = decodePayload("data:text/plain,hello", "")
	assert.Error(t, err)
}

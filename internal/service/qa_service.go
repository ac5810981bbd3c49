package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"textbook-qa-be/internal/constant"
	"textbook-qa-be/internal/dto"
	"textbook-qa-be/internal/pkg/logger"
	"textbook-qa-be/pkg/extractor"
	"textbook-qa-be/pkg/llm"
	"textbook-qa-be/pkg/llm/dispatcher"
	"textbook-qa-be/pkg/rag"
	"textbook-qa-be/pkg/rag/cache"
	"textbook-qa-be/pkg/rag/prompt"
	"textbook-qa-be/pkg/rag/response"
	"textbook-qa-be/pkg/rag/retriever"

	"github.com/gofiber/fiber/v2"
)

const qaModule = "QA"

type IQAService interface {
	Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error)
	Quick(ctx context.Context, req *dto.QuickRequest) (*dto.QuickResponse, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, req retriever.Request) *rag.RetrievalResult
}

type AnswerCache interface {
	Lookup(ctx context.Context, key cache.Key) (*cache.Entry, bool)
	Store(ctx context.Context, key cache.Key, answer string, src cache.Source)
}

type ModelDispatcher interface {
	Dispatch(ctx context.Context, backends []dispatcher.Backend, messages []llm.Message, opts ...llm.Option) (*dispatcher.Result, error)
}

type BackendPlan interface {
	For(branch string) []dispatcher.Backend
}

type QAConfig struct {
	TopK          int
	HistoryWindow int
	QuickTimeout  time.Duration
}

type qaService struct {
	retriever  Retriever
	cache      AnswerCache
	dispatcher ModelDispatcher
	plan       BackendPlan
	quick      llm.LLMProvider
	cfg        QAConfig
	logger     logger.ILogger
}

// NewQAService wires the ask pipeline. quick may be nil, in which case the
// quick endpoint always answers with the apology.
func NewQAService(
	r Retriever,
	c AnswerCache,
	d ModelDispatcher,
	plan BackendPlan,
	quick llm.LLMProvider,
	cfg QAConfig,
	log logger.ILogger,
) IQAService {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.HistoryWindow < 0 {
		cfg.HistoryWindow = 0
	}
	if cfg.QuickTimeout <= 0 {
		cfg.QuickTimeout = 30 * time.Second
	}
	return &qaService{
		retriever:  r,
		cache:      c,
		dispatcher: d,
		plan:       plan,
		quick:      quick,
		cfg:        cfg,
		logger:     log,
	}
}

func (s *qaService) Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error) {
	q, err := s.buildQuery(req)
	if err != nil {
		return nil, err
	}
	lang := q.Language()

	// Attachments make the question unique, so they bypass the cache both ways.
	cacheable := !q.HasAttachment()
	key := cache.Key{Question: q.Question, Mode: q.Mode, Branch: q.Branch, BookIDs: q.BookIDs}
	if cacheable {
		if hit, ok := s.cache.Lookup(ctx, key); ok {
			return toAskResponse(response.FromCache(hit.Answer, lang, hit.BookName, hit.Page)), nil
		}
	}

	result := rag.NotAttempted()
	if text := q.RetrievalText(); text != "" {
		result = s.retriever.Retrieve(ctx, retriever.Request{
			Query:   text,
			Branch:  q.Branch,
			BookIDs: q.BookIDs,
			Limit:   s.cfg.TopK,
		})
	}

	composed := prompt.Compose(prompt.Input{
		Retrieval:      result,
		AttachmentText: q.AttachmentText,
		Question:       q.Question,
		Mode:           q.Mode,
	})

	opts := []llm.Option{llm.WithTemperature(0.2)}
	if q.Mode == rag.ModeExpanded {
		opts = []llm.Option{llm.WithTemperature(0.5), llm.WithWebSearch(true)}
	}

	res, err := s.dispatcher.Dispatch(ctx, s.plan.For(q.Branch), prompt.Messages(composed.System, q), opts...)
	if err != nil {
		s.logger.Error(qaModule, "All models failed", map[string]interface{}{
			"branch": q.Branch,
			"mode":   string(q.Mode),
			"error":  err,
		})
		return toAskResponse(response.Apology(lang)), nil
	}

	in := response.Input{Text: res.Text, Retrieval: result, Mode: q.Mode, Lang: composed.Lang}
	if q.Mode == rag.ModeExpanded {
		in.WebSources = res.Sources
	}
	answer := response.Assemble(in)

	if cacheable && cache.ShouldStore(result.Len(), q.Mode) && !response.IsRefusal(answer.AnswerText) {
		src := cache.Source{BookName: answer.SourceBookName, Page: answer.SourcePageNumber}
		if p, ok := result.Primary(); ok {
			src.BookID = &p.BookID
		}
		s.cache.Store(ctx, key, answer.AnswerText, src)
	}

	s.logger.Info(qaModule, "Answered question", map[string]interface{}{
		"branch":   q.Branch,
		"mode":     string(q.Mode),
		"source":   answer.SourceKind,
		"path":     string(result.Path),
		"passages": result.Len(),
		"backend":  res.Backend,
	})
	return toAskResponse(answer), nil
}

func (s *qaService) Quick(ctx context.Context, req *dto.QuickRequest) (*dto.QuickResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fiber.NewError(fiber.StatusBadRequest, "question is required")
	}
	lang := rag.DetectLanguage(question)
	if s.quick == nil {
		return &dto.QuickResponse{Answer: rag.Apology(lang), Lang: lang}, nil
	}

	branch := normalizeBranch(req.Branch)
	if branch == "" {
		branch = "school"
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.QuickTimeout)
	defer cancel()

	text, err := s.quick.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: fmt.Sprintf(constant.QuickPromptV1, branch, prompt.LanguageName(lang))},
		{Role: llm.RoleUser, Content: question},
	}, llm.WithTemperature(0.3), llm.WithMaxTokens(512))
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		s.logger.Warn(qaModule, "Quick answer failed", map[string]interface{}{"error": fmt.Sprint(err)})
		return &dto.QuickResponse{Answer: rag.Apology(lang), Lang: lang}, nil
	}
	return &dto.QuickResponse{Answer: text, Lang: lang}, nil
}

// buildQuery validates the request payloads and turns them into a Query.
// Attachment problems are client errors and surface as 400.
func (s *qaService) buildQuery(req *dto.AskRequest) (rag.Query, error) {
	q := rag.Query{
		Question: strings.TrimSpace(req.Question),
		Branch:   normalizeBranch(req.Branch),
		Mode:     rag.ModeFromExpand(req.ExpandSearchOnline),
		BookIDs:  req.BookIds,
	}

	if req.ImageBase64 != "" {
		data, mimeType, err := decodePayload(req.ImageBase64, "image/jpeg")
		if err != nil {
			return q, fiber.NewError(fiber.StatusBadRequest, "imageBase64 is not valid base64")
		}
		res := extractor.Extract(data, mimeType)
		if res.Kind != extractor.KindImage {
			return q, fiber.NewError(fiber.StatusBadRequest, "imageBase64 must carry an image")
		}
		q.Attachment = &llm.Attachment{MimeType: res.MimeType, Data: res.Data}
	}

	if req.FileBase64 != "" {
		data, mimeType, err := decodePayload(req.FileBase64, req.FileMimeType)
		if err != nil {
			return q, fiber.NewError(fiber.StatusBadRequest, "fileBase64 is not valid base64")
		}
		res := extractor.Extract(data, mimeType)
		if res.IsPassthrough() {
			if q.Attachment != nil {
				return q, fiber.NewError(fiber.StatusBadRequest, "only one image or PDF can be attached")
			}
			q.Attachment = &llm.Attachment{MimeType: res.MimeType, Data: res.Data}
		} else {
			q.AttachmentText = res.Text
		}
	}

	if q.Question == "" && !q.HasAttachment() {
		return q, fiber.NewError(fiber.StatusBadRequest, "question is required when no readable attachment is sent")
	}

	history := make([]llm.Message, 0, len(req.History))
	for _, turn := range req.History {
		role := llm.RoleUser
		if turn.Role == "assistant" {
			role = llm.RoleAssistant
		}
		history = append(history, llm.Message{Role: role, Content: turn.Content})
	}
	q.History = rag.TrimHistory(history, s.cfg.HistoryWindow)

	return q, nil
}

// decodePayload accepts raw base64 or a data URI. The data URI media type
// wins over fallbackMime.
func decodePayload(payload, fallbackMime string) ([]byte, string, error) {
	mimeType := fallbackMime
	if rest, ok := strings.CutPrefix(payload, "data:"); ok {
		header, body, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(header, ";base64") {
			return nil, "", fmt.Errorf("malformed data uri")
		}
		if mt := strings.TrimSuffix(header, ";base64"); mt != "" {
			mimeType = mt
		}
		payload = body
	}

	payload = strings.TrimSpace(payload)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	}
	if err != nil {
		return nil, "", err
	}
	return data, mimeType, nil
}

func normalizeBranch(branch string) string {
	return strings.ToLower(strings.TrimSpace(branch))
}

func toAskResponse(a response.Answer) *dto.AskResponse {
	res := &dto.AskResponse{
		Answer:           a.AnswerText,
		Source:           a.SourceKind,
		SourceBookName:   a.SourceBookName,
		SourcePageNumber: a.SourcePageNumber,
		Lang:             a.Language,
	}
	for _, src := range a.Sources {
		res.Sources = append(res.Sources, dto.SourceDTO{
			Kind:  string(src.Kind),
			Title: src.Title,
			Url:   src.URL,
			Page:  src.Page,
		})
	}
	return res
}

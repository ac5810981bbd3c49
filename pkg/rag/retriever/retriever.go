// Package retriever finds textbook passages for a question: vector search
// first, lexical scoring when that fails, times out or comes back empty.
package retriever

import (
	"context"
	"errors"
	"strings"
	"time"

	"textbook-qa-be/internal/pkg/logger"
	"textbook-qa-be/internal/repository/contract"
	"textbook-qa-be/internal/repository/specification"
	"textbook-qa-be/internal/repository/unitofwork"
	"textbook-qa-be/pkg/embedding"
	"textbook-qa-be/pkg/metrics"
	"textbook-qa-be/pkg/rag"
	"textbook-qa-be/pkg/textnorm"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const module = "RETRIEVER"

var tracer = otel.Tracer("retriever")

type Config struct {
	// Timeout bounds the whole vector attempt, embedding included.
	Timeout      time.Duration
	EmbedTimeout time.Duration
	Threshold    float64
	Limit        int
	// CandidateBatch is how many chunks lexical scoring loads per round trip.
	CandidateBatch int
}

func DefaultConfig() Config {
	return Config{
		Timeout:        8 * time.Second,
		EmbedTimeout:   4 * time.Second,
		Threshold:      0.3,
		Limit:          5,
		CandidateBatch: 2000,
	}
}

type Request struct {
	Query   string
	Branch  string
	BookIDs []uuid.UUID
	Limit   int
}

// Retriever holds no per-request state and is safe for concurrent use.
type Retriever struct {
	uowFactory unitofwork.RepositoryFactory
	embedder   embedding.EmbeddingProvider
	cfg        Config
	logger     logger.ILogger
}

func New(uowFactory unitofwork.RepositoryFactory, embedder embedding.EmbeddingProvider, cfg Config, log logger.ILogger) *Retriever {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = def.EmbedTimeout
	}
	if cfg.Limit <= 0 {
		cfg.Limit = def.Limit
	}
	if cfg.CandidateBatch <= 0 {
		cfg.CandidateBatch = def.CandidateBatch
	}
	return &Retriever{uowFactory: uowFactory, embedder: embedder, cfg: cfg, logger: log}
}

// Retrieve never returns an error: every failure degrades to the lexical
// path and finally to a no-context result.
func (r *Retriever) Retrieve(ctx context.Context, req Request) *rag.RetrievalResult {
	if strings.TrimSpace(req.Query) == "" {
		return rag.NotAttempted()
	}
	limit := req.Limit
	if limit <= 0 {
		limit = r.cfg.Limit
	}
	scope := specification.ChunkScope{BookIDs: req.BookIDs, Branch: req.Branch}

	ctx, span := tracer.Start(ctx, "retriever.Retrieve")
	defer span.End()

	start := time.Now()
	passages, err := r.vectorSearch(ctx, req.Query, scope, limit)
	if err == nil && len(passages) > 0 {
		span.SetAttributes(attribute.String("retrieval.path", string(rag.PathVector)), attribute.Int("retrieval.count", len(passages)))
		return r.done(rag.PathVector, passages, start)
	}
	if err != nil {
		r.logger.Warn(module, "Vector search failed, using lexical fallback", map[string]interface{}{
			"error":   err.Error(),
			"timeout": errors.Is(err, context.DeadlineExceeded),
		})
	}

	start = time.Now()
	passages, err = r.LexicalSearch(ctx, req.Query, scope, limit)
	if err != nil {
		span.RecordError(err)
		r.logger.Error(module, "Lexical search failed", map[string]interface{}{"error": err})
		metrics.RetrievalTotal.WithLabelValues(string(rag.PathNone), string(rag.RetrievalNoContext)).Inc()
		return rag.NoContext(rag.PathNone)
	}
	span.SetAttributes(attribute.String("retrieval.path", string(rag.PathLexical)), attribute.Int("retrieval.count", len(passages)))
	return r.done(rag.PathLexical, passages, start)
}

func (r *Retriever) done(path rag.RetrievalPath, passages []rag.Passage, start time.Time) *rag.RetrievalResult {
	metrics.RetrievalDuration.WithLabelValues(string(path)).Observe(time.Since(start).Seconds())
	if len(passages) == 0 {
		metrics.RetrievalTotal.WithLabelValues(string(path), string(rag.RetrievalNoContext)).Inc()
		return rag.NoContext(path)
	}
	metrics.RetrievalTotal.WithLabelValues(string(path), string(rag.RetrievalFound)).Inc()
	return &rag.RetrievalResult{Status: rag.RetrievalFound, Path: path, Passages: passages}
}

func (r *Retriever) vectorSearch(ctx context.Context, query string, scope specification.ChunkScope, limit int) ([]rag.Passage, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "retriever.vector")
	defer span.End()

	vec, err := r.embedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	uow := r.uowFactory.NewUnitOfWork(ctx)
	rows, err := uow.ChunkRepository().SearchSimilar(ctx, vec, scope, r.cfg.Threshold, limit)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	// A search that finished after the deadline is treated like a timeout.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return toPassages(rows), nil
}

func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.EmbedTimeout)
	defer cancel()

	type result struct {
		res *embedding.EmbeddingResponse
		err error
	}
	ch := make(chan result, 1)
	go func() {
		res, err := r.embedder.Generate(ctx, textnorm.Fold(query), embedding.TaskRetrievalQuery)
		ch <- result{res, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-ch:
		if out.err != nil {
			return nil, out.err
		}
		if out.res == nil || len(out.res.Embedding.Values) == 0 {
			return nil, embedding.ErrEmptyEmbedding
		}
		return out.res.Embedding.Values, nil
	}
}

// LexicalSearch scores every chunk in scope against the query. Chunks are
// loaded in batches and only the running top list is kept between them.
func (r *Retriever) LexicalSearch(ctx context.Context, query string, scope specification.ChunkScope, limit int) ([]rag.Passage, error) {
	terms := Tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "retriever.lexical")
	defer span.End()

	repo := r.uowFactory.NewUnitOfWork(ctx).ChunkRepository()
	batch := r.cfg.CandidateBatch

	var top []rag.Passage
	scanned := 0
	for {
		rows, err := repo.FindCandidates(ctx, scope, scanned, batch)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		scanned += len(rows)
		top = mergeTop(top, rankTerms(terms, toPassages(rows), limit), limit)
		if len(rows) < batch {
			break
		}
	}
	span.SetAttributes(attribute.Int("retrieval.scanned", scanned))
	return top, nil
}

func toPassages(rows []*contract.ScoredChunk) []rag.Passage {
	out := make([]rag.Passage, 0, len(rows))
	for _, row := range rows {
		if row == nil || row.Chunk == nil {
			continue
		}
		out = append(out, rag.Passage{
			BookID:   row.Chunk.BookId,
			BookName: row.BookName,
			Page:     row.Chunk.PageNumber,
			Text:     row.Chunk.Content,
			Score:    row.Score,
		})
	}
	return out
}

// Package indexer downloads a book, splits it into page-like chunks, embeds
// them and records the book's processing status.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"textbook-qa-be/internal/entity"
	"textbook-qa-be/internal/pkg/logger"
	"textbook-qa-be/internal/repository/contract"
	"textbook-qa-be/internal/repository/specification"
	"textbook-qa-be/internal/repository/unitofwork"
	"textbook-qa-be/pkg/chunker"
	"textbook-qa-be/pkg/embedding"
	"textbook-qa-be/pkg/events"
	"textbook-qa-be/pkg/extractor"
	"textbook-qa-be/pkg/metrics"
	"textbook-qa-be/pkg/storage"
	"textbook-qa-be/pkg/textnorm"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const module = "INDEXER"

var (
	ErrBookNotFound = errors.New("indexer: book not found")
	ErrBookTooLarge = errors.New("indexer: book exceeds size limit")
	ErrNoText       = errors.New("indexer: no text extracted")
)

type Config struct {
	BatchSize int
	MaxBytes  int64
	// MaxErrors caps the messages kept in the book's error log.
	MaxErrors int
	Chunking  chunker.Options
}

func DefaultConfig() Config {
	return Config{
		BatchSize: 10,
		MaxBytes:  50 * 1024 * 1024,
		MaxErrors: 10,
		Chunking:  chunker.DefaultOptions(),
	}
}

type Job struct {
	BookID uuid.UUID
	// StoragePath overrides the path recorded on the book.
	StoragePath    string
	SkipFirstPages *int
}

type Report struct {
	BookID      uuid.UUID         `json:"bookId"`
	Strategy    chunker.Strategy  `json:"strategy"`
	TotalPages  int               `json:"totalPages"`
	TotalChunks int               `json:"totalChunks"`
	Inserted    int               `json:"inserted"`
	Existing    int               `json:"existing"`
	Failed      int               `json:"failed"`
	Status      entity.BookStatus `json:"status"`
	Errors      []string          `json:"errors"`
}

// Processed counts chunks that are stored, whether by this run or an earlier one.
func (r *Report) Processed() int {
	return r.Inserted + r.Existing
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Indexer struct {
	uowFactory unitofwork.RepositoryFactory
	storage    storage.Storage
	embedder   embedding.EmbeddingProvider
	publisher  EventPublisher
	cfg        Config
	logger     logger.ILogger
}

// New builds an Indexer. publisher may be nil.
func New(
	uowFactory unitofwork.RepositoryFactory,
	store storage.Storage,
	embedder embedding.EmbeddingProvider,
	publisher EventPublisher,
	cfg Config,
	log logger.ILogger,
) *Indexer {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = def.MaxBytes
	}
	if cfg.MaxErrors <= 0 {
		cfg.MaxErrors = def.MaxErrors
	}
	return &Indexer{
		uowFactory: uowFactory,
		storage:    store,
		embedder:   embedder,
		publisher:  publisher,
		cfg:        cfg,
		logger:     log,
	}
}

type chunkOutcome int

const (
	outcomeInserted chunkOutcome = iota
	outcomeExisting
	outcomeFailed
)

// Run processes one book. Download failures, oversize files and empty text
// are fatal and mark the book as error; chunk failures are only recorded.
func (ix *Indexer) Run(ctx context.Context, job Job) (*Report, error) {
	uow := ix.uowFactory.NewUnitOfWork(ctx)
	book, err := uow.BookRepository().FindOne(ctx, specification.ByID{ID: job.BookID})
	if err != nil {
		return nil, fmt.Errorf("load book %s: %w", job.BookID, err)
	}
	if book == nil {
		return nil, fmt.Errorf("%w: %s", ErrBookNotFound, job.BookID)
	}

	report := &Report{BookID: book.Id, Status: entity.BookStatusProcessing}
	path := strings.TrimSpace(job.StoragePath)
	if path == "" {
		path = book.StoragePath
	}

	if err := ix.updateStatus(ctx, book.Id, contract.BookStatusUpdate{Status: entity.BookStatusProcessing, Errors: []string{}}); err != nil {
		return nil, err
	}
	ix.logger.Info(module, "Ingestion started", map[string]interface{}{"book_id": book.Id.String(), "path": path})

	data, err := ix.storage.Download(ctx, path)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return ix.fail(ctx, report, fmt.Errorf("%w: %v", ErrBookTooLarge, err))
		}
		return ix.fail(ctx, report, fmt.Errorf("download %s: %w", path, err))
	}
	if int64(len(data)) > ix.cfg.MaxBytes {
		return ix.fail(ctx, report, fmt.Errorf("%w: %d bytes (max %d)", ErrBookTooLarge, len(data), ix.cfg.MaxBytes))
	}

	text, pages, err := extractBookText(data, path)
	if err != nil {
		return ix.fail(ctx, report, fmt.Errorf("%w: %v", ErrNoText, err))
	}
	if strings.TrimSpace(text) == "" {
		return ix.fail(ctx, report, ErrNoText)
	}
	report.TotalPages = pages

	opts := ix.cfg.Chunking
	opts.SkipFirst = job.SkipFirstPages
	split := chunker.Split(text, pages, opts)
	report.Strategy = split.Strategy
	report.TotalChunks = len(split.Chunks)
	if report.TotalChunks == 0 {
		return ix.fail(ctx, report, fmt.Errorf("%w: every chunk was filtered out", ErrNoText))
	}

	ix.logger.Info(module, "Book split", map[string]interface{}{
		"book_id":  book.Id.String(),
		"strategy": string(split.Strategy),
		"pages":    pages,
		"chunks":   report.TotalChunks,
		"skipped":  split.Skipped,
	})
	zero := 0
	if err := ix.updateStatus(ctx, book.Id, contract.BookStatusUpdate{
		Status:          entity.BookStatusProcessing,
		TotalPages:      &report.TotalPages,
		TotalChunks:     &report.TotalChunks,
		ProcessedChunks: &zero,
	}); err != nil {
		ix.logger.Warn(module, "Failed to record chunk totals", map[string]interface{}{"error": err.Error()})
	}

	for start := 0; start < len(split.Chunks); start += ix.cfg.BatchSize {
		end := min(start+ix.cfg.BatchSize, len(split.Chunks))
		if err := ctx.Err(); err != nil {
			for _, p := range split.Chunks[start:] {
				ix.record(report, outcomeFailed, fmt.Errorf("chunk %d: %w", p.Ordinal, err))
			}
			break
		}
		ix.runBatch(ctx, book.Id, split.Chunks[start:end], report)

		processed := report.Processed()
		if err := ix.updateStatus(ctx, book.Id, contract.BookStatusUpdate{Status: entity.BookStatusProcessing, ProcessedChunks: &processed}); err != nil {
			ix.logger.Warn(module, "Failed to record progress", map[string]interface{}{"error": err.Error()})
		}
	}

	switch {
	case report.Failed == 0:
		report.Status = entity.BookStatusAnalyzed
	case report.Processed() > 0:
		report.Status = entity.BookStatusPartialSuccess
	default:
		report.Status = entity.BookStatusError
	}
	ix.finish(ctx, report)
	return report, nil
}

// runBatch embeds and stores one batch concurrently and waits for all of it.
func (ix *Indexer) runBatch(ctx context.Context, bookId uuid.UUID, pieces []chunker.Piece, report *Report) {
	outcomes := make([]chunkOutcome, len(pieces))
	errs := make([]error, len(pieces))

	var g errgroup.Group
	for i, p := range pieces {
		g.Go(func() error {
			outcomes[i], errs[i] = ix.processChunk(ctx, bookId, p)
			return nil
		})
	}
	_ = g.Wait()

	for i := range pieces {
		ix.record(report, outcomes[i], errs[i])
	}
}

func (ix *Indexer) processChunk(ctx context.Context, bookId uuid.UUID, p chunker.Piece) (chunkOutcome, error) {
	repo := ix.uowFactory.NewUnitOfWork(ctx).ChunkRepository()

	exists, err := repo.Exists(ctx, bookId, p.Ordinal)
	if err != nil {
		return outcomeFailed, fmt.Errorf("chunk %d: existence check: %w", p.Ordinal, err)
	}
	if exists {
		return outcomeExisting, nil
	}

	// Queries are folded before embedding, so documents must be too.
	res, err := ix.embedder.Generate(ctx, textnorm.Fold(p.Text), embedding.TaskRetrievalDocument)
	if err != nil {
		return outcomeFailed, fmt.Errorf("chunk %d: embed: %w", p.Ordinal, err)
	}
	if res == nil || len(res.Embedding.Values) == 0 {
		return outcomeFailed, fmt.Errorf("chunk %d: %w", p.Ordinal, embedding.ErrEmptyEmbedding)
	}

	inserted, err := repo.InsertIfAbsent(ctx, &entity.Chunk{
		Id:             uuid.New(),
		BookId:         bookId,
		PageNumber:     p.Ordinal,
		Content:        p.Text,
		EmbeddingValue: res.Embedding.Values,
	})
	if err != nil {
		return outcomeFailed, fmt.Errorf("chunk %d: insert: %w", p.Ordinal, err)
	}
	if !inserted {
		return outcomeExisting, nil
	}
	return outcomeInserted, nil
}

func (ix *Indexer) record(report *Report, outcome chunkOutcome, err error) {
	switch outcome {
	case outcomeInserted:
		report.Inserted++
		metrics.IngestChunksTotal.WithLabelValues("inserted").Inc()
	case outcomeExisting:
		report.Existing++
		metrics.IngestChunksTotal.WithLabelValues("existing").Inc()
	default:
		report.Failed++
		metrics.IngestChunksTotal.WithLabelValues("failed").Inc()
		if err != nil && len(report.Errors) < ix.cfg.MaxErrors {
			report.Errors = append(report.Errors, err.Error())
		}
	}
}

func (ix *Indexer) fail(ctx context.Context, report *Report, cause error) (*Report, error) {
	report.Status = entity.BookStatusError
	report.Errors = []string{cause.Error()}
	ix.logger.Error(module, "Ingestion failed", map[string]interface{}{"book_id": report.BookID.String(), "error": cause})
	ix.finish(ctx, report)
	return report, cause
}

// finish persists the final status even when ctx was cancelled mid-run.
func (ix *Indexer) finish(ctx context.Context, report *Report) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	processed := report.Processed()
	errs := report.Errors
	if errs == nil {
		errs = []string{}
	}
	if err := ix.updateStatus(ctx, report.BookID, contract.BookStatusUpdate{
		Status:          report.Status,
		TotalPages:      &report.TotalPages,
		TotalChunks:     &report.TotalChunks,
		ProcessedChunks: &processed,
		Errors:          errs,
	}); err != nil {
		ix.logger.Error(module, "Failed to record final status", map[string]interface{}{"book_id": report.BookID.String(), "error": err})
	}

	metrics.IngestRunsTotal.WithLabelValues(string(report.Status)).Inc()
	ix.logger.Info(module, "Ingestion finished", map[string]interface{}{
		"book_id":  report.BookID.String(),
		"status":   string(report.Status),
		"inserted": report.Inserted,
		"existing": report.Existing,
		"failed":   report.Failed,
	})

	if ix.publisher == nil {
		return
	}
	event := events.BookStatusChanged(report.BookID, string(report.Status), processed, report.TotalChunks, errs)
	if err := ix.publisher.Publish(ctx, event); err != nil {
		ix.logger.Warn(module, "Failed to publish book status", map[string]interface{}{"error": err.Error()})
	}
}

func (ix *Indexer) updateStatus(ctx context.Context, id uuid.UUID, update contract.BookStatusUpdate) error {
	return ix.uowFactory.NewUnitOfWork(ctx).BookRepository().UpdateStatus(ctx, id, update)
}

var bookMimeTypes = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".docx": extractor.MimeDOCX,
	".doc":  extractor.MimeDOC,
}

// extractBookText reads PDFs page by page; anything else goes through the
// attachment extractor using the MIME type implied by the file extension.
func extractBookText(data []byte, path string) (string, int, error) {
	if len(data) >= 5 && string(data[:5]) == "%PDF-" {
		return extractor.ExtractPDFText(data)
	}
	ext := strings.ToLower(filepath.Ext(path))
	mimeType, ok := bookMimeTypes[ext]
	if !ok {
		mimeType = mime.TypeByExtension(ext)
	}
	if mimeType == "" {
		mimeType = "text/plain"
	}
	res := extractor.Extract(data, mimeType)
	if res.IsPassthrough() {
		return "", 0, fmt.Errorf("unsupported book type %s", mimeType)
	}
	return res.Text, 0, nil
}

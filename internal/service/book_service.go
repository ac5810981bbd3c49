package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"textbook-qa-be/internal/dto"
	"textbook-qa-be/internal/entity"
	"textbook-qa-be/internal/pkg/logger"
	"textbook-qa-be/internal/repository/specification"
	"textbook-qa-be/internal/repository/unitofwork"
	"textbook-qa-be/pkg/rag/indexer"
	"textbook-qa-be/pkg/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const bookModule = "BOOK"

type IBookService interface {
	Create(ctx context.Context, userId uuid.UUID, req *dto.CreateBookRequest) (*dto.BookResponse, error)
	Ingest(ctx context.Context, req *dto.IngestBookRequest) (*dto.IngestBookResponse, error)
	Show(ctx context.Context, id uuid.UUID) (*dto.BookResponse, error)
	List(ctx context.Context, req *dto.ListBooksRequest) ([]*dto.BookResponse, error)
}

type BookIndexer interface {
	Run(ctx context.Context, job indexer.Job) (*indexer.Report, error)
}

type bookService struct {
	uowFactory unitofwork.RepositoryFactory
	indexer    BookIndexer
	publisher  IPublisherService
	logger     logger.ILogger
}

// NewBookService builds the book service. publisher may be nil, in which
// case async ingestion requests run synchronously.
func NewBookService(uowFactory unitofwork.RepositoryFactory, ix BookIndexer, publisher IPublisherService, log logger.ILogger) IBookService {
	return &bookService{
		uowFactory: uowFactory,
		indexer:    ix,
		publisher:  publisher,
		logger:     log,
	}
}

func (s *bookService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateBookRequest) (*dto.BookResponse, error) {
	book := &entity.Book{
		Id:          uuid.New(),
		UserId:      userId,
		Branch:      normalizeBranch(req.Branch),
		Name:        strings.TrimSpace(req.Name),
		StoragePath: strings.TrimSpace(req.StoragePath),
		Status:      entity.BookStatusPending,
		ErrorLog:    []string{},
		CreatedAt:   time.Now().UTC(),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.BookRepository().Create(ctx, book); err != nil {
		return nil, err
	}

	s.logger.Info(bookModule, "Book registered", map[string]interface{}{
		"book_id": book.Id.String(),
		"branch":  book.Branch,
		"path":    book.StoragePath,
	})
	return toBookResponse(book), nil
}

func (s *bookService) Ingest(ctx context.Context, req *dto.IngestBookRequest) (*dto.IngestBookResponse, error) {
	book, err := s.find(ctx, req.BookId)
	if err != nil {
		return nil, err
	}

	if req.Async && s.publisher != nil {
		err := s.publisher.PublishIngest(ctx, dto.IngestBookMessage{
			BookId:         book.Id,
			StoragePath:    req.StoragePath,
			SkipFirstPages: req.SkipFirstPages,
		})
		if err != nil {
			return nil, err
		}
		return &dto.IngestBookResponse{BookId: book.Id, Queued: true, Status: string(book.Status)}, nil
	}

	report, err := s.indexer.Run(ctx, indexer.Job{
		BookID:         book.Id,
		StoragePath:    req.StoragePath,
		SkipFirstPages: req.SkipFirstPages,
	})
	if err != nil {
		return nil, ingestError(err)
	}
	return toIngestResponse(report), nil
}

func (s *bookService) Show(ctx context.Context, id uuid.UUID) (*dto.BookResponse, error) {
	book, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return toBookResponse(book), nil
}

func (s *bookService) List(ctx context.Context, req *dto.ListBooksRequest) ([]*dto.BookResponse, error) {
	var specs []specification.Specification
	if branch := normalizeBranch(req.Branch); branch != "" {
		specs = append(specs, specification.ByBranch{Branch: branch})
	}
	if req.Status != "" {
		specs = append(specs, specification.ByStatuses{Statuses: []string{req.Status}})
	}
	if req.Owner != "" {
		owner, err := uuid.Parse(req.Owner)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid owner id")
		}
		specs = append(specs, specification.ByUserID{UserID: owner})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	books, err := uow.BookRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.BookResponse, 0, len(books))
	for _, b := range books {
		res = append(res, toBookResponse(b))
	}
	return res, nil
}

func (s *bookService) find(ctx context.Context, id uuid.UUID) (*entity.Book, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	book, err := uow.BookRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "book not found")
	}
	return book, nil
}

// ingestError maps fatal ingestion failures to HTTP errors. The book itself
// is already marked as error by the indexer.
func ingestError(err error) error {
	switch {
	case errors.Is(err, indexer.ErrBookNotFound):
		return fiber.NewError(fiber.StatusNotFound, "book not found")
	case errors.Is(err, storage.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "book file not found in storage")
	case errors.Is(err, indexer.ErrBookTooLarge):
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, indexer.ErrNoText):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	default:
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
}

func toBookResponse(b *entity.Book) *dto.BookResponse {
	return &dto.BookResponse{
		Id:              b.Id,
		Name:            b.Name,
		Branch:          b.Branch,
		StoragePath:     b.StoragePath,
		Status:          string(b.Status),
		TotalPages:      b.TotalPages,
		TotalChunks:     b.TotalChunks,
		ProcessedChunks: b.ProcessedChunks,
		Errors:          b.ErrorLog,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func toIngestResponse(r *indexer.Report) *dto.IngestBookResponse {
	return &dto.IngestBookResponse{
		BookId:      r.BookID,
		Status:      string(r.Status),
		Strategy:    string(r.Strategy),
		TotalPages:  r.TotalPages,
		TotalChunks: r.TotalChunks,
		Inserted:    r.Inserted,
		Existing:    r.Existing,
		Failed:      r.Failed,
		Errors:      r.Errors,
	}
}

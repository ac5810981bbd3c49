package memory

import (
	"context"
	"testing"

	"textbook-qa-be/internal/entity"
	"textbook-qa-be/internal/repository/contract"
	"textbook-qa-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkInsertIfAbsentAndRoundTrip(t *testing.T) {
	ctx := context.Background()
	uow := NewStore().NewUnitOfWork(ctx)
	bookId := uuid.New()

	inserted, err := uow.ChunkRepository().InsertIfAbsent(ctx, &entity.Chunk{BookId: bookId, PageNumber: 3, Content: "Mitosis has four phases."})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = uow.ChunkRepository().InsertIfAbsent(ctx, &entity.Chunk{BookId: bookId, PageNumber: 3, Content: "duplicate"})
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := uow.ChunkRepository().FindByOrdinal(ctx, bookId, 3)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Mitosis has four phases.", got.Content)

	missing, err := uow.ChunkRepository().FindByOrdinal(ctx, bookId, 4)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestChunkScope(t *testing.T) {
	ctx := context.Background()
	uow := NewStore().NewUnitOfWork(ctx)
	books := uow.BookRepository()
	chunks := uow.ChunkRepository()

	bio := &entity.Book{Name: "Biology", Branch: "scientific", Status: entity.BookStatusAnalyzed}
	lit := &entity.Book{Name: "Poetry", Branch: "literary", Status: entity.BookStatusAnalyzed}
	pending := &entity.Book{Name: "Draft", Branch: "scientific", Status: entity.BookStatusProcessing}
	for _, b := range []*entity.Book{bio, lit, pending} {
		require.NoError(t, books.Create(ctx, b))
		_, err := chunks.InsertIfAbsent(ctx, &entity.Chunk{BookId: b.Id, PageNumber: 1, Content: b.Name, EmbeddingValue: []float32{1, 0}})
		require.NoError(t, err)
	}

	got, err := chunks.FindCandidates(ctx, specification.ChunkScope{Branch: "scientific"}, 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Biology", got[0].BookName)

	got, err = chunks.FindCandidates(ctx, specification.ChunkScope{BookIDs: []uuid.UUID{pending.Id}}, 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1, "explicit scope ignores status")

	scored, err := chunks.SearchSimilar(ctx, []float32{1, 0}, specification.ChunkScope{}, 0.3, 5)
	require.NoError(t, err)
	assert.Len(t, scored, 2)
	assert.InDelta(t, 1.0, scored[0].Score, 1e-9)

	scored, err = chunks.SearchSimilar(ctx, []float32{0, 1}, specification.ChunkScope{}, 0.3, 5)
	require.NoError(t, err)
	assert.Empty(t, scored, "orthogonal vectors fall under the threshold")
}

func TestBookUpdateStatus(t *testing.T) {
	ctx := context.Background()
	books := NewStore().NewUnitOfWork(ctx).BookRepository()
	b := &entity.Book{Name: "Chemistry", Branch: "scientific"}
	require.NoError(t, books.Create(ctx, b))
	assert.Equal(t, entity.BookStatusPending, b.Status)

	processed := 7
	require.NoError(t, books.UpdateStatus(ctx, b.Id, contract.BookStatusUpdate{
		Status:          entity.BookStatusPartialSuccess,
		ProcessedChunks: &processed,
		Errors:          []string{"chunk 3: boom"},
	}))

	got, err := books.FindOne(ctx, specification.ByID{ID: b.Id})
	require.NoError(t, err)
	assert.Equal(t, entity.BookStatusPartialSuccess, got.Status)
	assert.Equal(t, 7, got.ProcessedChunks)
	assert.Equal(t, []string{"chunk 3: boom"}, got.ErrorLog)

	assert.Error(t, books.UpdateStatus(ctx, uuid.New(), contract.BookStatusUpdate{Status: entity.BookStatusError}))
}

func TestFindCandidatesPages(t *testing.T) {
	ctx := context.Background()
	uow := NewStore().NewUnitOfWork(ctx)
	book := &entity.Book{Name: "Atlas", Branch: "literary", Status: entity.BookStatusAnalyzed}
	require.NoError(t, uow.BookRepository().Create(ctx, book))
	for i := 1; i <= 5; i++ {
		_, err := uow.ChunkRepository().InsertIfAbsent(ctx, &entity.Chunk{BookId: book.Id, PageNumber: i, Content: "page"})
		require.NoError(t, err)
	}

	var pages []int
	for offset := 0; ; offset += 2 {
		got, err := uow.ChunkRepository().FindCandidates(ctx, specification.ChunkScope{}, offset, 2)
		require.NoError(t, err)
		for _, c := range got {
			pages = append(pages, c.Chunk.PageNumber)
		}
		if len(got) < 2 {
			break
		}
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, pages)
}

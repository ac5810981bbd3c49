package implementation

import (
	"context"
	"os"
	"testing"

	"textbook-qa-be/internal/entity"
	"textbook-qa-be/internal/model"
	"textbook-qa-be/internal/repository/specification"
	"textbook-qa-be/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}
	db, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(db))
	return db
}

func vec(hot int) []float32 {
	v := make([]float32, 768)
	v[hot] = 1
	return v
}

func TestChunkRepositoryAgainstPostgres(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	books := NewBookRepository(db)
	chunks := NewChunkRepository(db)

	book := &entity.Book{
		UserId:      uuid.New(),
		Branch:      "integration-" + uuid.NewString(),
		Name:        "Integration Biology",
		StoragePath: "books/integration.pdf",
		Status:      entity.BookStatusAnalyzed,
	}
	require.NoError(t, books.Create(ctx, book))
	t.Cleanup(func() { db.Unscoped().Delete(&model.Book{}, "id = ?", book.Id) })

	inserted, err := chunks.InsertIfAbsent(ctx, &entity.Chunk{BookId: book.Id, PageNumber: 1, Content: "Cells divide by mitosis.", EmbeddingValue: vec(0)})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = chunks.InsertIfAbsent(ctx, &entity.Chunk{BookId: book.Id, PageNumber: 1, Content: "again", EmbeddingValue: vec(0)})
	require.NoError(t, err)
	assert.False(t, inserted, "unique (book_id, page_number) must hold")

	got, err := chunks.FindByOrdinal(ctx, book.Id, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Cells divide by mitosis.", got.Content)

	scored, err := chunks.SearchSimilar(ctx, vec(0), specification.ChunkScope{Branch: book.Branch}, 0.3, 5)
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Equal(t, "Integration Biology", scored[0].BookName)
	assert.InDelta(t, 1.0, scored[0].Score, 1e-6)

	candidates, err := chunks.FindCandidates(ctx, specification.ChunkScope{BookIDs: []uuid.UUID{book.Id}}, 0, 10)
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
}

func TestAnswerCacheUpsertLastWriteWins(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewAnswerCacheRepository(db)
	key := "integration " + uuid.NewString() + "|strict|scientific"
	t.Cleanup(func() { db.Delete(&model.AnswerCache{}, "key = ?", key) })

	require.NoError(t, repo.Upsert(ctx, &entity.AnswerCache{Key: key, Answer: "first", Mode: "strict"}))
	require.NoError(t, repo.Upsert(ctx, &entity.AnswerCache{Key: key, Answer: "second", Mode: "strict", BookName: "Biology 10", PageNumber: 4}))

	got, err := repo.FindByKey(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "second", got.Answer)
	assert.Equal(t, "Biology 10", got.BookName)
	assert.Equal(t, 4, got.PageNumber)
}

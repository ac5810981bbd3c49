package indexer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"textbook-qa-be/internal/entity"
	"textbook-qa-be/internal/pkg/logger"
	"textbook-qa-be/internal/repository/memory"
	"textbook-qa-be/internal/repository/specification"
	"textbook-qa-be/pkg/chunker"
	"textbook-qa-be/pkg/embedding"
	"textbook-qa-be/pkg/events"
	"textbook-qa-be/pkg/storage"
	"textbook-qa-be/pkg/textnorm"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	calls    atomic.Int32
	failFrom int32 // calls numbered >= failFrom fail; 0 disables
	failAll  bool

	mu    sync.Mutex
	texts []string
}

func (f *fakeEmbedder) Generate(ctx context.Context, text, taskType string) (*embedding.EmbeddingResponse, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	n := f.calls.Add(1)
	if f.failAll || (f.failFrom > 0 && n >= f.failFrom) {
		return nil, errors.New("embedding quota")
	}
	return &embedding.EmbeddingResponse{Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{1, 0}}}, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *fakePublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type fixture struct {
	store *memory.Store
	files *storage.Local
	emb   *fakeEmbedder
	pub   *fakePublisher
	ix    *Indexer
	book  *entity.Book
}

func newFixture(t *testing.T, content string) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		store: memory.NewStore(),
		files: storage.NewLocal(t.TempDir(), 0),
		emb:   &fakeEmbedder{},
		pub:   &fakePublisher{},
	}
	f.book = &entity.Book{Name: "Biology 10", Branch: "scientific", StoragePath: "books/bio.txt"}
	require.NoError(t, f.store.NewUnitOfWork(ctx).BookRepository().Create(ctx, f.book))
	if content != "" {
		require.NoError(t, f.files.Upload(ctx, f.book.StoragePath, []byte(content), "text/plain"))
	}
	cfg := DefaultConfig()
	cfg.BatchSize = 2
	f.ix = New(f.store, f.files, f.emb, f.pub, cfg, logger.NewNopLogger())
	return f
}

func (f *fixture) reload(t *testing.T) *entity.Book {
	t.Helper()
	ctx := context.Background()
	b, err := f.store.NewUnitOfWork(ctx).BookRepository().FindOne(ctx, specification.ByID{ID: f.book.Id})
	require.NoError(t, err)
	require.NotNil(t, b)
	return b
}

// words yields n runes of text that collapse to exactly n-1 runes.
func words(n int) string {
	return strings.Repeat("cell ", n/5)
}

func TestRunIndexesAllChunks(t *testing.T) {
	f := newFixture(t, words(5000))
	ctx := context.Background()

	report, err := f.ix.Run(ctx, Job{BookID: f.book.Id})

	require.NoError(t, err)
	assert.Equal(t, chunker.StrategyFixed, report.Strategy)
	assert.Equal(t, 3, report.TotalChunks)
	assert.Equal(t, 3, report.Inserted)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, entity.BookStatusAnalyzed, report.Status)

	book := f.reload(t)
	assert.Equal(t, entity.BookStatusAnalyzed, book.Status)
	assert.Equal(t, 3, book.ProcessedChunks)
	assert.Equal(t, 3, book.TotalChunks)
	assert.Empty(t, book.ErrorLog)

	chunks := f.store.NewUnitOfWork(ctx).ChunkRepository()
	for ordinal := 1; ordinal <= 3; ordinal++ {
		c, err := chunks.FindByOrdinal(ctx, f.book.Id, ordinal)
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.LessOrEqual(t, len([]rune(c.Content)), chunker.DefaultOptions().MaxLen)
		assert.True(t, strings.HasPrefix(strings.TrimSpace(c.Content), "cell") || strings.HasPrefix(c.Content, "ell"))
	}

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, events.TypeBookStatus, f.pub.events[0].EventType())
	assert.Equal(t, "analyzed", f.pub.events[0].Payload()["status"])
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t, words(5000))
	ctx := context.Background()

	_, err := f.ix.Run(ctx, Job{BookID: f.book.Id})
	require.NoError(t, err)
	callsAfterFirst := f.emb.calls.Load()

	report, err := f.ix.Run(ctx, Job{BookID: f.book.Id})

	require.NoError(t, err)
	assert.Equal(t, 0, report.Inserted)
	assert.Equal(t, 3, report.Existing)
	assert.Equal(t, entity.BookStatusAnalyzed, report.Status)
	assert.Equal(t, callsAfterFirst, f.emb.calls.Load(), "existing chunks are not re-embedded")

	n, err := f.store.NewUnitOfWork(ctx).ChunkRepository().CountByBook(ctx, f.book.Id)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestRunPartialSuccess(t *testing.T) {
	f := newFixture(t, words(5000))
	f.emb.failFrom = 3

	report, err := f.ix.Run(context.Background(), Job{BookID: f.book.Id})

	require.NoError(t, err)
	assert.Equal(t, 2, report.Inserted)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, entity.BookStatusPartialSuccess, report.Status)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "embedding quota")

	book := f.reload(t)
	assert.Equal(t, entity.BookStatusPartialSuccess, book.Status)
	assert.Equal(t, 2, book.ProcessedChunks)
	assert.Len(t, book.ErrorLog, 1)
}

func TestRunAllChunksFailAndErrorsAreCapped(t *testing.T) {
	f := newFixture(t, words(30000))
	f.emb.failAll = true

	report, err := f.ix.Run(context.Background(), Job{BookID: f.book.Id})

	require.NoError(t, err)
	assert.Equal(t, 15, report.Failed)
	assert.Equal(t, entity.BookStatusError, report.Status)
	assert.Len(t, report.Errors, 10)
	assert.Equal(t, entity.BookStatusError, f.reload(t).Status)
}

func TestRunFatalErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		f := newFixture(t, "")
		report, err := f.ix.Run(context.Background(), Job{BookID: f.book.Id})
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.Equal(t, entity.BookStatusError, report.Status)
		book := f.reload(t)
		assert.Equal(t, entity.BookStatusError, book.Status)
		require.Len(t, book.ErrorLog, 1)
		assert.Contains(t, book.ErrorLog[0], "download")
	})

	t.Run("too large", func(t *testing.T) {
		f := newFixture(t, words(5000))
		f.ix.cfg.MaxBytes = 100
		_, err := f.ix.Run(context.Background(), Job{BookID: f.book.Id})
		assert.ErrorIs(t, err, ErrBookTooLarge)
		assert.Equal(t, entity.BookStatusError, f.reload(t).Status)
	})

	t.Run("no text", func(t *testing.T) {
		f := newFixture(t, "   \n\n  ")
		_, err := f.ix.Run(context.Background(), Job{BookID: f.book.Id})
		assert.ErrorIs(t, err, ErrNoText)
		assert.Equal(t, entity.BookStatusError, f.reload(t).Status)
		require.Len(t, f.pub.events, 1)
		assert.Equal(t, "error", f.pub.events[0].Payload()["status"])
	})

	t.Run("unknown book", func(t *testing.T) {
		f := newFixture(t, words(5000))
		_, err := f.ix.Run(context.Background(), Job{BookID: uuid.New()})
		assert.ErrorIs(t, err, ErrBookNotFound)
	})
}

func TestRunStoragePathOverride(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	require.NoError(t, f.files.Upload(ctx, "other/path.txt", []byte(words(2500)), "text/plain"))

	report, err := f.ix.Run(ctx, Job{BookID: f.book.Id, StoragePath: "other/path.txt"})

	require.NoError(t, err)
	assert.Equal(t, 2, report.Inserted)
}

func TestRunEmbedsFoldedTextAndStoresOriginal(t *testing.T) {
	const fatha = "\u064E"
	f := newFixture(t, strings.Repeat("الكِتَابُ المَدْرَسِيُّ يَشْرَحُ البِنَاءَ الضَّوْئِيَّ فِي النَّبَاتِ. ", 3))
	ctx := context.Background()

	report, err := f.ix.Run(ctx, Job{BookID: f.book.Id})
	require.NoError(t, err)
	require.Equal(t, 1, report.Inserted)

	c, err := f.store.NewUnitOfWork(ctx).ChunkRepository().FindByOrdinal(ctx, f.book.Id, 1)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Contains(t, c.Content, fatha, "stored content keeps its diacritics")

	require.Len(t, f.emb.texts, 1)
	assert.Equal(t, textnorm.Fold(c.Content), f.emb.texts[0])
	assert.NotContains(t, f.emb.texts[0], fatha)
	assert.Contains(t, f.emb.texts[0], "الكتاب المدرسي")
}

package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"textbook-qa-be/internal/dto"
	"textbook-qa-be/internal/pkg/logger"
	"textbook-qa-be/internal/repository/memory"
	"textbook-qa-be/internal/service"
	"textbook-qa-be/pkg/embedding"
	"textbook-qa-be/pkg/rag/cache"
	"textbook-qa-be/pkg/rag/indexer"
	"textbook-qa-be/pkg/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type unitEmbedder struct{}

func (unitEmbedder) Generate(ctx context.Context, text, taskType string) (*embedding.EmbeddingResponse, error) {
	return &embedding.EmbeddingResponse{Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{1, 0}}}, nil
}

type fakeQA struct {
	last *dto.AskRequest
}

func (f *fakeQA) Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error) {
	f.last = req
	return &dto.AskResponse{Answer: "Cells are the unit of life.", Source: "textbook", Lang: "en"}, nil
}

func (f *fakeQA) Quick(ctx context.Context, req *dto.QuickRequest) (*dto.QuickResponse, error) {
	return &dto.QuickResponse{Answer: "Quick one.", Lang: "en"}, nil
}

func setupTestDeps(t *testing.T) (*fakeQA, *bytes.Buffer) {
	t.Helper()
	store := memory.NewStore()
	files := storage.NewLocal(t.TempDir(), 0)
	ix := indexer.New(store, files, unitEmbedder{}, nil, indexer.DefaultConfig(), logger.NewNopLogger())
	qa := &fakeQA{}
	deps = &Deps{
		Books:   service.NewBookService(store, ix, nil, logger.NewNopLogger()),
		QA:      qa,
		Storage: files,
		Cache:   cache.NewRepositoryStore(store),
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	t.Cleanup(func() {
		deps = nil
		rootCmd.SetArgs(nil)
		bookName, bookBranch, bookPath, bookOwner, bookStatus, bookIngest, bookJSON = "", "", "", "", "", false, false
		cacheOlderThan = 30 * 24 * time.Hour
		askBranch, askExpand, askBooks, askFile, askQuick, askJSON = "", false, nil, "", false, false
	})
	return qa, buf
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"book", "ingest", "ask", "events", "cache"} {
		assert.True(t, names[want], want)
	}
}

func TestBookAddWithIngest(t *testing.T) {
	_, buf := setupTestDeps(t)
	file := filepath.Join(t.TempDir(), "biology.txt")
	require.NoError(t, os.WriteFile(file, []byte("Cells are the basic unit of life and every organism is built from them."), 0o644))

	rootCmd.SetArgs([]string{"book", "add", file, "--branch", "Scientific", "--ingest"})
	require.NoError(t, rootCmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "Registered biology")
	assert.Contains(t, out, ": analyzed")
	assert.Contains(t, out, "Inserted 1, existing 0, failed 0")
}

func TestBookShowRejectsBadID(t *testing.T) {
	setupTestDeps(t)
	rootCmd.SetArgs([]string{"book", "show", "not-a-uuid"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid book id")
}

func TestAskBuildsRequest(t *testing.T) {
	qa, buf := setupTestDeps(t)

	rootCmd.SetArgs([]string{"ask", "What is a cell?", "--branch", "scientific", "--expand"})
	require.NoError(t, rootCmd.Execute())

	require.NotNil(t, qa.last)
	assert.True(t, qa.last.ExpandSearchOnline)
	assert.Equal(t, "scientific", qa.last.Branch)
	assert.Contains(t, buf.String(), "Cells are the unit of life.")
	assert.Contains(t, buf.String(), "[source: textbook, lang: en]")
}

func TestAskValidatesBeforeCalling(t *testing.T) {
	qa, _ := setupTestDeps(t)

	rootCmd.SetArgs([]string{"ask", "What is a cell?"})
	require.Error(t, rootCmd.Execute())
	assert.Nil(t, qa.last)
}

func TestEventsNeedsSource(t *testing.T) {
	setupTestDeps(t)
	rootCmd.SetArgs([]string{"events"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NATS_URL")
}

func TestBookListFiltersByBranch(t *testing.T) {
	_, buf := setupTestDeps(t)
	ctx := context.Background()
	_, err := deps.Books.Create(ctx, uuid.Nil, &dto.CreateBookRequest{Name: "Biology 10", Branch: "scientific", StoragePath: "books/bio.txt"})
	require.NoError(t, err)
	_, err = deps.Books.Create(ctx, uuid.Nil, &dto.CreateBookRequest{Name: "Poetry 11", Branch: "literary", StoragePath: "books/poetry.txt"})
	require.NoError(t, err)

	rootCmd.SetArgs([]string{"book", "list", "--branch", "literary"})
	require.NoError(t, rootCmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "Poetry 11")
	assert.NotContains(t, out, "Biology 10")
}

func TestCachePrune(t *testing.T) {
	_, buf := setupTestDeps(t)
	ctx := context.Background()
	store := deps.Cache.(*cache.RepositoryStore)
	require.NoError(t, store.Put(ctx, &cache.Entry{Key: "old|strict|scientific", Answer: "a", CreatedAt: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, store.Put(ctx, &cache.Entry{Key: "new|strict|scientific", Answer: "b", CreatedAt: time.Now()}))

	rootCmd.SetArgs([]string{"cache", "prune", "--older-than", "24h"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "Pruned 1 cached answers")

	gone, err := store.Get(ctx, "old|strict|scientific")
	require.NoError(t, err)
	assert.Nil(t, gone)
	kept, err := store.Get(ctx, "new|strict|scientific")
	require.NoError(t, err)
	require.NotNil(t, kept)
}

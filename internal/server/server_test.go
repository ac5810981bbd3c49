package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"textbook-qa-be/internal/bootstrap"
	"textbook-qa-be/internal/config"
	"textbook-qa-be/internal/pkg/logger"
	"textbook-qa-be/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App: config.AppConfig{Port: "0", CorsAllowedOrigins: "*", IngestTopic: "INGEST_BOOK"},
		Ai: config.AIConfig{
			EmbeddingProvider: "ollama",
			OllamaBaseURL:     "http://127.0.0.1:1",
			ModelPriority:     []string{"ollama:llama3"},
			QuickModel:        "ollama:llama3",
		},
		Rag:     config.RagConfig{TopK: 5, HistoryWindow: 6, ChunkFixedWidth: 2000, ChunkMaxLen: 4000, ChunkMinLen: 50, BatchSize: 10},
		Cache:   config.CacheConfig{Backend: "memory"},
		Storage: config.StorageConfig{Backend: "local", LocalRoot: t.TempDir()},
	}
}

func TestServerHealthAndMetrics(t *testing.T) {
	cfg := testConfig(t)
	c, err := bootstrap.NewContainer(t.Context(), memory.NewStore(), cfg, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(c.Close)

	app := New(cfg, c).GetApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "textbook_qa_http_requests_total")

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/book/v1/abc", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntry(t *testing.T) {
	p, m, err := ParseEntry(" Ollama:llama3:8b ")
	require.NoError(t, err)
	assert.Equal(t, "ollama", p)
	assert.Equal(t, "llama3:8b", m)

	_, _, err = ParseEntry("gemini")
	assert.Error(t, err)
}

func TestNewLLMProvider(t *testing.T) {
	_, err := NewLLMProvider("gemini", "gemini-2.0-flash", Settings{})
	assert.Error(t, err, "missing api key")

	p, err := NewLLMProvider("ollama", "llama3", Settings{})
	require.NoError(t, err)
	assert.NotNil(t, p)

	_, err = NewLLMProvider("openai", "gpt", Settings{})
	assert.Error(t, err)
}

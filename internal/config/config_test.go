package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBranchPriorities(t *testing.T) {
	env := []string{
		"PATH=/usr/bin",
		"MODEL_PRIORITY_SCIENTIFIC=ollama:qwen2.5, gemini:gemini-2.0-flash",
		"MODEL_PRIORITY_LITERARY=",
	}

	got := branchPriorities(env)

	assert.Equal(t, []string{"ollama:qwen2.5", "gemini:gemini-2.0-flash"}, got["scientific"])
	_, ok := got["literary"]
	assert.False(t, ok, "empty override must not register")
}

func TestPriorityFor(t *testing.T) {
	cfg := AIConfig{
		ModelPriority:  []string{"gemini:a", "ollama:b"},
		BranchPriority: map[string][]string{"scientific": {"ollama:b"}},
	}

	assert.Equal(t, []string{"ollama:b"}, cfg.PriorityFor(" Scientific "))
	assert.Equal(t, []string{"gemini:a", "ollama:b"}, cfg.PriorityFor("literary"))
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_DURATION", "3s")
	t.Setenv("TEST_FLOAT", "0.42")
	t.Setenv("TEST_LIST", "a, b,,c")
	t.Setenv("TEST_INT", "not-a-number")

	assert.Equal(t, 3*time.Second, getEnvAsDuration("TEST_DURATION", time.Second))
	assert.InDelta(t, 0.42, getEnvAsFloat("TEST_FLOAT", 0), 1e-9)
	assert.Equal(t, []string{"a", "b", "c"}, getEnvAsList("TEST_LIST", nil))
	assert.Equal(t, 7, getEnvAsInt("TEST_INT", 7))
}

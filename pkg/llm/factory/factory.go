package factory

import (
	"fmt"
	"strings"

	"textbook-qa-be/pkg/llm"
	"textbook-qa-be/pkg/llm/gemini"
	"textbook-qa-be/pkg/llm/huggingface"
	"textbook-qa-be/pkg/llm/ollama"
)

// Settings carries the credentials and endpoints each backend needs.
type Settings struct {
	GeminiAPIKey      string
	HuggingFaceAPIKey string
	HuggingFaceURL    string
	OllamaBaseURL     string
}

func NewLLMProvider(providerType, modelName string, s Settings) (llm.LLMProvider, error) {
	switch providerType {
	case "gemini":
		if s.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini provider requires GOOGLE_GEMINI_API_KEY")
		}
		return gemini.NewGeminiProvider(s.GeminiAPIKey, modelName), nil
	case "huggingface":
		return huggingface.NewHuggingFaceProvider(s.HuggingFaceAPIKey, s.HuggingFaceURL, modelName), nil
	case "ollama":
		baseURL := s.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}

// ParseEntry splits a "provider:model" priority entry. The model part may
// itself contain colons (e.g. "ollama:llama3:8b").
func ParseEntry(entry string) (provider, model string, err error) {
	provider, model, ok := strings.Cut(strings.TrimSpace(entry), ":")
	if !ok || provider == "" || model == "" {
		return "", "", fmt.Errorf("invalid model priority entry %q, want provider:model", entry)
	}
	return strings.ToLower(provider), model, nil
}

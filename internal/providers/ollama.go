package providers

import (
	"context"
	"os"
	"strings"

	"github.com/go-resty/resty/v2"
)

const defaultOllamaURL = "http://localhost:11434"

// Ollama implements the Client interface for Ollama and LM Studio through
// their OpenAI-compatible endpoint.
type Ollama struct {
	apiKey  string
	model   string
	baseURL string
	http    *resty.Client
}

// NewOllama creates a new Ollama provider. No API key is required by default.
func NewOllama(model string) (*Ollama, error) {
	return &Ollama{
		apiKey:  os.Getenv("VULNSCAN_OLLAMA_API_KEY"),
		model:   model,
		baseURL: normalizeOllamaURL(os.Getenv("OLLAMA_HOST")),
		http:    newRestClient(),
	}, nil
}

// normalizeOllamaURL accepts a bare host, a /v1 base or the full completions
// URL and returns the completions URL.
func normalizeOllamaURL(host string) string {
	if host == "" {
		host = defaultOllamaURL
	}
	host = strings.TrimRight(host, "/")
	host = strings.TrimSuffix(host, "/v1/chat/completions")
	host = strings.TrimSuffix(host, "/v1")
	return host + "/v1/chat/completions"
}

func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) Complete(ctx context.Context, req Request) (Response, error) {
	return completeChat(ctx, o.http, "ollama request", o.baseURL, o.apiKey, o.model, req)
}

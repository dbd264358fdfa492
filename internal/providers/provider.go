package providers

import (
	"context"
	"fmt"
)

// Request contains the data sent to an LLM for one completion.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	// Temperature is sent when non-nil, including zero. Nil leaves the
	// backend default.
	Temperature  *float64
}

// Response contains the raw response from an LLM.
type Response struct {
	Content    string
	TokensUsed int
}

// Client is the provider abstraction interface. Implementations perform a
// single request per Complete call and classify failures as TransientError or
// FatalError so the caller can decide whether to retry.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Name() string
}

// New creates a provider by name.
func New(provider, model string) (Client, error) {
	switch provider {
	case "anthropic":
		return NewAnthropic(model)
	case "openai":
		return NewOpenAI(model)
	case "gemini", "google":
		return NewGemini(model)
	case "ollama", "lmstudio":
		return NewOllama(model)
	default:
		return nil, &FatalError{Op: "selecting provider", Err: fmt.Errorf("unknown provider: %s", provider)}
	}
}

// Names returns the provider names accepted by New.
func Names() []string {
	return []string{"anthropic", "openai", "gemini", "ollama"}
}

// Package providers implements the inference boundary: one Client per
// supported LLM backend.
//
// Supported providers: Anthropic (Claude), OpenAI (GPT), Google (Gemini via the
// genai SDK), and Ollama / LMStudio for local models. The HTTP providers share
// a resty client with its own retries disabled; retrying is the caller's job
// and is driven by the error taxonomy in errors.go and the backoff helper in
// retry.go.
//
// Use [New] to obtain a Client by provider name and model string.
package providers

// Package llmclient implements the chat(system, user) -> content
// contract the generator driver depends on, with two interchangeable
// backends: Ollama over HTTP and Gemini via google.golang.org/genai.
// Only the single blocking chat call is exposed; neither streaming nor
// tool-calling has a caller in this repository.
package llmclient

import "context"

// Provider is the backend contract the generator driver depends on.
type Provider interface {
	Name() string
	Chat(ctx context.Context, system, user string) (string, error)
}

// ProviderError carries the backend name and a machine-readable code
// so callers can tell transport failures apart from response failures.
type ProviderError struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + ": " + e.Message + " (" + e.Code + "): " + e.Err.Error()
	}
	return e.Provider + ": " + e.Message + " (" + e.Code + ")"
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

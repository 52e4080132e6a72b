package port

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Message is one chat message sent to a completion provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest describes a single completion call.
type CompletionRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// LLM represents a language model for text generation.
type LLM interface {
	// Complete returns the model's reply to the given messages.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}

// ProviderError is returned by adapters when an external provider call fails.
type ProviderError struct {
	Provider   string
	StatusCode int // 0 when the request never got a response
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s returned status %d", e.Provider, e.StatusCode)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Transient reports whether the call may succeed if repeated.
func (e *ProviderError) Transient() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// IsTransient reports whether err is a timeout, rate limit or server-side
// failure of an external provider.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

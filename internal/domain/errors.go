package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine failures.
type ErrorKind string

const (
	KindEmbeddingUnavailable     ErrorKind = "embedding_unavailable"
	KindVectorStoreUnavailable   ErrorKind = "vector_store_unavailable"
	KindGenerationUnavailable    ErrorKind = "generation_unavailable"
	KindInvalidInput             ErrorKind = "invalid_input"
	KindEscalationDeliveryFailed ErrorKind = "escalation_delivery_failed"
	KindServiceUnavailable       ErrorKind = "service_unavailable"
)

// Error is a classified engine error. Two Errors match under errors.Is when
// their kinds are equal.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError creates a classified error wrapping err.
func NewError(kind ErrorKind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

var (
	ErrEmbeddingUnavailable     = &Error{Kind: KindEmbeddingUnavailable, Message: "embedding provider unavailable"}
	ErrVectorStoreUnavailable   = &Error{Kind: KindVectorStoreUnavailable, Message: "vector store unavailable"}
	ErrGenerationUnavailable    = &Error{Kind: KindGenerationUnavailable, Message: "generation provider unavailable"}
	ErrInvalidInput             = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrEscalationDeliveryFailed = &Error{Kind: KindEscalationDeliveryFailed, Message: "escalation delivery failed"}
	ErrServiceUnavailable       = &Error{Kind: KindServiceUnavailable, Message: "service temporarily unavailable"}
)

// InvalidInput builds a non-retryable input error.
func InvalidInput(op, format string, args ...any) *Error {
	return NewError(KindInvalidInput, op, fmt.Sprintf(format, args...), nil)
}

// EmbeddingUnavailable wraps a provider failure from the embedder.
func EmbeddingUnavailable(op string, err error) *Error {
	return NewError(KindEmbeddingUnavailable, op, "embedding provider unavailable", err)
}

// VectorStoreUnavailable wraps a failure from the vector store.
func VectorStoreUnavailable(op string, err error) *Error {
	return NewError(KindVectorStoreUnavailable, op, "vector store unavailable", err)
}

// GenerationUnavailable wraps a failure from the completion provider.
func GenerationUnavailable(op string, err error) *Error {
	return NewError(KindGenerationUnavailable, op, "generation provider unavailable", err)
}

// ServiceUnavailable is the single user-visible failure for a request that
// could not be answered at all.
func ServiceUnavailable(op string, err error) *Error {
	return NewError(KindServiceUnavailable, op, "service temporarily unavailable", err)
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRetryable reports whether err comes from an external dependency that may
// recover on its own.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindEmbeddingUnavailable, KindVectorStoreUnavailable, KindGenerationUnavailable:
		return true
	}
	return false
}

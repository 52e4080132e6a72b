package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/EmonKarmaker/ai-support-system/internal/domain"
	"github.com/EmonKarmaker/ai-support-system/internal/port"
)

type fakeLLM struct {
	mu       sync.Mutex
	replies  []string
	errs     []error
	requests []port.CompletionRequest
}

func (f *fakeLLM) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return "", err
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(f.replies) == 0 {
		return "generated answer", nil
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

func (f *fakeLLM) ModelName() string { return "fake-llm" }

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// alwaysFailLLM fails every call with a transient provider error.
type alwaysFailLLM struct{}

func (alwaysFailLLM) Complete(context.Context, port.CompletionRequest) (string, error) {
	return "", &port.ProviderError{Provider: "chat", StatusCode: 503}
}

func (alwaysFailLLM) ModelName() string { return "down" }

type fakeNotifier struct {
	mu     sync.Mutex
	events []domain.EscalationEvent
	err    error
	notify chan struct{}
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{notify: make(chan struct{}, 64)}
}

func (f *fakeNotifier) Notify(ctx context.Context, event domain.EscalationEvent) error {
	f.mu.Lock()
	f.events = append(f.events, event)
	err := f.err
	f.mu.Unlock()
	f.notify <- struct{}{}
	return err
}

func (f *fakeNotifier) received() []domain.EscalationEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.EscalationEvent(nil), f.events...)
}

// failingEmbedder reports the provider as unreachable.
type failingEmbedder struct{ dim int }

func (f failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, &port.ProviderError{Provider: "embeddings", Err: errors.New("connection refused")}
}
func (f failingEmbedder) Dimension() int    { return f.dim }
func (f failingEmbedder) ModelName() string { return "down" }

// brokenStore fails every search.
type brokenStore struct{ port.VectorStore }

func (brokenStore) Search(context.Context, []float32, int, domain.Category) ([]port.VectorResult, error) {
	return nil, errors.New("disk I/O error")
}

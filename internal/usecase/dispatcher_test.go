package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/EmonKarmaker/ai-support-system/internal/domain"
)

func waitEvents(t *testing.T, n *fakeNotifier, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		select {
		case <-n.notify:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for escalation %d", i+1)
		}
	}
}

func TestEscalationDispatcher_Delivers(t *testing.T) {
	n := newFakeNotifier()
	d := NewEscalationDispatcher(n, DispatcherOptions{Workers: 2, QueueSize: 8}, nil)

	for _, id := range []string{"a", "b", "c"} {
		assert.True(t, d.Submit(domain.EscalationEvent{SessionID: id}))
	}
	waitEvents(t, n, 3)
	require.NoError(t, d.Close(context.Background()))

	got := map[string]bool{}
	for _, e := range n.received() {
		got[e.SessionID] = true
	}
	assert.Equal(t, map[string]bool{"a": true, "b": true, "c": true}, got)
	assert.Equal(t, int64(3), d.Stats().Delivered)
}

func TestEscalationDispatcher_FailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	n := newFakeNotifier()
	n.err = errors.New("webhook returned 500")
	d := NewEscalationDispatcher(n, DispatcherOptions{Workers: 1, QueueSize: 1}, zap.New(core))

	assert.True(t, d.Submit(domain.EscalationEvent{TicketID: "TKT-1", SessionID: "s"}))
	waitEvents(t, n, 1)
	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, int64(1), d.Stats().Failed)
	entries := logs.FilterMessage("escalation delivery failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "TKT-1", entries[0].ContextMap()["ticket_id"])
}

func TestEscalationDispatcher_SubmitAfterClose(t *testing.T) {
	d := NewEscalationDispatcher(newFakeNotifier(), DispatcherOptions{}, nil)
	require.NoError(t, d.Close(context.Background()))
	require.NoError(t, d.Close(context.Background()))

	assert.False(t, d.Submit(domain.EscalationEvent{SessionID: "late"}))
	assert.Equal(t, int64(1), d.Stats().Dropped)
}

func TestEscalationDispatcher_SendReportsFailure(t *testing.T) {
	n := newFakeNotifier()
	n.err = errors.New("unreachable")
	d := NewEscalationDispatcher(n, DispatcherOptions{}, nil)
	defer d.Close(context.Background())

	err := d.Send(context.Background(), domain.EscalationEvent{SessionID: "s"})
	assert.EqualError(t, err, "unreachable")
}

package port

import (
	"context"

	"github.com/EmonKarmaker/ai-support-system/internal/domain"
)

// SessionStore keeps short-lived per-conversation history.
type SessionStore interface {
	// Get returns the session, creating an empty one if it does not exist or
	// has expired. It never fails.
	Get(ctx context.Context, id string) domain.Session

	// Append adds turns to the session atomically, evicting the oldest turns
	// beyond the configured cap.
	Append(ctx context.Context, id string, turns ...domain.SessionTurn)

	// SetEscalated records whether the session is waiting on a human.
	SetEscalated(ctx context.Context, id string, escalated bool)

	// Len returns the number of live sessions.
	Len() int
}

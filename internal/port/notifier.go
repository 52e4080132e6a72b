package port

import (
	"context"

	"github.com/EmonKarmaker/ai-support-system/internal/domain"
)

// Notifier delivers escalation events to the human support queue.
// Retrying and queueing are the implementation's concern.
type Notifier interface {
	Notify(ctx context.Context, event domain.EscalationEvent) error
}

package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/EmonKarmaker/ai-support-system/internal/domain"
	"github.com/EmonKarmaker/ai-support-system/internal/port"
)

// DispatcherOptions sizes the escalation worker pool.
type DispatcherOptions struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

// DispatcherStats counts what happened to submitted events.
type DispatcherStats struct {
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
	Pending   int   `json:"pending"`
}

// EscalationDispatcher delivers escalation events in the background.
// Delivery is fire-and-forget: failures are logged and counted, never
// reported back to the request that raised the event.
type EscalationDispatcher struct {
	notifier port.Notifier
	opts     DispatcherOptions
	logger   *zap.Logger

	events chan domain.EscalationEvent
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// NewEscalationDispatcher starts the workers immediately.
func NewEscalationDispatcher(notifier port.Notifier, opts DispatcherOptions, logger *zap.Logger) *EscalationDispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &EscalationDispatcher{
		notifier: notifier,
		opts:     opts,
		logger:   logger,
		events:   make(chan domain.EscalationEvent, opts.QueueSize),
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	return d
}

// Submit queues an event without blocking. It returns false when the queue
// is full or the dispatcher is closed; the event is then dropped.
func (d *EscalationDispatcher) Submit(event domain.EscalationEvent) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		d.logger.Warn("escalation dispatcher closed, dropping event",
			zap.String("ticket_id", event.TicketID),
			zap.String("session_id", event.SessionID))
		return false
	}

	select {
	case d.events <- event:
		return true
	default:
		d.dropped.Add(1)
		d.logger.Warn("escalation queue full, dropping event",
			zap.String("ticket_id", event.TicketID),
			zap.String("session_id", event.SessionID))
		return false
	}
}

// Send delivers an event synchronously with the dispatcher's timeout.
func (d *EscalationDispatcher) Send(ctx context.Context, event domain.EscalationEvent) error {
	ctx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
	defer cancel()

	if err := d.notifier.Notify(ctx, event); err != nil {
		d.failed.Add(1)
		return err
	}
	d.delivered.Add(1)
	return nil
}

func (d *EscalationDispatcher) worker(id int) {
	defer d.wg.Done()

	for event := range d.events {
		// Detached from the request that raised the event.
		if err := d.Send(context.Background(), event); err != nil {
			d.logger.Error("escalation delivery failed",
				zap.Int("worker_id", id),
				zap.String("ticket_id", event.TicketID),
				zap.String("session_id", event.SessionID),
				zap.String("reason", string(event.Reason)),
				zap.Error(err))
			continue
		}
		d.logger.Info("escalation delivered",
			zap.String("ticket_id", event.TicketID),
			zap.String("session_id", event.SessionID))
	}
}

// Close stops accepting events and waits for queued ones to be delivered or
// for ctx to end.
func (d *EscalationDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.events)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("escalation dispatcher did not drain"), ctx.Err())
	}
}

func (d *EscalationDispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
		Pending:   len(d.events),
	}
}

package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"almoner/pkg/requestcontext"
)

// Log is the synchronous, in-process event log. Append order is emission
// order; Recent returns the newest events first.
type Log interface {
	Append(ctx context.Context, event Event) error
	Recent(ctx context.Context, limit int) ([]Event, error)
}

// Publisher stamps and records ledger events. Every event is appended to the
// log synchronously, then offered to the async inbox consumed by the Kafka
// worker. Emission never blocks a mutating ledger operation: a full inbox
// drops the async copy and logs, the synchronous log keeps the record.
type Publisher struct {
	log    Log
	inbox  chan Event
	logger *slog.Logger
}

// NewPublisher creates a publisher over the given log. bufferSize bounds the
// async inbox; zero disables async fan-out entirely.
func NewPublisher(log Log, bufferSize int, logger *slog.Logger) *Publisher {
	var inbox chan Event
	if bufferSize > 0 {
		inbox = make(chan Event, bufferSize)
	}
	return &Publisher{log: log, inbox: inbox, logger: logger}
}

// Emit stamps the event with an ID, timestamp, and request ID, appends it to
// the log, and offers it to the async inbox.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	if err := p.log.Append(ctx, event); err != nil {
		return err
	}

	if p.inbox != nil {
		select {
		case p.inbox <- event:
		default:
			p.logger.Warn("event inbox full, dropping async copy",
				"kind", event.Kind, "event_id", event.ID)
		}
	}
	return nil
}

// Recent returns the newest events first, truncated to limit.
func (p *Publisher) Recent(ctx context.Context, limit int) ([]Event, error) {
	return p.log.Recent(ctx, limit)
}

// Inbox exposes the async channel for the worker. Nil when async fan-out is
// disabled.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}

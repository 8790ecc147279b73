package events

import (
	"context"
	"log/slog"
)

// Sink receives the async copy of each event, e.g. a Kafka producer.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Worker drains the publisher inbox into a sink. Sink failures are logged and
// skipped; the synchronous log already holds the event, so the sink is
// best-effort by design.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run consumes the inbox until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Publish(ctx, event); err != nil {
				w.logger.Error("event sink publish failed",
					"kind", event.Kind, "event_id", event.ID, "error", err)
			}
		}
	}
}

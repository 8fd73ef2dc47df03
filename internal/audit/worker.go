package audit

import (
	"context"
	"log/slog"
)

// Worker drains ledger entries into a sink. It keeps export processing off
// the request path; sink failures are logged and the entry is dropped because
// the slog record already exists.
type Worker struct {
	sink  Sink
	inbox <-chan Entry
	log   *slog.Logger
}

// NewWorker wires a drained channel to a sink.
func NewWorker(sink Sink, inbox <-chan Entry, log *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, log: log}
}

// Run consumes entries until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry := <-w.inbox:
			if err := w.sink.Emit(ctx, entry); err != nil && w.log != nil {
				w.log.ErrorContext(ctx, "audit sink emit failed",
					"event", entry.Event,
					"error", err,
				)
			}
		}
	}
}

package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"avatar-gateway/pkg/requestcontext"
)

// Entry is one internal audit record. Unlike charter messages it may carry
// provider identifiers, per-operation cost, and raw error text; it is never
// rendered to a client.
type Entry struct {
	Time      time.Time      `json:"time"`
	Event     string         `json:"event"`
	RequestID string         `json:"request_id,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Sink receives ledger entries for durable external audit (e.g. a message
// broker). Emit must be safe for concurrent use.
type Sink interface {
	Emit(ctx context.Context, e Entry) error
}

// Ledger is the unrestricted internal channel. Every entry goes to the
// structured logger; when a sink is attached, entries are also queued for
// asynchronous export. The queue is best-effort: a full buffer drops the
// export copy rather than blocking a request.
type Ledger struct {
	log   *slog.Logger
	inbox chan Entry
}

// NewLedger builds the internal channel on top of the given logger.
func NewLedger(log *slog.Logger) *Ledger {
	return &Ledger{log: log}
}

// Buffer attaches an export queue of the given capacity and returns the
// receive side for a Worker. Call before serving traffic.
func (l *Ledger) Buffer(capacity int) <-chan Entry {
	l.inbox = make(chan Entry, capacity)
	return l.inbox
}

// Log records a diagnostic event with arbitrary key/value pairs.
func (l *Ledger) Log(ctx context.Context, event string, args ...any) {
	if l == nil {
		return
	}
	if l.log != nil {
		withID := append(args, "channel", "ledger")
		if requestID := requestcontext.RequestID(ctx); requestID != "" {
			withID = append(withID, "request_id", requestID)
		}
		l.log.InfoContext(ctx, event, withID...)
	}
	l.enqueue(ctx, event, args)
}

// Error records a failure with the original error text attached. This is the
// only place raw error strings are allowed to land.
func (l *Ledger) Error(ctx context.Context, event string, err error, args ...any) {
	if l == nil {
		return
	}
	args = append(args, "error", fmt.Sprint(err))
	if l.log != nil {
		withID := append(args, "channel", "ledger")
		if requestID := requestcontext.RequestID(ctx); requestID != "" {
			withID = append(withID, "request_id", requestID)
		}
		l.log.ErrorContext(ctx, event, withID...)
	}
	l.enqueue(ctx, event, args)
}

func (l *Ledger) enqueue(ctx context.Context, event string, args []any) {
	if l.inbox == nil {
		return
	}
	entry := Entry{
		Time:      requestcontext.Now(ctx),
		Event:     event,
		RequestID: requestcontext.RequestID(ctx),
		Fields:    pairsToFields(args),
	}
	select {
	case l.inbox <- entry:
	default:
		// Export is best-effort; the slog copy above is the durable record.
	}
}

func pairsToFields(args []any) map[string]any {
	if len(args) == 0 {
		return nil
	}
	fields := make(map[string]any, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		fields[key] = args[i+1]
	}
	return fields
}

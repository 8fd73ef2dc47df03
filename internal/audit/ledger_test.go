package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avatar-gateway/pkg/requestcontext"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLedgerEnqueuesForExport(t *testing.T) {
	l := NewLedger(discardLogger())
	inbox := l.Buffer(4)

	ctx := requestcontext.WithRequestID(context.Background(), "req-1")
	ctx = requestcontext.WithTime(ctx, time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))

	l.Log(ctx, "moderation complete", "approved", true, "unsafe_score", 0.12)

	select {
	case entry := <-inbox:
		assert.Equal(t, "moderation complete", entry.Event)
		assert.Equal(t, "req-1", entry.RequestID)
		assert.Equal(t, true, entry.Fields["approved"])
		assert.Equal(t, 0.12, entry.Fields["unsafe_score"])
	default:
		t.Fatal("expected an export entry")
	}
}

func TestLedgerErrorCarriesErrorText(t *testing.T) {
	l := NewLedger(discardLogger())
	inbox := l.Buffer(1)

	l.Error(context.Background(), "blob store write failed", errors.New("connection reset"), "key", "k1")

	entry := <-inbox
	assert.Equal(t, "connection reset", entry.Fields["error"])
	assert.Equal(t, "k1", entry.Fields["key"])
}

func TestLedgerFullBufferDropsExportCopy(t *testing.T) {
	l := NewLedger(discardLogger())
	l.Buffer(1)

	// Second log must not block even though nothing drains the buffer.
	done := make(chan struct{})
	go func() {
		l.Log(context.Background(), "first")
		l.Log(context.Background(), "second")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ledger blocked on a full export buffer")
	}
}

func TestNilLedgerIsSafe(t *testing.T) {
	var l *Ledger
	l.Log(context.Background(), "event")
	l.Error(context.Background(), "event", errors.New("boom"))
}

type captureSink struct {
	mu      sync.Mutex
	entries []Entry
	err     error
}

func (s *captureSink) Emit(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func TestWorkerDrainsToSink(t *testing.T) {
	l := NewLedger(discardLogger())
	inbox := l.Buffer(8)
	sink := &captureSink{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = NewWorker(sink, inbox, discardLogger()).Run(ctx)
	}()

	l.Log(context.Background(), "one")
	l.Log(context.Background(), "two")

	require.Eventually(t, func() bool { return sink.count() == 2 },
		time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestWorkerSurvivesSinkFailure(t *testing.T) {
	l := NewLedger(discardLogger())
	inbox := l.Buffer(8)
	sink := &captureSink{err: errors.New("broker down")}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = NewWorker(sink, inbox, discardLogger()).Run(ctx) }()

	l.Log(context.Background(), "one")

	// The failed emit is dropped; a later entry still gets processed.
	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()

	l.Log(context.Background(), "two")
	require.Eventually(t, func() bool { return sink.count() >= 1 },
		time.Second, 5*time.Millisecond)
}

package store

import (
	"context"
	"sync"

	"avatar-gateway/internal/moderation"
)

// InMemoryDecisionLog collects records for unit tests.
type InMemoryDecisionLog struct {
	mu      sync.Mutex
	records []moderation.Record
	failErr error
}

// NewInMemoryDecisionLog builds an empty log.
func NewInMemoryDecisionLog() *InMemoryDecisionLog {
	return &InMemoryDecisionLog{}
}

// FailWith makes every subsequent Append return err. Test helper.
func (s *InMemoryDecisionLog) FailWith(err error) {
	s.mu.Lock()
	s.failErr = err
	s.mu.Unlock()
}

func (s *InMemoryDecisionLog) Append(_ context.Context, rec moderation.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.records = append(s.records, rec)
	return nil
}

// Records returns a copy of everything appended so far.
func (s *InMemoryDecisionLog) Records() []moderation.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]moderation.Record, len(s.records))
	copy(out, s.records)
	return out
}

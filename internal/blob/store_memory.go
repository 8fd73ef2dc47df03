package blob

import (
	"context"
	"sync"

	"avatar-gateway/pkg/platform/sentinel"
)

// InMemoryStore is a map-backed blob store for unit tests.
type InMemoryStore struct {
	mu      sync.Mutex
	objects map[string]StoredObject
	putErr  error
	deleted []string
}

// StoredObject captures one Put for assertions.
type StoredObject struct {
	Data []byte
	Opts PutOptions
}

// NewInMemoryStore builds an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{objects: make(map[string]StoredObject)}
}

// FailPutsWith makes every subsequent Put return err. Test helper.
func (s *InMemoryStore) FailPutsWith(err error) {
	s.mu.Lock()
	s.putErr = err
	s.mu.Unlock()
}

func (s *InMemoryStore) Put(_ context.Context, key string, data []byte, opts PutOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	s.objects[key] = StoredObject{Data: copied, Opts: opts}
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

// Object returns the stored object for a key, if present. Test helper.
func (s *InMemoryStore) Object(key string) (StoredObject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// Keys lists all stored keys. Test helper.
func (s *InMemoryStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}

// Deleted lists keys removed via Delete. Test helper.
func (s *InMemoryStore) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.deleted))
	copy(out, s.deleted)
	return out
}

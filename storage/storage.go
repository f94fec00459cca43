// Package storage is the opaque key/value persistence used for the last
// document, the signature profile and the session history. Absent keys are
// reported with ok == false, never as errors.
package storage

import (
	"context"
	"sync"
)

// Keys used by the editor.
const (
	KeyLastDocument     = "last-document"
	KeySignatureProfile = "signature-profile"
	KeySessionHistory   = "session-history"
)

// Store persists opaque values by key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Memory keeps values in process memory.
type Memory struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemory() *Memory { return &Memory{m: make(map[string][]byte)} }

func (s *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Memory) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = append([]byte(nil), value...)
	return nil
}

func (s *Memory) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

// Keys returns the number of stored keys.
func (s *Memory) Keys() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Dir)(nil)
)

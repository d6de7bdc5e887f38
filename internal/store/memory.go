package store

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// Memory is an in-process Store with the same observable semantics as the
// Redis implementation: atomic conditional updates and per-path change
// delivery in commit order. It backs the lifecycle and watcher tests.
//
// Subscription callbacks run on the mutating goroutine and must not call back
// into the store.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte

	// notifyMu serializes deliveries so subscribers observe commits in order
	// even after mu has been released.
	notifyMu sync.Mutex
	subs     map[string]map[int]ChangeFunc
	nextSub  int

	// failErr, when set, makes every operation fail. Used to exercise
	// transport-failure paths.
	failErr error
}

func NewMemory() *Memory {
	return &Memory{
		data: make(map[string][]byte),
		subs: make(map[string]map[int]ChangeFunc),
	}
}

// SetFailure makes all subsequent operations return err; pass nil to heal.
func (s *Memory) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

func (s *Memory) Read(_ context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	val, ok := s.data[path]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), val...), nil
}

func (s *Memory) Write(_ context.Context, path string, value []byte) error {
	s.mu.Lock()
	if s.failErr != nil {
		s.mu.Unlock()
		return s.failErr
	}
	s.data[path] = append([]byte(nil), value...)
	s.publishLocked(path, value, true)
	return nil
}

func (s *Memory) Create(_ context.Context, path string, value []byte) error {
	s.mu.Lock()
	if s.failErr != nil {
		s.mu.Unlock()
		return s.failErr
	}
	if _, exists := s.data[path]; exists {
		s.mu.Unlock()
		return ErrAlreadyExists
	}
	s.data[path] = append([]byte(nil), value...)
	s.publishLocked(path, value, true)
	return nil
}

func (s *Memory) Patch(ctx context.Context, path string, fields map[string]json.RawMessage) error {
	return s.Update(ctx, path, func(current []byte) ([]byte, error) {
		return mergePatch(current, fields)
	})
}

func (s *Memory) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	if s.failErr != nil {
		s.mu.Unlock()
		return s.failErr
	}
	delete(s.data, path)
	s.publishLocked(path, nil, false)
	return nil
}

func (s *Memory) Update(_ context.Context, path string, fn UpdateFunc) error {
	s.mu.Lock()
	if s.failErr != nil {
		s.mu.Unlock()
		return s.failErr
	}

	current, exists := s.data[path]
	var snapshot []byte
	if exists {
		snapshot = append([]byte(nil), current...)
	}

	next, err := fn(snapshot)
	if err != nil {
		s.mu.Unlock()
		if err == ErrSkipWrite {
			return nil
		}
		return err
	}

	if next == nil {
		delete(s.data, path)
		s.publishLocked(path, nil, false)
		return nil
	}
	s.data[path] = append([]byte(nil), next...)
	s.publishLocked(path, next, true)
	return nil
}

func (s *Memory) List(_ context.Context, prefix string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	out := make(map[string][]byte)
	for path, val := range s.data {
		if strings.HasPrefix(path, prefix) {
			out[path] = append([]byte(nil), val...)
		}
	}
	return out, nil
}

func (s *Memory) Subscribe(_ context.Context, path string, fn ChangeFunc) (Unsubscribe, error) {
	s.mu.Lock()
	if s.failErr != nil {
		s.mu.Unlock()
		return nil, s.failErr
	}
	id := s.nextSub
	s.nextSub++
	if s.subs[path] == nil {
		s.subs[path] = make(map[int]ChangeFunc)
	}
	s.subs[path][id] = fn
	current, exists := s.data[path]
	var snapshot []byte
	if exists {
		snapshot = append([]byte(nil), current...)
	}

	s.notifyMu.Lock()
	s.mu.Unlock()
	fn(snapshot, exists)
	s.notifyMu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if m := s.subs[path]; m != nil {
			delete(m, id)
		}
	}, nil
}

// publishLocked is called with mu held; it hands mu back after taking the
// delivery lock so per-path commit order is preserved.
func (s *Memory) publishLocked(path string, value []byte, ok bool) {
	fns := make([]ChangeFunc, 0, len(s.subs[path]))
	for _, fn := range s.subs[path] {
		fns = append(fns, fn)
	}
	var snapshot []byte
	if ok {
		snapshot = append([]byte(nil), value...)
	}

	s.notifyMu.Lock()
	s.mu.Unlock()
	for _, fn := range fns {
		fn(snapshot, ok)
	}
	s.notifyMu.Unlock()
}

// Package store is the persistence gateway: a hierarchical key-value store
// with change subscriptions and a conditional-update primitive. All room and
// player documents live behind this interface; nothing above it is allowed to
// read-then-overwrite shared state.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Read when no value exists at the path.
	ErrNotFound = errors.New("store: not found")
	// ErrAlreadyExists is returned by Create when the path is taken.
	ErrAlreadyExists = errors.New("store: already exists")
	// ErrConflict is returned by Update once the retry ceiling is exhausted.
	ErrConflict = errors.New("store: conditional update conflict")
	// ErrUnreachable covers transport failures; the caller must not assume
	// the mutation applied.
	ErrUnreachable = errors.New("store: unreachable")
	// ErrDenied covers authorization failures at the store.
	ErrDenied = errors.New("store: denied")
	// ErrSkipWrite may be returned from an UpdateFunc to commit nothing and
	// report success (idempotent no-ops).
	ErrSkipWrite = errors.New("store: skip write")
)

// UpdateFunc transforms the current value at a path. current is nil when the
// path is absent. Returning nil bytes deletes the path; returning ErrSkipWrite
// leaves it untouched. The function may run several times, so it must be pure
// apart from its inputs.
type UpdateFunc func(current []byte) ([]byte, error)

// ChangeFunc receives the value at a subscribed path. ok is false when the
// path is absent or has been deleted. The first invocation carries the value
// at subscribe time; later ones follow every committed change, in commit
// order for that path.
type ChangeFunc func(value []byte, ok bool)

// Unsubscribe stops delivery for one subscription. Safe to call twice.
type Unsubscribe func()

// Store is a key-path-addressable document store.
type Store interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, value []byte) error
	// Create writes only if the path is absent.
	Create(ctx context.Context, path string, value []byte) error
	// Patch merges fields into the document at one level; nested maps are
	// replaced wholesale.
	Patch(ctx context.Context, path string, fields map[string]json.RawMessage) error
	Delete(ctx context.Context, path string) error
	// Update runs fn against a snapshot and commits only if the value is
	// unchanged at write time, retrying the whole cycle on interference.
	Update(ctx context.Context, path string, fn UpdateFunc) error
	// List returns every path under prefix with its value.
	List(ctx context.Context, prefix string) (map[string][]byte, error)
	Subscribe(ctx context.Context, path string, fn ChangeFunc) (Unsubscribe, error)
}

// mergePatch applies a one-level field merge, shared by implementations.
func mergePatch(current []byte, fields map[string]json.RawMessage) ([]byte, error) {
	if current == nil {
		return nil, ErrNotFound
	}
	doc := make(map[string]json.RawMessage)
	if err := json.Unmarshal(current, &doc); err != nil {
		return nil, fmt.Errorf("store: patch target is not an object: %w", err)
	}
	for k, v := range fields {
		doc[k] = v
	}
	return json.Marshal(doc)
}

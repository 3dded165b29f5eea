// Package uistate implements the reactive state container behind the
// administration UI pages: a single functionally-updated state tree with
// path-based access, selector subscriptions that only fire when their derived
// value changes, and expression selectors evaluated by pluggable engines.
package uistate

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/CybercentreCanada/assemblyline-ui-state/fieldpath"
	"github.com/CybercentreCanada/assemblyline-ui-state/pkg/activity"
)

// Store owns one root value of type T. The root is replaced wholesale on
// every mutation: ancestors of the written path are cloned, untouched
// siblings are kept by reference, and subscribers always observe a
// fully-committed root.
type Store[T any] struct {
	cfg storeConfig

	mu   sync.RWMutex
	root T

	// commitMu serializes commits so subscribers see every root exactly once
	// and in order.
	commitMu   sync.Mutex
	snapshotID string

	subsMu  sync.Mutex
	subs    map[uint64]*subscription[T]
	nextSub uint64
}

// New constructs a Store holding initial.
func New[T any](initial T, opts ...Option) *Store[T] {
	return &Store[T]{
		cfg:  applyOptions(opts),
		root: initial,
		subs: map[uint64]*subscription[T]{},
	}
}

// Name returns the label configured via WithName.
func (s *Store[T]) Name() string {
	return s.cfg.name
}

// Get returns the current root. Callers must treat it as immutable; all
// writes go through SetState, SetField or UpdateField.
func (s *Store[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

// SnapshotID returns the identifier assigned to the latest commit, or the
// empty string before the first commit.
func (s *Store[T]) SnapshotID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotID
}

// SetState atomically replaces the whole root with fn(current). The commit is
// all-or-nothing: when fn returns an error (or panics) the root is unchanged
// and no subscriber is notified.
func (s *Store[T]) SetState(fn func(T) (T, error)) error {
	if fn == nil {
		return fmt.Errorf("uistate: update function is required")
	}
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	next, err := fn(s.Get())
	if err != nil {
		return err
	}
	s.commit(next, "")
	return nil
}

// GetField resolves path against the current root. A missing field yields
// (nil, false, nil); a malformed path is a programmer error and returns it.
func (s *Store[T]) GetField(path string) (any, bool, error) {
	return fieldpath.Get(s.Get(), path)
}

// SetField writes value at path and commits the resulting root.
func (s *Store[T]) SetField(path string, value any) error {
	return s.UpdateField(path, func(any) any { return value })
}

// UpdateField replaces the value at path with fn(current) and commits the
// resulting root. fn receives the current value at path (nil when missing).
func (s *Store[T]) UpdateField(path string, fn func(any) any) error {
	if fn == nil {
		return fmt.Errorf("uistate: update function is required")
	}
	parsed, err := fieldpath.Parse(path)
	if err != nil {
		return err
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	next, err := parsed.Update(s.Get(), fn)
	if err != nil {
		return err
	}
	typed, ok := next.(T)
	if !ok {
		return fmt.Errorf("uistate: path %q produced %T, want %T", path, next, s.root)
	}
	s.commit(typed, path)
	return nil
}

// commit swaps the root, then notifies subscribers synchronously. Callers
// hold commitMu.
func (s *Store[T]) commit(next T, path string) {
	id := uuid.NewString()

	s.mu.Lock()
	s.root = next
	s.snapshotID = id
	s.mu.Unlock()

	for _, sub := range s.snapshotSubscribers() {
		sub.notify(next)
	}
	s.emitCommit(id, path)
}

func (s *Store[T]) snapshotSubscribers() []*subscription[T] {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	out := make([]*subscription[T], 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	return out
}

func (s *Store[T]) emitCommit(snapshotID, path string) {
	if !s.cfg.activityHooks.Enabled() {
		return
	}
	metadata := map[string]any{"snapshot_id": snapshotID}
	if path != "" {
		metadata["path"] = path
	}
	// Best effort: a failing hook must never undo a committed root.
	_ = s.cfg.activityHooks.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbStateUpdate,
		ActorID:    s.cfg.actorID,
		ObjectType: "form",
		ObjectID:   s.objectID(),
		Metadata:   metadata,
	})
}

func (s *Store[T]) objectID() string {
	if s.cfg.name != "" {
		return s.cfg.name
	}
	return "store"
}

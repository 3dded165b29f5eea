package uistate

import "github.com/CybercentreCanada/assemblyline-ui-state/fieldpath"

// Accessor is a typed lens over a single path of a Store[S]. The path literal
// is parsed at registration time so malformed paths surface at startup rather
// than as silently-missing fields at read time.
type Accessor[S, V any] struct {
	path fieldpath.Path
}

// NewAccessor compiles path into a typed accessor.
func NewAccessor[S, V any](path string) (Accessor[S, V], error) {
	parsed, err := fieldpath.Parse(path)
	if err != nil {
		return Accessor[S, V]{}, err
	}
	return Accessor[S, V]{path: parsed}, nil
}

// MustAccessor compiles path and panics on failure. Intended for package
// level accessor literals.
func MustAccessor[S, V any](path string) Accessor[S, V] {
	accessor, err := NewAccessor[S, V](path)
	if err != nil {
		panic(err)
	}
	return accessor
}

// Path returns the accessor's path string.
func (a Accessor[S, V]) Path() string {
	return a.path.String()
}

// Get reads the value at the accessor's path from the store's current root.
// The second return is false when the field is missing or holds a value of
// the wrong type.
func (a Accessor[S, V]) Get(store *Store[S]) (V, bool) {
	var zero V
	raw, ok := a.path.Get(store.Get())
	if !ok {
		return zero, false
	}
	value, ok := raw.(V)
	if !ok {
		return zero, false
	}
	return value, true
}

// Set writes value at the accessor's path and commits.
func (a Accessor[S, V]) Set(store *Store[S], value V) error {
	return store.UpdateField(a.path.String(), func(any) any { return value })
}

// Update replaces the value at the accessor's path with fn(current) and
// commits. When the current value is missing or mistyped, fn receives the
// zero value of V.
func (a Accessor[S, V]) Update(store *Store[S], fn func(V) V) error {
	return store.UpdateField(a.path.String(), func(current any) any {
		value, _ := current.(V)
		return fn(value)
	})
}

// Watch subscribes onChange to changes of the value at the accessor's path.
func (a Accessor[S, V]) Watch(store *Store[S], onChange func(V)) func() {
	return store.Subscribe(func(root S) any {
		value, _ := a.path.Get(root)
		return value
	}, func(value any) {
		typed, _ := value.(V)
		onChange(typed)
	})
}

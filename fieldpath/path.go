// Package fieldpath resolves dotted-and-bracketed path strings against nested
// values. Paths address map keys, struct fields (by json tag, then Go name)
// and slice indices, e.g. "settings.services[2].services[0].selected".
//
// Writes are copy-on-write: every ancestor on the path to the target is
// cloned while untouched siblings keep their identity, so callers can rely on
// cheap reference comparisons to detect which subtrees changed.
package fieldpath

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// ErrInvalidPath reports a malformed path string. A malformed path is a
// programmer error and always surfaces; it is never treated as a no-op.
var ErrInvalidPath = errors.New("fieldpath: invalid path")

// PathError describes why a path failed to parse or resolve.
type PathError struct {
	Path   string
	Reason string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("fieldpath: path %q: %s", e.Path, e.Reason)
}

func (e *PathError) Unwrap() error {
	return ErrInvalidPath
}

type segment struct {
	key     string
	index   int
	isIndex bool
}

// Path is a parsed, reusable path. Parsing once at registration time gives
// callers startup-time feedback on every path literal they use.
type Path struct {
	raw      string
	segments []segment
}

// Parse validates raw and returns a reusable Path.
func Parse(raw string) (Path, error) {
	if raw == "" {
		return Path{}, &PathError{Path: raw, Reason: "empty path"}
	}

	var segments []segment
	rest := raw
	expectKey := true
	for rest != "" {
		switch {
		case rest[0] == '.':
			if expectKey {
				return Path{}, &PathError{Path: raw, Reason: "empty segment"}
			}
			rest = rest[1:]
			expectKey = true
		case rest[0] == '[':
			if expectKey && len(segments) == 0 {
				return Path{}, &PathError{Path: raw, Reason: "path must start with an identifier"}
			}
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return Path{}, &PathError{Path: raw, Reason: "unbalanced bracket"}
			}
			digits := rest[1:end]
			index, err := strconv.Atoi(digits)
			if err != nil || index < 0 {
				return Path{}, &PathError{Path: raw, Reason: fmt.Sprintf("invalid index %q", digits)}
			}
			segments = append(segments, segment{index: index, isIndex: true})
			rest = rest[end+1:]
			expectKey = false
		default:
			end := len(rest)
			for i := 0; i < len(rest); i++ {
				if rest[i] == '.' || rest[i] == '[' {
					end = i
					break
				}
			}
			key := rest[:end]
			if key == "" || strings.ContainsAny(key, "]") {
				return Path{}, &PathError{Path: raw, Reason: fmt.Sprintf("invalid segment %q", key)}
			}
			segments = append(segments, segment{key: key})
			rest = rest[end:]
			expectKey = false
		}
	}
	if expectKey {
		return Path{}, &PathError{Path: raw, Reason: "trailing separator"}
	}
	return Path{raw: raw, segments: segments}, nil
}

// MustParse parses raw and panics on failure. Intended for path literals.
func MustParse(raw string) Path {
	path, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return path
}

func (p Path) String() string {
	return p.raw
}

// Get resolves p against root. Missing intermediate or leaf values yield
// (nil, false) rather than an error, matching optional-field semantics.
func (p Path) Get(root any) (any, bool) {
	current := root
	for _, seg := range p.segments {
		next, ok := descend(current, seg)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// Set replaces the value at p, returning the new root. Ancestors are cloned,
// untouched siblings keep their identity. Missing containers on the way down
// are created as map[string]any (key segments) or grown []any (index
// segments).
func (p Path) Set(root, value any) (any, error) {
	return p.Update(root, func(any) any { return value })
}

// Update replaces the value at p with fn(current), returning the new root.
func (p Path) Update(root any, fn func(any) any) (any, error) {
	if fn == nil {
		return nil, fmt.Errorf("fieldpath: update function is required")
	}
	out, err := write(root, p.segments, fn)
	if err != nil {
		return nil, fmt.Errorf("fieldpath: path %q: %w", p.raw, err)
	}
	return out, nil
}

// Get is a convenience wrapper parsing path before resolving it.
func Get(root any, path string) (any, bool, error) {
	parsed, err := Parse(path)
	if err != nil {
		return nil, false, err
	}
	value, ok := parsed.Get(root)
	return value, ok, nil
}

// Set is a convenience wrapper parsing path before writing through it.
func Set(root any, path string, value any) (any, error) {
	parsed, err := Parse(path)
	if err != nil {
		return nil, err
	}
	return parsed.Set(root, value)
}

// Update is a convenience wrapper parsing path before updating through it.
func Update(root any, path string, fn func(any) any) (any, error) {
	parsed, err := Parse(path)
	if err != nil {
		return nil, err
	}
	return parsed.Update(root, fn)
}

func descend(current any, seg segment) (any, bool) {
	if current == nil {
		return nil, false
	}
	if seg.isIndex {
		value := reflect.ValueOf(current)
		for value.Kind() == reflect.Pointer || value.Kind() == reflect.Interface {
			if value.IsNil() {
				return nil, false
			}
			value = value.Elem()
		}
		if value.Kind() != reflect.Slice && value.Kind() != reflect.Array {
			return nil, false
		}
		if seg.index >= value.Len() {
			return nil, false
		}
		return value.Index(seg.index).Interface(), true
	}

	if m, ok := current.(map[string]any); ok {
		value, exists := m[seg.key]
		return value, exists
	}

	value := reflect.ValueOf(current)
	for value.Kind() == reflect.Pointer || value.Kind() == reflect.Interface {
		if value.IsNil() {
			return nil, false
		}
		value = value.Elem()
	}
	switch value.Kind() {
	case reflect.Map:
		if value.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		entry := value.MapIndex(reflect.ValueOf(seg.key).Convert(value.Type().Key()))
		if !entry.IsValid() {
			return nil, false
		}
		return entry.Interface(), true
	case reflect.Struct:
		index, ok := fieldIndex(value.Type(), seg.key)
		if !ok {
			return nil, false
		}
		return value.Field(index).Interface(), true
	default:
		return nil, false
	}
}

func write(current any, segments []segment, fn func(any) any) (any, error) {
	if len(segments) == 0 {
		return fn(current), nil
	}
	seg := segments[0]
	rest := segments[1:]

	if seg.isIndex {
		return writeIndex(current, seg, rest, fn)
	}
	return writeKey(current, seg, rest, fn)
}

func writeKey(current any, seg segment, rest []segment, fn func(any) any) (any, error) {
	if current == nil {
		current = map[string]any{}
	}

	if m, ok := current.(map[string]any); ok {
		child, err := write(m[seg.key], rest, fn)
		if err != nil {
			return nil, err
		}
		clone := make(map[string]any, len(m)+1)
		for key, value := range m {
			clone[key] = value
		}
		clone[seg.key] = child
		return clone, nil
	}

	value := reflect.ValueOf(current)
	switch value.Kind() {
	case reflect.Pointer:
		if value.IsNil() {
			return nil, fmt.Errorf("cannot descend into nil %s at %q", value.Type(), seg.key)
		}
		elem, err := writeKey(value.Elem().Interface(), seg, rest, fn)
		if err != nil {
			return nil, err
		}
		clone := reflect.New(value.Type().Elem())
		clone.Elem().Set(reflect.ValueOf(elem))
		return clone.Interface(), nil
	case reflect.Map:
		if value.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("cannot descend into %s at %q", value.Type(), seg.key)
		}
		key := reflect.ValueOf(seg.key).Convert(value.Type().Key())
		var existing any
		if entry := value.MapIndex(key); entry.IsValid() {
			existing = entry.Interface()
		}
		child, err := write(existing, rest, fn)
		if err != nil {
			return nil, err
		}
		clone := reflect.MakeMapWithSize(value.Type(), value.Len()+1)
		iter := value.MapRange()
		for iter.Next() {
			clone.SetMapIndex(iter.Key(), iter.Value())
		}
		childValue, err := coerce(child, value.Type().Elem())
		if err != nil {
			return nil, fmt.Errorf("segment %q: %w", seg.key, err)
		}
		clone.SetMapIndex(key, childValue)
		return clone.Interface(), nil
	case reflect.Struct:
		index, ok := fieldIndex(value.Type(), seg.key)
		if !ok {
			return nil, fmt.Errorf("no field %q on %s", seg.key, value.Type())
		}
		child, err := write(value.Field(index).Interface(), rest, fn)
		if err != nil {
			return nil, err
		}
		clone := reflect.New(value.Type()).Elem()
		clone.Set(value)
		childValue, err := coerce(child, value.Type().Field(index).Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", seg.key, err)
		}
		clone.Field(index).Set(childValue)
		return clone.Interface(), nil
	default:
		return nil, fmt.Errorf("cannot descend into %T at %q", current, seg.key)
	}
}

func writeIndex(current any, seg segment, rest []segment, fn func(any) any) (any, error) {
	if current == nil {
		current = []any{}
	}

	value := reflect.ValueOf(current)
	if value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil, fmt.Errorf("cannot index nil %s", value.Type())
		}
		elem, err := writeIndex(value.Elem().Interface(), seg, rest, fn)
		if err != nil {
			return nil, err
		}
		clone := reflect.New(value.Type().Elem())
		clone.Elem().Set(reflect.ValueOf(elem))
		return clone.Interface(), nil
	}
	if value.Kind() != reflect.Slice {
		return nil, fmt.Errorf("cannot index into %T", current)
	}

	length := value.Len()
	if seg.index >= length {
		length = seg.index + 1
	}
	clone := reflect.MakeSlice(value.Type(), length, length)
	reflect.Copy(clone, value)

	var existing any
	if seg.index < value.Len() {
		existing = value.Index(seg.index).Interface()
	}
	child, err := write(existing, rest, fn)
	if err != nil {
		return nil, err
	}
	childValue, err := coerce(child, value.Type().Elem())
	if err != nil {
		return nil, fmt.Errorf("index %d: %w", seg.index, err)
	}
	clone.Index(seg.index).Set(childValue)
	return clone.Interface(), nil
}

// coerce adapts child to the target container element or field type. Numeric
// widening and pointer wrapping cover the common JSON-decoded shapes; anything
// else must be directly assignable.
func coerce(child any, target reflect.Type) (reflect.Value, error) {
	if child == nil {
		return reflect.Zero(target), nil
	}
	value := reflect.ValueOf(child)
	if value.Type().AssignableTo(target) {
		return value, nil
	}
	if isNumeric(value.Kind()) && isNumeric(target.Kind()) {
		return value.Convert(target), nil
	}
	if target.Kind() == reflect.Pointer {
		elem, err := coerce(child, target.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(target.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	}
	if value.Kind() == reflect.Pointer && !value.IsNil() {
		return coerce(value.Elem().Interface(), target)
	}
	return reflect.Value{}, fmt.Errorf("cannot assign %T to %s", child, target)
}

func isNumeric(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

var (
	fieldIndexMu    sync.RWMutex
	fieldIndexCache = map[reflect.Type]map[string]int{}
)

// fieldIndex resolves a path key against a struct type, honouring json tags
// before exported field names.
func fieldIndex(t reflect.Type, key string) (int, bool) {
	fieldIndexMu.RLock()
	byKey, ok := fieldIndexCache[t]
	fieldIndexMu.RUnlock()
	if !ok {
		byKey = make(map[string]int, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			if tag, ok := field.Tag.Lookup("json"); ok {
				name := strings.Split(tag, ",")[0]
				if name == "-" {
					continue
				}
				if name != "" {
					byKey[name] = i
					continue
				}
			}
			byKey[field.Name] = i
		}
		fieldIndexMu.Lock()
		fieldIndexCache[t] = byKey
		fieldIndexMu.Unlock()
	}
	index, ok := byKey[key]
	return index, ok
}

package uistate

import "testing"

func TestEqualValuesScalars(t *testing.T) {
	if !equalValues(1, 1) || equalValues(1, 2) {
		t.Fatalf("int comparison broken")
	}
	if !equalValues("a", "a") || equalValues("a", "b") {
		t.Fatalf("string comparison broken")
	}
	if !equalValues(nil, nil) || equalValues(nil, 0) || equalValues(0, nil) {
		t.Fatalf("nil comparison broken")
	}
	if equalValues(1, "1") {
		t.Fatalf("mismatched types must not compare equal")
	}
}

func TestEqualValuesSlices(t *testing.T) {
	if !equalValues([]any{1, "a"}, []any{1, "a"}) {
		t.Fatalf("equal slices must compare element-wise")
	}
	if equalValues([]any{1}, []any{2}) || equalValues([]any{1}, []any{1, 2}) {
		t.Fatalf("differing slices must not compare equal")
	}
	if !equalValues([]any{[]any{"x"}}, []any{[]any{"x"}}) {
		t.Fatalf("nested slices must compare recursively")
	}
}

func TestEqualValuesMapsByIdentity(t *testing.T) {
	m := map[string]any{"a": 1}
	if !equalValues(m, m) {
		t.Fatalf("a map must equal itself")
	}
	if equalValues(m, map[string]any{"a": 1}) {
		t.Fatalf("distinct maps compare by identity, not content")
	}
}

func TestEqualValuesFuncsByIdentity(t *testing.T) {
	f := func() {}
	g := func() {}
	if !equalValues(f, f) {
		t.Fatalf("a func must equal itself")
	}
	if equalValues(f, g) {
		t.Fatalf("distinct funcs must not compare equal")
	}
}

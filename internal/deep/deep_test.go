package deep

import (
	"reflect"
	"testing"
)

type node struct {
	Name     string
	Tags     []string
	Attrs    map[string]any
	Child    *node
	hidden   int
	Fixed    [2]int
	Whatever any
}

func TestCloneDetachesNestedContainers(t *testing.T) {
	original := &node{
		Name:  "root",
		Tags:  []string{"a", "b"},
		Attrs: map[string]any{"list": []any{"x"}},
		Child: &node{Name: "child"},
		Fixed: [2]int{1, 2},
	}

	clone := Clone(original)
	if clone == original || clone.Child == original.Child {
		t.Fatalf("pointers must be cloned")
	}
	if !reflect.DeepEqual(clone, &node{
		Name:  "root",
		Tags:  []string{"a", "b"},
		Attrs: map[string]any{"list": []any{"x"}},
		Child: &node{Name: "child"},
		Fixed: [2]int{1, 2},
	}) {
		t.Fatalf("clone differs: %+v", clone)
	}

	clone.Tags[0] = "z"
	clone.Attrs["list"].([]any)[0] = "y"
	clone.Child.Name = "other"
	if original.Tags[0] != "a" || original.Attrs["list"].([]any)[0] != "x" || original.Child.Name != "child" {
		t.Fatalf("clone shares storage with the original: %+v", original)
	}
}

func TestCloneNilValues(t *testing.T) {
	var p *node
	if Clone(p) != nil {
		t.Fatalf("nil pointer must clone to nil")
	}
	var m map[string]any
	if Clone(m) != nil {
		t.Fatalf("nil map must clone to nil")
	}
	var s []int
	if Clone(s) != nil {
		t.Fatalf("nil slice must clone to nil")
	}
	if Clone[any](nil) != nil {
		t.Fatalf("nil interface must clone to nil")
	}
}

func TestCloneScalars(t *testing.T) {
	if Clone(42) != 42 || Clone("x") != "x" || Clone(true) != true {
		t.Fatalf("scalars must clone by value")
	}
}

func TestCloneSkipsUnexportedFields(t *testing.T) {
	original := node{Name: "root", hidden: 7}
	clone := Clone(original)
	if clone.hidden != 0 {
		t.Fatalf("unexported field must be skipped, got %d", clone.hidden)
	}
	if clone.Name != "root" {
		t.Fatalf("exported field lost")
	}
}

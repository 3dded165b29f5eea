package uistate

import "reflect"

// equalValues compares two selector outputs. Slices and arrays are compared
// element-wise so selectors can safely return freshly-built tuples; maps,
// funcs and channels fall back to reference identity; everything comparable
// uses plain equality.
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	ra := reflect.ValueOf(a)
	rb := reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}

	switch ra.Kind() {
	case reflect.Slice:
		if ra.IsNil() != rb.IsNil() {
			return false
		}
		fallthrough
	case reflect.Array:
		if ra.Len() != rb.Len() {
			return false
		}
		for i := 0; i < ra.Len(); i++ {
			if !equalValues(ra.Index(i).Interface(), rb.Index(i).Interface()) {
				return false
			}
		}
		return true
	case reflect.Map, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return ra.Pointer() == rb.Pointer()
	case reflect.Pointer:
		return ra.Pointer() == rb.Pointer()
	default:
		if ra.Comparable() {
			return a == b
		}
		return false
	}
}

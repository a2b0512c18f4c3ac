package fluxion

import "reflect"

// defaultEquals provides type-appropriate equality checking:
// == for the common comparable types, reflect.DeepEqual otherwise.
func defaultEquals[T any](a, b T) bool {
	return anyEqual(any(a), any(b))
}

// anyEqual compares two dynamically typed values. Values of different
// dynamic types are never equal. Store, List, and the watch adapter use
// this directly; Signal and Computed route through it for their default
// equality.
func anyEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	case int8:
		bv, ok := b.(int8)
		return ok && av == bv
	case int16:
		bv, ok := b.(int16)
		return ok && av == bv
	case int32:
		bv, ok := b.(int32)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case uint:
		bv, ok := b.(uint)
		return ok && av == bv
	case uint8:
		bv, ok := b.(uint8)
		return ok && av == bv
	case uint16:
		bv, ok := b.(uint16)
		return ok && av == bv
	case uint32:
		bv, ok := b.(uint32)
		return ok && av == bv
	case uint64:
		bv, ok := b.(uint64)
		return ok && av == bv
	case float32:
		bv, ok := b.(float32)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		// Slices, maps, structs, wrapped containers.
		return reflect.DeepEqual(a, b)
	}
}

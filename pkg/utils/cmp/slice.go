package cmp

// SliceEq reports whether a and b have the same elements in the same
// order.
func SliceEq[T comparable](a []T, b []T) bool {
	return SliceEqWith(a, b, func(x T, y T) bool { return x == y })
}

// SliceEqWith is SliceEq with an element-wise predicate.
func SliceEqWith[T any, U any](a []T, b []U, pred func(a T, b U) bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !pred(a[i], b[i]) {
			return false
		}
	}
	return true
}

// SliceContentEq reports whether a and b have the same elements,
// ignoring order and multiplicity.
func SliceContentEq[T comparable](a, b []T) bool {
	inA := map[T]struct{}{}
	for _, x := range a {
		inA[x] = struct{}{}
	}
	inB := map[T]struct{}{}
	for _, y := range b {
		if _, ok := inA[y]; !ok {
			return false
		}
		inB[y] = struct{}{}
	}
	return len(inA) == len(inB)
}

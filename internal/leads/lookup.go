package leads

// Lookup is the result of a best-effort query. OK is false when the value
// could not be resolved for any reason; callers proceed without it.
type Lookup[T any] struct {
	Value T
	OK    bool
}

// Found wraps a resolved value.
func Found[T any](v T) Lookup[T] {
	return Lookup[T]{Value: v, OK: true}
}

// Missing is the empty result.
func Missing[T any]() Lookup[T] {
	return Lookup[T]{}
}

package common

// Coalesce picks the first value that is not the zero value of T.
// Hosts use it to fall back to placeholder text, e.g. Coalesce(caption, "(none)").
//
// Returns:
//   - T: the first non-zero value, or the zero value when every value is zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for i := range values {
		if values[i] != zero {
			return values[i]
		}
	}
	return zero
}

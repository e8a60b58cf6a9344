package common

// Coalesce returns the first non-zero value, or the zero value when every value is zero.
// The CLI uses it to fall back from empty flag values.
//
// Parameters:
//   - values: candidates in priority order
//
// Returns:
//   - T: the first non-zero candidate
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// CeilDiv returns n / d rounded up. It sizes trace targets from a downscale factor and
// workgroup counts from a declared group size. d must be non-zero.
func CeilDiv[T ~uint32 | ~uint64 | ~int](n, d T) T {
	return (n + d - 1) / d
}

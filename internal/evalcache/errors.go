package evalcache

import "errors"

// Configuration validation errors. Construction fails fast on any of
// these; a cache never exists in an invalid state.
var (
	// ErrSizeNotPowerOfTwo is returned when a configured capacity is not
	// a power of two. Slot indexing relies on mask arithmetic.
	ErrSizeNotPowerOfTwo = errors.New("cache size must be a power of two")

	// ErrSizeOutOfRange is returned when a configured capacity falls
	// outside [MinCacheSize, MaxCacheSize].
	ErrSizeOutOfRange = errors.New("cache size out of range")

	// ErrUnknownPolicy is returned for a replacement policy name that is
	// not one of AlwaysReplace, DepthPreferred, AgingBased.
	ErrUnknownPolicy = errors.New("unknown replacement policy")

	// ErrInvalidPromotionThreshold is returned when a multi-level
	// configuration asks for a non-positive promotion threshold.
	ErrInvalidPromotionThreshold = errors.New("promotion threshold must be positive")
)

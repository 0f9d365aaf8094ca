// Package evalcache implements the position evaluation cache for the
// shogi engine: a fixed-capacity transposition-table-style store that
// memoizes positional scores keyed by 64-bit Zobrist fingerprints, safe
// for concurrent probe/store from parallel search workers.
package evalcache

// Entry is one cache slot. A zero Key marks an empty slot; Verification
// redundantly stores the upper 16 bits of Key so collisions can be
// detected without rehashing.
type Entry struct {
	Key          uint64
	Score        int32
	Depth        uint8
	Age          uint8
	Verification uint16
}

// verificationTag derives the redundant check value from a fingerprint.
func verificationTag(key uint64) uint16 {
	return uint16(key >> 48)
}

// Valid reports whether the slot holds a stored evaluation.
func (e *Entry) Valid() bool {
	return e.Key != 0
}

package evalcache

import "fmt"

// ReplacementPolicy decides whether a new store overwrites an existing
// valid entry that hashes to the same slot. Empty slots are always
// written regardless of policy.
type ReplacementPolicy uint8

const (
	// AlwaysReplace overwrites unconditionally (last write wins).
	AlwaysReplace ReplacementPolicy = iota
	// DepthPreferred keeps the deeper entry: a new score only replaces
	// one computed at equal or lower depth. Deeper searches are costlier
	// to reproduce and usually more accurate.
	DepthPreferred
	// AgingBased evicts entries that have gone stale, while a fresh
	// shallow entry resists eviction by a marginally deeper one.
	AgingBased
)

// AgingBased tuning
const (
	agingStaleThreshold = 8 // age beyond which an entry is sacrificed readily
	agingDepthMargin    = 2 // depth advantage needed to evict a fresh entry
)

var policyNames = map[ReplacementPolicy]string{
	AlwaysReplace:  "AlwaysReplace",
	DepthPreferred: "DepthPreferred",
	AgingBased:     "AgingBased",
}

func (p ReplacementPolicy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("ReplacementPolicy(%d)", uint8(p))
}

// ParseReplacementPolicy maps a policy name from a configuration
// document to its value.
func ParseReplacementPolicy(name string) (ReplacementPolicy, error) {
	for p, n := range policyNames {
		if n == name {
			return p, nil
		}
	}
	return AlwaysReplace, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}

// MarshalText implements encoding.TextMarshaler so policies serialize
// as their names in JSON configuration documents.
func (p ReplacementPolicy) MarshalText() ([]byte, error) {
	name, ok := policyNames[p]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPolicy, uint8(p))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *ReplacementPolicy) UnmarshalText(text []byte) error {
	parsed, err := ParseReplacementPolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// shouldReplace applies the policy to an existing entry. The caller
// holds the slot's write lock.
func (p ReplacementPolicy) shouldReplace(existing *Entry, newDepth uint8) bool {
	if !existing.Valid() {
		return true
	}
	switch p {
	case DepthPreferred:
		return newDepth >= existing.Depth
	case AgingBased:
		return existing.Age > agingStaleThreshold ||
			int(newDepth) > int(existing.Depth)+agingDepthMargin
	default:
		return true
	}
}

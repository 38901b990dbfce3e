package bucket

import (
	"hash/fnv"
)

// Version identifies the bucketing algorithm. Decisions are only comparable
// between implementations that share the same version.
const Version = 1

// Scope prefixes used by the launchkit components.
const (
	ScopeFlag        = "flag:"
	ScopeEligibility = "elig:"
	ScopeVariant     = "variant:"
)

const separator = "\x00"

// Sum64 returns the finalized 64-bit digest of scope and subjectID.
func Sum64(scope, subjectID string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(scope))
	h.Write([]byte(separator))
	h.Write([]byte(subjectID))
	return fmix64(h.Sum64())
}

// Value maps scope and subjectID to a uniform value in [0, 1).
func Value(scope, subjectID string) float64 {
	return float64(Sum64(scope, subjectID)>>11) / (1 << 53)
}

// Index maps scope and subjectID to a stable index in [0, n).
// It returns -1 when n is not positive.
func Index(scope, subjectID string, n int) int {
	if n <= 0 {
		return -1
	}
	idx := int(Value(scope, subjectID) * float64(n))
	// Value < 1, but guard against float rounding for very large n
	return min(idx, n-1)
}

// Flag returns the rollout bucket of subjectID for the named feature flag.
func Flag(feature, subjectID string) float64 {
	return Value(ScopeFlag+feature, subjectID)
}

// Eligibility returns the bucket deciding whether subjectID takes part in a test.
func Eligibility(test, subjectID string) float64 {
	return Value(ScopeEligibility+test, subjectID)
}

// Variant returns the bucket selecting the variant of subjectID within a test.
func Variant(test, subjectID string) float64 {
	return Value(ScopeVariant+test, subjectID)
}

// fmix64 is the MurmurHash3 64-bit finalizer.
func fmix64(h uint64) uint64 {
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}

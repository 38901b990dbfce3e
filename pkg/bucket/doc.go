// Package bucket maps a (scope, subject) pair to a stable pseudo-random value
// in [0, 1) used for rollout gating and experiment assignment.
//
// The mapping is a pure function of its inputs. It never depends on Go's
// runtime-seeded map hashing, so the same subject lands in the same bucket
// across process restarts, Go releases and reimplementations in other languages.
//
// # Algorithm (Version 1)
//
//	key   = scope + "\x00" + subjectID
//	h     = FNV-1a 64(key)
//	h     = fmix64(h)          // MurmurHash3 64-bit finalizer
//	value = (h >> 11) / 2^53   // top 53 bits, exact in float64
//
// The finalizer spreads low-byte differences into the high bits. Plain FNV-1a
// leaves the top bits nearly constant for subject ids that differ only in their
// last characters ("user-1", "user-2", ...), which skews percentage gates.
//
// Scopes keep unrelated decisions statistically independent for the same
// subject. Use the scoped helpers rather than composing scope strings by hand:
//
//	bucket.Flag("premium", userID)        // scope "flag:premium"
//	bucket.Eligibility("checkout", userID) // scope "elig:checkout"
//	bucket.Variant("checkout", userID)     // scope "variant:checkout"
//
// Changing any step of the algorithm reassigns every subject; bump Version and
// migrate deliberately if that is ever required.
package bucket

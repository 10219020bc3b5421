package cache

import "github.com/OmniBazaar/participation/score"

// ScoreCache is advisory storage for computed participation scores. A stale
// hit only delays visibility of new activity, never produces an incorrect
// aggregation once recomputed, so implementations may evict at will.
//
// All operations must be safe for concurrent use. Eviction for an address
// must be atomic relative to interleaved reads for the same address; no
// cross-address coordination is required.
type ScoreCache interface {
	// Get retrieves the cached score for an address. The second return is
	// false on a miss. Callers still judge freshness from LastCalculated;
	// implementations are free to expire entries on their own as well.
	Get(address score.Address) (score.ParticipationScore, bool)
	Put(s score.ParticipationScore)
	// Evict removes the entry for an address so the next read recomputes.
	Evict(address score.Address)
	Clear()
}

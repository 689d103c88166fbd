package ranking

import "time"

// FreshFor is how long a computed ranking may be reused without
// recomputation.
const FreshFor = 5 * time.Minute

// IsFresh reports whether a ranking computed at computedAt may still be
// served at now. A zero computedAt is never fresh. It does not look at
// scope; SnapshotCache.GetCached checks both.
func IsFresh(computedAt time.Time, now time.Time) bool {
	if computedAt.IsZero() {
		return false
	}
	return now.Sub(computedAt) < FreshFor
}

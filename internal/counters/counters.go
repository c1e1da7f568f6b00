// Package counters tracks per-storage-group series counts and their
// running maximum (spec.md §4.7, components C7/C8).
//
// Grounded on muscle's internal/tree.Tree bookkeeping style: plain
// in-memory maps mutated synchronously by the caller holding the
// governing lock (here, MManager's sync.RWMutex), rather than an
// independently-locking structure. Counters themselves need no mutex:
// mmanager guarantees single-writer access.
package counters

// Counters holds series_count and its denormalized running maximum
// (spec.md §4.7, invariants I2/I3).
type Counters struct {
	seriesCount map[string]int64
	maxSeries   int64
}

// New returns an empty Counters.
func New() *Counters {
	return &Counters{seriesCount: make(map[string]int64)}
}

// InitStorageGroup registers sg with a zero count, called when a storage
// group is created (spec.md §4.7).
func (c *Counters) InitStorageGroup(sg string) {
	if _, ok := c.seriesCount[sg]; ok {
		return
	}
	c.seriesCount[sg] = 0
}

// DeleteStorageGroup removes sg's entry entirely, called when a storage
// group is deleted. If sg held the current maximum, the maximum is
// recomputed.
func (c *Counters) DeleteStorageGroup(sg string) {
	v, ok := c.seriesCount[sg]
	if !ok {
		return
	}
	delete(c.seriesCount, sg)
	if v == c.maxSeries {
		c.recomputeMax()
	}
}

// Increment adds delta (which may be negative) to sg's series count. A
// decrement that could reduce the current maximum triggers a rescan
// (spec.md §4.7: "When a decrement could reduce the current max,
// recompute by scanning the map").
func (c *Counters) Increment(sg string, delta int64) {
	old := c.seriesCount[sg]
	next := old + delta
	c.seriesCount[sg] = next
	if delta > 0 {
		if next > c.maxSeries {
			c.maxSeries = next
		}
		return
	}
	if delta < 0 && old == c.maxSeries {
		c.recomputeMax()
	}
}

// recomputeMax rescans series_count and resets max_series_count to its
// current maximum, or 0 if the map is empty (spec.md §4.7, I3).
func (c *Counters) recomputeMax() {
	var max int64
	for _, v := range c.seriesCount {
		if v > max {
			max = v
		}
	}
	c.maxSeries = max
}

// Count returns the current series count for sg.
func (c *Counters) Count(sg string) int64 {
	return c.seriesCount[sg]
}

// Max returns the running maximum across all storage groups.
func (c *Counters) Max() int64 {
	return c.maxSeries
}

// Snapshot returns a copy of the series_count map, for diagnostics.
func (c *Counters) Snapshot() map[string]int64 {
	out := make(map[string]int64, len(c.seriesCount))
	for k, v := range c.seriesCount {
		out[k] = v
	}
	return out
}

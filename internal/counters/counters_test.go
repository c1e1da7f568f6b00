package counters

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitStorageGroupStartsAtZero(t *testing.T) {
	c := New()
	c.InitStorageGroup("root.sg1")
	assert.Equal(t, int64(0), c.Count("root.sg1"))
	assert.Equal(t, int64(0), c.Max())
}

func TestIncrementTracksMax(t *testing.T) {
	c := New()
	c.InitStorageGroup("root.sg1")
	c.InitStorageGroup("root.sg2")

	c.Increment("root.sg1", 1)
	c.Increment("root.sg1", 1)
	c.Increment("root.sg2", 1)

	assert.Equal(t, int64(2), c.Count("root.sg1"))
	assert.Equal(t, int64(1), c.Count("root.sg2"))
	assert.Equal(t, int64(2), c.Max())
}

// Scenario from spec.md §8 example 1/2: after deleting the only series in
// sg1, series_count drops to 0 and max_series follows.
func TestDecrementRecomputesMax(t *testing.T) {
	c := New()
	c.InitStorageGroup("root.sg1")
	c.Increment("root.sg1", 1)
	assert.Equal(t, int64(1), c.Max())

	c.Increment("root.sg1", -1)
	assert.Equal(t, int64(0), c.Count("root.sg1"))
	assert.Equal(t, int64(0), c.Max())
}

func TestMaxSurvivesUnrelatedDecrement(t *testing.T) {
	c := New()
	c.InitStorageGroup("root.sg1")
	c.InitStorageGroup("root.sg2")
	c.Increment("root.sg1", 3)
	c.Increment("root.sg2", 1)
	assert.Equal(t, int64(3), c.Max())

	c.Increment("root.sg2", -1)
	assert.Equal(t, int64(3), c.Max())
}

func TestDeleteStorageGroupRemovesAndRecomputes(t *testing.T) {
	c := New()
	c.InitStorageGroup("root.sg1")
	c.InitStorageGroup("root.sg2")
	c.Increment("root.sg1", 5)
	c.Increment("root.sg2", 2)
	assert.Equal(t, int64(5), c.Max())

	c.DeleteStorageGroup("root.sg1")
	_, ok := c.Snapshot()["root.sg1"]
	assert.False(t, ok)
	assert.Equal(t, int64(2), c.Max())
}

func TestDeleteStorageGroupToEmptyResetsMaxToZero(t *testing.T) {
	c := New()
	c.InitStorageGroup("root.sg1")
	c.Increment("root.sg1", 4)
	c.DeleteStorageGroup("root.sg1")
	assert.Equal(t, int64(0), c.Max())
	assert.Empty(t, c.Snapshot())
}

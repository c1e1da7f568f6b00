package tagindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddAndExactQuery(t *testing.T) {
	idx := New()
	idx.Add("root.sg1.d1.s1", map[string]string{"k": "v"})
	idx.Add("root.sg1.d1.s2", map[string]string{"k": "other"})

	got := idx.Query("k", "v", false)
	assert.Equal(t, []string{"root.sg1.d1.s1"}, got)
}

func TestContainsQueryMatchesSubstring(t *testing.T) {
	idx := New()
	idx.Add("root.sg1.d1.s1", map[string]string{"k": "production-east"})
	idx.Add("root.sg1.d1.s2", map[string]string{"k": "production-west"})
	idx.Add("root.sg1.d1.s3", map[string]string{"k": "staging"})

	got := idx.Query("k", "production", true)
	assert.Equal(t, []string{"root.sg1.d1.s1", "root.sg1.d1.s2"}, got)
}

// Scenario 5 from spec.md §8: after delete, the tag query returns empty.
func TestRemoveDeregistersLeaf(t *testing.T) {
	idx := New()
	idx.Add("root.sg1.d1.s1", map[string]string{"k": "v"})
	idx.Remove("root.sg1.d1.s1", map[string]string{"k": "v"})

	assert.Empty(t, idx.Query("k", "v", false))
}

func TestQueryUnknownKeyReturnsNil(t *testing.T) {
	idx := New()
	assert.Empty(t, idx.Query("absent", "v", false))
}

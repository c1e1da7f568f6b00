package pathutil

import (
	"testing"

	"github.com/catalogdb/metacatalog/internal/catalogerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	testCases := []struct {
		path    string
		wantErr bool
	}{
		{"root.sg1.d1.s1", false},
		{"root", false},
		{"sg1.d1.s1", true},
		{"root..s1", true},
		{"root.sg1.", true},
		{"", true},
	}
	for _, tc := range testCases {
		err := Validate(tc.path)
		if tc.wantErr {
			require.Error(t, err)
			assert.Equal(t, catalogerr.KindIllegalPath, catalogerr.KindOf(err))
		} else {
			assert.NoError(t, err)
		}
	}
}

func TestSplitJoin(t *testing.T) {
	assert.Equal(t, []string{"root", "sg1", "d1", "s1"}, Split("root.sg1.d1.s1"))
	assert.Equal(t, "root.sg1.d1.s1", Join("root", "sg1", "d1", "s1"))
}

func TestStorageGroupPrefix(t *testing.T) {
	prefix, ok := StorageGroupPrefix("root.sg1.d1.s1", 1)
	require.True(t, ok)
	assert.Equal(t, "root.sg1", prefix)

	_, ok = StorageGroupPrefix("root.sg1", 5)
	assert.False(t, ok)
}

func TestWildcardHelpers(t *testing.T) {
	assert.True(t, HasWildcard("root.*.s1"))
	assert.False(t, HasWildcard("root.sg1.s1"))
	assert.True(t, TrailingWildcard("root.sg1.*"))
	assert.False(t, TrailingWildcard("root.*.s1"))
}

func TestParentAndLastSegment(t *testing.T) {
	parent, ok := Parent("root.sg1.d1.s1")
	require.True(t, ok)
	assert.Equal(t, "root.sg1.d1", parent)
	assert.Equal(t, "s1", LastSegment("root.sg1.d1.s1"))

	_, ok = Parent("root")
	assert.False(t, ok)
}

package nodecache

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogdb/metacatalog/internal/catalogerr"
	"github.com/catalogdb/metacatalog/internal/mnode"
)

func leaf(name string) *mnode.Node {
	return mnode.NewLeaf(name, mnode.Schema{}, "")
}

func TestGetLoadsOnMiss(t *testing.T) {
	c := New(4)
	calls := 0
	loader := func(path string) (*mnode.Node, error) {
		calls++
		return leaf(path), nil
	}

	n, err := c.Get("root.sg.d.s1", loader)
	require.NoError(t, err)
	assert.Equal(t, "s1", n.Name())
	assert.Equal(t, 1, calls)

	// Second lookup is a hit: loader not called again.
	_, err = c.Get("root.sg.d.s1", loader)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestGetPropagatesLoaderError(t *testing.T) {
	c := New(4)
	loader := func(path string) (*mnode.Node, error) {
		return nil, catalogerr.PathNotExist
	}
	_, err := c.Get("root.sg.d.missing", loader)
	assert.ErrorIs(t, err, catalogerr.PathNotExist)
	assert.Equal(t, 0, c.Len())
}

// B4: cache eviction with capacity 2 after three distinct device lookups
// leaves exactly two entries.
func TestEvictionKeepsCapacityEntries(t *testing.T) {
	c := New(2)
	c.rand = rand.New(rand.NewSource(1))
	loader := func(path string) (*mnode.Node, error) { return leaf(path), nil }

	_, err := c.Get("root.sg.d.s1", loader)
	require.NoError(t, err)
	_, err = c.Get("root.sg.d.s2", loader)
	require.NoError(t, err)
	_, err = c.Get("root.sg.d.s3", loader)
	require.NoError(t, err)

	assert.Equal(t, 2, c.Len())
}

func TestFlushClearsEntries(t *testing.T) {
	c := New(4)
	loader := func(path string) (*mnode.Node, error) { return leaf(path), nil }
	_, err := c.Get("root.sg.d.s1", loader)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
	c.Flush()
	assert.Equal(t, 0, c.Len())
}

func TestZeroCapacityNeverRetains(t *testing.T) {
	c := New(0)
	calls := 0
	loader := func(path string) (*mnode.Node, error) {
		calls++
		return leaf(path), nil
	}
	_, err := c.Get("root.sg.d.s1", loader)
	require.NoError(t, err)
	_, err = c.Get("root.sg.d.s1", loader)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

package mnode

import (
	"testing"

	"github.com/catalogdb/metacatalog/internal/catalogerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodePath(t *testing.T) {
	root := NewRoot()
	sg := NewInternal("sg1")
	require.NoError(t, root.AddChild("sg1", sg))
	require.NoError(t, sg.ConvertToStorageGroup(0))
	dev := NewInternal("d1")
	require.NoError(t, sg.AddChild("d1", dev))
	leaf := NewLeaf("s1", Schema{DataType: 1}, "")
	require.NoError(t, dev.AddChild("s1", leaf))

	assert.Equal(t, "root", root.Path())
	assert.Equal(t, "root.sg1", sg.Path())
	assert.Equal(t, "root.sg1.d1", dev.Path())
	assert.Equal(t, "root.sg1.d1.s1", leaf.Path())
	assert.Equal(t, "", (*Node)(nil).Path())
}

func TestAddChildDuplicateName(t *testing.T) {
	root := NewRoot()
	require.NoError(t, root.AddChild("a", NewInternal("a")))
	err := root.AddChild("a", NewInternal("a"))
	require.Error(t, err)
	assert.Equal(t, catalogerr.KindPathAlreadyExist, catalogerr.KindOf(err))
}

func TestLeafAccessorsOnWrongKind(t *testing.T) {
	internal := NewInternal("x")
	_, err := internal.Schema()
	assert.Equal(t, catalogerr.KindUnexpectedNodeKind, catalogerr.KindOf(err))
	_, err = internal.TTL()
	assert.Equal(t, catalogerr.KindUnexpectedNodeKind, catalogerr.KindOf(err))

	leaf := NewLeaf("s", Schema{}, "")
	err = leaf.AddChild("x", NewInternal("x"))
	assert.Equal(t, catalogerr.KindUnexpectedNodeKind, catalogerr.KindOf(err))
}

func TestStorageGroupAncestor(t *testing.T) {
	root := NewRoot()
	sg := NewInternal("sg1")
	require.NoError(t, root.AddChild("sg1", sg))
	require.NoError(t, sg.ConvertToStorageGroup(1000))
	dev := NewInternal("d1")
	require.NoError(t, sg.AddChild("d1", dev))
	leaf := NewLeaf("s1", Schema{}, "")
	require.NoError(t, dev.AddChild("s1", leaf))

	ancestor, ok := leaf.StorageGroupAncestor()
	require.True(t, ok)
	assert.Equal(t, "root.sg1", ancestor.Path())

	_, ok = root.StorageGroupAncestor()
	assert.False(t, ok)
}

func TestConvertRoundTrip(t *testing.T) {
	n := NewInternal("sg")
	require.NoError(t, n.ConvertToStorageGroup(500))
	ttl, err := n.TTL()
	require.NoError(t, err)
	assert.Equal(t, int64(500), ttl)
	require.NoError(t, n.ConvertToInternal())
	assert.True(t, n.IsInternal())
}

func TestRemoveChild(t *testing.T) {
	root := NewRoot()
	require.NoError(t, root.AddChild("a", NewInternal("a")))
	require.True(t, root.RemoveChild("a"))
	assert.False(t, root.RemoveChild("a"))
	assert.Empty(t, root.Children())
}

func TestTagOffsetDefaultsToNone(t *testing.T) {
	leaf := NewLeaf("s", Schema{}, "")
	off, err := leaf.TagOffset()
	require.NoError(t, err)
	assert.Equal(t, NoTagOffset, off)
	require.NoError(t, leaf.SetTagOffset(42))
	off, err = leaf.TagOffset()
	require.NoError(t, err)
	assert.Equal(t, int64(42), off)
}

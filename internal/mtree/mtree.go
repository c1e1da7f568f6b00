// Package mtree implements the schema tree (spec.md §4.1, component C3):
// creation, deletion, and traversal of storage groups and time series.
//
// It is grounded on muscle's tree.Tree (tree/tree.go): Add/Remove-style
// mutation of an in-memory node graph with parent back-references, and
// Walk-style traversal (tree/tree_walking.go). Unlike muscle's Tree, MTree
// is not internally synchronized — spec.md §5 makes MManager's single
// reader/writer lock responsible for serializing every mutation, the same
// division of labor muscle has between Tree (unsynchronized) and the 9P
// server loop that calls it under its own locking.
package mtree

import (
	"github.com/catalogdb/metacatalog/internal/catalogerr"
	"github.com/catalogdb/metacatalog/internal/mnode"
	"github.com/catalogdb/metacatalog/internal/pathutil"
)

// MTree is the in-memory hierarchical schema tree, rooted at "root".
type MTree struct {
	root *mnode.Node
}

// New creates an empty tree, as happens at init before log replay
// (spec.md §3 Lifecycle).
func New() *MTree {
	return &MTree{root: mnode.NewRoot()}
}

// Root returns the tree's root node.
func (t *MTree) Root() *mnode.Node { return t.root }

// walkExisting follows path from the root through existing nodes only,
// returning every node visited (not including the root). ok is false if
// any segment after root is missing.
func (t *MTree) walkExisting(path string) (visited []*mnode.Node, ok bool) {
	segments := pathutil.Split(path)
	cur := t.root
	if len(segments) == 0 || segments[0] != pathutil.Root {
		return nil, false
	}
	for _, name := range segments[1:] {
		child, found := cur.Child(name)
		if !found {
			return visited, false
		}
		visited = append(visited, child)
		cur = child
	}
	return visited, true
}

// anySubtreeIsStorageGroup reports whether n or any of its descendants is
// a StorageGroup node (used by SetStorageGroup's overlap check).
func anySubtreeIsStorageGroup(n *mnode.Node) bool {
	if n.IsStorageGroup() {
		return true
	}
	for _, c := range n.Children() {
		if anySubtreeIsStorageGroup(c) {
			return true
		}
	}
	return false
}

// SetStorageGroup walks from root, creating Internal nodes as needed, then
// converts the terminal node into a StorageGroup (spec.md §4.1).
func (t *MTree) SetStorageGroup(path string) error {
	if err := pathutil.Validate(path); err != nil {
		return err
	}
	segments := pathutil.Split(path)

	cur := t.root
	if cur.IsStorageGroup() {
		return catalogerr.New(catalogerr.KindStorageGroupAlreadySet, path, nil)
	}
	for _, name := range segments[1:] {
		if cur.IsStorageGroup() {
			return catalogerr.New(catalogerr.KindStorageGroupAlreadySet, path, nil)
		}
		child, found := cur.Child(name)
		if !found {
			child = mnode.NewInternal(name)
			if err := cur.AddChild(name, child); err != nil {
				return err
			}
		}
		cur = child
	}
	if anySubtreeIsStorageGroup(cur) {
		return catalogerr.New(catalogerr.KindStorageGroupAlreadySet, path, nil)
	}
	return cur.ConvertToStorageGroup(0)
}

// UnsetStorageGroup reverses SetStorageGroup's conversion step, used by
// MManager to roll back a vetoed mutation (spec.md §4.5 step 3). It does
// not prune nodes created along the way, matching the symmetric-op
// reversal the spec calls for: converting back is the inverse of
// converting, not of node creation.
func (t *MTree) UnsetStorageGroup(path string) error {
	visited, ok := t.walkExisting(path)
	if !ok || len(visited) == 0 {
		return catalogerr.New(catalogerr.KindPathNotExist, path, nil)
	}
	return visited[len(visited)-1].ConvertToInternal()
}

// pruneEmptyAncestors removes node and any childless Internal ancestors
// above it, walking upward but never removing root or a StorageGroup node.
func pruneEmptyAncestors(node *mnode.Node) {
	cur := node
	for cur != nil && cur.Parent() != nil && !cur.IsStorageGroup() && !cur.HasChildren() {
		parent := cur.Parent()
		parent.RemoveChild(cur.Name())
		cur = parent
	}
}

// DeleteStorageGroup requires path to be a storage group. It removes the
// entire subtree and the storage-group node, then prunes any now-childless
// internal ancestors up to (but not including) root (spec.md §4.1).
func (t *MTree) DeleteStorageGroup(path string) error {
	visited, ok := t.walkExisting(path)
	if !ok || len(visited) == 0 {
		return catalogerr.New(catalogerr.KindPathNotExist, path, nil)
	}
	node := visited[len(visited)-1]
	if !node.IsStorageGroup() {
		return catalogerr.New(catalogerr.KindStorageGroupNotSet, path, nil)
	}
	parent := node.Parent()
	parent.RemoveChild(node.Name())
	pruneEmptyAncestors(parent)
	return nil
}

// CreateTimeSeries requires an ancestor storage group to exist, creates
// missing internal nodes along the path, then attaches a Leaf named by the
// last segment (spec.md §4.1).
func (t *MTree) CreateTimeSeries(path string, schema mnode.Schema, alias string) (*mnode.Node, error) {
	if err := pathutil.Validate(path); err != nil {
		return nil, err
	}
	segments := pathutil.Split(path)
	if len(segments) < 2 {
		return nil, catalogerr.New(catalogerr.KindIllegalPath, path, nil)
	}
	if pathutil.LastSegment(path) == pathutil.TimeColumn {
		return nil, catalogerr.New(catalogerr.KindIllegalPath, path, nil)
	}
	if _, err := t.GetStorageGroupName(path); err != nil {
		return nil, err
	}

	cur := t.root
	for _, name := range segments[1 : len(segments)-1] {
		child, found := cur.Child(name)
		if !found {
			child = mnode.NewInternal(name)
			if err := cur.AddChild(name, child); err != nil {
				return nil, err
			}
		} else if child.IsLeaf() {
			return nil, catalogerr.New(catalogerr.KindUnexpectedNodeKind, path, nil)
		}
		cur = child
	}

	leafName := segments[len(segments)-1]
	if _, exists := cur.Child(leafName); exists {
		return nil, catalogerr.New(catalogerr.KindPathAlreadyExist, path, nil)
	}
	leaf := mnode.NewLeaf(leafName, schema, alias)
	if err := cur.AddChild(leafName, leaf); err != nil {
		return nil, err
	}
	return leaf, nil
}

// DeleteTimeSeriesAndReturnEmptySG detaches the leaf at path, prunes empty
// ancestors up to the storage-group node, and returns the storage group's
// name along with the detached leaf so the caller can still read its tag
// offset (spec.md §4.1). It does not delete the storage-group node even
// if it becomes empty.
func (t *MTree) DeleteTimeSeriesAndReturnEmptySG(path string) (sgName string, removedLeaf *mnode.Node, err error) {
	visited, ok := t.walkExisting(path)
	if !ok || len(visited) == 0 {
		return "", nil, catalogerr.New(catalogerr.KindPathNotExist, path, nil)
	}
	leaf := visited[len(visited)-1]
	if !leaf.IsLeaf() {
		return "", nil, catalogerr.New(catalogerr.KindUnexpectedNodeKind, path, nil)
	}
	sg, found := leaf.StorageGroupAncestor()
	if !found {
		return "", nil, catalogerr.New(catalogerr.KindStorageGroupNotSet, path, nil)
	}
	parent := leaf.Parent()
	parent.RemoveChild(leaf.Name())
	if parent != sg {
		pruneEmptyAncestorsStoppingAt(parent, sg)
	}
	return sg.Path(), leaf, nil
}

// pruneEmptyAncestorsStoppingAt removes childless Internal ancestors of
// node up to, but never including, stopAt.
func pruneEmptyAncestorsStoppingAt(node *mnode.Node, stopAt *mnode.Node) {
	cur := node
	for cur != nil && cur != stopAt && !cur.HasChildren() {
		parent := cur.Parent()
		if parent == nil {
			break
		}
		parent.RemoveChild(cur.Name())
		cur = parent
	}
}

// GetStorageGroupName walks path until it encounters a StorageGroup node
// and returns that prefix. Fails StorageGroupNotSet if none encountered
// (spec.md §4.1).
func (t *MTree) GetStorageGroupName(path string) (string, error) {
	if err := pathutil.Validate(path); err != nil {
		return "", err
	}
	if t.root.IsStorageGroup() {
		return t.root.Path(), nil
	}
	visited, _ := t.walkExisting(path)
	for _, n := range visited {
		if n.IsStorageGroup() {
			return n.Path(), nil
		}
	}
	return "", catalogerr.New(catalogerr.KindStorageGroupNotSet, path, nil)
}

// GetNode looks up the node at an exact, wildcard-free path.
func (t *MTree) GetNode(path string) (*mnode.Node, error) {
	if err := pathutil.Validate(path); err != nil {
		return nil, err
	}
	segments := pathutil.Split(path)
	if len(segments) == 1 {
		return t.root, nil
	}
	visited, ok := t.walkExisting(path)
	if !ok || len(visited) != len(segments)-1 {
		return nil, catalogerr.New(catalogerr.KindPathNotExist, path, nil)
	}
	return visited[len(visited)-1], nil
}

// SetTTL updates a storage group's retention TTL. Fails StorageGroupNotSet
// if path does not name a storage group.
func (t *MTree) SetTTL(path string, millis int64) error {
	node, err := t.GetNode(path)
	if err != nil {
		return err
	}
	if !node.IsStorageGroup() {
		return catalogerr.New(catalogerr.KindStorageGroupNotSet, path, nil)
	}
	return node.SetTTL(millis)
}

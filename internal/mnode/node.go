// Package mnode implements the tagged-variant node model for the
// metadata catalog's schema tree (spec.md §3, §4.1, component C2).
//
// muscle represents every tree entry with a single Node struct and an
// IsDir/IsFile pair of predicates (tree/node.go). The catalog's nodes
// have three variants rather than two, and operations valid on only one
// variant must fail rather than silently no-op, so this package uses an
// explicit Kind tag and returns catalogerr.UnexpectedNodeKind from
// accessors called on the wrong variant (spec.md §9 design note).
package mnode

import (
	"github.com/catalogdb/metacatalog/internal/catalogerr"
	"github.com/catalogdb/metacatalog/internal/pathutil"
)

// Kind tags which of the three node variants a Node is.
type Kind int

const (
	Internal Kind = iota
	StorageGroup
	Leaf
)

func (k Kind) String() string {
	switch k {
	case Internal:
		return "internal"
	case StorageGroup:
		return "storage group"
	case Leaf:
		return "leaf"
	default:
		return "unknown"
	}
}

// Schema is the opaque measurement-schema value object named by interface
// only in spec.md §1 ("measurement-schema value objects"). The catalog
// does not interpret data_type/encoding/compressor/props/alias; it stores
// and returns them verbatim.
type Schema struct {
	DataType   uint16
	Encoding   uint16
	Compressor uint16
	Props      map[string]string
}

// NoTagOffset is the sentinel tag_offset for a leaf with no tag payload.
const NoTagOffset int64 = -1

// Node is a node in the schema tree. Only the fields relevant to its Kind
// are meaningful; accessors for the other variants fail with
// catalogerr.UnexpectedNodeKind instead of allowing a silent, incorrect
// read, mirroring the sum-type design note in spec.md §9.
type Node struct {
	kind Kind
	name string

	// parent is a non-owning back-reference; the parent owns the child via
	// its children slice/map. Nil only for the tree root.
	parent *Node

	// children holds Internal and StorageGroup node contents. childOrder
	// preserves insertion order for deterministic tree-walk iteration;
	// childIndex gives O(1) lookup by name. Both are nil for a Leaf.
	childOrder []string
	childIndex map[string]*Node

	// dataTTL is meaningful only for StorageGroup nodes. 0 means unbounded.
	dataTTL int64

	// schema, alias, and tagOffset are meaningful only for Leaf nodes.
	schema    Schema
	alias     string
	tagOffset int64
}

// NewInternal creates a detached Internal node with the given name.
func NewInternal(name string) *Node {
	return &Node{
		kind:       Internal,
		name:       name,
		childIndex: make(map[string]*Node),
	}
}

// NewRoot creates the tree's root node, which is always Internal and has
// no parent.
func NewRoot() *Node {
	return NewInternal(pathutil.Root)
}

// Kind reports the node's variant.
func (n *Node) Kind() Kind { return n.kind }

// Name returns the node's own (unqualified) name.
func (n *Node) Name() string { return n.name }

// Parent returns the node's non-owning back-reference, or nil at the root.
func (n *Node) Parent() *Node { return n.parent }

// Path reconstructs the fully qualified dotted path to this node, the
// same way muscle's Node.Path walks parent references (tree/node.go).
func (n *Node) Path() string {
	if n == nil {
		return ""
	}
	if n.parent == nil {
		return n.name
	}
	return n.parent.Path() + "." + n.name
}

// IsStorageGroup reports whether this node is a StorageGroup.
func (n *Node) IsStorageGroup() bool { return n.kind == StorageGroup }

// IsLeaf reports whether this node is a Leaf.
func (n *Node) IsLeaf() bool { return n.kind == Leaf }

// IsInternal reports whether this node is a plain Internal node (not a
// storage group).
func (n *Node) IsInternal() bool { return n.kind == Internal }

// HasChildren reports whether this node can and does have children.
func (n *Node) HasChildren() bool {
	return n.kind != Leaf && len(n.childOrder) > 0
}

// Child looks up an immediate child by name. Returns nil, false for a Leaf
// or an absent child.
func (n *Node) Child(name string) (*Node, bool) {
	if n.childIndex == nil {
		return nil, false
	}
	c, ok := n.childIndex[name]
	return c, ok
}

// Children returns the node's children in insertion order. Returns nil for
// a Leaf.
func (n *Node) Children() []*Node {
	if len(n.childOrder) == 0 {
		return nil
	}
	out := make([]*Node, 0, len(n.childOrder))
	for _, name := range n.childOrder {
		out = append(out, n.childIndex[name])
	}
	return out
}

// ChildNames returns the names of the node's children in insertion order.
func (n *Node) ChildNames() []string {
	out := make([]string, len(n.childOrder))
	copy(out, n.childOrder)
	return out
}

// AddChild attaches child as a new child of n under the given name,
// enforcing invariant 2 (child-name uniqueness within a parent). Fails
// with catalogerr.UnexpectedNodeKind if n is a Leaf.
func (n *Node) AddChild(name string, child *Node) error {
	if n.kind == Leaf {
		return catalogerr.New(catalogerr.KindUnexpectedNodeKind, n.Path(), nil)
	}
	if n.childIndex == nil {
		n.childIndex = make(map[string]*Node)
	}
	if _, exists := n.childIndex[name]; exists {
		return catalogerr.New(catalogerr.KindPathAlreadyExist, n.Path()+"."+name, nil)
	}
	child.name = name
	child.parent = n
	n.childIndex[name] = child
	n.childOrder = append(n.childOrder, name)
	return nil
}

// RemoveChild detaches the named child, if present. Reports whether a
// child was removed.
func (n *Node) RemoveChild(name string) bool {
	if _, exists := n.childIndex[name]; !exists {
		return false
	}
	delete(n.childIndex, name)
	for i, existing := range n.childOrder {
		if existing == name {
			n.childOrder = append(n.childOrder[:i], n.childOrder[i+1:]...)
			break
		}
	}
	return true
}

// ConvertToStorageGroup turns an Internal node into a StorageGroup node in
// place, preserving its children. Fails with UnexpectedNodeKind if the
// node is already something other than Internal.
func (n *Node) ConvertToStorageGroup(dataTTLMillis int64) error {
	if n.kind != Internal {
		return catalogerr.New(catalogerr.KindUnexpectedNodeKind, n.Path(), nil)
	}
	n.kind = StorageGroup
	n.dataTTL = dataTTLMillis
	return nil
}

// ConvertToInternal reverses ConvertToStorageGroup, used by MManager to
// undo a set_storage_group mutation after an adapter veto (spec.md §4.5
// step 3).
func (n *Node) ConvertToInternal() error {
	if n.kind != StorageGroup {
		return catalogerr.New(catalogerr.KindUnexpectedNodeKind, n.Path(), nil)
	}
	n.kind = Internal
	n.dataTTL = 0
	return nil
}

// TTL returns the storage group's retention in milliseconds (0 = unbounded).
// Fails with UnexpectedNodeKind on a non-storage-group node.
func (n *Node) TTL() (int64, error) {
	if n.kind != StorageGroup {
		return 0, catalogerr.New(catalogerr.KindUnexpectedNodeKind, n.Path(), nil)
	}
	return n.dataTTL, nil
}

// SetTTL updates a storage group's retention in milliseconds.
func (n *Node) SetTTL(millis int64) error {
	if n.kind != StorageGroup {
		return catalogerr.New(catalogerr.KindUnexpectedNodeKind, n.Path(), nil)
	}
	n.dataTTL = millis
	return nil
}

// NewLeaf creates a detached Leaf node carrying schema and optional alias.
// tagOffset should be NoTagOffset until a tag payload is written.
func NewLeaf(name string, schema Schema, alias string) *Node {
	return &Node{
		kind:      Leaf,
		name:      name,
		schema:    schema,
		alias:     alias,
		tagOffset: NoTagOffset,
	}
}

// Schema returns the leaf's measurement schema. Fails with
// UnexpectedNodeKind on a non-leaf.
func (n *Node) Schema() (Schema, error) {
	if n.kind != Leaf {
		return Schema{}, catalogerr.New(catalogerr.KindUnexpectedNodeKind, n.Path(), nil)
	}
	return n.schema, nil
}

// Alias returns the leaf's alternate name, if any. Fails with
// UnexpectedNodeKind on a non-leaf.
func (n *Node) Alias() (string, error) {
	if n.kind != Leaf {
		return "", catalogerr.New(catalogerr.KindUnexpectedNodeKind, n.Path(), nil)
	}
	return n.alias, nil
}

// TagOffset returns the leaf's byte offset into the tag file, or
// NoTagOffset if it has no tag payload. Fails with UnexpectedNodeKind on a
// non-leaf.
func (n *Node) TagOffset() (int64, error) {
	if n.kind != Leaf {
		return 0, catalogerr.New(catalogerr.KindUnexpectedNodeKind, n.Path(), nil)
	}
	return n.tagOffset, nil
}

// SetTagOffset records where the leaf's tag/attribute payload lives in the
// tag file. Fails with UnexpectedNodeKind on a non-leaf.
func (n *Node) SetTagOffset(offset int64) error {
	if n.kind != Leaf {
		return catalogerr.New(catalogerr.KindUnexpectedNodeKind, n.Path(), nil)
	}
	n.tagOffset = offset
	return nil
}

// StorageGroupAncestor walks parent references looking for the nearest
// StorageGroup, implementing invariant 1 ("exactly one storage-group
// ancestor on every root-to-leaf path") from the lookup side.
func (n *Node) StorageGroupAncestor() (*Node, bool) {
	for cur := n; cur != nil; cur = cur.parent {
		if cur.kind == StorageGroup {
			return cur, true
		}
	}
	return nil, false
}

// HasStorageGroupAncestorOrSelf reports whether n or any ancestor
// (including n itself) is a StorageGroup.
func (n *Node) HasStorageGroupAncestorOrSelf() bool {
	_, ok := n.StorageGroupAncestor()
	return ok
}

package mmanager

import (
	log "github.com/sirupsen/logrus"

	"github.com/catalogdb/metacatalog/internal/catalogerr"
	"github.com/catalogdb/metacatalog/internal/mlog"
	"github.com/catalogdb/metacatalog/internal/mnode"
)

// collectLeaves appends every Leaf descendant of node to out, in tree-walk
// order. Used by removeSubtreeFromIndex to enumerate a storage group's
// tagged series before the subtree is torn down.
func collectLeaves(node *mnode.Node, out *[]*mnode.Node) {
	if node.IsLeaf() {
		*out = append(*out, node)
		return
	}
	for _, c := range node.Children() {
		collectLeaves(c, out)
	}
}

// removeSubtreeFromIndex deregisters every tagged leaf under node from
// m.index, reading each leaf's tags back from the tag file by its
// tag_offset. Must be called while node is still attached to the tree (so
// leaf.Path() resolves correctly) and before the subtree is detached
// (spec.md invariant I4: an index entry must not outlive its leaf).
func (m *MManager) removeSubtreeFromIndex(node *mnode.Node) {
	var leaves []*mnode.Node
	collectLeaves(node, &leaves)
	for _, leaf := range leaves {
		offset, _ := leaf.TagOffset()
		if offset == mnode.NoTagOffset {
			continue
		}
		tags, err := m.tagFile.ReadTag(offset)
		if err != nil {
			log.WithFields(log.Fields{"path": leaf.Path(), "offset": offset}).WithError(err).Warning("mmanager: could not read tag record to update index")
			continue
		}
		m.index.Remove(leaf.Path(), tags)
	}
}

// SetStorageGroup materializes path as a storage group (spec.md §4.1,
// §4.5 write template). Growth operation: mutate, then ask the adapter,
// reversing the mutation on veto.
func (m *MManager) SetStorageGroup(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.tree.SetStorageGroup(path); err != nil {
		return err
	}

	if m.opts.EnableParameterAdapter {
		if err := m.adapter.AdjustStorageGroups(1); err != nil {
			_ = m.tree.UnsetStorageGroup(path)
			return catalogerr.New(catalogerr.KindAdapterVeto, path, err)
		}
	}

	if err := m.logw.AppendSetStorageGroup(mlog.SetStorageGroup{Path: path}); err != nil {
		return catalogerr.New(catalogerr.KindIO, path, err)
	}

	m.counters.InitStorageGroup(path)
	if m.opts.EnableParameterAdapter {
		m.adapter.InitCounter(path)
	}
	m.cache.Flush()
	return nil
}

// DeleteStorageGroup removes the storage group at path and its whole
// subtree (spec.md §4.1). Destructive operation: the adapter is
// consulted before the tree is mutated, since reversing a deleted
// subtree is not tractable (see DESIGN.md).
func (m *MManager) DeleteStorageGroup(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, err := m.tree.GetNode(path)
	if err != nil {
		return err
	}
	if !node.IsStorageGroup() {
		return catalogerr.New(catalogerr.KindStorageGroupNotSet, path, nil)
	}

	if m.opts.EnableParameterAdapter {
		if err := m.adapter.AdjustStorageGroups(-1); err != nil {
			return catalogerr.New(catalogerr.KindAdapterVeto, path, err)
		}
	}

	m.removeSubtreeFromIndex(node)

	if err := m.tree.DeleteStorageGroup(path); err != nil {
		return err
	}

	if err := m.logw.AppendDeleteStorageGroup(mlog.DeleteStorageGroup{Paths: []string{path}}); err != nil {
		return catalogerr.New(catalogerr.KindIO, path, err)
	}

	m.counters.DeleteStorageGroup(path)
	if m.opts.EnableParameterAdapter {
		m.adapter.DeleteCounter(path)
	}
	if err := m.engine.DeleteAllDataFiles(path); err != nil {
		log.WithFields(log.Fields{"storage_group": path}).WithError(err).Warning("mmanager: storage engine failed to delete data files")
	}
	m.cache.Flush()
	return nil
}

// CreateTimeSeries attaches a leaf at path, auto-creating its storage
// group first when enabled and absent (spec.md §4.1, §4.5). tags and
// attributes may be nil or empty; when both are empty no tag-file record
// is written and the leaf's tag_offset stays mnode.NoTagOffset.
func (m *MManager) CreateTimeSeries(path string, schema mnode.Schema, alias string, tags, attributes map[string]string) (*mnode.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sgName, err := m.tree.GetStorageGroupName(path)
	if err != nil {
		if !kindIs(err, catalogerr.KindStorageGroupNotSet) {
			return nil, err
		}
		if autoErr := m.deviceNodeWithAutoCreate(path); autoErr != nil {
			return nil, autoErr
		}
		sgName, err = m.tree.GetStorageGroupName(path)
		if err != nil {
			return nil, err
		}
	}

	leaf, err := m.tree.CreateTimeSeries(path, schema, alias)
	if err != nil {
		return nil, err
	}

	if m.opts.EnableParameterAdapter {
		if err := m.adapter.AdjustTimeSeries(1); err != nil {
			_, _, _ = m.tree.DeleteTimeSeriesAndReturnEmptySG(path)
			return nil, catalogerr.New(catalogerr.KindAdapterVeto, path, err)
		}
	}

	tagOffset := mnode.NoTagOffset
	if len(tags) > 0 || len(attributes) > 0 {
		offset, err := m.tagFile.Write(tags, attributes)
		if err != nil {
			return nil, catalogerr.New(catalogerr.KindIO, path, err)
		}
		if err := leaf.SetTagOffset(offset); err != nil {
			return nil, err
		}
		tagOffset = offset
	}

	rec := mlog.CreateTimeSeries{
		Path:       path,
		DataType:   schema.DataType,
		Encoding:   schema.Encoding,
		Compressor: schema.Compressor,
		Props:      schema.Props,
		Alias:      alias,
		TagOffset:  tagOffset,
	}
	if err := m.logw.AppendCreateTimeSeries(rec); err != nil {
		return nil, catalogerr.New(catalogerr.KindIO, path, err)
	}

	if len(tags) > 0 {
		m.index.Add(path, tags)
	}
	m.counters.Increment(sgName, 1)
	m.cache.Flush()
	return leaf, nil
}

// DeleteTimeSeries detaches the leaf at path, pruning empty ancestors up
// to its storage group (spec.md §4.1). The adapter is consulted before
// the destructive tree mutation for the same reason as
// DeleteStorageGroup.
func (m *MManager) DeleteTimeSeries(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, err := m.tree.GetNode(path)
	if err != nil {
		return err
	}
	if !node.IsLeaf() {
		return catalogerr.New(catalogerr.KindUnexpectedNodeKind, path, nil)
	}
	if _, ok := node.StorageGroupAncestor(); !ok {
		return catalogerr.New(catalogerr.KindStorageGroupNotSet, path, nil)
	}

	if m.opts.EnableParameterAdapter {
		if err := m.adapter.AdjustTimeSeries(-1); err != nil {
			return catalogerr.New(catalogerr.KindAdapterVeto, path, err)
		}
	}

	sgName, leaf, err := m.tree.DeleteTimeSeriesAndReturnEmptySG(path)
	if err != nil {
		return err
	}

	if err := m.logw.AppendDeleteTimeSeries(mlog.DeleteTimeSeries{Path: path}); err != nil {
		return catalogerr.New(catalogerr.KindIO, path, err)
	}

	if offset, _ := leaf.TagOffset(); offset != mnode.NoTagOffset {
		if tags, tagErr := m.tagFile.ReadTag(offset); tagErr == nil {
			m.index.Remove(path, tags)
		} else {
			log.WithFields(log.Fields{"path": path, "offset": offset}).WithError(tagErr).Warning("mmanager: could not read tag record to update index")
		}
	}

	m.counters.Increment(sgName, -1)
	if m.counters.Count(sgName) == 0 {
		if err := m.engine.DeleteAllDataFiles(sgName); err != nil {
			log.WithFields(log.Fields{"storage_group": sgName}).WithError(err).Warning("mmanager: storage engine failed to delete data files")
		}
	}
	m.cache.Flush()
	return nil
}

// SetTTL updates a storage group's retention period (spec.md §4.1, §9(b)
// open question resolved: set_ttl is a full writer operation).
func (m *MManager) SetTTL(path string, millis int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.tree.SetTTL(path, millis); err != nil {
		return err
	}

	if err := m.logw.AppendSetTTL(mlog.SetTTL{Path: path, TTLMillis: millis}); err != nil {
		return catalogerr.New(catalogerr.KindIO, path, err)
	}
	m.cache.Flush()
	return nil
}

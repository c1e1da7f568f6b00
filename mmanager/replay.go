package mmanager

import (
	log "github.com/sirupsen/logrus"

	"github.com/catalogdb/metacatalog/internal/mlog"
	"github.com/catalogdb/metacatalog/internal/mnode"
)

// Replay applies a parsed log record to the in-memory tree, index, and
// counters only: no re-append to the log, no adapter calls (spec.md
// §4.3: "During replay, the writer is disabled"). mlog.Replay calls
// these through the mlog.Handler interface.
var _ mlog.Handler = (*MManager)(nil)

func (m *MManager) ApplyCreateTimeSeries(r mlog.CreateTimeSeries) error {
	schema := mnode.Schema{DataType: r.DataType, Encoding: r.Encoding, Compressor: r.Compressor, Props: r.Props}
	leaf, err := m.tree.CreateTimeSeries(r.Path, schema, r.Alias)
	if err != nil {
		return err
	}
	if r.TagOffset != mnode.NoTagOffset {
		if err := leaf.SetTagOffset(r.TagOffset); err != nil {
			return err
		}
		tags, err := m.tagFile.ReadTag(r.TagOffset)
		if err != nil {
			log.WithFields(log.Fields{"path": r.Path, "offset": r.TagOffset}).WithError(err).Error("mmanager: replay could not read tag record")
		} else if len(tags) > 0 {
			m.index.Add(r.Path, tags)
		}
	}
	sgName, err := m.tree.GetStorageGroupName(r.Path)
	if err != nil {
		return err
	}
	m.counters.Increment(sgName, 1)
	return nil
}

func (m *MManager) ApplyDeleteTimeSeries(r mlog.DeleteTimeSeries) error {
	node, err := m.tree.GetNode(r.Path)
	if err != nil {
		return err
	}
	var tags map[string]string
	if offset, _ := node.TagOffset(); offset != mnode.NoTagOffset {
		tags, _ = m.tagFile.ReadTag(offset)
	}
	sgName, _, err := m.tree.DeleteTimeSeriesAndReturnEmptySG(r.Path)
	if err != nil {
		return err
	}
	if len(tags) > 0 {
		m.index.Remove(r.Path, tags)
	}
	m.counters.Increment(sgName, -1)
	return nil
}

func (m *MManager) ApplySetStorageGroup(r mlog.SetStorageGroup) error {
	if err := m.tree.SetStorageGroup(r.Path); err != nil {
		return err
	}
	m.counters.InitStorageGroup(r.Path)
	return nil
}

func (m *MManager) ApplyDeleteStorageGroup(r mlog.DeleteStorageGroup) error {
	for _, p := range r.Paths {
		node, err := m.tree.GetNode(p)
		if err != nil {
			return err
		}
		m.removeSubtreeFromIndex(node)
		if err := m.tree.DeleteStorageGroup(p); err != nil {
			return err
		}
		m.counters.DeleteStorageGroup(p)
	}
	return nil
}

func (m *MManager) ApplySetTTL(r mlog.SetTTL) error {
	return m.tree.SetTTL(r.Path, r.TTLMillis)
}

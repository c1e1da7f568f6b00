package mmanager

import (
	"github.com/catalogdb/metacatalog/internal/mnode"
	"github.com/catalogdb/metacatalog/internal/mtree"
)

// GetAllTimeseriesName returns every leaf path matching prefix, applying
// the wildcard rules of spec.md §4.1.
func (m *MManager) GetAllTimeseriesName(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.GetAllTimeSeriesName(prefix)
}

// GetDevices returns the distinct parent-of-leaf paths matching prefix.
func (m *MManager) GetDevices(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.GetDevices(prefix)
}

// NodeView is a read-only snapshot of a node's identity, returned instead
// of *mnode.Node so callers outside the write lock cannot mutate tree
// state through the pointer (spec.md §5: all mutation goes through
// MManager).
type NodeView struct {
	Path string
	Kind mnode.Kind
}

// GetNodesList returns every node at depth level under prefix, which
// must be a concrete (wildcard-free) path.
func (m *MManager) GetNodesList(prefix string, level int) ([]NodeView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	nodes, err := m.tree.GetNodesList(prefix, level)
	if err != nil {
		return nil, err
	}
	out := make([]NodeView, len(nodes))
	for i, n := range nodes {
		out[i] = NodeView{Path: n.Path(), Kind: n.Kind()}
	}
	return out, nil
}

// GetStorageGroupName walks path until it encounters a StorageGroup node
// and returns that prefix.
func (m *MManager) GetStorageGroupName(path string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.GetStorageGroupName(path)
}

// DetermineStorageGroup returns the storage_group -> path_rewrite mapping
// for pathWithWildcards (spec.md §4.1).
func (m *MManager) DetermineStorageGroup(pathWithWildcards string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.DetermineStorageGroup(pathWithWildcards)
}

// GetAllMeasurementSchema iterates leaves matching plan and emits schema
// rows, paginated (spec.md §4.1).
func (m *MManager) GetAllMeasurementSchema(plan mtree.SchemaPlan) ([]mtree.SchemaRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.GetAllMeasurementSchema(plan)
}

// TagSchemaQuery selects timeseries by tag (spec.md §4.6) and optionally
// filters/paginates the result the same way GetAllMeasurementSchema does
// (SPEC_FULL.md supplement: identical row shape and pagination).
type TagSchemaQuery struct {
	Key      string
	Value    string
	Contains bool
	Prefix   string // optional wildcard filter; "" means no filter.
	Offset   int
	Limit    int // 0 means unbounded.
}

// GetAllTimeseriesSchema answers tag-indexed schema queries, consulting
// the inverted tag index rather than walking every leaf (spec.md §4.6).
func (m *MManager) GetAllTimeseriesSchema(q TagSchemaQuery) ([]mtree.SchemaRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	paths := m.index.Query(q.Key, q.Value, q.Contains)

	var allowed map[string]struct{}
	if q.Prefix != "" {
		matched, err := m.tree.GetAllTimeSeriesName(q.Prefix)
		if err != nil {
			return nil, err
		}
		allowed = make(map[string]struct{}, len(matched))
		for _, p := range matched {
			allowed[p] = struct{}{}
		}
	}

	rows := make([]mtree.SchemaRow, 0, len(paths))
	for _, p := range paths {
		if allowed != nil {
			if _, ok := allowed[p]; !ok {
				continue
			}
		}
		node, err := m.tree.GetNode(p)
		if err != nil {
			// Stale index entry (should not happen if Remove is always
			// paired with delete_timeseries); skip rather than fail the
			// whole query.
			continue
		}
		schema, err := node.Schema()
		if err != nil {
			continue
		}
		alias, _ := node.Alias()
		tagOffset, _ := node.TagOffset()
		sgName := ""
		if sg, ok := node.StorageGroupAncestor(); ok {
			sgName = sg.Path()
		}
		rows = append(rows, mtree.SchemaRow{
			FullPath:     p,
			Alias:        alias,
			StorageGroup: sgName,
			DataType:     schema.DataType,
			Encoding:     schema.Encoding,
			Compressor:   schema.Compressor,
			TagOffset:    tagOffset,
		})
	}

	if q.Offset > 0 {
		if q.Offset >= len(rows) {
			return nil, nil
		}
		rows = rows[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(rows) {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

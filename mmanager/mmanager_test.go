package mmanager

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogdb/metacatalog/internal/catalogerr"
	"github.com/catalogdb/metacatalog/internal/mnode"
	"github.com/catalogdb/metacatalog/internal/mtree"
)

func open(t *testing.T, mutate func(*Options)) *MManager {
	t.Helper()
	opts := Options{
		SchemaDir:                t.TempDir(),
		CacheCapacity:            16,
		TagRecordBytes:           256,
		AutoCreateSchemaEnabled:  false,
		DefaultStorageGroupLevel: 1,
		EnableParameterAdapter:   false,
	}
	if mutate != nil {
		mutate(&opts)
	}
	m, err := Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

var schema1 = mnode.Schema{DataType: 1, Encoding: 2, Compressor: 3}

// Scenario 1 from spec.md §8.
func TestScenarioCreateTimeSeriesUpdatesCounters(t *testing.T) {
	m := open(t, nil)
	require.NoError(t, m.SetStorageGroup("root.sg1"))
	_, err := m.CreateTimeSeries("root.sg1.d1.s1", schema1, "", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1), m.counters.Count("root.sg1"))

	rows, err := m.GetAllMeasurementSchema(mtree.SchemaPlan{Prefix: "root.sg1.d1.*"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "root.sg1.d1.s1", rows[0].FullPath)
}

// Scenario 2 from spec.md §8.
func TestScenarioDeleteTimeSeriesPrunesDevice(t *testing.T) {
	m := open(t, nil)
	require.NoError(t, m.SetStorageGroup("root.sg1"))
	_, err := m.CreateTimeSeries("root.sg1.d1.s1", schema1, "", nil, nil)
	require.NoError(t, err)

	require.NoError(t, m.DeleteTimeSeries("root.sg1.d1.s1"))

	assert.Equal(t, int64(0), m.counters.Count("root.sg1"))
	assert.Equal(t, int64(0), m.counters.Max())

	_, err = m.tree.GetNode("root.sg1.d1")
	assert.ErrorIs(t, err, catalogerr.PathNotExist)
	sgName, err := m.GetStorageGroupName("root.sg1")
	require.NoError(t, err)
	assert.Equal(t, "root.sg1", sgName)
}

// B1 from spec.md §8.
func TestCreateTimeSeriesWithoutStorageGroupFails(t *testing.T) {
	m := open(t, nil)
	_, err := m.CreateTimeSeries("root.sg1.d1.s1", schema1, "", nil, nil)
	assert.ErrorIs(t, err, catalogerr.StorageGroupNotSet)
}

// B2 from spec.md §8.
func TestSetStorageGroupNestedUnderExistingFails(t *testing.T) {
	m := open(t, nil)
	require.NoError(t, m.SetStorageGroup("root.a"))
	err := m.SetStorageGroup("root.a.b")
	assert.ErrorIs(t, err, catalogerr.StorageGroupAlreadySet)
}

// Scenario 5 from spec.md §8.
func TestTagIndexRoundTripsWithCreateAndDelete(t *testing.T) {
	m := open(t, nil)
	require.NoError(t, m.SetStorageGroup("root.sg1"))
	_, err := m.CreateTimeSeries("root.sg1.d1.s1", schema1, "", map[string]string{"k": "v"}, nil)
	require.NoError(t, err)

	rows, err := m.GetAllTimeseriesSchema(TagSchemaQuery{Key: "k", Value: "v"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "root.sg1.d1.s1", rows[0].FullPath)

	require.NoError(t, m.DeleteTimeSeries("root.sg1.d1.s1"))
	rows, err = m.GetAllTimeseriesSchema(TagSchemaQuery{Key: "k", Value: "v"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

// I4: deleting a whole storage group must deregister every tagged leaf in
// its subtree from the inverted tag index, not just leaves deleted
// individually. Otherwise a series recreated at the same path would
// wrongly inherit a stale index entry.
func TestDeleteStorageGroupClearsTagIndexForWholeSubtree(t *testing.T) {
	m := open(t, nil)
	require.NoError(t, m.SetStorageGroup("root.sg1"))
	_, err := m.CreateTimeSeries("root.sg1.d1.s1", schema1, "", map[string]string{"k": "v"}, nil)
	require.NoError(t, err)

	require.NoError(t, m.DeleteStorageGroup("root.sg1"))

	rows, err := m.GetAllTimeseriesSchema(TagSchemaQuery{Key: "k", Value: "v"})
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, m.SetStorageGroup("root.sg1"))
	_, err = m.CreateTimeSeries("root.sg1.d1.s1", schema1, "", nil, nil)
	require.NoError(t, err)
	rows, err = m.GetAllTimeseriesSchema(TagSchemaQuery{Key: "k", Value: "v"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

// Scenario 6 from spec.md §8: restart replays the log.
func TestReplayOnReopenRebuildsTree(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(Options{SchemaDir: dir, CacheCapacity: 4, TagRecordBytes: 256, DefaultStorageGroupLevel: 1})
	require.NoError(t, err)
	require.NoError(t, m.SetStorageGroup("root.sg"))
	_, err = m.CreateTimeSeries("root.sg.d.s", mnode.Schema{DataType: 1, Encoding: 2, Compressor: 3}, "", nil, nil)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	reopened, err := Open(Options{SchemaDir: dir, CacheCapacity: 4, TagRecordBytes: 256, DefaultStorageGroupLevel: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	node, err := reopened.tree.GetNode("root.sg.d.s")
	require.NoError(t, err)
	schema, err := node.Schema()
	require.NoError(t, err)
	assert.Equal(t, uint16(1), schema.DataType)
	assert.Equal(t, uint16(2), schema.Encoding)
	assert.Equal(t, uint16(3), schema.Compressor)
	assert.Equal(t, int64(1), reopened.counters.Count("root.sg"))
}

// L1 from spec.md §8.
func TestSetThenDeleteStorageGroupReturnsToPriorState(t *testing.T) {
	m := open(t, nil)
	before := len(m.tree.Root().ChildNames())
	require.NoError(t, m.SetStorageGroup("root.sgtemp"))
	require.NoError(t, m.DeleteStorageGroup("root.sgtemp"))
	assert.Equal(t, before, len(m.tree.Root().ChildNames()))
	assert.Equal(t, int64(0), m.counters.Count("root.sgtemp"))
}

func TestAutoCreateStorageGroupOnCreateTimeSeries(t *testing.T) {
	m := open(t, func(o *Options) { o.AutoCreateSchemaEnabled = true; o.DefaultStorageGroupLevel = 1 })
	_, err := m.CreateTimeSeries("root.sgauto.d.s", schema1, "", nil, nil)
	require.NoError(t, err)

	sgName, err := m.GetStorageGroupName("root.sgauto.d.s")
	require.NoError(t, err)
	assert.Equal(t, "root.sgauto", sgName)
}

func TestSetTTLRequiresStorageGroupAndPersists(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(Options{SchemaDir: dir, CacheCapacity: 4, TagRecordBytes: 256})
	require.NoError(t, err)
	require.NoError(t, m.SetStorageGroup("root.sg1"))
	require.NoError(t, m.SetTTL("root.sg1", 42))
	assert.ErrorIs(t, m.SetTTL("root", 42), catalogerr.StorageGroupNotSet)
	require.NoError(t, m.Close())

	reopened, err := Open(Options{SchemaDir: dir, CacheCapacity: 4, TagRecordBytes: 256})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	node, err := reopened.tree.GetNode("root.sg1")
	require.NoError(t, err)
	ttl, err := node.TTL()
	require.NoError(t, err)
	assert.Equal(t, int64(42), ttl)
}

func TestMlogFilePathLayout(t *testing.T) {
	dir := t.TempDir()
	m := open(t, func(o *Options) { o.SchemaDir = dir })
	require.NoError(t, m.SetStorageGroup("root.sg1"))
	require.NoError(t, m.Close())
	assert.FileExists(t, filepath.Join(dir, mlogFileName))
	assert.FileExists(t, filepath.Join(dir, tagFileFileName))
}

package mtree

import (
	"fmt"
	"testing"

	"github.com/fortytw2/leaktest"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/catalogdb/metacatalog/internal/mnode"
)

// Exercises the errgroup fan-out in collectAllLeaves across more children
// than fanoutLimit, checking that every spawned goroutine has exited by
// the time GetAllTimeSeriesName returns.
func TestTrailingWildcardFanoutLeavesNoGoroutines(t *testing.T) {
	defer leaktest.Check(t)()

	tr := New()
	require.NoError(t, tr.SetStorageGroup("root.sg"))
	const n = fanoutLimit * 3
	for i := 0; i < n; i++ {
		_, err := tr.CreateTimeSeries(fmt.Sprintf("root.sg.d%d.s", i), mnode.Schema{}, "")
		require.NoError(t, err)
	}

	names, err := tr.GetAllTimeSeriesName("root.sg.*")
	require.NoError(t, err)
	require.Len(t, names, n)
}

func TestGetAllMeasurementSchemaRowsMatchExpectedShape(t *testing.T) {
	tr := New()
	require.NoError(t, tr.SetStorageGroup("root.sg1"))
	_, err := tr.CreateTimeSeries("root.sg1.d1.s1", mnode.Schema{DataType: 1, Encoding: 2, Compressor: 3}, "alias1")
	require.NoError(t, err)

	rows, err := tr.GetAllMeasurementSchema(SchemaPlan{Prefix: "root.sg1.*"})
	require.NoError(t, err)

	want := []SchemaRow{{
		FullPath:     "root.sg1.d1.s1",
		Alias:        "alias1",
		StorageGroup: "root.sg1",
		DataType:     1,
		Encoding:     2,
		Compressor:   3,
		TagOffset:    mnode.NoTagOffset,
	}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("GetAllMeasurementSchema mismatch (-want +got):\n%s", diff)
	}
}

package tagfile

import (
	"path/filepath"
	"testing"

	"github.com/catalogdb/metacatalog/internal/catalogerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T, recordBytes int) *File {
	t.Helper()
	f, err := Open(filepath.Join(t.TempDir(), "tlog.bin"), recordBytes)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestWriteReadRoundTrip(t *testing.T) {
	tf := open(t, 700)
	tags := map[string]string{"k": "v"}
	attrs := map[string]string{"unit": "celsius"}

	offset, err := tf.Write(tags, attrs)
	require.NoError(t, err)
	assert.Equal(t, int64(0), offset)

	gotTags, gotAttrs, err := tf.Read(offset)
	require.NoError(t, err)
	assert.Equal(t, tags, gotTags)
	assert.Equal(t, attrs, gotAttrs)
}

func TestReadTagDiscardsAttributes(t *testing.T) {
	tf := open(t, 700)
	offset, err := tf.Write(map[string]string{"k": "v"}, map[string]string{"a": "b"})
	require.NoError(t, err)

	tags, err := tf.ReadTag(offset)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"k": "v"}, tags)
}

func TestSecondWriteAppendsAtNewOffset(t *testing.T) {
	tf := open(t, 700)
	first, err := tf.Write(map[string]string{"k": "v1"}, nil)
	require.NoError(t, err)
	second, err := tf.Write(map[string]string{"k": "v2"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(700), second-first)

	tags, _, err := tf.Read(first)
	require.NoError(t, err)
	assert.Equal(t, "v1", tags["k"])

	tags, _, err = tf.Read(second)
	require.NoError(t, err)
	assert.Equal(t, "v2", tags["k"])
}

func TestWriteTooLargeFails(t *testing.T) {
	tf := open(t, 16)
	_, err := tf.Write(map[string]string{"key": "a much too long value for this record"}, nil)
	require.Error(t, err)
	assert.Equal(t, catalogerr.KindPayloadTooLarge, catalogerr.KindOf(err))
}

func TestReadCorruptRecord(t *testing.T) {
	tf := open(t, 32)
	// Write a record directly that isn't a valid encoded map pair.
	garbage := make([]byte, 32)
	for i := range garbage {
		garbage[i] = 0xFF
	}
	_, err := tf.f.WriteAt(garbage, 0)
	require.NoError(t, err)
	tf.size = 32

	_, _, err = tf.Read(0)
	require.Error(t, err)
	assert.Equal(t, catalogerr.KindCorrupt, catalogerr.KindOf(err))
}

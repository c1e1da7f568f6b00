// Package tagfile implements the fixed-record tag/attribute side file
// (spec.md §4.2, §6, component C4): a random-access binary file addressed
// by byte offset, one record per time series that carries tags.
//
// It is grounded on muscle's storage.DiskStore (storage/disk.go), which
// wraps the same *os.File-plus-pkg/errors idiom this package reuses for
// I/O error wrapping, adapted from key-addressed whole-file blobs to
// offset-addressed fixed-size records.
package tagfile

import (
	"encoding/binary"
	"os"
	"sync"

	"github.com/catalogdb/metacatalog/internal/catalogerr"
	"github.com/pkg/errors"
)

// File is the tag log file: a sequence of fixed-size records, each holding
// a tags map and an attributes map, addressed by the byte offset of its
// first byte.
type File struct {
	mu          sync.Mutex
	f           *os.File
	recordBytes int
	size        int64
}

// Open opens (creating if necessary) the tag file at path, configured for
// records of recordBytes each (spec.md §6: "Record size is a runtime
// configuration (e.g., 700 bytes).").
func Open(path string, recordBytes int) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, errors.Wrapf(err, "tagfile.Open %q", path)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "tagfile.Open: stat %q", path)
	}
	return &File{f: f, recordBytes: recordBytes, size: fi.Size()}, nil
}

// Close releases the underlying file descriptor.
func (tf *File) Close() error {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	return tf.f.Close()
}

// RecordBytes returns the configured record size.
func (tf *File) RecordBytes() int { return tf.recordBytes }

// encodeMap serializes a map as a length-prefixed UTF-8 (key,value)
// sequence: uint32 entry count, then per entry uint32 key length + key
// bytes + uint32 value length + value bytes (spec.md §6).
func encodeMap(m map[string]string) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(len(m)))
	// Deterministic order keeps Write idempotent for identical inputs,
	// which simplifies testing; map iteration order is otherwise unspecified.
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortStrings(keys)
	for _, k := range keys {
		v := m[k]
		buf = appendLengthPrefixed(buf, k)
		buf = appendLengthPrefixed(buf, v)
	}
	return buf
}

func appendLengthPrefixed(buf []byte, s string) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, s...)
	return buf
}

func sortStrings(ss []string) {
	for i := 1; i < len(ss); i++ {
		for j := i; j > 0 && ss[j-1] > ss[j]; j-- {
			ss[j-1], ss[j] = ss[j], ss[j-1]
		}
	}
}

func decodeMap(buf []byte) (map[string]string, []byte, error) {
	if len(buf) < 4 {
		return nil, nil, errors.New("tagfile: truncated map header")
	}
	count := binary.BigEndian.Uint32(buf)
	buf = buf[4:]
	m := make(map[string]string, count)
	for i := uint32(0); i < count; i++ {
		key, rest, err := readLengthPrefixed(buf)
		if err != nil {
			return nil, nil, err
		}
		val, rest2, err := readLengthPrefixed(rest)
		if err != nil {
			return nil, nil, err
		}
		m[key] = val
		buf = rest2
	}
	return m, buf, nil
}

func readLengthPrefixed(buf []byte) (string, []byte, error) {
	if len(buf) < 4 {
		return "", nil, errors.New("tagfile: truncated length prefix")
	}
	n := binary.BigEndian.Uint32(buf)
	buf = buf[4:]
	if uint64(n) > uint64(len(buf)) {
		return "", nil, errors.New("tagfile: length prefix exceeds buffer")
	}
	return string(buf[:n]), buf[n:], nil
}

// encodeRecord builds the two-blob record described in spec.md §4.2:
// serialized tags followed by serialized attributes, zero-padded to
// recordBytes. Returns catalogerr.PayloadTooLarge if the pair does not fit.
func (tf *File) encodeRecord(tags, attributes map[string]string) ([]byte, error) {
	tagsBlob := encodeMap(tags)
	attrsBlob := encodeMap(attributes)
	total := len(tagsBlob) + len(attrsBlob)
	if total > tf.recordBytes {
		return nil, catalogerr.New(catalogerr.KindPayloadTooLarge, "", nil)
	}
	record := make([]byte, tf.recordBytes)
	copy(record, tagsBlob)
	copy(record[len(tagsBlob):], attrsBlob)
	return record, nil
}

// Write appends a new record at end-of-file and returns its byte offset
// (spec.md §4.2).
func (tf *File) Write(tags, attributes map[string]string) (offset int64, err error) {
	record, err := tf.encodeRecord(tags, attributes)
	if err != nil {
		return 0, err
	}
	tf.mu.Lock()
	defer tf.mu.Unlock()
	offset = tf.size
	if _, err := tf.f.WriteAt(record, offset); err != nil {
		return 0, errors.Wrapf(catalogerr.New(catalogerr.KindIO, "", err), "tagfile.Write")
	}
	tf.size += int64(len(record))
	return offset, nil
}

// readRecord reads exactly tf.recordBytes at offset.
func (tf *File) readRecord(offset int64) ([]byte, error) {
	buf := make([]byte, tf.recordBytes)
	tf.mu.Lock()
	_, err := tf.f.ReadAt(buf, offset)
	tf.mu.Unlock()
	if err != nil {
		return nil, errors.Wrapf(catalogerr.New(catalogerr.KindIO, "", err), "tagfile.readRecord")
	}
	return buf, nil
}

// Read reads exactly recordBytes at offset and deserializes both maps.
// Fails catalogerr.Corrupt on decode error (spec.md §4.2).
func (tf *File) Read(offset int64) (tags, attributes map[string]string, err error) {
	buf, err := tf.readRecord(offset)
	if err != nil {
		return nil, nil, err
	}
	tags, rest, err := decodeMap(buf)
	if err != nil {
		return nil, nil, catalogerr.New(catalogerr.KindCorrupt, "", err)
	}
	attributes, _, err = decodeMap(rest)
	if err != nil {
		return nil, nil, catalogerr.New(catalogerr.KindCorrupt, "", err)
	}
	return tags, attributes, nil
}

// ReadTag is like Read but discards the attributes submap, for the common
// case of resolving the inverted tag index (spec.md §4.2).
func (tf *File) ReadTag(offset int64) (map[string]string, error) {
	tags, _, err := tf.Read(offset)
	return tags, err
}

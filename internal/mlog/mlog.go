// Package mlog implements the append-only textual operation log and its
// replayer (spec.md §4.3, §6, component C5).
//
// It follows the same append-then-flush, namespaced-error idiom as
// muscle's tree/store.go (which appends encoded nodes/revisions to a
// content-addressed store under a mutex) and internal/config's
// line-oriented "key value" parsing (internal/config/config.go's
// bufio.Scanner loop), adapted to a comma-separated, opcode-tagged line
// format with a resumable replay pass.
package mlog

import (
	"fmt"
	"strconv"
	"strings"
)

// Opcode identifies one operation-log line kind (spec.md §4.3).
type Opcode string

const (
	OpCreateTimeSeries   Opcode = "create_timeseries"
	OpDeleteTimeSeries   Opcode = "delete_timeseries"
	OpSetStorageGroup    Opcode = "set_storage_group"
	OpDeleteStorageGroup Opcode = "delete_storage_group"
	OpSetTTL             Opcode = "set_ttl"
)

// NoTagOffset is the sentinel meaning "no tag payload" in a
// create_timeseries record, matching mnode.NoTagOffset.
const NoTagOffset int64 = -1

// CreateTimeSeries is a parsed create_timeseries record.
type CreateTimeSeries struct {
	Path       string
	DataType   uint16
	Encoding   uint16
	Compressor uint16
	Props      map[string]string
	Alias      string
	TagOffset  int64
}

// DeleteTimeSeries is a parsed delete_timeseries record.
type DeleteTimeSeries struct{ Path string }

// SetStorageGroup is a parsed set_storage_group record.
type SetStorageGroup struct{ Path string }

// DeleteStorageGroup is a parsed delete_storage_group record, which may
// name more than one storage group per line.
type DeleteStorageGroup struct{ Paths []string }

// SetTTL is a parsed set_ttl record.
type SetTTL struct {
	Path      string
	TTLMillis int64
}

func encodeProps(props map[string]string) string {
	if len(props) == 0 {
		return ""
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+props[k])
	}
	return strings.Join(parts, "&")
}

func decodeProps(s string) map[string]string {
	if s == "" {
		return nil
	}
	props := make(map[string]string)
	for _, kv := range strings.Split(s, "&") {
		if kv == "" {
			continue
		}
		i := strings.IndexByte(kv, '=')
		if i < 0 {
			props[kv] = ""
			continue
		}
		props[kv[:i]] = kv[i+1:]
	}
	return props
}

func formatLine(op Opcode, fields ...string) string {
	return string(op) + "," + strings.Join(fields, ",")
}

func (r CreateTimeSeries) line() string {
	tagOffset := strconv.FormatInt(r.TagOffset, 10)
	return formatLine(OpCreateTimeSeries,
		r.Path,
		strconv.FormatUint(uint64(r.DataType), 10),
		strconv.FormatUint(uint64(r.Encoding), 10),
		strconv.FormatUint(uint64(r.Compressor), 10),
		encodeProps(r.Props),
		r.Alias,
		tagOffset,
	)
}

func (r DeleteTimeSeries) line() string {
	return formatLine(OpDeleteTimeSeries, r.Path)
}

func (r SetStorageGroup) line() string {
	return formatLine(OpSetStorageGroup, r.Path)
}

func (r DeleteStorageGroup) line() string {
	return formatLine(OpDeleteStorageGroup, r.Paths...)
}

func (r SetTTL) line() string {
	return formatLine(OpSetTTL, r.Path, strconv.FormatInt(r.TTLMillis, 10))
}

func parseUint16(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(n), nil
}

// parseLine decodes one log line into one of the Create/Delete/Set*
// record types above, or returns an error describing why it could not.
func parseLine(line string) (interface{}, error) {
	fields := strings.Split(line, ",")
	if len(fields) == 0 {
		return nil, fmt.Errorf("mlog: empty line")
	}
	op, rest := Opcode(fields[0]), fields[1:]
	switch op {
	case OpCreateTimeSeries:
		if len(rest) != 7 {
			return nil, fmt.Errorf("mlog: %s: want 7 fields, got %d", op, len(rest))
		}
		dataType, err := parseUint16(rest[1])
		if err != nil {
			return nil, fmt.Errorf("mlog: %s: data_type: %w", op, err)
		}
		encoding, err := parseUint16(rest[2])
		if err != nil {
			return nil, fmt.Errorf("mlog: %s: encoding: %w", op, err)
		}
		compressor, err := parseUint16(rest[3])
		if err != nil {
			return nil, fmt.Errorf("mlog: %s: compressor: %w", op, err)
		}
		tagOffset, err := strconv.ParseInt(rest[6], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("mlog: %s: tag_offset: %w", op, err)
		}
		return CreateTimeSeries{
			Path:       rest[0],
			DataType:   dataType,
			Encoding:   encoding,
			Compressor: compressor,
			Props:      decodeProps(rest[4]),
			Alias:      rest[5],
			TagOffset:  tagOffset,
		}, nil
	case OpDeleteTimeSeries:
		if len(rest) != 1 {
			return nil, fmt.Errorf("mlog: %s: want 1 field, got %d", op, len(rest))
		}
		return DeleteTimeSeries{Path: rest[0]}, nil
	case OpSetStorageGroup:
		if len(rest) != 1 {
			return nil, fmt.Errorf("mlog: %s: want 1 field, got %d", op, len(rest))
		}
		return SetStorageGroup{Path: rest[0]}, nil
	case OpDeleteStorageGroup:
		if len(rest) == 0 {
			return nil, fmt.Errorf("mlog: %s: want at least 1 field, got 0", op)
		}
		paths := make([]string, len(rest))
		copy(paths, rest)
		return DeleteStorageGroup{Paths: paths}, nil
	case OpSetTTL:
		if len(rest) != 2 {
			return nil, fmt.Errorf("mlog: %s: want 2 fields, got %d", op, len(rest))
		}
		ttl, err := strconv.ParseInt(rest[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("mlog: %s: ttl_millis: %w", op, err)
		}
		return SetTTL{Path: rest[0], TTLMillis: ttl}, nil
	default:
		return nil, fmt.Errorf("mlog: unrecognized opcode %q", op)
	}
}

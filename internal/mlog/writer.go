package mlog

import (
	"bufio"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// Writer appends operation-log lines to {schema_dir}/mlog.txt (spec.md
// §6). It starts disabled so Replay can run before any fresh mutation is
// appended; mmanager enables it once replay completes (spec.md §4.3).
type Writer struct {
	mu      sync.Mutex
	f       *os.File
	w       *bufio.Writer
	enabled bool
}

// OpenWriter opens path for appending, creating it if absent. The writer
// starts disabled; call Enable once replay has completed.
func OpenWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, errors.Wrapf(err, "mlog.OpenWriter %q", path)
	}
	return &Writer{f: f, w: bufio.NewWriter(f)}, nil
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.w.Flush(); err != nil {
		return errors.Wrap(err, "mlog.Writer.Close")
	}
	return w.f.Close()
}

// Enable turns writing on. Called once after Replay completes (spec.md
// §4.3: "When replay completes, write_to_log is enabled.").
func (w *Writer) Enable() {
	w.mu.Lock()
	w.enabled = true
	w.mu.Unlock()
}

// Enabled reports whether the writer will currently append lines.
func (w *Writer) Enabled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enabled
}

// append writes one line, flushing before returning so that "a committed
// return-to-caller implies the line is written" (spec.md §4.3 Append
// durability). It is a no-op, returning nil, while disabled.
func (w *Writer) append(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.enabled {
		return nil
	}
	if _, err := w.w.WriteString(line); err != nil {
		return errors.Wrap(err, "mlog.Writer.append")
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return errors.Wrap(err, "mlog.Writer.append")
	}
	if err := w.w.Flush(); err != nil {
		return errors.Wrap(err, "mlog.Writer.append")
	}
	return nil
}

// AppendCreateTimeSeries appends a create_timeseries record.
func (w *Writer) AppendCreateTimeSeries(r CreateTimeSeries) error { return w.append(r.line()) }

// AppendDeleteTimeSeries appends a delete_timeseries record.
func (w *Writer) AppendDeleteTimeSeries(r DeleteTimeSeries) error { return w.append(r.line()) }

// AppendSetStorageGroup appends a set_storage_group record.
func (w *Writer) AppendSetStorageGroup(r SetStorageGroup) error { return w.append(r.line()) }

// AppendDeleteStorageGroup appends a delete_storage_group record.
func (w *Writer) AppendDeleteStorageGroup(r DeleteStorageGroup) error { return w.append(r.line()) }

// AppendSetTTL appends a set_ttl record.
func (w *Writer) AppendSetTTL(r SetTTL) error { return w.append(r.line()) }

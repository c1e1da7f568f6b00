package mlog

import (
	"bufio"
	"os"

	log "github.com/sirupsen/logrus"
)

// Handler receives parsed records during Replay. Implementations (here,
// mmanager.MManager) apply each record to the in-memory tree, index, and
// counters without re-appending to the log or calling the external
// adapter, the way muscle's tree replay primitives are pure in-memory
// mutations driven by an external caller.
type Handler interface {
	ApplyCreateTimeSeries(CreateTimeSeries) error
	ApplyDeleteTimeSeries(DeleteTimeSeries) error
	ApplySetStorageGroup(SetStorageGroup) error
	ApplyDeleteStorageGroup(DeleteStorageGroup) error
	ApplySetTTL(SetTTL) error
}

// Replay reads the log at path line by line, applying each record to h. If
// the file does not exist, Replay is a no-op (an empty catalog starts with
// no log, spec.md §3 Lifecycle). A line that fails to parse or fails to
// apply is logged at error level and skipped; replay never aborts on a
// single bad line (spec.md §4.3, §7).
func Replay(path string, h Handler) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		record, err := parseLine(line)
		if err != nil {
			log.WithFields(log.Fields{"line": lineNo}).WithError(err).Error("mlog: skipping unparseable line")
			continue
		}
		if err := apply(h, record); err != nil {
			log.WithFields(log.Fields{"line": lineNo}).WithError(err).Error("mlog: skipping line that failed to apply")
		}
	}
	return scanner.Err()
}

func apply(h Handler, record interface{}) error {
	switch r := record.(type) {
	case CreateTimeSeries:
		return h.ApplyCreateTimeSeries(r)
	case DeleteTimeSeries:
		return h.ApplyDeleteTimeSeries(r)
	case SetStorageGroup:
		return h.ApplySetStorageGroup(r)
	case DeleteStorageGroup:
		return h.ApplyDeleteStorageGroup(r)
	case SetTTL:
		return h.ApplySetTTL(r)
	default:
		return nil
	}
}

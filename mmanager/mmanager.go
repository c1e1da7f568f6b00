// Package mmanager implements MManager, the façade that orchestrates the
// schema tree, operation log, tag file, node cache, inverted tag index,
// and per-storage-group counters under a single reader/writer lock
// (spec.md §4.5, §5, component C7).
//
// Grounded on muscle's tree.Tree plus its calling convention in
// cmd/musclefs/musclefs.go: a single struct owning every mutable
// substructure, serialized by one lock the caller never has to manage
// directly. Unlike muscle (which synchronizes through the 9P server's
// own per-request locking), every MManager method begins and ends with
// its own lock acquisition/release, matching spec.md §5's "single
// process-wide reader/writer lock... released on every exit path."
package mmanager

import (
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/catalogdb/metacatalog/internal/adapter"
	"github.com/catalogdb/metacatalog/internal/catalogerr"
	"github.com/catalogdb/metacatalog/internal/counters"
	"github.com/catalogdb/metacatalog/internal/mlog"
	"github.com/catalogdb/metacatalog/internal/mtree"
	"github.com/catalogdb/metacatalog/internal/nodecache"
	"github.com/catalogdb/metacatalog/internal/pathutil"
	"github.com/catalogdb/metacatalog/internal/tagfile"
	"github.com/catalogdb/metacatalog/internal/tagindex"
)

// Options configures a new MManager (spec.md §6 Configuration).
type Options struct {
	SchemaDir                string
	CacheCapacity            int
	TagRecordBytes           int
	AutoCreateSchemaEnabled  bool
	DefaultStorageGroupLevel int
	EnableParameterAdapter   bool
	Adapter                  adapter.ParameterAdapter
	StorageEngine            adapter.StorageEngine
}

// MManager is the process-wide metadata catalog façade.
type MManager struct {
	mu sync.RWMutex

	opts Options

	tree     *mtree.MTree
	logw     *mlog.Writer
	tagFile  *tagfile.File
	cache    *nodecache.Cache
	counters *counters.Counters
	index    *tagindex.Index
	adapter  adapter.ParameterAdapter
	engine   adapter.StorageEngine
}

const (
	mlogFileName    = "mlog.txt"
	tagFileFileName = "tlog.bin"
)

// Open creates or reopens a catalog rooted at opts.SchemaDir, replaying
// its operation log before returning (spec.md §3 Lifecycle, §4.3
// Replay).
func Open(opts Options) (*MManager, error) {
	if opts.Adapter == nil {
		opts.Adapter = adapter.NoopParameterAdapter{}
	}
	if opts.StorageEngine == nil {
		opts.StorageEngine = adapter.NoopStorageEngine{}
	}

	tf, err := tagfile.Open(filepath.Join(opts.SchemaDir, tagFileFileName), opts.TagRecordBytes)
	if err != nil {
		return nil, err
	}

	logw, err := mlog.OpenWriter(filepath.Join(opts.SchemaDir, mlogFileName))
	if err != nil {
		_ = tf.Close()
		return nil, err
	}

	m := &MManager{
		opts:     opts,
		tree:     mtree.New(),
		logw:     logw,
		tagFile:  tf,
		cache:    nodecache.New(opts.CacheCapacity),
		counters: counters.New(),
		index:    tagindex.New(),
		adapter:  opts.Adapter,
		engine:   opts.StorageEngine,
	}

	if err := mlog.Replay(filepath.Join(opts.SchemaDir, mlogFileName), m); err != nil {
		_ = logw.Close()
		_ = tf.Close()
		return nil, err
	}
	logw.Enable()

	return m, nil
}

// Close releases the log writer and tag file.
func (m *MManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.logw.Close(); err != nil {
		return err
	}
	return m.tagFile.Close()
}

// deviceNodeWithAutoCreate materializes the storage group that should own
// path, at the configured default_storage_group_level, when auto-create
// is enabled and path has no storage-group ancestor yet. A concurrent
// StorageGroupAlreadySet (another caller materialized the same prefix
// first) is treated as success, per spec.md §7 (SPEC_FULL.md names this
// method explicitly). Caller must hold the write lock.
func (m *MManager) deviceNodeWithAutoCreate(path string) error {
	if !m.opts.AutoCreateSchemaEnabled {
		return catalogerr.New(catalogerr.KindStorageGroupNotSet, path, nil)
	}
	sgPath, ok := pathutil.StorageGroupPrefix(path, m.opts.DefaultStorageGroupLevel)
	if !ok {
		return catalogerr.New(catalogerr.KindIllegalPath, path, nil)
	}

	err := m.tree.SetStorageGroup(sgPath)
	if err != nil {
		if kindIs(err, catalogerr.KindStorageGroupAlreadySet) {
			return nil
		}
		return err
	}

	if m.opts.EnableParameterAdapter {
		if adjErr := m.adapter.AdjustStorageGroups(1); adjErr != nil {
			_ = m.tree.UnsetStorageGroup(sgPath)
			return catalogerr.New(catalogerr.KindAdapterVeto, sgPath, adjErr)
		}
	}

	if err := m.logw.AppendSetStorageGroup(mlog.SetStorageGroup{Path: sgPath}); err != nil {
		return catalogerr.New(catalogerr.KindIO, sgPath, err)
	}
	m.counters.InitStorageGroup(sgPath)
	if m.opts.EnableParameterAdapter {
		m.adapter.InitCounter(sgPath)
	}
	log.WithFields(log.Fields{"storage_group": sgPath, "path": path}).Debug("mmanager: auto-created storage group")
	return nil
}

func kindIs(err error, k catalogerr.Kind) bool {
	return catalogerr.KindOf(err) == k
}

// Tree exposes the underlying MTree for read-only diagnostics callers.
// Callers must not mutate the returned tree directly.
func (m *MManager) Tree() *mtree.MTree { return m.tree }

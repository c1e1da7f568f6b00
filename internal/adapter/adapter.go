// Package adapter defines the external collaborators MManager drives:
// a dynamic-configuration parameter adapter, the storage engine that owns
// raw data files, and a seekable remote byte source (spec.md §6, "Out of
// scope (external collaborators, named by interface only)").
//
// These are consumed interfaces: the catalog only needs to call them and
// react to a veto. Grounded on muscle's storage.Store interface
// (internal/storage/store.go), which is likewise a small consumed
// interface with a no-op/in-memory default for tests and a real backend
// wired in production.
package adapter

import "github.com/catalogdb/metacatalog/internal/catalogerr"

// ParameterAdapter is the dynamic-configuration collaborator invoked by
// MManager before committing a storage-group or time-series count change.
// AdjustStorageGroups and AdjustTimeSeries may refuse the delta; a
// non-nil error from either is treated as a veto and MManager surfaces
// catalogerr.AdapterVeto. For a create, MManager reverses its tree
// mutation on veto; for a delete, it consults the adapter before the tree
// is touched, so a veto leaves the tree unchanged.
type ParameterAdapter interface {
	AdjustStorageGroups(delta int32) error
	AdjustTimeSeries(delta int32) error
	InitCounter(sg string)
	DeleteCounter(sg string)
}

// StorageEngine is the collaborator that owns raw data files. MManager
// calls DeleteAllDataFiles when delete_timeseries empties a storage
// group (spec.md §6).
type StorageEngine interface {
	DeleteAllDataFiles(sg string) error
}

// RemoteByteSource is a seekable byte source backing a remote filesystem
// adapter (spec.md §3, Out of scope collaborators).
type RemoteByteSource interface {
	ReadAt(p []byte, off int64) (n int, err error)
	Size() (int64, error)
}

// NoopParameterAdapter never vetoes and does not track external
// counters. It is the default when enable_parameter_adapter is false
// (spec.md §6).
type NoopParameterAdapter struct{}

var _ ParameterAdapter = NoopParameterAdapter{}

func (NoopParameterAdapter) AdjustStorageGroups(int32) error { return nil }
func (NoopParameterAdapter) AdjustTimeSeries(int32) error     { return nil }
func (NoopParameterAdapter) InitCounter(string)               {}
func (NoopParameterAdapter) DeleteCounter(string)             {}

// VetoingParameterAdapter wraps a ParameterAdapter and translates any
// error it returns into catalogerr.AdapterVeto, the form MManager's
// callers expect (spec.md §7).
type VetoingParameterAdapter struct {
	Inner ParameterAdapter
}

var _ ParameterAdapter = VetoingParameterAdapter{}

func (v VetoingParameterAdapter) AdjustStorageGroups(delta int32) error {
	if err := v.Inner.AdjustStorageGroups(delta); err != nil {
		return catalogerr.New(catalogerr.KindAdapterVeto, "", err)
	}
	return nil
}

func (v VetoingParameterAdapter) AdjustTimeSeries(delta int32) error {
	if err := v.Inner.AdjustTimeSeries(delta); err != nil {
		return catalogerr.New(catalogerr.KindAdapterVeto, "", err)
	}
	return nil
}

func (v VetoingParameterAdapter) InitCounter(sg string)   { v.Inner.InitCounter(sg) }
func (v VetoingParameterAdapter) DeleteCounter(sg string) { v.Inner.DeleteCounter(sg) }

// NoopStorageEngine is the default StorageEngine: it does nothing, for
// deployments where the catalog runs standalone from the data-file
// owner (e.g. tests).
type NoopStorageEngine struct{}

var _ StorageEngine = NoopStorageEngine{}

func (NoopStorageEngine) DeleteAllDataFiles(string) error { return nil }

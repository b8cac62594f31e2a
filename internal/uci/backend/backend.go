// Package backend defines the pluggable storage contract used by load,
// commit, and list, plus the default file-based implementation: name
// resolution against a config directory, advisory file locking, and a
// gzip-compressed pre-commit backup.
package backend

import (
	"io"

	"github.com/uci-go/uci/internal/uci/ucierr"
)

// LockKind selects a shared (read) or exclusive (write) advisory lock.
type LockKind int

const (
	LockShared LockKind = iota
	LockExclusive
)

// Handle is an open, locked config stream. Close releases both the lock and
// the underlying file descriptor, on every exit path.
type Handle interface {
	io.ReadWriteSeeker
	io.Closer
	Truncate(size int64) error
}

// Backend is the adapter that turns a package name into a byte stream for
// parsing and back.
type Backend interface {
	// Name identifies this backend for registration (e.g. "file").
	Name() string

	// Open resolves name to a canonical config file and opens it under the
	// requested lock kind. HasDeltaLog reports whether the resolved file
	// lives inside the managed config directory (and therefore uses the
	// save-file mechanism) or was reached via an absolute/explicit relative
	// path bypass.
	Open(name string, lock LockKind) (h Handle, path string, hasDeltaLog bool, err error)

	// OpenSaveFile opens the per-package delta log under this backend's save
	// directory, under the requested lock kind. An exclusive open creates the
	// parent directory and the file as needed; a shared open of a missing
	// save file returns a NotFound error.
	OpenSaveFile(name string, lock LockKind) (h Handle, path string, err error)

	// ListConfigs enumerates config names available under this backend's
	// managed directory, sorted by name, filtered to validate.Name-safe
	// names.
	ListConfigs() ([]string, error)
}

// SearchPathBackend is implemented by backends that can be given a list of
// additional lookup directories for resolving a save/delta file, the CLI's
// repeatable `-p` flag. A backend that doesn't implement this interface
// resolves against its own single configured save directory only.
type SearchPathBackend interface {
	Backend
	SetSearchPaths(paths []string)
}

// notRegisteredErr is the error a registry returns when no backend is found
// for a requested name.
func notRegisteredErr(name string) error {
	return ucierr.New(ucierr.NotFound, "Backend", "no backend registered: "+name)
}

// Registry holds a set of name-keyed backends and a default.
type Registry struct {
	backends map[string]Backend
	def      string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// Register adds b to the registry. If this is the first backend registered,
// it becomes the default.
func (r *Registry) Register(b Backend) {
	r.backends[b.Name()] = b
	if r.def == "" {
		r.def = b.Name()
	}
}

// SetDefault changes the default backend name.
func (r *Registry) SetDefault(name string) error {
	if _, ok := r.backends[name]; !ok {
		return notRegisteredErr(name)
	}
	r.def = name
	return nil
}

// Default returns the current default backend.
func (r *Registry) Default() (Backend, error) {
	if r.def == "" {
		return nil, notRegisteredErr("<default>")
	}
	return r.backends[r.def], nil
}

// Get returns the backend registered under name.
func (r *Registry) Get(name string) (Backend, error) {
	b, ok := r.backends[name]
	if !ok {
		return nil, notRegisteredErr(name)
	}
	return b, nil
}

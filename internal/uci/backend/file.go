package backend

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/uci-go/uci/internal/uci/ucierr"
	"github.com/uci-go/uci/internal/uci/validate"
)

// FileBackend is the default backend: it resolves bare names against
// ConfDir, honors absolute (`/…`) and explicit relative (`./…`) paths as a
// bypass of the managed directory (those packages never get a delta log),
// and keeps per-package save files under SaveDir.
type FileBackend struct {
	ConfDir string
	SaveDir string

	// SearchPaths are additional directories, consulted in order after
	// SaveDir, for locating an *existing* save file. New save files are
	// always created under SaveDir; SearchPaths only extends lookup, it
	// never changes where a write lands. Set via SetSearchPaths.
	SearchPaths []string
}

// NewFileBackend constructs a FileBackend rooted at confDir/saveDir.
func NewFileBackend(confDir, saveDir string) *FileBackend {
	return &FileBackend{ConfDir: confDir, SaveDir: saveDir}
}

// SetSearchPaths implements backend.SearchPathBackend.
func (b *FileBackend) SetSearchPaths(paths []string) {
	b.SearchPaths = paths
}

// Name implements Backend.
func (b *FileBackend) Name() string { return "file" }

// resolve computes the canonical path for name and whether it participates
// in the delta-log mechanism: bare names resolve under ConfDir and do;
// absolute paths and explicit "./"-relative paths bypass ConfDir and don't.
func (b *FileBackend) resolve(name string) (path string, hasDeltaLog bool) {
	if filepath.IsAbs(name) {
		return name, false
	}
	if strings.HasPrefix(name, "./") || strings.HasPrefix(name, "../") {
		return name, false
	}
	return filepath.Join(b.ConfDir, name), true
}

// Open implements Backend.
func (b *FileBackend) Open(name string, lock LockKind) (Handle, string, bool, error) {
	path, hasDeltaLog := b.resolve(name)

	flags := os.O_RDONLY
	if lock == LockExclusive {
		flags = os.O_RDWR | os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, path, hasDeltaLog, ucierr.Wrap(ucierr.IO, "Open", "opening config file", err).WithPrefix(name)
	}
	if err := flock(f, lock); err != nil {
		_ = f.Close()
		return nil, path, hasDeltaLog, ucierr.Wrap(ucierr.IO, "Open", "locking config file", err).WithPrefix(name)
	}
	return &fileHandle{f: f}, path, hasDeltaLog, nil
}

// OpenSaveFile implements Backend. A shared-lock open of a save file that
// does not yet exist returns a NotFound-kind error the caller treats as "no
// pending deltas"; an exclusive-lock open creates the save directory and
// file as needed.
func (b *FileBackend) OpenSaveFile(name string, lock LockKind) (Handle, string, error) {
	path := filepath.Join(b.SaveDir, name)

	if lock != LockExclusive {
		for _, dir := range b.searchDirs() {
			candidate := filepath.Join(dir, name)
			f, err := os.OpenFile(candidate, os.O_RDONLY, 0644)
			if err == nil {
				if err := flock(f, lock); err != nil {
					_ = f.Close()
					return nil, candidate, ucierr.Wrap(ucierr.IO, "OpenSaveFile", "locking save file", err).WithPrefix(name)
				}
				return &fileHandle{f: f}, candidate, nil
			}
			if !os.IsNotExist(err) {
				return nil, candidate, ucierr.Wrap(ucierr.IO, "OpenSaveFile", "opening save file", err).WithPrefix(name)
			}
		}
		return nil, path, ucierr.New(ucierr.NotFound, "OpenSaveFile", "no save file for "+name)
	}

	if err := os.MkdirAll(b.SaveDir, 0755); err != nil {
		return nil, "", ucierr.Wrap(ucierr.IO, "OpenSaveFile", "creating save directory", err).WithPrefix(name)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, path, ucierr.Wrap(ucierr.IO, "OpenSaveFile", "opening save file", err).WithPrefix(name)
	}
	if err := flock(f, lock); err != nil {
		_ = f.Close()
		return nil, path, ucierr.Wrap(ucierr.IO, "OpenSaveFile", "locking save file", err).WithPrefix(name)
	}
	return &fileHandle{f: f}, path, nil
}

// searchDirs returns SaveDir followed by SearchPaths, the order an existing
// save file is looked up in: the backend's own directory takes priority over
// any additional `-p` directories.
func (b *FileBackend) searchDirs() []string {
	dirs := make([]string, 0, len(b.SearchPaths)+1)
	dirs = append(dirs, b.SaveDir)
	dirs = append(dirs, b.SearchPaths...)
	return dirs
}

// ListConfigs implements Backend. Names that fail validate.Name (including
// hidden and dotted files) are filtered out — see DESIGN.md's resolution of
// the open question on this point.
func (b *FileBackend) ListConfigs() ([]string, error) {
	entries, err := os.ReadDir(b.ConfDir)
	if err != nil {
		return nil, ucierr.Wrap(ucierr.IO, "ListConfigs", "reading config directory", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !validate.Name(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// fileHandle adapts *os.File to Handle, releasing the advisory lock on
// Close regardless of how the caller's operation concluded.
type fileHandle struct {
	f *os.File
}

func (h *fileHandle) Read(p []byte) (int, error)  { return h.f.Read(p) }
func (h *fileHandle) Write(p []byte) (int, error) { return h.f.Write(p) }
func (h *fileHandle) Seek(offset int64, whence int) (int64, error) {
	return h.f.Seek(offset, whence)
}
func (h *fileHandle) Truncate(size int64) error { return h.f.Truncate(size) }

func (h *fileHandle) Close() error {
	_ = funlock(h.f)
	return h.f.Close()
}

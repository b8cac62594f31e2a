package backend

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/uci-go/uci/internal/uci/ucierr"
)

// Backuper is implemented by backends that can keep a pre-commit copy of a
// config file's previous canonical text, so an operator can recover it even
// after a successful-but-unwanted commit. Optional: Commit degrades to a
// plain commit when the backend doesn't implement it.
type Backuper interface {
	// Backup reads the entirety of r (which the caller has already
	// rewound to the start) and stores a timestamped gzip copy under the
	// backend's own backup directory.
	Backup(name string, r io.Reader) error
}

// backupDir returns the directory FileBackend.Backup writes into.
func (b *FileBackend) backupDir() string {
	return filepath.Join(b.SaveDir, "backups")
}

// finalBackupPath computes the "<name>.<unixnano>.gz" path for name's next
// backup, retrying with a fresh clock read if the first candidate is
// already taken — which a caller issuing several commits in a tight loop
// can otherwise hit on a platform with coarse timer resolution.
func finalBackupPath(dir, name string) string {
	for {
		candidate := filepath.Join(dir, fmt.Sprintf("%s.%d.gz", name, time.Now().UnixNano()))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// Backup implements Backuper for FileBackend: a gzip-compressed snapshot
// named "<name>.<unixnano>.gz", one file per call so successive commits
// accumulate a history of snapshots instead of overwriting each other.
// Best-effort: a failure here never aborts a commit — see
// internal/uci.backupBeforeTruncate.
func (b *FileBackend) Backup(name string, r io.Reader) error {
	dir := b.backupDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ucierr.Wrap(ucierr.IO, "Backup", "creating backup directory", err).WithPrefix(name)
	}

	f, err := os.CreateTemp(dir, name+".*.gz.tmp")
	if err != nil {
		return ucierr.Wrap(ucierr.IO, "Backup", "creating backup file", err).WithPrefix(name)
	}
	tmpPath := f.Name()

	gw := gzip.NewWriter(f)
	_, copyErr := io.Copy(gw, r)
	closeErr := gw.Close()
	syncErr := f.Sync()
	f.Close()

	if copyErr != nil || closeErr != nil || syncErr != nil {
		os.Remove(tmpPath)
		if copyErr != nil {
			return ucierr.Wrap(ucierr.IO, "Backup", "writing backup", copyErr).WithPrefix(name)
		}
		if closeErr != nil {
			return ucierr.Wrap(ucierr.IO, "Backup", "flushing backup", closeErr).WithPrefix(name)
		}
		return ucierr.Wrap(ucierr.IO, "Backup", "syncing backup", syncErr).WithPrefix(name)
	}

	finalPath := finalBackupPath(dir, name)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return ucierr.Wrap(ucierr.IO, "Backup", "finalizing backup", err).WithPrefix(name)
	}
	return nil
}

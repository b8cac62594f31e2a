//go:build windows

package backend

import "os"

// flock is a best-effort no-op on Windows: proper file locking is not yet
// implemented there, so concurrent writers are not truly serialized on this
// platform.
func flock(f *os.File, kind LockKind) error {
	return nil
}

// funlock is the matching best-effort no-op release.
func funlock(f *os.File) error {
	return nil
}

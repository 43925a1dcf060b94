package seedstore

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// dirLock holds an exclusive flock on the seed directory's lock file, taken
// while the SQLite index is being rebuilt, so that two rebuilds of the same
// seed directory are serialized. Seed writes (Store.Write) do not take this
// lock and are not held off by it.
type dirLock struct {
	file *os.File
}

// lockDirForRebuild acquires an exclusive lock on dir's rebuild lock file.
// The lock is released by calling Close on the returned dirLock.
func lockDirForRebuild(dir string) (*dirLock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating seed dir: %w", err)
	}

	path := filepath.Join(dir, ".rebuild.lock")

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening rebuild lock file: %w", err)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX); err != nil {
		_ = file.Close()

		return nil, fmt.Errorf("flock rebuild lock: %w", err)
	}

	return &dirLock{file: file}, nil
}

// Close releases the lock and closes the underlying file.
func (l *dirLock) Close() error {
	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)

	return l.file.Close()
}

//go:build !windows

package diskutil

import (
	"os"

	"golang.org/x/sys/unix"
)

// FileLock is an advisory exclusive lock backed by flock(2). It serializes
// processes racing on the same certificate paths; it does not protect against
// writers that bypass the lock.
type FileLock struct {
	path string
	file *os.File
}

func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// Lock blocks until the exclusive lock is acquired.
func (l *FileLock) Lock() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o660)
	if err != nil {
		return err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return err
	}
	l.file = f
	return nil
}

// Unlock releases the lock. The lock file itself is kept so that the inode
// stays stable for other processes.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	if err != nil {
		return err
	}
	return closeErr
}

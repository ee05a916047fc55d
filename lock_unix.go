//go:build !windows

package vmr

import (
	"fmt"
	"os"
	"syscall"
	"time"
)

// Locker serializes cache writes across processes. Concurrent CLI
// invocations sharing a cache directory take the lock before replacing the
// catalog snapshot.
type Locker interface {
	// Lock acquires an exclusive lock, waiting up to the configured
	// timeout. Idempotent while held.
	Lock() error

	// Unlock releases the lock. Safe to call multiple times.
	Unlock() error
}

// fileLock implements Locker with flock() advisory locking on the snapshot's
// sibling .lock file.
type fileLock struct {
	// file is the lock file handle.
	file *os.File

	// timeout bounds the wait for acquisition.
	timeout time.Duration

	// locked tracks whether the lock is currently held.
	locked bool
}

// newFileLock opens (creating if needed) the lock file at path.
func newFileLock(path string, timeout time.Duration) (*fileLock, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	return &fileLock{
		file:    file,
		timeout: timeout,
	}, nil
}

// Lock polls a non-blocking flock() with doubling backoff until acquired or
// the timeout expires.
func (l *fileLock) Lock() error {
	if l.locked {
		return nil
	}

	deadline := time.Now().Add(l.timeout)
	sleepDuration := 10 * time.Millisecond

	for {
		err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			l.locked = true
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("lock timeout after %v", l.timeout)
		}

		time.Sleep(sleepDuration)
		if sleepDuration < 100*time.Millisecond {
			sleepDuration *= 2
		}
	}
}

// Unlock releases the advisory lock and closes the file handle.
func (l *fileLock) Unlock() error {
	if !l.locked {
		// Close the handle even when the lock was never taken.
		if l.file != nil {
			l.file.Close()
			l.file = nil
		}
		return nil
	}

	var unlockErr error
	if l.file != nil {
		unlockErr = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
		l.file.Close()
		l.file = nil
	}
	l.locked = false

	return unlockErr
}

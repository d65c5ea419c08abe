package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrLocked means another collection holds the lock.
var ErrLocked = errors.New("lock is held by another collection")

// Lock is an exclusive advisory lock on a file. The kernel drops it when the process exits.
type Lock struct {
	path string
	file *os.File
	once sync.Once
	err  error
}

// Acquire takes the lock without waiting and records the acquisition time in the file.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := tryLock(file); err != nil {
		_ = file.Close()
		return nil, err
	}

	// The content is informational; the flock is what excludes.
	if err := file.Truncate(0); err == nil {
		_, _ = file.WriteAt([]byte(time.Now().UTC().Format(time.RFC3339)+"\n"), 0)
	}
	return &Lock{path: path, file: file}, nil
}

// Release drops the lock. The file stays so a waiting process never locks an unlinked inode.
func (l *Lock) Release() error {
	l.once.Do(func() {
		unlockErr := unlock(l.file)
		closeErr := l.file.Close()
		l.err = errors.Join(unlockErr, closeErr)
	})
	return l.err
}

func (l *Lock) Path() string {
	return l.path
}

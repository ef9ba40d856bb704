// Package workspace serializes mutating commands on one output directory.
//
// Two annofuse processes rewriting the same label tree would interleave
// writes, so every mutating workflow takes an advisory lock file in the
// directory it writes before touching anything.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"annofuse/internal/services"
)

// LockFileName is created in the locked directory.
const LockFileName = ".annofuse.lock"

// Lock is a held workspace lock.
type Lock struct {
	path string
	lock *flock.Flock
}

// Acquire takes the lock for dir without blocking. When another process
// holds it the error carries services.ErrBusy.
func Acquire(dir string) (*Lock, error) {
	if dir == "" {
		return nil, errors.New("acquire workspace lock: directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure workspace dir: %w", err)
	}
	path := filepath.Join(dir, LockFileName)
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrBusy, "workspace", "acquire lock",
			fmt.Sprintf("another annofuse process is writing %s", dir), nil)
	}
	return &Lock{path: path, lock: fl}, nil
}

// Held reports whether some process currently holds the lock for dir. It
// never creates the directory.
func Held(dir string) (bool, error) {
	path := filepath.Join(dir, LockFileName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe lock: %w", err)
	}
	if ok {
		_ = fl.Unlock()
		return false, nil
	}
	return true, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Release unlocks and removes the lock file.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	err := l.lock.Unlock()
	_ = os.Remove(l.path)
	l.lock = nil
	return err
}

package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"cutroom/internal/backend"
	"cutroom/internal/textutil"
)

// ProjectLock is a held cross-process generation lock for one project.
type ProjectLock struct {
	path string
	lock *flock.Flock
}

// LockProject takes the project's generation lock without blocking. It
// returns an error matching backend.ErrBusy when another process holds it.
func (s *Store) LockProject(projectID string) (*ProjectLock, error) {
	name := textutil.SanitizeFileName(strings.TrimSpace(projectID))
	if name == "" {
		return nil, backend.Wrap(backend.ErrValidation, "lock project", "Project ID is required", nil)
	}
	if err := os.MkdirAll(s.lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	path := filepath.Join(s.lockDir, name+".lock")
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, backend.Wrap(backend.ErrBusy, "lock project", "another cutroom process is generating for "+projectID, nil)
	}
	return &ProjectLock{path: path, lock: lock}, nil
}

// Path returns the lock file location.
func (l *ProjectLock) Path() string { return l.path }

// Release drops the lock. It is safe to call more than once.
func (l *ProjectLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

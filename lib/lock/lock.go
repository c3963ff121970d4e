package lock

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// staleAfter bounds how long a crashed import can keep the lock file around.
const staleAfter = 2 * time.Hour

// FileLock serializes the import job: the store holds one write transaction
// for the whole batch, so a second concurrent run is never useful.
type FileLock struct {
	path   string
	logger *slog.Logger
}

// New creates a lock rooted in dir. The directory is created on demand.
func New(dir, name string, logger *slog.Logger) *FileLock {
	return &FileLock{
		path:   filepath.Clean(filepath.Join(dir, name+".lock")),
		logger: logger,
	}
}

// TryLock attempts to take the lock without waiting. It returns false when
// another import holds it.
func (l *FileLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("create lock dir: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		file, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err != nil {
			if os.IsExist(err) && l.isStale() {
				l.logger.Warn("removing stale import lock", slog.String("file", l.path))
				if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
					return false, fmt.Errorf("remove stale lock: %w", err)
				}
				continue
			}
			if os.IsExist(err) {
				return false, nil
			}
			return false, fmt.Errorf("create lock file: %w", err)
		}

		fmt.Fprintf(file, "%d\n%d\n", time.Now().Unix(), os.Getpid())
		if err := file.Close(); err != nil {
			return false, fmt.Errorf("close lock file: %w", err)
		}
		l.logger.Debug("acquired import lock", slog.String("file", l.path))
		return true, nil
	}

	return false, nil
}

// Unlock releases the lock. Releasing a lock that is not held is a no-op.
func (l *FileLock) Unlock() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	l.logger.Debug("released import lock", slog.String("file", l.path))
	return nil
}

func (l *FileLock) isStale() bool {
	info, err := os.Stat(l.path)
	if err != nil {
		return true
	}
	return time.Since(info.ModTime()) > staleAfter
}

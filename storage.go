package vmr

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultLockTimeout is the default timeout for acquiring file locks.
const DefaultLockTimeout = 30 * time.Second

// cacheFileName is the name of the catalog snapshot file inside the cache
// directory.
const cacheFileName = "catalog.json"

// EnvCacheDir is the environment variable that overrides the cache
// directory, taking precedence over Config.CacheDir.
const EnvCacheDir = "VMR_CACHE_DIR"

// storageInterface defines operations for local cache management.
// Implemented by *storage for production and mockStorage for tests.
// This interface enables test isolation without filesystem dependencies.
type storageInterface interface {
	// loadSnapshot reads and parses the cached catalog snapshot.
	// Returns (nil, nil) when no snapshot exists on disk.
	loadSnapshot() (*Snapshot, error)

	// saveSnapshot atomically writes the snapshot to the cache file.
	saveSnapshot(snap *Snapshot) error

	// cachePath returns the absolute path of the cache file.
	cachePath() string

	// ensureDir creates a directory and all parent directories if they don't exist.
	ensureDir(path string) error

	// atomicWrite writes data to a file using write-then-rename for atomicity.
	atomicWrite(path string, data []byte) error

	// removeSnapshot deletes the cached snapshot if present.
	removeSnapshot() error
}

// storage handles all local cache filesystem operations.
// Implements storageInterface.
type storage struct {
	// baseDir is the cache directory.
	baseDir string

	// lockTimeout is the maximum duration to wait for file lock acquisition.
	lockTimeout time.Duration

	// mu protects concurrent in-process access to the cache file.
	mu sync.RWMutex
}

// Ensure storage implements storageInterface.
var _ storageInterface = (*storage)(nil)

// newStorage creates a new storage instance for the given configuration.
func newStorage(cfg Config) (*storage, error) {
	var baseDir string

	// Priority: env var > Config.CacheDir > platform default
	if envDir := os.Getenv(EnvCacheDir); envDir != "" {
		baseDir = envDir
	} else if cfg.CacheDir != "" {
		baseDir = cfg.CacheDir
	} else {
		defaultDir, err := getDefaultCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get default cache dir: %w", err)
		}
		baseDir = defaultDir
	}

	s := &storage{baseDir: baseDir, lockTimeout: DefaultLockTimeout}

	if err := s.ensureDir(baseDir); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return s, nil
}

// cachePath returns the absolute path of the cache file.
func (s *storage) cachePath() string {
	return filepath.Join(s.baseDir, cacheFileName)
}

// loadSnapshot reads and parses the cached catalog snapshot.
// Returns (nil, nil) when no snapshot exists on disk.
func (s *storage) loadSnapshot() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.cachePath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheError, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: invalid %s: %v", ErrCacheError, cacheFileName, err)
	}

	return &snap, nil
}

// saveSnapshot atomically writes the snapshot to the cache file.
// Uses cross-process file locking to prevent concurrent writes from multiple processes.
func (s *storage) saveSnapshot(snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lockPath := s.cachePath() + ".lock"
	lock, err := newFileLock(lockPath, s.lockTimeout)
	if err != nil {
		return fmt.Errorf("%w: failed to create lock: %v", ErrCacheError, err)
	}
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("%w: failed to acquire lock: %v", ErrCacheError, err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal snapshot: %v", ErrCacheError, err)
	}

	return s.atomicWriteInternal(s.cachePath(), data)
}

// atomicWriteInternal is the internal implementation without locking.
func (s *storage) atomicWriteInternal(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create directory: %v", ErrCacheError, err)
	}

	// Write to temp file first
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("%w: failed to write temp file: %v", ErrCacheError, err)
	}

	// Atomic rename
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) // cleanup on failure
		return fmt.Errorf("%w: failed to rename temp file: %v", ErrCacheError, err)
	}

	return nil
}

// atomicWrite writes data to a file using write-then-rename for atomicity.
func (s *storage) atomicWrite(path string, data []byte) error {
	return s.atomicWriteInternal(path, data)
}

// ensureDir creates a directory and all parent directories if they don't exist.
func (s *storage) ensureDir(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("%w: failed to create directory %s: %v", ErrCacheError, path, err)
	}
	return nil
}

// removeSnapshot deletes the cached snapshot if present.
func (s *storage) removeSnapshot() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.cachePath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: failed to remove cache file: %v", ErrCacheError, err)
	}
	return nil
}

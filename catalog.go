package vmr

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

// catalog coordinates the in-memory snapshot, the on-disk cache, and the
// remote catalog source. All reads go through load, which fetches at most
// once per process unless forced.
type catalog struct {
	// storage persists snapshots across processes.
	storage storageInterface

	// remote fetches the catalog from the repository host.
	remote *remoteClient

	// logger receives diagnostic messages. May be nil.
	logger Logger

	// ttl is the staleness threshold for cached snapshots.
	ttl time.Duration

	// mu protects snap.
	mu sync.RWMutex

	// snap is the current in-memory snapshot, nil before first load.
	snap *Snapshot
}

func newCatalog(storage storageInterface, remote *remoteClient, logger Logger, ttl time.Duration) *catalog {
	return &catalog{
		storage: storage,
		remote:  remote,
		logger:  logger,
		ttl:     ttl,
	}
}

// load returns the current snapshot, establishing one if needed.
//
// Resolution order: the in-memory snapshot, then the on-disk cache (any
// age), then a remote fetch. A cached snapshot past its TTL is still
// served; it is only replaced when force is true. When a forced or initial
// fetch fails and an older snapshot exists, that snapshot is served with
// Stale set and the failure logged. With no fallback available the load
// fails with ErrCatalogUnavailable.
func (c *catalog) load(ctx context.Context, force bool) (*Snapshot, error) {
	if !force {
		c.mu.RLock()
		snap := c.snap
		c.mu.RUnlock()
		if snap != nil {
			return snap, nil
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !force && c.snap != nil {
		return c.snap, nil
	}

	var cached *Snapshot
	if !force {
		var err error
		cached, err = c.storage.loadSnapshot()
		if err != nil {
			if c.logger != nil {
				c.logger.Warn("ignoring unreadable catalog cache", "path", c.storage.cachePath(), "error", err)
			}
		} else if cached != nil {
			c.snap = cached
			return c.snap, nil
		}
	} else {
		// Keep the previous snapshot around as a fallback for a failed
		// forced refresh.
		cached = c.snap
		if cached == nil {
			if prev, err := c.storage.loadSnapshot(); err == nil {
				cached = prev
			}
		}
	}

	snap, err := c.fetch(ctx)
	if err != nil {
		if cached != nil {
			if c.logger != nil {
				c.logger.Warn("serving stale catalog after failed fetch", "fetched_at", cached.FetchedAt, "error", err)
			}
			stale := *cached
			stale.Stale = true
			c.snap = &stale
			return c.snap, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	if err := c.storage.saveSnapshot(snap); err != nil {
		if force {
			return nil, err
		}
		// A read path still succeeds on a write-protected cache; the
		// snapshot just won't survive the process.
		if c.logger != nil {
			c.logger.Warn("failed to persist catalog cache", "path", c.storage.cachePath(), "error", err)
		}
	}

	c.snap = snap
	return c.snap, nil
}

// fetch retrieves and parses the full catalog from the remote source.
func (c *catalog) fetch(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	raw, err := c.remote.fetchCatalog(ctx)
	if err != nil {
		return nil, err
	}

	snap, err := buildSnapshot(raw, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if c.logger != nil {
		c.logger.Info("fetched catalog",
			"models", len(snap.Models),
			"simulations", len(snap.Simulations),
			"elapsed", time.Since(start).Round(time.Millisecond))
	}
	return snap, nil
}

// clearCache drops the cached snapshot from disk and memory. The next load
// fetches from the remote source.
func (c *catalog) clearCache() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.storage.removeSnapshot(); err != nil {
		return err
	}
	c.snap = nil
	return nil
}

// cacheInfo reports the state of the on-disk cache without fetching.
func (c *catalog) cacheInfo() (CacheStatus, error) {
	status := CacheStatus{
		Path: c.storage.cachePath(),
		TTL:  c.ttl,
	}

	snap, err := c.storage.loadSnapshot()
	if err != nil {
		return status, err
	}
	if snap == nil {
		return status, nil
	}

	status.Exists = true
	status.FetchedAt = snap.FetchedAt
	status.Age = time.Since(snap.FetchedAt)
	status.Stale = status.Age > c.ttl

	if fi, err := os.Stat(status.Path); err == nil {
		status.SizeBytes = fi.Size()
	}

	return status, nil
}

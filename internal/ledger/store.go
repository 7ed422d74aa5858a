package ledger

import (
	"context"
	"sync"
)

// Version is a monotonically increasing stamp of the log store's contents.
// It replaces file-mtime polling: callers re-fetch only when the stamp moves.
type Version uint64

// LogStore persists the attendance log. Save has full-rewrite semantics even
// though the log is conceptually append-only. Implementations do not
// serialize writers across processes; callers own that.
type LogStore interface {
	// Load reads the whole log and the version it corresponds to.
	// A missing backing file loads as an empty log.
	Load(ctx context.Context) (Log, Version, error)
	// Save rewrites the whole log and returns the new version.
	Save(ctx context.Context, l Log) (Version, error)
	// Version reports the current stamp without reading the log.
	Version(ctx context.Context) (Version, error)
}

// CachedStore memoizes the last loaded log and re-reads only when the
// inner store's version stamp has moved.
type CachedStore struct {
	inner LogStore

	mu    sync.Mutex
	log   Log
	ver   Version
	valid bool
}

// NewCachedStore wraps a store with version-stamp invalidation.
func NewCachedStore(inner LogStore) *CachedStore {
	return &CachedStore{inner: inner}
}

// Load returns the cached snapshot when the stamp is current.
func (c *CachedStore) Load(ctx context.Context) (Log, Version, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := c.inner.Version(ctx)
	if err != nil {
		return nil, 0, err
	}
	if c.valid && v == c.ver {
		return cloneLog(c.log), c.ver, nil
	}
	l, v, err := c.inner.Load(ctx)
	if err != nil {
		return nil, 0, err
	}
	c.log, c.ver, c.valid = cloneLog(l), v, true
	return l, v, nil
}

// Save writes through and refreshes the cache.
func (c *CachedStore) Save(ctx context.Context, l Log) (Version, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := c.inner.Save(ctx, l)
	if err != nil {
		c.valid = false
		return 0, err
	}
	c.log, c.ver, c.valid = cloneLog(l), v, true
	return v, nil
}

// Version reports the inner store's stamp.
func (c *CachedStore) Version(ctx context.Context) (Version, error) {
	return c.inner.Version(ctx)
}

func cloneLog(l Log) Log {
	if l == nil {
		return nil
	}
	out := make(Log, len(l))
	copy(out, l)
	return out
}

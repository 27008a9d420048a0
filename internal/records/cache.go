// Package records caches borrower records for the dashboards. Every refresh
// is a full re-fetch; the cache only remembers the newest successful answer.
package records

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/kingrea/mortgage-portal/internal/portal"
)

// Fetcher is the subset of the HTTP client the cache needs.
type Fetcher interface {
	ListBorrowers(ctx context.Context) ([]portal.BorrowerRecord, error)
	GetBorrower(ctx context.Context, id portal.ID) (portal.BorrowerRecord, error)
}

// Cache holds the borrower list (underwriter view) and the borrower's own
// record (borrower view).
type Cache struct {
	fetch Fetcher
	group singleflight.Group

	mu        sync.Mutex
	borrowers []portal.BorrowerRecord
	self      *portal.BorrowerRecord
	loaded    bool
	err       error
	streams   map[string]*stream
	fetches   int
}

// stream orders the responses of one refresh key. Sequences are kept per
// key so a list refresh never suppresses a self refresh or the reverse.
type stream struct {
	seq     uint64
	applied uint64
}

// New returns an empty cache.
func New(fetch Fetcher) *Cache {
	return &Cache{fetch: fetch, streams: make(map[string]*stream)}
}

// RefreshAll re-fetches the full list. Records keep backend order.
func (c *Cache) RefreshAll(ctx context.Context) ([]portal.BorrowerRecord, error) {
	const key = "all"
	v, err, _ := c.group.Do(key, func() (any, error) {
		seq := c.begin(key)
		list, err := c.fetch.ListBorrowers(ctx)
		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.failLocked(key, seq, err)
			return nil, err
		}
		if c.applyLocked(key, seq) {
			c.borrowers = append([]portal.BorrowerRecord(nil), list...)
			c.loaded = true
			c.err = nil
		}
		return c.borrowersLocked(), nil
	})
	if err != nil {
		return c.Borrowers(), err
	}
	return v.([]portal.BorrowerRecord), nil
}

// RefreshSelf re-fetches one borrower's own record.
func (c *Cache) RefreshSelf(ctx context.Context, id portal.ID) (portal.BorrowerRecord, error) {
	key := "self:" + id.String()
	v, err, _ := c.group.Do(key, func() (any, error) {
		seq := c.begin(key)
		rec, err := c.fetch.GetBorrower(ctx, id)
		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.failLocked(key, seq, err)
			return portal.BorrowerRecord{}, err
		}
		if c.applyLocked(key, seq) {
			c.self = &rec
			c.loaded = true
			c.err = nil
		}
		if c.self == nil {
			return rec, nil
		}
		return *c.self, nil
	})
	if err != nil {
		self, _ := c.Self()
		return self, err
	}
	return v.(portal.BorrowerRecord), nil
}

func (c *Cache) begin(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.streams[key]
	if !ok {
		s = &stream{}
		c.streams[key] = s
	}
	s.seq++
	c.fetches++
	return s.seq
}

// applyLocked reports whether seq is newer than anything applied for key and
// marks it applied.
func (c *Cache) applyLocked(key string, seq uint64) bool {
	s := c.streams[key]
	if s == nil || seq <= s.applied {
		return false
	}
	s.applied = seq
	return true
}

// failLocked keeps prior data and records the error unless a newer refresh
// already landed for the same key.
func (c *Cache) failLocked(key string, seq uint64, err error) {
	if s := c.streams[key]; s != nil && seq > s.applied {
		c.err = err
	}
}

// Borrowers returns a copy of the cached list.
func (c *Cache) Borrowers() []portal.BorrowerRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.borrowersLocked()
}

func (c *Cache) borrowersLocked() []portal.BorrowerRecord {
	return append([]portal.BorrowerRecord{}, c.borrowers...)
}

// Self returns the cached own record, if one has loaded.
func (c *Cache) Self() (portal.BorrowerRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.self == nil {
		return portal.BorrowerRecord{}, false
	}
	return *c.self, true
}

// Loaded reports whether any refresh has succeeded.
func (c *Cache) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Err is the error of the latest refresh, nil after a success.
func (c *Cache) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Fetches counts remote calls issued by the cache.
func (c *Cache) Fetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches
}

// Invalidate stops later refreshes from joining a fetch that started before
// a mutation landed.
func (c *Cache) Invalidate(id portal.ID) {
	c.group.Forget("all")
	if !id.Empty() {
		c.group.Forget("self:" + id.String())
	}
}

// Reset forgets everything, used on logout. Fetches still in flight are
// detached so the next refresh starts its own call, and their results are
// never applied.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, s := range c.streams {
		c.group.Forget(key)
		s.applied = s.seq
	}
	c.borrowers = nil
	c.self = nil
	c.loaded = false
	c.err = nil
}

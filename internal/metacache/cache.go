// Package metacache memoizes repository metadata on two levels: an in-process
// table that lives for the process lifetime, backed by an on-disk JSON layer
// with no TTL. A stale disk entry is only refreshed by deleting its file
// out-of-band; callers accept eventually-stale metadata in exchange for one
// API call per repository, ever.
package metacache

import (
	"context"
	"crypto/md5" // #nosec G401 -- cache key derivation, not security
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fulmenhq/repocheck/internal/githubapi"
	"github.com/fulmenhq/repocheck/pkg/logger"
	"golang.org/x/sync/singleflight"
)

// FetchFunc resolves metadata on a full cache miss.
type FetchFunc func(ctx context.Context, id githubapi.Identity) (*githubapi.Metadata, error)

// Cache is constructed once per process and passed by reference to every
// component that needs metadata. The in-memory layer is never evicted.
type Cache struct {
	dir   string
	fetch FetchFunc

	mu    sync.RWMutex
	mem   map[githubapi.Identity]*githubapi.Metadata
	group singleflight.Group
}

// New creates a cache backed by the given directory. The directory must
// exist; passing the result of config.MetadataCacheDir satisfies that.
func New(dir string, fetch FetchFunc) *Cache {
	return &Cache{
		dir:   dir,
		fetch: fetch,
		mem:   make(map[githubapi.Identity]*githubapi.Metadata),
	}
}

// Get returns metadata for the identity, consulting memory, then disk, then
// the fetch function with write-through. Concurrent calls for the same
// identity coalesce into a single fetch.
func (c *Cache) Get(ctx context.Context, id githubapi.Identity) (*githubapi.Metadata, error) {
	c.mu.RLock()
	meta, ok := c.mem[id]
	c.mu.RUnlock()
	if ok {
		return meta, nil
	}

	v, err, _ := c.group.Do(id.String(), func() (interface{}, error) {
		if meta := c.readDisk(id); meta != nil {
			c.store(id, meta)
			return meta, nil
		}

		meta, err := c.fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		c.store(id, meta)
		c.writeDisk(id, meta)
		return meta, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*githubapi.Metadata), nil
}

func (c *Cache) store(id githubapi.Identity, meta *githubapi.Metadata) {
	c.mu.Lock()
	c.mem[id] = meta
	c.mu.Unlock()
}

// Path returns the on-disk cache file for an identity: the first 8 hex chars
// of the MD5 of "owner/name".
func (c *Cache) Path(id githubapi.Identity) string {
	sum := md5.Sum([]byte(id.String())) // #nosec G401
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])[:8]+".json")
}

func (c *Cache) readDisk(id githubapi.Identity) *githubapi.Metadata {
	data, err := os.ReadFile(c.Path(id))
	if err != nil {
		return nil
	}
	var meta githubapi.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		logger.Warn("discarding malformed metadata cache entry",
			logger.String("repo", id.String()), logger.Err(err))
		return nil
	}
	return &meta
}

func (c *Cache) writeDisk(id githubapi.Identity, meta *githubapi.Metadata) {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(c.Path(id), data, 0o644); err != nil {
		logger.Warn("could not write metadata cache entry",
			logger.String("repo", id.String()), logger.Err(err))
	}
}

// Len reports the number of in-memory entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.mem)
}

// String describes the cache for diagnostics.
func (c *Cache) String() string {
	return fmt.Sprintf("metacache(dir=%s, entries=%d)", c.dir, c.Len())
}

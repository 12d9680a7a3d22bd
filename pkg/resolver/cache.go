package resolver

import (
	"container/list"

	"github.com/marmos91/tokenmig/pkg/namespace"
)

// lruCache maps directory paths to handles and evicts the least recently
// used entry once it holds capacity entries.
//
// It is not safe for concurrent use; the owning Resolver is single-threaded.
type lruCache struct {
	capacity int
	entries  map[string]*list.Element
	lruList  *list.List
}

// cacheEntry is one cached directory.
type cacheEntry struct {
	path   string
	handle namespace.FileHandle
}

func newLRUCache(capacity int) *lruCache {
	return &lruCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		lruList:  list.New(),
	}
}

// get returns the cached handle and marks the entry most recently used.
func (c *lruCache) get(path string) (namespace.FileHandle, bool) {
	elem, ok := c.entries[path]
	if !ok {
		return nil, false
	}
	c.lruList.MoveToFront(elem)
	return elem.Value.(*cacheEntry).handle, true
}

// put inserts or refreshes path, evicting from the back when full.
func (c *lruCache) put(path string, handle namespace.FileHandle) {
	if elem, ok := c.entries[path]; ok {
		elem.Value.(*cacheEntry).handle = handle
		c.lruList.MoveToFront(elem)
		return
	}

	for c.lruList.Len() >= c.capacity {
		oldest := c.lruList.Back()
		if oldest == nil {
			break
		}
		c.lruList.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).path)
	}

	c.entries[path] = c.lruList.PushFront(&cacheEntry{path: path, handle: handle})
}

func (c *lruCache) len() int {
	return c.lruList.Len()
}

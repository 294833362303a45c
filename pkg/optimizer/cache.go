package optimizer

import (
	"container/list"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-tempering/pkg/processgraph"
)

// DefaultCacheEntries bounds the result cache when no size is configured.
const DefaultCacheEntries = 256

// Cache is an LRU of query results keyed by mode, alpha and filters. Path
// data is stored as snappy-compressed JSON; the immutable subgraph is shared.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	lru      *list.List

	hits   int64
	misses int64
}

type cacheEntry struct {
	key      string
	payload  []byte
	subgraph *processgraph.Graph
}

// cachedResult is the serialized part of a Result.
type cachedResult struct {
	Paths   [][]string              `json:"paths"`
	PathIDs [][]processgraph.NodeID `json:"path_ids"`
	Cost    float64                 `json:"cost"`
	Details []Detail                `json:"details"`
	Pruned  int                     `json:"pruned"`
}

// NewCache creates a cache holding up to capacity results.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheEntries
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get returns a copy of the cached result for q.
func (c *Cache) Get(q Query) (*Result, bool) {
	c.mu.Lock()
	elem, ok := c.entries[q.cacheKey()]
	if !ok {
		c.misses++
		c.mu.Unlock()
		return nil, false
	}
	c.lru.MoveToFront(elem)
	c.hits++
	entry := elem.Value.(*cacheEntry)
	c.mu.Unlock()

	res, err := decodeResult(entry.payload)
	if err != nil {
		return nil, false
	}
	res.Query = q
	res.Subgraph = entry.subgraph
	res.Cached = true
	return res, true
}

// Put stores r under q's key, evicting the least recently used entry when full.
func (c *Cache) Put(q Query, r *Result) error {
	payload, err := encodeResult(r)
	if err != nil {
		return err
	}
	key := q.cacheKey()

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.lru.MoveToFront(elem)
		entry := elem.Value.(*cacheEntry)
		entry.payload, entry.subgraph = payload, r.Subgraph
		return nil
	}
	c.entries[key] = c.lru.PushFront(&cacheEntry{key: key, payload: payload, subgraph: r.Subgraph})
	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
	return nil
}

// Len returns the current number of entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns hit and miss counts
func (c *Cache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Clear removes all entries
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.lru = list.New()
}

func encodeResult(r *Result) ([]byte, error) {
	data, err := json.Marshal(cachedResult{
		Paths:   r.Paths,
		PathIDs: r.PathIDs,
		Cost:    r.Cost,
		Details: r.Details,
		Pruned:  r.Pruned,
	})
	if err != nil {
		return nil, fmt.Errorf("encode cached result: %w", err)
	}
	return snappy.Encode(nil, data), nil
}

func decodeResult(payload []byte) (*Result, error) {
	data, err := snappy.Decode(nil, payload)
	if err != nil {
		return nil, fmt.Errorf("decompress cached result: %w", err)
	}
	var cr cachedResult
	if err := json.Unmarshal(data, &cr); err != nil {
		return nil, fmt.Errorf("decode cached result: %w", err)
	}
	return &Result{
		Paths:   cr.Paths,
		PathIDs: cr.PathIDs,
		Cost:    cr.Cost,
		Details: cr.Details,
		Pruned:  cr.Pruned,
	}, nil
}

// Package fitcache memoises distribution fits. Batches often repeat the same
// observed and reference samples across many future scenarios, and fitting
// (especially the iterative families) dominates correction time.
package fitcache

import (
	"container/list"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sync"

	"github.com/couchcryptid/tc-bias-correction/internal/distribution"
	"github.com/couchcryptid/tc-bias-correction/internal/qdm"
	"github.com/prometheus/client_golang/prometheus"
)

// Cache is a thread-safe LRU of fitted parameters shared by every family it
// wraps.
type Cache struct {
	lru     *lruCache
	lookups *prometheus.CounterVec
}

// New creates a Cache holding up to maxEntries fits. lookups, when non-nil,
// receives a hit or miss per Fit call.
func New(maxEntries int, lookups *prometheus.CounterVec) *Cache {
	return &Cache{lru: newLRUCache(maxEntries), lookups: lookups}
}

// Wrap returns a Family that consults the cache before fitting. spec must
// describe family; its Key separates entries of differently configured
// families.
func (c *Cache) Wrap(spec distribution.Spec, family qdm.Family) qdm.Family {
	return &cachedFamily{Family: family, prefix: spec.Key(), cache: c}
}

// Len reports the number of cached fits.
func (c *Cache) Len() int {
	return c.lru.len()
}

func (c *Cache) observe(result string) {
	if c.lookups != nil {
		c.lookups.WithLabelValues(result).Inc()
	}
}

type cachedFamily struct {
	qdm.Family
	prefix string
	cache  *Cache
}

// Fit returns the cached parameters for an identical sample. Failed fits are
// not cached.
func (f *cachedFamily) Fit(sample []float64) (qdm.Params, error) {
	key := f.prefix + "|" + sampleDigest(sample)
	if p, ok := f.cache.lru.get(key); ok {
		f.cache.observe("hit")
		return p, nil
	}
	f.cache.observe("miss")
	p, err := f.Family.Fit(sample)
	if err != nil {
		return p, err
	}
	f.cache.lru.put(key, p)
	return p, nil
}

// sampleDigest hashes the exact bit patterns of the sample, in order.
func sampleDigest(sample []float64) string {
	h := sha256.New()
	var buf [8]byte
	for _, v := range sample {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	order      *list.List // front is most recently used
	entries    map[string]*list.Element
}

type entry struct {
	key    string
	params qdm.Params
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
	}
}

func (c *lruCache) get(key string) (qdm.Params, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return qdm.Params{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).params, true
}

func (c *lruCache) put(key string, params qdm.Params) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries <= 0 {
		return
	}
	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).params = params
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&entry{key: key, params: params})
	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).key)
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

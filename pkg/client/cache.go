package client

import (
	"container/list"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/livetree-go/livetree/pkg/vdom"
)

// DefaultCacheCapacity bounds the response cache when no capacity is
// configured.
const DefaultCacheCapacity = 64

// ResponseCache is a bounded LRU of server responses keyed by handler and
// parameters. Expiry is checked lazily at lookup; eviction happens on
// insert when the cache is full. Only the pipeline writes to it.
type ResponseCache struct {
	capacity int
	now      func() time.Time
	order    *list.List // front = most recently used
	entries  map[string]*list.Element
}

type cacheEntry struct {
	key       string
	patches   []vdom.Patch
	expiresAt time.Time
}

// NewResponseCache creates a cache holding at most capacity entries,
// reading time from now.
func NewResponseCache(capacity int, now func() time.Time) *ResponseCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &ResponseCache{
		capacity: capacity,
		now:      now,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// Get returns the cached patches for key if present and unexpired. An
// expired entry is removed and reported as a miss.
func (c *ResponseCache) Get(key string) ([]vdom.Patch, bool) {
	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if !entry.expiresAt.After(c.now()) {
		c.order.Remove(elem)
		delete(c.entries, key)
		return nil, false
	}
	c.order.MoveToFront(elem)
	return entry.patches, true
}

// Put stores patches under key with expiry now+ttl, evicting the least
// recently used entry when full.
func (c *ResponseCache) Put(key string, patches []vdom.Patch, ttl time.Duration) {
	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.patches = patches
		entry.expiresAt = c.now().Add(ttl)
		c.order.MoveToFront(elem)
		return
	}
	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
	elem := c.order.PushFront(&cacheEntry{
		key:       key,
		patches:   patches,
		expiresAt: c.now().Add(ttl),
	})
	c.entries[key] = elem
}

// Len reports the number of entries, counting expired ones not yet
// purged.
func (c *ResponseCache) Len() int {
	return c.order.Len()
}

// CacheKey builds the deterministic key for a handler invocation: the
// handler name plus the values of keyParams in declaration order, or the
// full payload sorted by parameter name when keyParams is empty. Every
// component is quoted, so a delimiter character inside a value cannot
// alias two invocations onto one key.
func CacheKey(handler string, params map[string]any, keyParams []string) string {
	var b strings.Builder
	b.WriteString(handler)
	if len(keyParams) > 0 {
		for _, kp := range keyParams {
			b.WriteByte('|')
			b.WriteString(strconv.Quote(fmt.Sprint(params[kp])))
		}
		return b.String()
	}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteByte('|')
		b.WriteString(strconv.Quote(name))
		b.WriteByte('=')
		b.WriteString(strconv.Quote(fmt.Sprint(params[name])))
	}
	return b.String()
}

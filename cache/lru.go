// Package cache holds the content-addressed texture and material stores.
// Entries are immutable after insertion and bounded by LRU eviction; a
// shared handle is never invalidated, only forgotten.
package cache

import "container/list"

type lruItem struct {
	key   string
	value interface{}
}

// lruCache is the recency core shared by both caches: map for lookup,
// list for eviction order, front = most recently used.
type lruCache struct {
	max       int
	ll        *list.List
	items     map[string]*list.Element
	evictions uint64
}

func newLRU(max int) *lruCache {
	return &lruCache{
		max:   max,
		ll:    list.New(),
		items: make(map[string]*list.Element),
	}
}

func (c *lruCache) get(key string) (interface{}, bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*lruItem).value, true
}

func (c *lruCache) add(key string, value interface{}) {
	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		el.Value.(*lruItem).value = value
		return
	}
	c.items[key] = c.ll.PushFront(&lruItem{key: key, value: value})
	for c.ll.Len() > c.max {
		oldest := c.ll.Back()
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*lruItem).key)
		c.evictions++
	}
}

func (c *lruCache) len() int {
	return c.ll.Len()
}

func (c *lruCache) keys() []string {
	out := make([]string, 0, c.ll.Len())
	for el := c.ll.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*lruItem).key)
	}
	return out
}

package ldevents

import "container/list"

// A bounded set of strings with least-recently-used eviction. Not safe for concurrent use; it is
// only touched from the event dispatcher goroutine.
type lruCache struct {
	values   map[string]*list.Element
	lruList  *list.List
	capacity int
}

func newLruCache(capacity int) lruCache {
	return lruCache{
		values:   make(map[string]*list.Element),
		lruList:  list.New(),
		capacity: capacity,
	}
}

func (c *lruCache) clear() {
	c.values = make(map[string]*list.Element)
	c.lruList.Init()
}

// Stores a value in the cache, evicting the least recently used value if necessary, and returns
// true if the value was already there. Adding an existing value makes it the most recently used
// again. A zero-capacity cache stores nothing and always returns false.
func (c *lruCache) add(value string) bool {
	if e, ok := c.values[value]; ok {
		c.lruList.MoveToFront(e)
		return true
	}
	if c.capacity <= 0 {
		return false
	}
	for c.lruList.Len() >= c.capacity {
		oldest := c.lruList.Back()
		c.lruList.Remove(oldest)
		delete(c.values, oldest.Value.(string))
	}
	c.values[value] = c.lruList.PushFront(value)
	return false
}

// Package cache provides the bounded LRU cache used for shaped label text.
//
//	c := cache.New[string, int](100)
//	c.Set("key", 42)
//	value, ok := c.Get("key")
//
// A Cache is owned by the render goroutine and is not safe for concurrent
// use.
package cache

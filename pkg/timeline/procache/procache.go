// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package procache is the processor result cache: a sharded, LRU-bounded map
// keyed by an opaque hash-and-equal key, holding ref-counted entries so a
// cache hit can hand out the same value to concurrent renders without a
// copy. Two independent scopes exist, WholeCache (keyed by fixed parameters
// and interprocess pin times, spanning the component's whole lifetime) and
// FramedCache (keyed additionally by the requested instant), mirroring the
// two opaque cache-key hooks every native processor exposes.
//
// The sharded-map-plus-bounded-eviction-list shape is grounded on the
// teacher's crawler index (pkg/storage/crawler.go): there, a bounded,
// periodically-trimmed index of recording file metadata; here, a bounded,
// write-triggered-trimmed index of cache entries. Same shape, new domain.
package procache

import (
	"container/list"
	"sync"
)

// Key is an opaque cache key. Processors produce their own concrete key
// types; the cache only ever calls Hash to pick a shard and Equal to resolve
// collisions within it.
type Key interface {
	Hash() uint64
	Equal(other Key) bool
}

// Entry is a ref-counted cache payload. A processor that receives an Entry
// from a lookup and decides to keep using the wrapped value writes it back
// only if it replaced Value with a new payload (compared by pointer
// identity), per the processor contract's "store back only if replaced"
// rule.
type Entry struct {
	Value any
}

const shardCount = 32

// cacheItem is stored by pointer in both the hash bucket and the LRU list,
// so eviction removes the exact item the list chose rather than guessing by
// hash bucket position.
type cacheItem struct {
	key   Key
	entry *Entry
	elem  *list.Element
}

type shard struct {
	mu      sync.Mutex
	entries map[uint64][]*cacheItem
	order   *list.List // of *cacheItem, front = most recently used
}

type cache struct {
	shards   [shardCount]*shard
	capacity int // max entries per shard; 0 means unbounded
}

func newCache(capacityPerShard int) *cache {
	c := &cache{capacity: capacityPerShard}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[uint64][]*cacheItem), order: list.New()}
	}
	return c
}

func (c *cache) shardFor(k Key) *shard {
	return c.shards[k.Hash()%shardCount]
}

func (c *cache) get(k Key) (*Entry, bool) {
	s := c.shardFor(k)
	s.mu.Lock()
	defer s.mu.Unlock()

	h := k.Hash()
	for _, item := range s.entries[h] {
		if item.key.Equal(k) {
			s.order.MoveToFront(item.elem)
			return item.entry, true
		}
	}
	return nil, false
}

func (c *cache) put(k Key, entry *Entry) {
	s := c.shardFor(k)
	s.mu.Lock()
	defer s.mu.Unlock()

	h := k.Hash()
	for _, item := range s.entries[h] {
		if item.key.Equal(k) {
			item.entry = entry
			s.order.MoveToFront(item.elem)
			return
		}
	}

	item := &cacheItem{key: k, entry: entry}
	item.elem = s.order.PushFront(item)
	s.entries[h] = append(s.entries[h], item)

	if c.capacity > 0 {
		for s.order.Len() > c.capacity {
			back := s.order.Back()
			if back == nil {
				break
			}
			evict := back.Value.(*cacheItem)
			s.order.Remove(back)
			evictHash := evict.key.Hash()
			bucket := s.entries[evictHash]
			for i, it := range bucket {
				if it == evict {
					bucket = append(bucket[:i], bucket[i+1:]...)
					break
				}
			}
			if len(bucket) == 0 {
				delete(s.entries, evictHash)
			} else {
				s.entries[evictHash] = bucket
			}
		}
	}
}

// WholeCache is the component-lifetime cache scope: keyed by fixed
// parameters and interprocess pin times, independent of the requested
// instant.
type WholeCache struct {
	c *cache
}

// NewWholeCache returns an empty WholeCache bounded to capacityPerShard
// entries per shard (0 means unbounded).
func NewWholeCache(capacityPerShard int) WholeCache {
	return WholeCache{c: newCache(capacityPerShard)}
}

// Get looks up k, reporting the cached entry and whether it was present.
func (w WholeCache) Get(k Key) (*Entry, bool) { return w.c.get(k) }

// Put stores entry under k, evicting the shard's least-recently-used entry
// first if the shard is at capacity.
func (w WholeCache) Put(k Key, entry *Entry) { w.c.put(k, entry) }

// FramedCache is the per-instant cache scope: keyed additionally by the
// requested TimelineTime and output selector.
type FramedCache struct {
	c *cache
}

// NewFramedCache returns an empty FramedCache bounded to capacityPerShard
// entries per shard (0 means unbounded).
func NewFramedCache(capacityPerShard int) FramedCache {
	return FramedCache{c: newCache(capacityPerShard)}
}

// Get looks up k, reporting the cached entry and whether it was present.
func (f FramedCache) Get(k Key) (*Entry, bool) { return f.c.get(k) }

// Put stores entry under k, evicting the shard's least-recently-used entry
// first if the shard is at capacity.
func (f FramedCache) Put(k Key, entry *Entry) { f.c.put(k, entry) }

// Package memory is the in-process observation cache tier.
package memory

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mohammed-shakir/sos-gateway/internal/cache/keys"
)

// Cache is a size-bounded LRU whose entries expire after a fixed TTL.
// Per-call TTLs are ignored; the cache-wide TTL applies.
type Cache struct {
	lru *expirable.LRU[string, []byte]
}

func New(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = 1024
	}
	return &Cache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.lru.Get(key)
	return v, ok, nil
}

func (c *Cache) Set(_ context.Context, key string, val []byte, _ time.Duration) error {
	c.lru.Add(key, val)
	return nil
}

func (c *Cache) Len() int { return c.lru.Len() }

func (c *Cache) InvalidateOffering(_ context.Context, offering string) (int, error) {
	prefix := keys.OfferingPrefix(offering)
	n := 0
	for _, k := range c.lru.Keys() {
		if strings.HasPrefix(k, prefix) && c.lru.Remove(k) {
			n++
		}
	}
	return n, nil
}

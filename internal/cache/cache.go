// Package cache stores rendered GetObservation result sets keyed by the
// resolved query.
package cache

import (
	"context"
	"time"
)

type Interface interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// Nop never hits and discards writes.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }

// Invalidator drops every cached result of one offering and reports how
// many entries went.
type Invalidator interface {
	InvalidateOffering(ctx context.Context, offering string) (int, error)
}

package cache

import (
	"context"
	"fmt"

	"github.com/mohammed-shakir/sos-gateway/internal/cache/memory"
	"github.com/mohammed-shakir/sos-gateway/internal/cache/redisstore"
	"github.com/mohammed-shakir/sos-gateway/internal/core/config"
)

// Open builds the cache selected by cfg.Driver. The returned close func is
// never nil.
func Open(ctx context.Context, cfg config.CacheCfg) (Interface, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Driver {
	case "", "none":
		return Nop{}, noop, nil
	case "memory":
		return memory.New(cfg.Size, cfg.TTL), noop, nil
	case "redis":
		rc, err := redisstore.New(ctx, cfg.RedisAddr, redisOptions(cfg)...)
		if err != nil {
			return nil, noop, fmt.Errorf("redis cache: %w", err)
		}
		return rc.WithOpTimeout(cfg.OpTimeout), rc.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}

func redisOptions(cfg config.CacheCfg) []redisstore.Option {
	var opts []redisstore.Option
	if cfg.RedisPoolSize > 0 {
		opts = append(opts, redisstore.WithPoolSize(cfg.RedisPoolSize))
	}
	if cfg.RedisDialTimeout > 0 {
		opts = append(opts, redisstore.WithDialTimeout(cfg.RedisDialTimeout))
	}
	if cfg.RedisReadTimeout > 0 {
		opts = append(opts, redisstore.WithReadTimeout(cfg.RedisReadTimeout))
	}
	return opts
}

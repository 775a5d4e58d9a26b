package utils

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deduper grants a key once per TTL window using SET NX.
type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	log    *zap.Logger
}

func NewDeduper(rdb *redis.Client, prefix string, ttl time.Duration, log *zap.Logger) *Deduper {
	return &Deduper{rdb: rdb, ttl: ttl, prefix: prefix, log: log}
}

// AcquireOnce returns true the first time key is seen inside the TTL window.
// When redis is unavailable it returns true so work is never blocked by the guard.
func (d *Deduper) AcquireOnce(ctx context.Context, key string) bool {
	ok, err := d.rdb.SetNX(ctx, d.prefix+key, 1, d.ttl).Result()
	if err != nil {
		d.log.Warn("dedup check failed, allowing", zap.String("key", key), zap.Error(err))
		return true
	}
	return ok
}

// Release drops a key so a failed attempt can be retried in the same window.
func (d *Deduper) Release(ctx context.Context, key string) {
	if err := d.rdb.Del(ctx, d.prefix+key).Err(); err != nil {
		d.log.Warn("dedup release failed", zap.String("key", key), zap.Error(err))
	}
}

package cache

import (
	"context"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/matzehuels/wafermap/pkg/observability"
)

// GetValue looks up key and msgpack-decodes the entry into v.
// An entry that fails to decode is deleted and reported as a miss.
func GetValue(ctx context.Context, c Cache, keyType, key string, v any) (bool, error) {
	data, ok, err := c.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		observability.Cache().OnCacheMiss(ctx, keyType)
		return false, nil
	}
	if err := msgpack.Unmarshal(data, v); err != nil {
		_ = c.Delete(ctx, key)
		observability.Cache().OnCacheMiss(ctx, keyType)
		return false, nil
	}
	observability.Cache().OnCacheHit(ctx, keyType)
	return true, nil
}

// SetValue msgpack-encodes v and stores it under key.
func SetValue(ctx context.Context, c Cache, keyType, key string, v any, ttl time.Duration) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}
	if err := c.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
	return nil
}

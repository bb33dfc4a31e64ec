// Package cache stores decoded station grids so unchanged input files are not
// parsed again.
//
// Three backends implement [Cache]:
//   - [FileCache] for CLI runs (one file per entry under a cache directory)
//   - [RedisCache] for servers sharing a cache between instances
//   - [NullCache] when caching is disabled
//
// Keys are produced by a [Keyer]. Keys embed a hash of the raw input bytes,
// so an edited file never hits a stale entry.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value for key. ok is false on a miss.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// GridTTL is how long decoded grids are kept.
const GridTTL = 7 * 24 * time.Hour

// Keyer builds cache keys.
type Keyer interface {
	// GridKey identifies a decoded station grid.
	GridKey(format string, content []byte) string
}

// DefaultKeyer produces unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// GridKey returns "grid:<sha256(schema, format, content hash)>".
func (DefaultKeyer) GridKey(format string, content []byte) string {
	return hashKey("grid", gridSchema, format, Hash(content))
}

// gridSchema changes whenever the cached grid payload changes shape.
const gridSchema = 1

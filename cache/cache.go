// Package cache provides the small key/value cache the engine uses for
// per-project defaults (e.g. the default commission rate). The cache is
// injected at the composition root; there is no package-level state.
package cache

import (
	"context"
	"time"
)

// Cache is a string cache with per-entry TTL. Implementations must be
// safe for concurrent use. A miss is (_, false, nil); errors are
// reserved for backend failures.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

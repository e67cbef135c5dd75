package storage

import (
	"context"
	"time"

	"github.com/gokaycavdar/go-geogate/pkg/models"
)

// DefaultTTL is how long a resolution stays cached unless told otherwise.
const DefaultTTL = 24 * time.Hour

// Cache stores definitive resolution outcomes by key.
// Implementations can use any backend: in-memory, disk, Redis, etc.
//
// Contract:
//   - Get returns models.Unknown when the key is absent or expired, never a
//     stale value past its expiry.
//   - Put only ever receives definitive outcomes; Unknown is never cached.
//   - A Put replaces the previous value for the key atomically.
//   - A ttl <= 0 means DefaultTTL.
type Cache interface {
	Get(ctx context.Context, key string) (models.Verdict, error)
	Put(ctx context.Context, key string, value bool, ttl time.Duration) error
}

func effectiveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}

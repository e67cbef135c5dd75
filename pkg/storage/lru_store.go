package storage

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/gokaycavdar/go-geogate/pkg/models"
)

// DefaultLRUSize bounds the LRU backend when no size is configured.
const DefaultLRUSize = 100_000

type lruEntry struct {
	value     bool
	expiresAt time.Time
}

// LRUStore is a size-bounded in-memory backend. The least recently used
// key is evicted once the store is full.
type LRUStore struct {
	items *expirable.LRU[string, lruEntry]
	now   func() time.Time
}

// NewLRUStore creates a store holding at most size keys. maxTTL caps the
// lifetime of every entry regardless of the ttl passed to Put.
func NewLRUStore(size int, maxTTL time.Duration) *LRUStore {
	if size <= 0 {
		size = DefaultLRUSize
	}
	return &LRUStore{
		items: expirable.NewLRU[string, lruEntry](size, nil, effectiveTTL(maxTTL)),
		now:   time.Now,
	}
}

func (l *LRUStore) Get(_ context.Context, key string) (models.Verdict, error) {
	entry, ok := l.items.Get(key)
	if !ok {
		return models.Unknown, nil
	}
	if !l.now().Before(entry.expiresAt) {
		l.items.Remove(key)
		return models.Unknown, nil
	}
	return models.VerdictOf(entry.value), nil
}

func (l *LRUStore) Put(_ context.Context, key string, value bool, ttl time.Duration) error {
	l.items.Add(key, lruEntry{
		value:     value,
		expiresAt: l.now().Add(effectiveTTL(ttl)),
	})
	return nil
}

// Len returns the number of cached keys.
func (l *LRUStore) Len() int {
	return l.items.Len()
}

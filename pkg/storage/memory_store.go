package storage

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/gokaycavdar/go-geogate/pkg/models"
)

// MemoryStore keeps resolutions in process memory. It is safe for
// concurrent use and is the default backend.
type MemoryStore struct {
	items *gocache.Cache
}

// NewMemoryStore creates a store. Expired entries are never returned;
// cleanupInterval only controls how often they are purged, and a value <= 0
// disables purging entirely.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		items: gocache.New(DefaultTTL, cleanupInterval),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (models.Verdict, error) {
	raw, found := m.items.Get(key)
	if !found {
		return models.Unknown, nil
	}
	value, ok := raw.(bool)
	if !ok {
		return models.Unknown, nil
	}
	return models.VerdictOf(value), nil
}

func (m *MemoryStore) Put(_ context.Context, key string, value bool, ttl time.Duration) error {
	m.items.Set(key, value, effectiveTTL(ttl))
	return nil
}

// Count returns the number of stored items, expired ones included until
// they are purged.
func (m *MemoryStore) Count() int {
	return m.items.ItemCount()
}

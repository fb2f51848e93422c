package brainsync

import (
	"sync"

	"github.com/yndnr/brainsync/internal/core/domain"
	"github.com/yndnr/brainsync/pkg/value"
)

// snapshotCache holds the last persisted value of every private key, by
// normalized key. Entries are deep copies and never alias host data.
type snapshotCache struct {
	mu      sync.Mutex
	entries map[string]any
}

func newSnapshotCache() *snapshotCache {
	return &snapshotCache{entries: make(map[string]any)}
}

// reset replaces the whole cache with deep copies of entries.
func (c *snapshotCache) reset(entries map[string]any) error {
	next := make(map[string]any, len(entries))
	for k, v := range entries {
		cp, err := value.Copy(v)
		if err != nil {
			return err
		}
		next[domain.NormalizeKey(k)] = cp
	}

	c.mu.Lock()
	c.entries = next
	c.mu.Unlock()
	return nil
}

// forget drops key if it still holds v, so the next save cycle writes it
// again.
func (c *snapshotCache) forget(key string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[key]; ok && value.Equal(cur, v) {
		delete(c.entries, key)
	}
}

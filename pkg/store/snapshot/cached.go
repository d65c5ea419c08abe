package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	lru "github.com/hashicorp/golang-lru/v2"
)

// cachedStore keeps recently read reports in memory. A hit whose file has been
// removed by an operator is evicted and reported as missing.
type cachedStore struct {
	Store
	reports *lru.Cache[string, *domain.Report]
}

func NewCachedStore(inner Store, size int) (Store, error) {
	cache, err := lru.New[string, *domain.Report](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot cache: %w", err)
	}
	return &cachedStore{Store: inner, reports: cache}, nil
}

func (c *cachedStore) Load(ctx context.Context, key Key) (*domain.Report, error) {
	if report, ok := c.reports.Get(key.FileName()); ok {
		if _, err := os.Stat(c.Path(key)); err == nil {
			return report, nil
		}
		c.reports.Remove(key.FileName())
	}

	report, err := c.Store.Load(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.reports.Remove(key.FileName())
		}
		return nil, err
	}
	c.reports.Add(key.FileName(), report)
	return report, nil
}

func (c *cachedStore) Save(ctx context.Context, key Key, report *domain.Report) error {
	if err := c.Store.Save(ctx, key, report); err != nil {
		return err
	}
	c.reports.Add(key.FileName(), report)
	return nil
}

func (c *cachedStore) Delete(ctx context.Context, key Key) error {
	c.reports.Remove(key.FileName())
	return c.Store.Delete(ctx, key)
}

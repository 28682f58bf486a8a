package composite

import (
	"context"

	"fundarb/internal/application/port"
)

// Archive 快照写入多个归档，返回第一个错误
type Archive struct {
	archives []port.SnapshotArchive
}

func New(archives ...port.SnapshotArchive) *Archive {
	out := make([]port.SnapshotArchive, 0, len(archives))
	for _, a := range archives {
		if a != nil {
			out = append(out, a)
		}
	}
	return &Archive{archives: out}
}

func (a *Archive) Len() int { return len(a.archives) }

func (a *Archive) InsertSnapshot(ctx context.Context, ts int64, account string, payload string) error {
	var firstErr error
	for _, archive := range a.archives {
		if err := archive.InsertSnapshot(ctx, ts, account, payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Cache 价格写入多个缓存，读取以第一个为准
type Cache struct {
	caches []port.PriceCache
}

func NewCache(caches ...port.PriceCache) *Cache {
	out := make([]port.PriceCache, 0, len(caches))
	for _, c := range caches {
		if c != nil {
			out = append(out, c)
		}
	}
	return &Cache{caches: out}
}

func (c *Cache) Len() int { return len(c.caches) }

func (c *Cache) UpsertLatestPrice(ctx context.Context, asset string, price float64, ts int64) error {
	var firstErr error
	for _, cache := range c.caches {
		if err := cache.UpsertLatestPrice(ctx, asset, price, ts); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Cache) LatestPrices(ctx context.Context) (map[string]float64, error) {
	if len(c.caches) == 0 {
		return map[string]float64{}, nil
	}
	return c.caches[0].LatestPrices(ctx)
}

var (
	_ port.SnapshotArchive = (*Archive)(nil)
	_ port.PriceCache      = (*Cache)(nil)
)

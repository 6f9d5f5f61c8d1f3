package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	priceentity "crypto_backend/internal/feature/prices/domain/entity"
	"crypto_backend/internal/feature/riskmetrics/domain/entity"
)

var ErrDB = errors.New("database error")

// mockPriceReader はPriceReaderインターフェースのモック実装です。
type mockPriceReader struct {
	mu     sync.Mutex
	series map[string][]float64 // coin -> prices, oldest first, one per day from 2024-01-01
	calls  int
	limits []int

	FindRecentFunc func(ctx context.Context, coin string, limit int) ([]priceentity.PricePoint, error)
}

func (m *mockPriceReader) FindRecent(ctx context.Context, coin string, limit int) ([]priceentity.PricePoint, error) {
	m.mu.Lock()
	m.calls++
	m.limits = append(m.limits, limit)
	m.mu.Unlock()

	if m.FindRecentFunc != nil {
		return m.FindRecentFunc(ctx, coin, limit)
	}

	prices := m.series[coin]
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pts := make([]priceentity.PricePoint, 0, len(prices))
	for i, p := range prices {
		pts = append(pts, priceentity.PricePoint{Coin: coin, Date: priceentity.DateOf(start.AddDate(0, 0, i)), Price: p})
	}
	if limit > 0 && len(pts) > limit {
		pts = pts[len(pts)-limit:]
	}
	return pts, nil
}

func (m *mockPriceReader) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockSnapshotRepository はSnapshotRepositoryインターフェースのモック実装です。
type mockSnapshotRepository struct {
	mu          sync.Mutex
	saved       []entity.Snapshot
	pruneBefore []time.Time

	SaveErr    error
	LatestFunc func(ctx context.Context, days int) (entity.Snapshot, bool, error)
}

func (m *mockSnapshotRepository) Save(ctx context.Context, snap entity.Snapshot, pruneBefore time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.saved = append(m.saved, snap)
	m.pruneBefore = append(m.pruneBefore, pruneBefore)
	return nil
}

func (m *mockSnapshotRepository) Latest(ctx context.Context, days int) (entity.Snapshot, bool, error) {
	if m.LatestFunc != nil {
		return m.LatestFunc(ctx, days)
	}
	return entity.Snapshot{}, false, nil
}

func (m *mockSnapshotRepository) savedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

// fakeCache は手動で進める時計を持つインメモリのCacheです。
type fakeCache struct {
	mu      sync.Mutex
	now     time.Time
	entries map[string]fakeEntry
}

type fakeEntry struct {
	value []byte
	at    time.Time
}

func newFakeCache(now time.Time) *fakeCache {
	return &fakeCache{now: now, entries: make(map[string]fakeEntry)}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, 0, false
	}
	return e.value, c.now.Sub(e.at), true
}

func (c *fakeCache) Put(ctx context.Context, key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = fakeEntry{value: value, at: c.now}
}

func (c *fakeCache) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeCache) clock() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

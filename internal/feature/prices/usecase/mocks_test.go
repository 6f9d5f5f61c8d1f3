package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"crypto_backend/internal/feature/prices/domain/entity"
)

var ErrDB = errors.New("database error")

// mockMarketRepository is a mock implementation of the MarketRepository interface.
type mockMarketRepository struct {
	GetMarketChartFunc  func(ctx context.Context, coin string, days int) ([]entity.PriceSample, error)
	GetQuoteFunc        func(ctx context.Context, coin string) (entity.MarketQuote, error)
	GetMarketChartCalls int
	GetQuoteCalls       int
}

func (m *mockMarketRepository) GetMarketChart(ctx context.Context, coin string, days int) ([]entity.PriceSample, error) {
	m.GetMarketChartCalls++
	if m.GetMarketChartFunc != nil {
		return m.GetMarketChartFunc(ctx, coin, days)
	}
	return nil, errors.New("GetMarketChartFunc is not implemented")
}

func (m *mockMarketRepository) GetQuote(ctx context.Context, coin string) (entity.MarketQuote, error) {
	m.GetQuoteCalls++
	if m.GetQuoteFunc != nil {
		return m.GetQuoteFunc(ctx, coin)
	}
	return entity.MarketQuote{}, errors.New("GetQuoteFunc is not implemented")
}

// fakePriceRepository is an in-memory PriceRepository with the same upsert and prune semantics as the store.
type fakePriceRepository struct {
	mu        sync.Mutex
	prices    map[string]map[string]float64 // coin -> date -> price
	snapshots []storedSnapshot
	upserts   int
	refreshes []RefreshBatch

	UpsertErr  error
	RefreshErr error
}

type storedSnapshot struct {
	quote     entity.MarketQuote
	fetchedAt time.Time
}

func newFakePriceRepository() *fakePriceRepository {
	return &fakePriceRepository{prices: make(map[string]map[string]float64)}
}

func (f *fakePriceRepository) UpsertBatch(ctx context.Context, points []entity.PricePoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UpsertErr != nil {
		return f.UpsertErr
	}
	f.upserts++
	for _, p := range points {
		f.put(p)
	}
	return nil
}

func (f *fakePriceRepository) put(p entity.PricePoint) {
	if f.prices[p.Coin] == nil {
		f.prices[p.Coin] = make(map[string]float64)
	}
	f.prices[p.Coin][p.Date] = p.Price
}

func (f *fakePriceRepository) SaveRefresh(ctx context.Context, batch RefreshBatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RefreshErr != nil {
		return f.RefreshErr
	}
	f.refreshes = append(f.refreshes, batch)
	today := entity.DateOf(batch.FetchedAt)
	for _, q := range batch.Quotes {
		f.snapshots = append(f.snapshots, storedSnapshot{quote: q, fetchedAt: batch.FetchedAt})
		f.put(entity.PricePoint{Coin: q.Coin, Date: today, Price: q.Price})
	}
	for _, byDate := range f.prices {
		for d := range byDate {
			if d < batch.PriceCutoff {
				delete(byDate, d)
			}
		}
	}
	kept := f.snapshots[:0]
	for _, s := range f.snapshots {
		if !s.fetchedAt.Before(batch.SnapshotCutoff) {
			kept = append(kept, s)
		}
	}
	f.snapshots = kept
	return nil
}

func (f *fakePriceRepository) FindRecent(ctx context.Context, coin string, limit int) ([]entity.PricePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dates := make([]string, 0)
	for d := range f.prices[coin] {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	if limit > 0 && len(dates) > limit {
		dates = dates[len(dates)-limit:]
	}
	out := make([]entity.PricePoint, 0, len(dates))
	for _, d := range dates {
		out = append(out, entity.PricePoint{Coin: coin, Date: d, Price: f.prices[coin][d]})
	}
	return out, nil
}

func (f *fakePriceRepository) LatestQuotes(ctx context.Context, coins []string) ([]entity.MarketQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entity.MarketQuote, 0)
	for _, c := range coins {
		for i := len(f.snapshots) - 1; i >= 0; i-- {
			if f.snapshots[i].quote.Coin == c {
				out = append(out, f.snapshots[i].quote)
				break
			}
		}
	}
	return out, nil
}

func (f *fakePriceRepository) HasAny(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, byDate := range f.prices {
		if len(byDate) > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePriceRepository) price(coin, date string) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.prices[coin][date]
	return p, ok
}

func (f *fakePriceRepository) snapshotCoins() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.snapshots))
	for _, s := range f.snapshots {
		out = append(out, s.quote.Coin)
	}
	return out
}

// mockRateLimiter is a mock implementation of the RateLimiterInterface.
type mockRateLimiter struct {
	WaitIfNeededCalls int
	AllowCalls        int
	Denied            bool
}

func (m *mockRateLimiter) WaitIfNeeded() {
	m.WaitIfNeededCalls++
}

func (m *mockRateLimiter) Allow() bool {
	m.AllowCalls++
	return !m.Denied
}

// fakeCache is an in-memory Cache with a manual clock.
type fakeCache struct {
	mu      sync.Mutex
	now     time.Time
	entries map[string]fakeEntry
	puts    int
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
	c.puts++
	c.entries[key] = fakeEntry{value: value, at: c.now}
}

func (c *fakeCache) DeletePrefix(ctx context.Context, prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}

func (c *fakeCache) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

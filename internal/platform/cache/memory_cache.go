// Package cache はJSONペイロード用のTTLキャッシュ実装を提供します。
// 鮮度は呼び出し側が Get の返す経過時間で判断します。
package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value    []byte
	storedAt time.Time
}

// MemoryCache はプロセス内のキャッシュです。値はエントリ単位で丸ごと置き換えられます。
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache は新しい MemoryCache を生成します。now が nil の場合は time.Now を使用します。
func NewMemoryCache(now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

// Get は保存済みの値と保存からの経過時間を返します。
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, time.Duration, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, 0, false
	}
	return e.value, c.now().Sub(e.storedAt), true
}

// Put は値を保存します。既存の値は置き換えられます。
func (c *MemoryCache) Put(_ context.Context, key string, value []byte) {
	cp := make([]byte, len(value))
	copy(cp, value)

	c.mu.Lock()
	c.entries[key] = memoryEntry{value: cp, storedAt: c.now()}
	c.mu.Unlock()
}

// DeletePrefix は prefix で始まるキーを全て削除します。
func (c *MemoryCache) DeletePrefix(_ context.Context, prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}

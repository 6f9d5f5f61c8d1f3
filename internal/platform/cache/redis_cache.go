package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// defaultRetention はRedis上にエントリを残す期間です。
// TTLを過ぎたエントリもフォールバック用に保持します。
const defaultRetention = 24 * time.Hour

// envelope はRedisに保存する形式です。
type envelope struct {
	StoredAt time.Time `json:"stored_at"`
	Value    []byte    `json:"value"`
}

// RedisCache はRedisをバックエンドとするキャッシュです。複数プロセスで共有できます。
type RedisCache struct {
	rdb       *redis.Client
	namespace string
	retention time.Duration
	now       func() time.Time
}

// NewRedisCache は新しい RedisCache を生成します。
// namespace が空の場合は "cvara" を使用します。
func NewRedisCache(rdb *redis.Client, namespace string, now func() time.Time) *RedisCache {
	if namespace == "" {
		namespace = "cvara"
	}
	if now == nil {
		now = time.Now
	}
	return &RedisCache{
		rdb:       rdb,
		namespace: namespace,
		retention: defaultRetention,
		now:       now,
	}
}

// Get は保存済みの値と保存からの経過時間を返します。
// Redisのエラーはキャッシュミスとして扱います。
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, time.Duration, bool) {
	k := c.cacheKey(key)
	b, err := c.rdb.Get(ctx, k).Bytes()
	if err != nil || len(b) == 0 {
		if err != nil && !errors.Is(err, redis.Nil) {
			slog.Warn("redis get failed", "key", k, "error", err)
		}
		return nil, 0, false
	}

	var e envelope
	if err := json.Unmarshal(b, &e); err != nil {
		// 破損したエントリを削除
		_ = c.rdb.Del(ctx, k).Err()
		return nil, 0, false
	}
	return e.Value, c.now().Sub(e.StoredAt), true
}

// Put は値を保存します（ベストエフォート）。
func (c *RedisCache) Put(ctx context.Context, key string, value []byte) {
	b, err := json.Marshal(envelope{StoredAt: c.now().UTC(), Value: value})
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.cacheKey(key), b, c.retention).Err(); err != nil {
		slog.Warn("redis set failed", "key", key, "error", err)
	}
}

// DeletePrefix は prefix で始まるキーをSCANで探して削除します（ベストエフォート）。
func (c *RedisCache) DeletePrefix(ctx context.Context, prefix string) {
	if err := c.deleteByPattern(ctx, c.cacheKey(prefix)+"*"); err != nil {
		slog.Warn("redis invalidation failed", "prefix", prefix, "error", err)
	}
}

// cacheKey は名前空間付きのキーを生成します。
func (c *RedisCache) cacheKey(key string) string {
	return fmt.Sprintf("%s:%s", c.namespace, safe(key))
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *RedisCache) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}

// safe escapes characters that are problematic for Redis keys.
// ":" is kept because callers use it as the key separator.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "*", "_")
	return s
}

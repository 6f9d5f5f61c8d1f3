package ratelimiter

import (
	"log/slog"
	"sync"
	"time"
)

// RateLimiterInterface は、API呼び出しなどの操作の頻度を制限するインターフェースです。
type RateLimiterInterface interface {
	WaitIfNeeded()
	Allow() bool
}

// RateLimiterは、API呼び出しなどの操作の頻度を制限します。
// 複数のゴルーチンから同時に呼び出せます。
type RateLimiter struct {
	mu        sync.Mutex
	limit     int           // interval あたりの上限
	interval  time.Duration // どの単位でリセットするか
	count     int
	lastReset time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// NewRateLimiterは新しいRateLimiterのインスタンスを生成します。
// limit が0以下の場合は制限しません。
func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:     limit,
		interval:  interval,
		lastReset: time.Now(),
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

// WaitIfNeededはレートリミットの上限に達しているかを確認し、必要であれば待機します。
// 上限に達した場合は次の区間の枠を予約してからロックを外して待機するため、
// 待機中も Allow は他の呼び出し元にすぐ結果を返します。
func (rl *RateLimiter) WaitIfNeeded() {
	if rl.limit <= 0 {
		return
	}

	rl.mu.Lock()
	now := rl.now()
	rl.resetIfElapsed(now)

	var wait time.Duration
	if rl.count < rl.limit {
		rl.count++
		// 予約済みの区間であれば開始まで待つ（通常は0以下）
		wait = rl.lastReset.Sub(now)
	} else {
		// 次の区間の先頭の枠を予約
		rl.lastReset = rl.lastReset.Add(rl.interval)
		rl.count = 1
		wait = rl.lastReset.Sub(now)
	}
	rl.mu.Unlock()

	if wait > 0 {
		slog.Info("rate limit reached, sleeping", "limit", rl.limit, "wait", wait)
		rl.sleep(wait)
	}
}

// Allow は待機せずに1回分の枠を取得できるかを返します。取得できた場合は枠を消費します。
// リクエスト処理中のように待てない呼び出し元が使います。
func (rl *RateLimiter) Allow() bool {
	if rl.limit <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	// 予約済みの区間がまだ始まっていない
	if now.Before(rl.lastReset) {
		return false
	}
	rl.resetIfElapsed(now)
	if rl.count >= rl.limit {
		return false
	}
	rl.count++
	return true
}

// resetIfElapsed は interval を過ぎていればカウントをリセットします。mu を保持して呼び出すこと。
func (rl *RateLimiter) resetIfElapsed(now time.Time) {
	if now.Sub(rl.lastReset) >= rl.interval {
		rl.count = 0
		rl.lastReset = now
	}
}

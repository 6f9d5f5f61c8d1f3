package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"crypto_backend/internal/platform/metrics"
)

// ErrWriteContention はストアがビジー状態のまま再試行回数を使い切ったことを示します。
var ErrWriteContention = errors.New("write contention")

const (
	defaultWriteAttempts = 3
	defaultWriteBackoff  = 200 * time.Millisecond
)

// WriteGate は全ての書き込みを1本の排他ロックとトランザクションで直列化します。
// 読み取りは DB() から直接行い、ロックを取りません。
type WriteGate struct {
	mu       sync.Mutex
	db       *gorm.DB
	attempts int
	backoff  time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewWriteGate は指定されたDB接続に対する書き込みゲートを生成します。
func NewWriteGate(db *gorm.DB) *WriteGate {
	return &WriteGate{
		db:       db,
		attempts: defaultWriteAttempts,
		backoff:  defaultWriteBackoff,
		sleep:    sleepContext,
	}
}

// DB は読み取り用のコネクションを返します。
func (g *WriteGate) DB() *gorm.DB {
	return g.db
}

// Do はロックを保持したまま fn を1つのトランザクションで実行します。
// ストアがビジーを返した場合は 200ms × 試行回数 の待機を挟んで最大3回まで試行します。
func (g *WriteGate) Do(ctx context.Context, fn func(tx *gorm.DB) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var err error
	for attempt := 1; attempt <= g.attempts; attempt++ {
		err = g.db.WithContext(ctx).Transaction(fn)
		if err == nil {
			return nil
		}
		if !IsBusy(err) {
			return err
		}
		if attempt == g.attempts {
			break
		}
		wait := g.backoff * time.Duration(attempt)
		slog.Warn("store busy, retrying write", "attempt", attempt, "wait", wait, "error", err)
		metrics.WriteRetries.Inc()
		if serr := g.sleep(ctx, wait); serr != nil {
			return serr
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrWriteContention, g.attempts, err)
}

// IsBusy はエラーが一時的な書き込み競合（SQLITE_BUSY / SQLITE_LOCKED、Postgresのロック系エラー）かを判定します。
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		switch pe.Code {
		case "40001", "40P01", "55P03":
			return true
		}
		return false
	}
	return strings.Contains(err.Error(), "database is locked")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

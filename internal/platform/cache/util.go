package cache

import (
	"time"
)

// TimeUntilNextUTCMidnight は now から次のUTC 0時までの期間を返します。
// ちょうど0時の場合は24時間後を返します。
func TimeUntilNextUTCMidnight(now time.Time) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	return next.Sub(now)
}

package usecase

import (
	"errors"
	"fmt"
)

var (
	// ErrFetchUnavailable は外部価格APIからデータを取得できなかったことを示します。
	// 呼び出し側はコイン単位でスキップし、キャッシュ済みのデータにフォールバックします。
	ErrFetchUnavailable = errors.New("price data unavailable")

	// ErrRateLimited は外部価格APIがレートリミットを返したことを示します。
	// errors.Is(err, ErrFetchUnavailable) も真になります。
	ErrRateLimited = fmt.Errorf("rate limited: %w", ErrFetchUnavailable)

	// ErrInvalidDate は日付がYYYY-MM-DD形式でないことを示します。
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidPrice はコインが空、または価格が正の有限値でないことを示します。
	ErrInvalidPrice = errors.New("invalid price")
)

package usecase

import "errors"

var (
	// ErrInsufficientReferenceData は基準コインの価格が期間内に2点未満であることを示します。
	// ベータが計算できないため、結果の行は返しません。
	ErrInsufficientReferenceData = errors.New("insufficient reference data")
)

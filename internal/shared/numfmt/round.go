// Package numfmt は表示用の数値丸めを提供します。
package numfmt

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round2 は v を小数点以下2桁に四捨五入します（0.5は0から遠い方へ）。
// NaN と無限大はそのまま返します。
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

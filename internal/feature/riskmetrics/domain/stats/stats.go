// Package stats はリスク指標の計算に使う記述統計を提供します。
// すべての関数は入力を変更せず、計算できない場合は0を返します。
package stats

import (
	"math"
	"slices"
)

// Return は日付付きの日次リターンです。Date はリターンの終点となる価格の日付です。
type Return struct {
	Date  string
	Value float64
}

// Returns は日付昇順の価格から単純リターン p[i]/p[i-1]-1 を計算します。
// dates と prices は同じ長さである必要があります。2点未満の場合は空を返します。
func Returns(dates []string, prices []float64) []Return {
	if len(prices) < 2 || len(dates) != len(prices) {
		return []Return{}
	}
	out := make([]Return, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		out = append(out, Return{Date: dates[i], Value: prices[i]/prices[i-1] - 1})
	}
	return out
}

// Values はリターンの値だけを取り出します。
func Values(rs []Return) []float64 {
	out := make([]float64, len(rs))
	for i, r := range rs {
		out[i] = r.Value
	}
	return out
}

// Mean は算術平均です。
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// SampleVariance は不偏分散（n-1）です。
func SampleVariance(xs []float64) float64 {
	return SampleCovariance(xs, xs)
}

// SampleStdDev は標本標準偏差（n-1）です。
func SampleStdDev(xs []float64) float64 {
	return math.Sqrt(SampleVariance(xs))
}

// SampleCovariance は標本共分散（n-1）です。長さが異なる場合や2点未満の場合は0です。
func SampleCovariance(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return 0
	}
	mx, my := Mean(xs), Mean(ys)
	var sum float64
	for i := range xs {
		sum += (xs[i] - mx) * (ys[i] - my)
	}
	return sum / float64(n-1)
}

// Percentile は p パーセンタイル（0-100）を順序統計量の線形補間で返します。
func Percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := slices.Clone(xs)
	slices.Sort(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo < 0 {
		lo = 0
	}
	if hi >= len(sorted) {
		hi = len(sorted) - 1
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Align は日付が共通するリターンだけを a の順序で取り出します。
func Align(a, b []Return) ([]float64, []float64) {
	byDate := make(map[string]float64, len(b))
	for _, r := range b {
		byDate[r.Date] = r.Value
	}
	xs := make([]float64, 0, len(a))
	ys := make([]float64, 0, len(a))
	for _, r := range a {
		if v, ok := byDate[r.Date]; ok {
			xs = append(xs, r.Value)
			ys = append(ys, v)
		}
	}
	return xs, ys
}

// Beta は日付を揃えた系列の cov(a, ref) / var(ref) です。
// 共通の日付が2つ未満、または基準の分散が0の場合は0です。
func Beta(a, ref []Return) float64 {
	xs, ys := Align(a, ref)
	if len(xs) < 2 {
		return 0
	}
	v := SampleVariance(ys)
	if v == 0 {
		return 0
	}
	return SampleCovariance(xs, ys) / v
}

// Package entity はriskmetricsフィーチャーのドメインモデルを定義します。
package entity

import "time"

// Windows はリスク指標を計算する期間（日数）です。
var Windows = []int{7, 30, 90, 365}

// DefaultWindow は不正な期間が指定された場合に使う日数です。
const DefaultWindow = 30

// RiskLevel はボラティリティに基づくリスク区分です。
type RiskLevel string

const (
	RiskHigh   RiskLevel = "High"
	RiskMedium RiskLevel = "Medium"
	RiskLow    RiskLevel = "Low"
)

// ClassifyRisk は年率ボラティリティ(%)からリスク区分を決めます。
func ClassifyRisk(volatility float64) RiskLevel {
	switch {
	case volatility >= 70:
		return RiskHigh
	case volatility >= 35:
		return RiskMedium
	default:
		return RiskLow
	}
}

// IsWindow は days が対応する期間かを返します。
func IsWindow(days int) bool {
	for _, w := range Windows {
		if w == days {
			return true
		}
	}
	return false
}

// CoinMetrics は1コイン・1期間のリスク指標です。値は小数第2位に丸められています。
type CoinMetrics struct {
	Coin       string
	Symbol     string
	Volatility float64
	Sharpe     float64
	Beta       float64
	VaR        float64
	Risk       RiskLevel
}

// Snapshot は1回の計算結果です。同じ計算の行は BatchID と ComputedAt を共有します。
type Snapshot struct {
	BatchID    string
	Days       int
	ComputedAt time.Time
	Rows       []CoinMetrics
}

package dto

// RiskRow はコインごとのリスク指標の行です。
type RiskRow struct {
	Coin       string  `json:"coin"`      // ティッカー
	CoinName   string  `json:"coin_name"` // コインID
	Volatility float64 `json:"volatility"`
	Sharpe     float64 `json:"sharpe"`
	Beta       float64 `json:"beta"`
	VaR        float64 `json:"var"`
	Risk       string  `json:"risk"` // High / Medium / Low
}

// RiskSeries はチャート描画用に指標を列ごとにまとめたものです。
type RiskSeries struct {
	Labels     []string  `json:"labels"`
	Volatility []float64 `json:"volatility"`
	Sharpe     []float64 `json:"sharpe"`
	Beta       []float64 `json:"beta"`
	VaR        []float64 `json:"var"`
}

// RiskMetricsResponse は /api/risk-metrics のレスポンスDTOです。
type RiskMetricsResponse struct {
	Days       int        `json:"days"`
	ComputedAt string     `json:"computed_at"`
	Metrics    RiskSeries `json:"metrics"`
	Table      []RiskRow  `json:"table"`
}

// LatestRiskResponse は /api/risk-metrics-latest のレスポンスDTOです。
// 保存済みのスナップショットがない場合 ComputedAt は null になります。
type LatestRiskResponse struct {
	Table      []RiskRow `json:"table"`
	ComputedAt *string   `json:"computed_at"`
	Days       int       `json:"days"`
}

// SlotResponse はバッチ計算の1期間分の結果です。成功時は rows、失敗時は error を持ちます。
type SlotResponse struct {
	Rows  *int   `json:"rows,omitempty"`
	Error string `json:"error,omitempty"`
}

// RiskBatchResponse は /api/risk-metrics-batch のレスポンスDTOです。
type RiskBatchResponse struct {
	Status     string                  `json:"status"`
	ComputedAt string                  `json:"computed_at"`
	Slots      map[string]SlotResponse `json:"slots"`
}

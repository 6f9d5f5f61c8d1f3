package dto

// MarketItem は /api/crypto のレスポンスDTOです。
type MarketItem struct {
	ID                       string  `json:"id"`                          // コインID
	Name                     string  `json:"name"`                        // 表示名
	Symbol                   string  `json:"symbol"`                      // ティッカー
	CurrentPrice             float64 `json:"current_price"`               // 現在価格
	PriceChangePercentage24h float64 `json:"price_change_percentage_24h"` // 24時間変動率(%)
	TotalVolume              float64 `json:"total_volume"`                // 24時間出来高
}

// HistoryResponse は /api/history のレスポンスDTOです。
// Prices[coin][i] は Dates[i] の終値で、不明な日は null になります。
type HistoryResponse struct {
	Dates  []string              `json:"dates"`
	Prices map[string][]*float64 `json:"prices"`
}

// InitHistoryResponse は /api/init-history のレスポンスDTOです。
type InitHistoryResponse struct {
	Status string   `json:"status"`
	Days   int      `json:"days"`
	Coins  int      `json:"coins"`
	Failed []string `json:"failed"`
}

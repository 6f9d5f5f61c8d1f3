// Package dto はCoinGecko APIのレスポンスDTOを定義します。
package dto

// MarketChartResponse は /coins/{id}/market_chart のレスポンスです。
// 各要素は [unixミリ秒, 値] の組です。
type MarketChartResponse struct {
	Prices       [][]float64 `json:"prices"`
	MarketCaps   [][]float64 `json:"market_caps"`
	TotalVolumes [][]float64 `json:"total_volumes"`
}

// MarketItem は /coins/markets のレスポンス配列の1要素です。
type MarketItem struct {
	ID                       string   `json:"id"`
	Symbol                   string   `json:"symbol"`
	Name                     string   `json:"name"`
	CurrentPrice             *float64 `json:"current_price"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"` // 新規上場などでnullになることがある
	TotalVolume              *float64 `json:"total_volume"`
}

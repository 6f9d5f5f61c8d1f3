// Package dto defines data transfer objects for the coins HTTP API.
package dto

// CoinItem represents a coin in the API response.
type CoinItem struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
}

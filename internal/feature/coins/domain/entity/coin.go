// Package entity defines the domain models for the coins feature.
package entity

// Coin is a tracked crypto asset.
// ID is the upstream identifier in lower case (e.g. "bitcoin"); it is unique and never changes.
type Coin struct {
	ID     string // upstream coin id, e.g. "bitcoin"
	Symbol string // ticker, e.g. "BTC"
}

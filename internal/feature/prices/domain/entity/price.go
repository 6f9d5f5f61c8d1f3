// Package entity defines the domain models for the prices feature.
package entity

import "time"

// DateLayout is the calendar-day format used for stored prices (UTC).
const DateLayout = "2006-01-02"

// PricePoint is the stored daily close of one coin. (Coin, Date) is unique.
type PricePoint struct {
	Coin  string  // coin id, e.g. "bitcoin"
	Date  string  // UTC calendar day, YYYY-MM-DD
	Price float64 // quote-currency price
}

// PriceSample is one upstream (timestamp, price) observation.
type PriceSample struct {
	Time  time.Time
	Price float64
}

// MarketQuote is the current market snapshot of one coin.
type MarketQuote struct {
	Coin      string  // coin id
	Name      string  // display name, e.g. "Bitcoin"
	Symbol    string  // upper-case ticker, e.g. "BTC"
	Price     float64 // current price
	Change24h float64 // 24h change in percent
	Volume    float64 // 24h volume
}

// DateOf returns the UTC calendar day of t.
func DateOf(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

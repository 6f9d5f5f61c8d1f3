package entity

// HistoryReport is a short multi-coin price chart.
// Prices[coin][i] is the close on Dates[i], or nil when no price is known for that day.
type HistoryReport struct {
	Dates  []string
	Prices map[string][]*float64
}

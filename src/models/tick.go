package models

// MTick represents a single observed trade/quote event.
// Instances are immutable and passed by value to listeners.
type MTick struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"ts"` // epoch milliseconds, UTC
}

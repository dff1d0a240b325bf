package models

// -----------------------------------------------------------------------------
// History endpoint payload (twelvedata-style time_series)
// -----------------------------------------------------------------------------

// MHistoryResponse is the daily-bars payload returned by the history
// endpoint. Values are ordered newest-first on the wire; consumers must
// reverse to oldest-first before seeding.
type MHistoryResponse struct {
	Values []MHistoryBar `json:"values"`
	Status string        `json:"status"`
	// Message is populated alongside an error status.
	Message string `json:"message"`
}

// MHistoryBar is a single daily bar. The provider serializes numbers as
// strings, so fields are parsed downstream.
type MHistoryBar struct {
	Datetime string `json:"datetime"` // "2006-01-02"
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	Volume   string `json:"volume"`
}

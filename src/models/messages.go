package models

// -----------------------------------------------------------------------------
// Wire messages (live transport and relay clients)
// -----------------------------------------------------------------------------

const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// MStreamMessage is the outbound subscribe/unsubscribe frame.
// Symbols is a single comma-joined list under one action.
type MStreamMessage struct {
	Action  string `json:"action"`
	Symbols string `json:"symbols"`
}

// -----------------------------------------------------------------------------

// MTickFrame is the inbound tick frame. The upstream feed uses either the
// long or the short key convention, so both aliases are decoded and
// normalized (see stream.decodeTickFrame).
type MTickFrame struct {
	Symbol      string   `json:"symbol"`
	SymbolShort string   `json:"s"`
	Price       *float64 `json:"price"`
	PriceShort  *float64 `json:"p"`
	Ts          *int64   `json:"ts"`
	TsShort     *int64   `json:"t"`
}

// -----------------------------------------------------------------------------
// Relay server messages
// -----------------------------------------------------------------------------

// MCandleUpdate is pushed to relay clients on every fold result.
// Type is "new" or "updated".
type MCandleUpdate struct {
	Type   string  `json:"type"`
	Symbol string  `json:"symbol"`
	Candle MCandle `json:"candle"`
}

// MSnapshot is sent to a relay client right after subscribing: the in-memory
// working set of candles for the symbol, oldest to newest.
type MSnapshot struct {
	Type    string    `json:"type"` // "snapshot"
	Symbol  string    `json:"symbol"`
	Candles []MCandle `json:"candles"`
}

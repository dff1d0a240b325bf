package models

// -----------------------------------------------------------------------------
// Daily OHLC candle
// -----------------------------------------------------------------------------

// MCandle is a daily OHLC aggregate. BucketStart is the UTC midnight
// (epoch seconds) of the trading day the candle belongs to.
// Invariant: Low <= Open, Close <= High.
type MCandle struct {
	BucketStart int64   `json:"time"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
}

// -----------------------------------------------------------------------------

// Transition describes what a folded tick did to the working candle.
type Transition int

const (
	// TransitionNew - the tick opened a new trading-day bucket.
	TransitionNew Transition = iota

	// TransitionUpdated - the tick updated the current bucket in place.
	TransitionUpdated

	// TransitionIgnored - the tick was stale (earlier trading day) and dropped.
	TransitionIgnored
)

// -----------------------------------------------------------------------------

func (t Transition) String() string {
	switch t {
	case TransitionNew:
		return "new"
	case TransitionUpdated:
		return "updated"
	case TransitionIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

package analysis

import (
	"price-stream/src/models"
	"price-stream/src/utils"
)

// -----------------------------------------------------------------------------
// Daily candle folding
//
// Folds an unordered-arrival tick stream into per-trading-day OHLC candles.
// Bucketing compares day keys, never raw timestamps, so minor out-of-order
// delivery within one trading day is harmless; only cross-day staleness is
// rejected.
// -----------------------------------------------------------------------------

// Fold applies one tick against the previous candle (nil when none exists).
// Returns the resulting candle and the transition that occurred. On
// TransitionIgnored the previous candle is returned unchanged.
func Fold(cal *utils.TradingCalendar, tick models.MTick, prev *models.MCandle) (models.MCandle, models.Transition) {
	tickKey := cal.DayKey(tick.Timestamp)

	var prevKey string
	if prev != nil {
		prevKey = cal.BucketKey(prev.BucketStart)
	}

	// New trading day (or no previous candle)
	if prev == nil || prevKey < tickKey {
		open := tick.Price
		if prev != nil {
			// Carry the prior close as the new open
			open = prev.Close
		}
		c := models.MCandle{
			BucketStart: cal.BucketStart(tickKey),
			Open:        open,
			High:        max(open, tick.Price),
			Low:         min(open, tick.Price),
			Close:       tick.Price,
		}
		return c, models.TransitionNew
	}

	// Same trading day - update O/H/L/C in place
	if prevKey == tickKey {
		c := models.MCandle{
			BucketStart: prev.BucketStart,
			Open:        prev.Open,
			High:        max(prev.High, tick.Price),
			Low:         min(prev.Low, tick.Price),
			Close:       tick.Price,
		}
		return c, models.TransitionUpdated
	}

	// Older trading day - stale tick, ignore
	return *prev, models.TransitionIgnored
}

// -----------------------------------------------------------------------------

// SeedFromHistory derives the starting candle from a historical daily series
// ordered oldest to newest. Returns nil for an empty series. Seeding makes
// the first live tick of an already-open trading day an update rather than a
// spurious new bucket.
func SeedFromHistory(bars []models.MCandle) *models.MCandle {
	if len(bars) == 0 {
		return nil
	}
	last := bars[len(bars)-1]
	return &last
}

// -----------------------------------------------------------------------------

// DailyAggregator carries the working candle across folds. Tick delivery is
// serialized by the stream backends, so no locking is needed here.
type DailyAggregator struct {
	cal  *utils.TradingCalendar
	last *models.MCandle
}

// -----------------------------------------------------------------------------

func NewDailyAggregator(cal *utils.TradingCalendar, seed *models.MCandle) *DailyAggregator {
	return &DailyAggregator{cal: cal, last: seed}
}

// -----------------------------------------------------------------------------

// Apply folds one tick into the working candle.
func (a *DailyAggregator) Apply(tick models.MTick) (models.MCandle, models.Transition) {
	c, transition := Fold(a.cal, tick, a.last)
	if transition != models.TransitionIgnored {
		a.last = &c
	}
	return c, transition
}

// -----------------------------------------------------------------------------

// Last returns the current working candle, or nil before the first fold/seed.
func (a *DailyAggregator) Last() *models.MCandle {
	return a.last
}

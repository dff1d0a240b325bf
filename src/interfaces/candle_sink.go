package interfaces

import (
	"price-stream/src/models"
)

// -----------------------------------------------------------------------------
// ICandleSink consumes the session controller's output: the seeded history
// on symbol selection, then one call per folded tick. The chart renderer
// (out of process here, the relay server stands in) is the intended consumer.
// -----------------------------------------------------------------------------

type ICandleSink interface {

	// -----------------------------------------------------------------------------

	// OnHistory delivers the seeded daily series, oldest to newest.
	OnHistory(symbol string, candles []models.MCandle)

	// -----------------------------------------------------------------------------

	// OnCandle delivers a fold result. Transition is New or Updated; Ignored
	// folds never reach the sink.
	OnCandle(symbol string, candle models.MCandle, transition models.Transition)
}

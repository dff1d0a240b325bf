package interfaces

import (
	"context"

	"price-stream/src/models"
)

// -----------------------------------------------------------------------------
// IHistorySource fetches the historical daily bars used to seed the
// aggregator before live ticks begin.
// -----------------------------------------------------------------------------

type IHistorySource interface {

	// -----------------------------------------------------------------------------

	// FetchDailyHistory returns daily candles for the symbol ordered oldest
	// to newest (the wire order is newest-first and reversed on parse).
	FetchDailyHistory(ctx context.Context, symbol string) ([]models.MCandle, error)
}

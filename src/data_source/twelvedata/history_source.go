package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"price-stream/src/helpers"
	"price-stream/src/interfaces"
	"price-stream/src/logger"
	"price-stream/src/models"
	"price-stream/src/utils"
)

// -----------------------------------------------------------------------------
// HistorySource fetches daily OHLC bars from a twelvedata-style time_series
// endpoint. The wire payload orders values newest-first; the aggregator's
// seeding step needs oldest-first, so parsing reverses the series.
// -----------------------------------------------------------------------------

type HistorySource struct {
	Config   *models.MConfig
	Network  interfaces.INetworkManager
	Calendar *utils.TradingCalendar
	Logger   *logger.Logger
}

// -----------------------------------------------------------------------------

func NewHistorySource(cfg *models.MConfig, netMgr interfaces.INetworkManager, cal *utils.TradingCalendar, log *logger.Logger) *HistorySource {
	return &HistorySource{
		Config:   cfg,
		Network:  netMgr,
		Calendar: cal,
		Logger:   log.Named("HistorySource"),
	}
}

// -----------------------------------------------------------------------------

// FetchDailyHistory retrieves and parses daily candles for a symbol,
// oldest to newest.
func (h *HistorySource) FetchDailyHistory(ctx context.Context, symbol string) ([]models.MCandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	params := map[string]string{
		"symbol":     symbol,
		"interval":   h.Config.History.Interval,
		"outputsize": strconv.Itoa(h.Config.History.Window),
	}

	respBytes, err := h.Network.Get(h.Config.History.Endpoint, params)
	if err != nil {
		return nil, helpers.NewNetworkError(fmt.Sprintf("history fetch failed for %s", symbol), err)
	}

	return h.parseTimeSeries(symbol, respBytes)
}

// -----------------------------------------------------------------------------

func (h *HistorySource) parseTimeSeries(symbol string, data []byte) ([]models.MCandle, error) {
	var resp models.MHistoryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("json unmarshal failed: %w", err)
	}

	if resp.Status != "" && resp.Status != "ok" {
		return nil, fmt.Errorf("history api error for %s: %s - %s", symbol, resp.Status, resp.Message)
	}

	if len(resp.Values) == 0 {
		return nil, fmt.Errorf("no values in history response for %s", symbol)
	}

	candles := make([]models.MCandle, 0, len(resp.Values))

	// Walk backwards: values arrive newest-first
	for i := len(resp.Values) - 1; i >= 0; i-- {
		bar := resp.Values[i]

		bucketStart := h.Calendar.BucketStart(bar.Datetime)
		if bucketStart == 0 {
			h.Logger.Debug("Skipping bar with bad datetime '%s' for %s", bar.Datetime, symbol)
			continue
		}

		open, err1 := strconv.ParseFloat(bar.Open, 64)
		high, err2 := strconv.ParseFloat(bar.High, 64)
		low, err3 := strconv.ParseFloat(bar.Low, 64)
		closeVal, err4 := strconv.ParseFloat(bar.Close, 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			h.Logger.Debug("Skipping unparsable bar %s for %s", bar.Datetime, symbol)
			continue
		}

		if closeVal <= 0 || high < low {
			h.Logger.Debug("Skipping invalid bar %s for %s: close=%f high=%f low=%f", bar.Datetime, symbol, closeVal, high, low)
			continue
		}

		candles = append(candles, models.MCandle{
			BucketStart: bucketStart,
			Open:        open,
			High:        high,
			Low:         low,
			Close:       closeVal,
		})
	}

	if len(candles) == 0 {
		return nil, fmt.Errorf("no valid bars for %s", symbol)
	}

	h.Logger.Info("Fetched %s: %d daily bars [%d -> %d]", symbol, len(candles), candles[0].BucketStart, candles[len(candles)-1].BucketStart)

	return candles, nil
}

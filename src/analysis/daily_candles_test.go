package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"price-stream/src/models"
	"price-stream/src/utils"
)

// -----------------------------------------------------------------------------

// Midday UTC on a weekday lands squarely inside the same New York trading day
func tickAt(y int, m time.Month, d int, price float64) models.MTick {
	return models.MTick{
		Symbol:    "AAPL",
		Price:     price,
		Timestamp: time.Date(y, m, d, 15, 0, 0, 0, time.UTC).UnixMilli(),
	}
}

// -----------------------------------------------------------------------------

func TestFold_SameDaySequence(t *testing.T) {
	cal := utils.NewTradingCalendar()

	var prev *models.MCandle
	for i, price := range []float64{100, 105, 95, 102} {
		c, transition := Fold(cal, tickAt(2024, time.June, 14, price), prev)
		if i == 0 {
			assert.Equal(t, models.TransitionNew, transition)
		} else {
			assert.Equal(t, models.TransitionUpdated, transition)
		}
		prev = &c
	}

	require.NotNil(t, prev)
	assert.Equal(t, 100.0, prev.Open)
	assert.Equal(t, 105.0, prev.High)
	assert.Equal(t, 95.0, prev.Low)
	assert.Equal(t, 102.0, prev.Close)
	assert.Equal(t, cal.BucketStart("2024-06-14"), prev.BucketStart)
}

// -----------------------------------------------------------------------------

func TestFold_FirstTickOpensAtItsOwnPrice(t *testing.T) {
	cal := utils.NewTradingCalendar()

	c, transition := Fold(cal, tickAt(2024, time.June, 14, 123.45), nil)

	assert.Equal(t, models.TransitionNew, transition)
	assert.Equal(t, 123.45, c.Open)
	assert.Equal(t, 123.45, c.High)
	assert.Equal(t, 123.45, c.Low)
	assert.Equal(t, 123.45, c.Close)
}

// -----------------------------------------------------------------------------

func TestFold_NewDayCarriesPriorClose(t *testing.T) {
	cal := utils.NewTradingCalendar()

	prev := &models.MCandle{
		BucketStart: cal.BucketStart("2024-06-14"),
		Open:        48, High: 52, Low: 47, Close: 50,
	}

	c, transition := Fold(cal, tickAt(2024, time.June, 17, 55), prev)

	assert.Equal(t, models.TransitionNew, transition)
	assert.Equal(t, cal.BucketStart("2024-06-17"), c.BucketStart)
	assert.Equal(t, 50.0, c.Open)
	assert.Equal(t, 55.0, c.High)
	assert.Equal(t, 50.0, c.Low)
	assert.Equal(t, 55.0, c.Close)
}

// -----------------------------------------------------------------------------

func TestFold_NewDayGapDown(t *testing.T) {
	cal := utils.NewTradingCalendar()

	prev := &models.MCandle{
		BucketStart: cal.BucketStart("2024-06-14"),
		Open:        48, High: 52, Low: 47, Close: 50,
	}

	c, transition := Fold(cal, tickAt(2024, time.June, 17, 45), prev)

	assert.Equal(t, models.TransitionNew, transition)
	assert.Equal(t, 50.0, c.Open)
	assert.Equal(t, 50.0, c.High)
	assert.Equal(t, 45.0, c.Low)
	assert.Equal(t, 45.0, c.Close)
}

// -----------------------------------------------------------------------------

func TestFold_StaleTickIgnored(t *testing.T) {
	cal := utils.NewTradingCalendar()

	prev := &models.MCandle{
		BucketStart: cal.BucketStart("2024-06-17"),
		Open:        50, High: 56, Low: 49, Close: 55,
	}

	c, transition := Fold(cal, tickAt(2024, time.June, 14, 999), prev)

	assert.Equal(t, models.TransitionIgnored, transition)
	assert.Equal(t, *prev, c)
}

// -----------------------------------------------------------------------------

func TestFold_LateEveningTickStaysOnSameTradingDay(t *testing.T) {
	cal := utils.NewTradingCalendar()

	prev := &models.MCandle{
		BucketStart: cal.BucketStart("2024-06-14"),
		Open:        100, High: 101, Low: 99, Close: 100,
	}

	// 01:00 UTC on the 15th is still the evening of the 14th in New York
	tick := models.MTick{
		Symbol:    "AAPL",
		Price:     102,
		Timestamp: time.Date(2024, time.June, 15, 1, 0, 0, 0, time.UTC).UnixMilli(),
	}
	c, transition := Fold(cal, tick, prev)

	assert.Equal(t, models.TransitionUpdated, transition)
	assert.Equal(t, 102.0, c.High)
	assert.Equal(t, 102.0, c.Close)
}

// -----------------------------------------------------------------------------

func TestSeedFromHistory(t *testing.T) {
	cal := utils.NewTradingCalendar()

	assert.Nil(t, SeedFromHistory(nil))
	assert.Nil(t, SeedFromHistory([]models.MCandle{}))

	bars := []models.MCandle{
		{BucketStart: cal.BucketStart("2024-06-13"), Close: 48},
		{BucketStart: cal.BucketStart("2024-06-14"), Close: 50},
	}
	seed := SeedFromHistory(bars)
	require.NotNil(t, seed)
	assert.Equal(t, cal.BucketStart("2024-06-14"), seed.BucketStart)
}

// -----------------------------------------------------------------------------

func TestDailyAggregator_SeededFirstTickUpdates(t *testing.T) {
	cal := utils.NewTradingCalendar()

	seed := &models.MCandle{
		BucketStart: cal.BucketStart("2024-06-14"),
		Open:        100, High: 101, Low: 99, Close: 100,
	}
	agg := NewDailyAggregator(cal, seed)

	c, transition := agg.Apply(tickAt(2024, time.June, 14, 104))

	assert.Equal(t, models.TransitionUpdated, transition)
	assert.Equal(t, 100.0, c.Open)
	assert.Equal(t, 104.0, c.High)
	assert.Equal(t, 104.0, c.Close)
}

// -----------------------------------------------------------------------------

func TestDailyAggregator_IgnoredKeepsWorkingCandle(t *testing.T) {
	cal := utils.NewTradingCalendar()

	agg := NewDailyAggregator(cal, nil)
	agg.Apply(tickAt(2024, time.June, 17, 50))
	before := *agg.Last()

	_, transition := agg.Apply(tickAt(2024, time.June, 14, 999))

	assert.Equal(t, models.TransitionIgnored, transition)
	assert.Equal(t, before, *agg.Last())
}

package utils

import (
	"fmt"
	"time"

	"github.com/scmhub/calendar"
)

// -----------------------------------------------------------------------------
// TradingCalendar buckets instants into trading days.
//
// Day keys follow the exchange's local calendar date, not UTC midnight, while
// bucket starts are stored as UTC instants so chart consumers can compare
// them directly. The key format is zero-padded YYYY-MM-DD so lexicographic
// comparison equals chronological order.
// -----------------------------------------------------------------------------

const dayKeyLayout = "2006-01-02"

type TradingCalendar struct {
	Calendar *calendar.Calendar
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// NewTradingCalendar loads the NYSE calendar (single fixed trading-day
// timezone rule). Falls back to a bare America/New_York location if the
// calendar library has no entry.
func NewTradingCalendar() *TradingCalendar {
	cal := calendar.GetCalendar("xnys")
	if cal != nil {
		return &TradingCalendar{Calendar: cal, Timezone: cal.Loc}
	}

	nyLoc, err := time.LoadLocation("America/New_York")
	if err != nil {
		nyLoc = time.UTC // Worst case
	}
	return &TradingCalendar{Timezone: nyLoc}
}

// -----------------------------------------------------------------------------

// DayKey projects an absolute instant (epoch milliseconds) onto the exchange
// calendar date. Pure and total; every instant maps to exactly one key.
func (tc *TradingCalendar) DayKey(tsMillis int64) string {
	t := time.UnixMilli(tsMillis).In(tc.Timezone)
	return t.Format(dayKeyLayout)
}

// -----------------------------------------------------------------------------

// BucketStart maps a day key back to the UTC midnight (epoch seconds) of
// that calendar date. Not the exact inverse of DayKey: DayKey is lossy,
// all instants of one trading day share a key.
func (tc *TradingCalendar) BucketStart(dayKey string) int64 {
	var y, m, d int
	if _, err := fmt.Sscanf(dayKey, "%4d-%2d-%2d", &y, &m, &d); err != nil {
		return 0
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC).Unix()
}

// -----------------------------------------------------------------------------

// BucketKey returns the day key a bucket-start instant (epoch seconds, UTC
// midnight) belongs to. Bucket starts are canonical UTC midnights, so the
// key is read in UTC; projecting them through the exchange timezone would
// shift them into the prior calendar day. Inverse of BucketStart:
// BucketKey(BucketStart(k)) == k.
func (tc *TradingCalendar) BucketKey(bucketStart int64) string {
	return time.Unix(bucketStart, 0).UTC().Format(dayKeyLayout)
}

// -----------------------------------------------------------------------------

// IsTradingDay reports whether the instant falls on an exchange business day.
func (tc *TradingCalendar) IsTradingDay(t time.Time) bool {
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if tc.Calendar == nil {
		// Simple fallback: Mon-Fri
		weekday := t.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(t)
}

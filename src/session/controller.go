package session

import (
	"context"
	"fmt"
	"sync"

	"price-stream/src/analysis"
	"price-stream/src/interfaces"
	"price-stream/src/logger"
	"price-stream/src/models"
	"price-stream/src/stream"
	"price-stream/src/utils"
)

// -----------------------------------------------------------------------------
// Controller orchestrates one symbol selection at a time: fetch seed history,
// derive the seed candle, build a fresh stream instance, fold ticks, hand
// results to the sink.
//
// The epoch counter is the cross-symbol leakage guard. Every async
// continuation (history completion, tick listener) carries the epoch it was
// created under and discards itself when the controller has moved on.
// Cancellation is cooperative - stale work is detected and dropped, not
// forcibly aborted.
// -----------------------------------------------------------------------------

type StreamFactory func(*models.MConfig, *logger.Logger) (interfaces.IPriceStream, error)

type Controller struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	History  interfaces.IHistorySource
	Sink     interfaces.ICandleSink
	Calendar *utils.TradingCalendar

	factory StreamFactory

	mu      sync.Mutex
	epoch   uint64
	symbol  string
	stream  interfaces.IPriceStream
	agg     *analysis.DailyAggregator
	working *utils.RingBuffer
	closed  bool
}

// -----------------------------------------------------------------------------

func NewController(cfg *models.MConfig, history interfaces.IHistorySource, sink interfaces.ICandleSink, cal *utils.TradingCalendar, log *logger.Logger) *Controller {
	return &Controller{
		Config:   cfg,
		Logger:   log.Named("SessionController"),
		History:  history,
		Sink:     sink,
		Calendar: cal,
		factory:  stream.New,
		working:  utils.NewRingBuffer(cfg.History.Window),
	}
}

// -----------------------------------------------------------------------------

// WithFactory overrides stream construction (tests inject fakes here).
func (c *Controller) WithFactory(f StreamFactory) *Controller {
	c.factory = f
	return c
}

// -----------------------------------------------------------------------------

// Select switches the active symbol. The previous epoch's stream instance is
// unsubscribed then closed (that ordering lets a live backend send its
// outbound unsubscribe frame before the socket dies); its in-flight history
// fetch, if any, is left to discard itself against the bumped epoch.
func (c *Controller) Select(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("session controller is closed")
	}

	c.epoch++
	epoch := c.epoch
	outgoingSymbol := c.symbol
	outgoing := c.stream
	c.symbol = symbol
	c.stream = nil
	c.agg = nil
	c.working.Clear()
	c.mu.Unlock()

	if outgoing != nil {
		outgoing.Unsubscribe([]string{outgoingSymbol})
		outgoing.Close()
	}

	c.Logger.Info("Selected %s (epoch %d)", symbol, epoch)
	go c.startSession(epoch, symbol)
	return nil
}

// -----------------------------------------------------------------------------

// startSession runs the FetchingHistory -> Streaming path for one epoch.
func (c *Controller) startSession(epoch uint64, symbol string) {
	history, err := c.History.FetchDailyHistory(context.Background(), symbol)

	c.mu.Lock()
	if c.closed || epoch != c.epoch {
		c.mu.Unlock()
		// Stale epoch: the user moved on while we were fetching
		c.Logger.Debug("Discarding history fetch for %s (epoch %d, now %d)", symbol, epoch, c.epoch)
		return
	}
	c.mu.Unlock()

	if err != nil {
		// Non-fatal: stream with no seed, the first tick opens a fresh bucket
		c.Logger.Warning("History fetch failed for %s: %v", symbol, err)
		history = nil
	}

	st, ferr := c.factory(c.Config, c.Logger)
	if ferr != nil {
		c.Logger.Error("Failed to build stream for %s: %v", symbol, ferr)
		return
	}

	seed := analysis.SeedFromHistory(history)

	c.mu.Lock()
	if c.closed || epoch != c.epoch {
		c.mu.Unlock()
		st.Close()
		return
	}
	c.stream = st
	c.agg = analysis.NewDailyAggregator(c.Calendar, seed)
	for _, bar := range history {
		c.working.Append(bar)
	}
	c.mu.Unlock()

	if len(history) > 0 {
		c.Sink.OnHistory(symbol, history)
	}

	// Tick listener guarded by the captured symbol and epoch
	st.OnTick(func(tick models.MTick) {
		c.onTick(epoch, symbol, tick)
	})

	st.Subscribe([]string{symbol})

	if err := st.Connect(context.Background()); err != nil {
		// Surfaced but non-fatal; the caller may Select again or the host
		// may show a connectivity warning
		c.Logger.Error("Connect failed for %s: %v", symbol, err)
	}
}

// -----------------------------------------------------------------------------

// onTick folds one tick into the working candle and forwards the result.
// Early-returns on symbol mismatch, stale epoch, and stale (prior trading
// day) ticks; none of those are surfaced.
func (c *Controller) onTick(epoch uint64, symbol string, tick models.MTick) {
	if tick.Symbol != symbol {
		return
	}

	c.mu.Lock()
	if c.closed || epoch != c.epoch || c.agg == nil {
		c.mu.Unlock()
		return
	}

	candle, transition := c.agg.Apply(tick)
	switch transition {
	case models.TransitionNew:
		c.working.Append(candle)
	case models.TransitionUpdated:
		c.working.ReplaceLast(candle)
	default:
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.Sink.OnCandle(symbol, candle, transition)
}

// -----------------------------------------------------------------------------

// Snapshot returns the active symbol and a copy of its in-memory candle
// working set, oldest to newest. Late-joining relay clients get this as
// their initial state.
func (c *Controller) Snapshot() (string, []models.MCandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.symbol, c.working.GetAll()
}

// -----------------------------------------------------------------------------

// Close tears the active session down unconditionally. The epoch bump makes
// any straggling completions discard themselves.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.epoch++
	st := c.stream
	sym := c.symbol
	c.stream = nil
	c.mu.Unlock()

	if st != nil {
		st.Unsubscribe([]string{sym})
		st.Close()
	}
	c.Logger.Info("Session controller closed")
}

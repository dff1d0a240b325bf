package stream

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"price-stream/src/helpers"
	"price-stream/src/logger"
	"price-stream/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// LivePriceStream delivers ticks from a persistent websocket feed. One
// connection per instance; the instance is discarded when the symbol
// selection changes, never reused.
//
// Subscriptions requested before the socket is open are buffered in the
// pending queue and flushed exactly once, in original order, as a single
// batched subscribe message immediately after the connection opens.
// -----------------------------------------------------------------------------

type LivePriceStream struct {
	URL    string
	Logger *logger.Logger

	mu         sync.Mutex
	conn       *websocket.Conn
	listeners  []func(models.MTick)
	subs       []string      // subscription set, insertion order
	pending    []string      // pending queue
	connecting chan struct{} // non-nil while a dial is in flight
	connectErr error
	closed     bool

	writeMu sync.Mutex // gorilla allows a single concurrent writer

	// now is the receipt-time fallback for inbound frames without a
	// timestamp field; overridable in tests.
	now func() int64
}

// -----------------------------------------------------------------------------

func NewLivePriceStream(url string, log *logger.Logger) *LivePriceStream {
	return &LivePriceStream{
		URL:    url,
		Logger: log.Named("LivePriceStream"),
		now:    func() int64 { return time.Now().UnixMilli() },
	}
}

// -----------------------------------------------------------------------------

// Connect dials the feed. Idempotent: a call while connected is a no-op, a
// call while a dial is in flight waits for that dial's outcome. A handshake
// failure is returned as a TransportError; no automatic retry.
func (s *LivePriceStream) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return helpers.NewTransportError("stream is closed", nil)
	}
	if s.conn != nil {
		s.mu.Unlock()
		return nil
	}
	if s.connecting != nil {
		// Coalesce onto the in-flight attempt
		done := s.connecting
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return helpers.NewTransportError("connect cancelled", ctx.Err())
		}
		s.mu.Lock()
		err := s.connectErr
		s.mu.Unlock()
		return err
	}

	done := make(chan struct{})
	s.connecting = done
	s.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.URL, nil)

	s.mu.Lock()
	defer func() {
		s.connecting = nil
		close(done)
		s.mu.Unlock()
	}()

	if err != nil {
		s.connectErr = helpers.NewTransportError("websocket handshake failed", err)
		return s.connectErr
	}
	if s.closed {
		// Close raced the dial; tear the fresh socket down
		conn.Close()
		s.connectErr = helpers.NewTransportError("stream closed during connect", nil)
		return s.connectErr
	}

	s.conn = conn
	s.connectErr = nil

	// Flush the pending queue: one batched message, original order, once.
	if len(s.pending) > 0 {
		s.send(models.MStreamMessage{
			Action:  models.ActionSubscribe,
			Symbols: strings.Join(s.pending, ","),
		})
		s.pending = nil
	}

	go s.readLoop(conn)
	return nil
}

// -----------------------------------------------------------------------------

func (s *LivePriceStream) Subscribe(symbols []string) {
	list := filterEmpty(symbols)
	if len(list) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	added := make([]string, 0, len(list))
	for _, sym := range list {
		if containsSymbol(s.subs, sym) {
			continue
		}
		s.subs = append(s.subs, sym)
		added = append(added, sym)
	}
	if len(added) == 0 {
		return
	}

	if s.conn == nil {
		s.pending = append(s.pending, added...)
		return
	}
	s.send(models.MStreamMessage{
		Action:  models.ActionSubscribe,
		Symbols: strings.Join(added, ","),
	})
}

// -----------------------------------------------------------------------------

// Unsubscribe removes symbols from the subscription set. When the transport
// is not open the matching pending entries are dropped and nothing is sent -
// there is nothing to undo upstream if the queue never flushed.
func (s *LivePriceStream) Unsubscribe(symbols []string) {
	list := filterEmpty(symbols)
	if len(list) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make([]string, 0, len(list))
	for _, sym := range list {
		if !containsSymbol(s.subs, sym) {
			continue
		}
		s.subs = removeSymbol(s.subs, sym)
		s.pending = removeSymbol(s.pending, sym)
		removed = append(removed, sym)
	}

	if len(removed) == 0 || s.conn == nil {
		return
	}
	s.send(models.MStreamMessage{
		Action:  models.ActionUnsubscribe,
		Symbols: strings.Join(removed, ","),
	})
}

// -----------------------------------------------------------------------------

func (s *LivePriceStream) OnTick(cb func(models.MTick)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.listeners = append(s.listeners, cb)
}

// -----------------------------------------------------------------------------

// Close terminates the socket and clears the subscription set, pending queue
// and listeners. Idempotent; safe from within a tick callback because the
// read loop invokes listeners without holding the lock.
func (s *LivePriceStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.subs = nil
	s.pending = nil
	s.listeners = nil
}

// -----------------------------------------------------------------------------

// Reconnect re-dials a dropped connection and re-sends the full current
// subscription set once. Never invoked automatically; callers own the retry
// cadence (helpers.RetryWithBackoff composes with this).
func (s *LivePriceStream) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return helpers.NewTransportError("stream is closed", nil)
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	// Queue the whole set so the connect flush re-subscribes everything
	s.pending = append([]string(nil), s.subs...)
	s.mu.Unlock()

	return s.Connect(ctx)
}

// -----------------------------------------------------------------------------

// readLoop decodes inbound frames and fans them out. Runs until the socket
// errors or Close tears it down. Errors after the handshake are logged, not
// surfaced; there is no automatic reconnect.
func (s *LivePriceStream) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			if s.conn == conn {
				s.conn = nil
			}
			s.mu.Unlock()
			if !closed {
				s.Logger.Warning("Read loop ended: %v", err)
			}
			return
		}

		tick, ok := s.decodeTickFrame(data)
		if !ok {
			// Malformed frame: drop silently, never fatal
			continue
		}

		s.mu.Lock()
		listeners := make([]func(models.MTick), len(s.listeners))
		copy(listeners, s.listeners)
		s.mu.Unlock()

		for _, cb := range listeners {
			cb(tick)
		}
	}
}

// -----------------------------------------------------------------------------

// decodeTickFrame normalizes the two field-naming conventions the feed uses
// ({symbol,price,ts} and {s,p,t}). Missing timestamps default to receipt
// time. Returns false for anything unusable.
func (s *LivePriceStream) decodeTickFrame(data []byte) (models.MTick, bool) {
	var frame models.MTickFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.Logger.Debug("Dropping malformed frame: %v", err)
		return models.MTick{}, false
	}

	symbol := frame.Symbol
	if symbol == "" {
		symbol = frame.SymbolShort
	}

	var price float64
	switch {
	case frame.Price != nil:
		price = *frame.Price
	case frame.PriceShort != nil:
		price = *frame.PriceShort
	}

	if symbol == "" || price <= 0 {
		return models.MTick{}, false
	}

	ts := s.now()
	switch {
	case frame.Ts != nil:
		ts = *frame.Ts
	case frame.TsShort != nil:
		ts = *frame.TsShort
	}

	return models.MTick{Symbol: symbol, Price: price, Timestamp: ts}, true
}

// -----------------------------------------------------------------------------

// send writes one outbound frame. Write failures are logged and swallowed;
// the read loop is the authority on connection death. Caller holds s.mu.
func (s *LivePriceStream) send(msg models.MStreamMessage) {
	conn := s.conn
	if conn == nil {
		return
	}
	s.writeMu.Lock()
	err := conn.WriteJSON(msg)
	s.writeMu.Unlock()
	if err != nil {
		s.Logger.Debug("Send ignored: %v", err)
	}
}

// -----------------------------------------------------------------------------

func filterEmpty(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func containsSymbol(list []string, sym string) bool {
	for _, s := range list {
		if s == sym {
			return true
		}
	}
	return false
}

func removeSymbol(list []string, sym string) []string {
	for i, s := range list {
		if s == sym {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"price-stream/src/interfaces"
	"price-stream/src/logger"
	"price-stream/src/models"
	"price-stream/src/session"
	"price-stream/src/utils"
)

// -----------------------------------------------------------------------------

type fakeHistorySource struct {
	candles []models.MCandle
	err     error
}

func (f *fakeHistorySource) FetchDailyHistory(ctx context.Context, symbol string) ([]models.MCandle, error) {
	return f.candles, f.err
}

// -----------------------------------------------------------------------------

type fakeStream struct {
	mu        sync.Mutex
	listeners []func(models.MTick)
}

func (f *fakeStream) Connect(ctx context.Context) error { return nil }
func (f *fakeStream) Subscribe(symbols []string)        {}
func (f *fakeStream) Unsubscribe(symbols []string)      {}
func (f *fakeStream) Close()                            {}
func (f *fakeStream) OnTick(cb func(models.MTick)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, cb)
}

// -----------------------------------------------------------------------------

func testServerConfig() *models.MConfig {
	cfg := &models.MConfig{}
	cfg.Name = "price-stream"
	cfg.Host = "127.0.0.1"
	cfg.Port = 8090
	cfg.Stream.Backend = "mock"
	cfg.Stream.Symbol = "AAPL"
	cfg.History.Window = 100
	return cfg
}

func newTestServer(history interfaces.IHistorySource) *RelayServer {
	log := logger.NewLogger(logger.LevelError, "test")
	return NewRelayServer(testServerConfig(), utils.NewTradingCalendar(), history, log)
}

func newTestClient(s *RelayServer, sendBuf int) *Client {
	return &Client{
		hub:     s,
		send:    make(chan interface{}, sendBuf),
		symbols: make(map[string]struct{}),
	}
}

// -----------------------------------------------------------------------------

func TestHub_RoutesBySymbolFilter(t *testing.T) {
	s := newTestServer(&fakeHistorySource{})
	go s.handleWebsockets()
	defer s.Stop()

	aapl := newTestClient(s, 8)
	aapl.subscribe("AAPL")
	msft := newTestClient(s, 8)
	msft.subscribe("MSFT")
	s.register <- aapl
	s.register <- msft

	candle := models.MCandle{BucketStart: 1718323200, Open: 100, High: 101, Low: 99, Close: 100.5}
	s.OnCandle("AAPL", candle, models.TransitionUpdated)

	select {
	case payload := <-aapl.send:
		update, ok := payload.(models.MCandleUpdate)
		require.True(t, ok)
		assert.Equal(t, "updated", update.Type)
		assert.Equal(t, "AAPL", update.Symbol)
		assert.Equal(t, 100.5, update.Candle.Close)
	case <-time.After(2 * time.Second):
		t.Fatal("subscribed client got nothing")
	}

	select {
	case payload := <-msft.send:
		t.Fatalf("unsubscribed client got %+v", payload)
	case <-time.After(100 * time.Millisecond):
	}
}

// -----------------------------------------------------------------------------

func TestHub_SnapshotOnHistory(t *testing.T) {
	s := newTestServer(&fakeHistorySource{})
	go s.handleWebsockets()
	defer s.Stop()

	client := newTestClient(s, 8)
	client.subscribe("AAPL")
	s.register <- client

	s.OnHistory("AAPL", []models.MCandle{
		{BucketStart: 1718236800, Close: 99},
		{BucketStart: 1718323200, Close: 100},
	})

	select {
	case payload := <-client.send:
		snap, ok := payload.(models.MSnapshot)
		require.True(t, ok)
		assert.Equal(t, "snapshot", snap.Type)
		assert.Len(t, snap.Candles, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
	}
}

// -----------------------------------------------------------------------------

func TestHub_PrunesSlowClient(t *testing.T) {
	s := newTestServer(&fakeHistorySource{})
	go s.handleWebsockets()
	defer s.Stop()

	slow := newTestClient(s, 1)
	slow.subscribe("AAPL")
	healthy := newTestClient(s, 8)
	healthy.subscribe("AAPL")
	s.register <- slow
	s.register <- healthy

	candle := models.MCandle{Close: 100}
	// Second update overflows the slow client's buffer; the hub drops it
	s.OnCandle("AAPL", candle, models.TransitionUpdated)
	s.OnCandle("AAPL", candle, models.TransitionUpdated)
	s.OnCandle("AAPL", candle, models.TransitionUpdated)

	received := 0
	for received < 3 {
		select {
		case <-healthy.send:
			received++
		case <-time.After(2 * time.Second):
			t.Fatalf("healthy client got %d of 3 updates", received)
		}
	}

	// The slow client's channel was closed on eviction
	assert.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-slow.send:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, 2*time.Second, 10*time.Millisecond)
}

// -----------------------------------------------------------------------------

func clientClosed(c *Client) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// -----------------------------------------------------------------------------

// A pruned client's readPump may still be delivering frames; the snapshot
// fast-path must not write to the closed send channel.
func TestHandleClientMessage_AfterPruneDoesNotPanic(t *testing.T) {
	cal := utils.NewTradingCalendar()
	history := &fakeHistorySource{candles: []models.MCandle{
		{BucketStart: cal.BucketStart("2024-06-14"), Open: 99, High: 101, Low: 98, Close: 100},
	}}
	s := newTestServer(history)
	go s.handleWebsockets()
	defer s.Stop()

	log := logger.NewLogger(logger.LevelError, "test")
	ctrl := session.NewController(testServerConfig(), history, s, cal, log)
	ctrl.WithFactory(func(*models.MConfig, *logger.Logger) (interfaces.IPriceStream, error) {
		return &fakeStream{}, nil
	})
	defer ctrl.Close()
	s.SetController(ctrl)

	require.NoError(t, ctrl.Select("AAPL"))
	assert.Eventually(t, func() bool {
		symbol, candles := ctrl.Snapshot()
		return symbol == "AAPL" && len(candles) > 0
	}, 2*time.Second, 10*time.Millisecond)

	slow := newTestClient(s, 1)
	slow.subscribe("AAPL")
	s.register <- slow

	// Fill the 1-slot buffer, then overflow it so the hub evicts the client
	candle := models.MCandle{Close: 100}
	s.OnCandle("AAPL", candle, models.TransitionUpdated)
	s.OnCandle("AAPL", candle, models.TransitionUpdated)
	assert.Eventually(t, func() bool { return clientClosed(slow) }, 2*time.Second, 10*time.Millisecond)

	// Subscribe frame for the active symbol hits the snapshot fast-path;
	// the reply is dropped instead of crashing the process
	s.HandleClientMessage(slow, []byte(`{"action":"subscribe","symbols":"AAPL"}`))

	assert.False(t, slow.trySend(models.MSnapshot{}))
}

// -----------------------------------------------------------------------------

func TestStop_RefusesLateUpgrades(t *testing.T) {
	s := newTestServer(&fakeHistorySource{})
	go s.handleWebsockets()
	require.NoError(t, s.Stop())

	web := httptest.NewServer(s.engine)
	defer web.Close()

	url := "ws" + strings.TrimPrefix(web.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The stopped hub never registers the client; the server drops the
	// connection instead of parking a goroutine on the register channel
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

func TestHandleClientMessage_SubscribeSetsFilter(t *testing.T) {
	s := newTestServer(&fakeHistorySource{})
	client := newTestClient(s, 8)

	s.HandleClientMessage(client, []byte(`{"action":"subscribe","symbols":"aapl, msft"}`))

	assert.True(t, client.subscribed("AAPL"))
	assert.True(t, client.subscribed("MSFT"))

	s.HandleClientMessage(client, []byte(`{"action":"unsubscribe","symbols":"MSFT"}`))
	assert.False(t, client.subscribed("MSFT"))

	// Garbage and unknown actions are ignored
	s.HandleClientMessage(client, []byte(`{nope`))
	s.HandleClientMessage(client, []byte(`{"action":"dance","symbols":"AAPL"}`))
	s.HandleClientMessage(client, []byte(`{"action":"subscribe","symbols":" , "}`))
}

// -----------------------------------------------------------------------------

func TestHandleClientMessage_SubscribeDrivesSelection(t *testing.T) {
	cal := utils.NewTradingCalendar()
	history := &fakeHistorySource{candles: []models.MCandle{
		{BucketStart: cal.BucketStart("2024-06-14"), Open: 99, High: 101, Low: 98, Close: 100},
	}}
	s := newTestServer(history)
	go s.handleWebsockets()
	defer s.Stop()

	log := logger.NewLogger(logger.LevelError, "test")
	ctrl := session.NewController(testServerConfig(), history, s, cal, log)
	ctrl.WithFactory(func(*models.MConfig, *logger.Logger) (interfaces.IPriceStream, error) {
		return &fakeStream{}, nil
	})
	defer ctrl.Close()
	s.SetController(ctrl)

	client := newTestClient(s, 8)
	s.register <- client

	s.HandleClientMessage(client, []byte(`{"action":"subscribe","symbols":"MSFT"}`))

	// The subscribe switched the active session; the seeded snapshot comes
	// back through the hub
	assert.Eventually(t, func() bool {
		symbol, _ := ctrl.Snapshot()
		return symbol == "MSFT"
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case payload := <-client.send:
		snap, ok := payload.(models.MSnapshot)
		require.True(t, ok)
		assert.Equal(t, "MSFT", snap.Symbol)
		require.Len(t, snap.Candles, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after selection")
	}

	// Re-subscribing to the now-active symbol serves the working set directly
	s.HandleClientMessage(client, []byte(`{"action":"subscribe","symbols":"MSFT"}`))
	select {
	case payload := <-client.send:
		snap, ok := payload.(models.MSnapshot)
		require.True(t, ok)
		assert.Equal(t, "MSFT", snap.Symbol)
	case <-time.After(2 * time.Second):
		t.Fatal("no direct snapshot for the active symbol")
	}
}

// -----------------------------------------------------------------------------

func TestRoutes_Health(t *testing.T) {
	s := newTestServer(&fakeHistorySource{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	s.engine.ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

// -----------------------------------------------------------------------------

func TestRoutes_Config(t *testing.T) {
	s := newTestServer(&fakeHistorySource{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	s.engine.ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "mock", body["backend"])
	assert.Equal(t, "AAPL", body["symbol"])
}

// -----------------------------------------------------------------------------

func TestRoutes_History(t *testing.T) {
	cal := utils.NewTradingCalendar()
	s := newTestServer(&fakeHistorySource{candles: []models.MCandle{
		{BucketStart: cal.BucketStart("2024-06-14"), Open: 99, High: 101, Low: 98, Close: 100},
	}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/history?symbol=aapl", nil)
	s.engine.ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
	var body struct {
		Symbol string           `json:"symbol"`
		Values []models.MCandle `json:"values"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "AAPL", body.Symbol)
	require.Len(t, body.Values, 1)
	assert.Equal(t, 100.0, body.Values[0].Close)
}

// -----------------------------------------------------------------------------

func TestRoutes_HistoryErrors(t *testing.T) {
	s := newTestServer(&fakeHistorySource{err: fmt.Errorf("upstream down")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, 400, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/history?symbol=AAPL", nil)
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, 502, w.Code)
}

// -----------------------------------------------------------------------------

func TestCORS_LocalOriginAllowed(t *testing.T) {
	s := newTestServer(&fakeHistorySource{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodOptions, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, 204, w.Code)
}

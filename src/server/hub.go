package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"price-stream/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *RelayServer) handleWebsockets() {
	for {
		select {
		case <-s.done:
			for client := range s.clients {
				client.closeSend()
				delete(s.clients, client)
			}
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				client.closeSend()
			}

		case msg := <-s.broadcast:
			// Route to clients subscribed to this symbol
			for client := range s.clients {
				if !client.subscribed(msg.symbol) {
					continue
				}
				if !client.trySend(msg.payload) {
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					client.closeSend()
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------
// ICandleSink Implementation (session controller output)
// -----------------------------------------------------------------------------

// OnHistory pushes the seeded series to subscribed clients as a snapshot.
func (s *RelayServer) OnHistory(symbol string, candles []models.MCandle) {
	s.broadcast <- outbound{
		symbol: symbol,
		payload: models.MSnapshot{
			Type:    "snapshot",
			Symbol:  symbol,
			Candles: candles,
		},
	}
}

// -----------------------------------------------------------------------------

// OnCandle pushes one fold result.
func (s *RelayServer) OnCandle(symbol string, candle models.MCandle, transition models.Transition) {
	s.broadcast <- outbound{
		symbol: symbol,
		payload: models.MCandleUpdate{
			Type:   transition.String(),
			Symbol: symbol,
			Candle: candle,
		},
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *RelayServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send:    make(chan interface{}, 256),
		symbols: make(map[string]struct{}),
	}

	// The hub loop is the only receiver; once Stop closed done this send
	// would block forever, so refuse the late connection instead
	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage processes a subscribe/unsubscribe frame from a relay
// client. Subscribing to a symbol other than the active one switches the
// session (the selected symbol drives the single active session).
func (s *RelayServer) HandleClientMessage(client *Client, message []byte) {
	var msg models.MStreamMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		s.Logger.Debug("Ignoring unparsable client frame: %v", err)
		return
	}

	symbols := splitSymbols(msg.Symbols)
	if len(symbols) == 0 {
		return
	}

	switch msg.Action {
	case models.ActionSubscribe:
		for _, sym := range symbols {
			client.subscribe(sym)
		}

		if s.Controller == nil {
			return
		}

		active, candles := s.Controller.Snapshot()
		target := symbols[0]

		if target == active {
			// Serve the working set immediately. trySend drops the snapshot
			// when the client was pruned or is saturated; the read loop
			// notices the closed socket on its own.
			client.trySend(models.MSnapshot{Type: "snapshot", Symbol: active, Candles: candles})
			return
		}

		// New selection: the session controller re-seeds and the snapshot
		// arrives through OnHistory
		if err := s.Controller.Select(target); err != nil {
			s.Logger.Warning("Select %s failed: %v", target, err)
		}

	case models.ActionUnsubscribe:
		for _, sym := range symbols {
			client.unsubscribe(sym)
		}

	default:
		s.Logger.Debug("Ignoring unknown action '%s'", msg.Action)
	}
}

// -----------------------------------------------------------------------------

func splitSymbols(joined string) []string {
	parts := strings.Split(joined, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		sym := strings.ToUpper(strings.TrimSpace(p))
		if sym != "" {
			out = append(out, sym)
		}
	}
	return out
}

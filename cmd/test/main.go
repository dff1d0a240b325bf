package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"price-stream/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Manual test harness: connects to a running relay server, subscribes to a
// symbol and prints every frame. Useful for eyeballing the mock backend and
// the day-rollover behavior without a browser.
//
//	go run ./cmd/test -addr ws://localhost:8090/ws -symbol AAPL
// -----------------------------------------------------------------------------

func main() {
	addr := flag.String("addr", "ws://localhost:8090/ws", "relay websocket address")
	symbol := flag.String("symbol", "AAPL", "symbol to subscribe")
	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial(*addr, nil)
	if err != nil {
		fmt.Printf("dial failed: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	sub := models.MStreamMessage{Action: models.ActionSubscribe, Symbols: *symbol}
	if err := conn.WriteJSON(sub); err != nil {
		fmt.Printf("subscribe failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Subscribed to %s\n", *symbol)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				fmt.Printf("read error: %v\n", err)
				return
			}
			fmt.Printf("%s %s\n", time.Now().Format("15:04:05"), message)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		unsub := models.MStreamMessage{Action: models.ActionUnsubscribe, Symbols: *symbol}
		conn.WriteJSON(unsub)
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	case <-done:
	}
}

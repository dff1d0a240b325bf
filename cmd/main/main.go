package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"price-stream/src/config"
	"price-stream/src/data_source/twelvedata"
	"price-stream/src/interfaces"
	"price-stream/src/logger"
	"price-stream/src/network"
	"price-stream/src/server"
	"price-stream/src/session"
	"price-stream/src/utils"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	config, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(logger.ParseLevel(config.LogLevel), config.Name)

	// 2. Setup Components
	cal := utils.NewTradingCalendar()

	var networkManager interfaces.INetworkManager = network.NewAsyncNetworkManager(config.MConfig, appLogger)
	var history interfaces.IHistorySource = twelvedata.NewHistorySource(config.MConfig, networkManager, cal, appLogger)

	// 3. Relay server doubles as the candle sink
	srv := server.NewRelayServer(config.MConfig, cal, history, appLogger)

	controller := session.NewController(config.MConfig, history, srv, cal, appLogger)
	srv.SetController(controller)

	// 4. Start streaming the configured startup symbol
	if config.Stream.Symbol != "" {
		if err := controller.Select(config.Stream.Symbol); err != nil {
			appLogger.Critical("Failed to select startup symbol: %v", err)
		}
	}

	// 5. Serve until interrupted
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Critical("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	controller.Close()
	srv.Stop()
	appLogger.Info("Stopped")
}

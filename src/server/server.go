package server

import (
	"fmt"
	"strings"
	"time"

	"price-stream/src/interfaces"
	"price-stream/src/logger"
	"price-stream/src/models"
	"price-stream/src/session"
	"price-stream/src/utils"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// RelayServer
//
// Serves the dashboard: browser clients connect to /ws, send
// {action:"subscribe"|"unsubscribe", symbols:"A,B"} frames and receive an
// initial candle snapshot followed by per-fold updates. The REST endpoints
// expose health, config and on-demand history.
// -----------------------------------------------------------------------------

type RelayServer struct {
	Config     *models.MConfig
	Logger     *logger.Logger
	Calendar   *utils.TradingCalendar
	Controller *session.Controller
	History    interfaces.IHistorySource
	engine     *gin.Engine

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

// outbound pairs a payload with the symbol it concerns so the hub can route
// it to subscribed clients only.
type outbound struct {
	symbol  string
	payload interface{}
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewRelayServer(cfg *models.MConfig, cal *utils.TradingCalendar, history interfaces.IHistorySource, log *logger.Logger) *RelayServer {
	// Set Gin mode
	if strings.ToUpper(cfg.LogLevel) != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &RelayServer{
		Config:   cfg,
		Logger:   log.Named("RelayServer"),
		Calendar: cal,
		History:  history,
		engine:   gin.Default(),
		clients:  make(map[*Client]struct{}),
		// Buffered channel to prevent lock/blocking during update bursts
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------

// SetController wires the session controller after construction (the
// controller's sink is this server, so the two reference each other).
func (s *RelayServer) SetController(ctrl *session.Controller) {
	s.Controller = ctrl
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *RelayServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/api/history", s.getHistory)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *RelayServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting relay server on %s", addr)

	go s.handleWebsockets()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *RelayServer) Stop() error {
	close(s.done)
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *RelayServer) getHealth(c *gin.Context) {
	symbol := ""
	candleCount := 0
	if s.Controller != nil {
		var candles []models.MCandle
		symbol, candles = s.Controller.Snapshot()
		candleCount = len(candles)
	}

	c.JSON(200, gin.H{
		"status":      "ok",
		"symbol":      symbol,
		"candles":     candleCount,
		"trading_day": s.Calendar.IsTradingDay(time.Now()),
	})
}

// -----------------------------------------------------------------------------

func (s *RelayServer) getConfig(c *gin.Context) {
	c.JSON(200, gin.H{
		"backend": s.Config.Stream.Backend,
		"symbol":  s.Config.Stream.Symbol,
		"window":  s.Config.History.Window,
	})
}

// -----------------------------------------------------------------------------

// getHistory serves daily candles for an arbitrary symbol, on demand.
func (s *RelayServer) getHistory(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	if symbol == "" {
		c.JSON(400, gin.H{"error": "missing required parameter: symbol"})
		return
	}

	candles, err := s.History.FetchDailyHistory(c.Request.Context(), symbol)
	if err != nil {
		s.Logger.Warning("History request for %s failed: %v", symbol, err)
		c.JSON(502, gin.H{"error": fmt.Sprintf("history fetch failed for %s", symbol)})
		return
	}

	c.JSON(200, gin.H{"symbol": symbol, "values": candles})
}

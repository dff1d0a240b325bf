package stream

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"price-stream/src/logger"
	"price-stream/src/models"
)

// -----------------------------------------------------------------------------
// MockPriceStream generates synthetic ticks on a timer, for demo/testing
// without a network dependency. Each interval perturbs every subscribed
// symbol's last price by a bounded symmetric random percentage (the
// volatility parameter) and emits to all listeners.
//
// All tick delivery happens on the single run-loop goroutine, so listeners
// never see two ticks concurrently.
// -----------------------------------------------------------------------------

const minMockPrice = 0.01

type MockPriceStream struct {
	Config models.MMockConfig
	Logger *logger.Logger

	mu        sync.Mutex
	listeners []func(models.MTick)
	prices    map[string]float64 // per-symbol last price
	order     []string           // subscription set, insertion order
	seed      map[string]float64
	running   bool
	closed    bool

	kick chan struct{} // triggers an immediate emit round
	stop chan struct{}
	rng  *rand.Rand
}

// -----------------------------------------------------------------------------

func NewMockPriceStream(cfg models.MMockConfig, seed map[string]float64, log *logger.Logger) *MockPriceStream {
	s := &MockPriceStream{
		Config: cfg,
		Logger: log.Named("MockPriceStream"),
		prices: make(map[string]float64),
		seed:   make(map[string]float64),
		kick:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for sym, p := range seed {
		if p > 0 {
			s.seed[sym] = p
		}
	}
	return s
}

// -----------------------------------------------------------------------------

// Connect is an immediate no-op for the mock backend.
func (s *MockPriceStream) Connect(ctx context.Context) error {
	return nil
}

// -----------------------------------------------------------------------------

func (s *MockPriceStream) Subscribe(symbols []string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	for _, sym := range symbols {
		if sym == "" {
			continue
		}
		if _, exists := s.prices[sym]; exists {
			continue
		}
		start := s.Config.BasePrice
		if seeded, ok := s.seed[sym]; ok {
			start = seeded
		}
		if start < minMockPrice {
			start = minMockPrice
		}
		s.prices[sym] = start
		s.order = append(s.order, sym)
	}

	s.ensureLoop()
	s.mu.Unlock()

	// Emit a first round right away so subscribers don't wait a full interval
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// -----------------------------------------------------------------------------

// Unsubscribe drops the per-symbol price state, so a later re-subscribe
// restarts from the seed/base price.
func (s *MockPriceStream) Unsubscribe(symbols []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sym := range symbols {
		if _, exists := s.prices[sym]; !exists {
			continue
		}
		delete(s.prices, sym)
		for i, o := range s.order {
			if o == sym {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (s *MockPriceStream) OnTick(cb func(models.MTick)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.listeners = append(s.listeners, cb)
}

// -----------------------------------------------------------------------------

// Close stops the run loop and clears all state. Idempotent, and safe to
// call from inside a tick callback (the run loop never holds the lock while
// invoking listeners).
func (s *MockPriceStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.stop)
	s.listeners = nil
	s.prices = make(map[string]float64)
	s.order = nil
}

// -----------------------------------------------------------------------------

// ensureLoop starts the emit goroutine once. Caller holds the lock.
func (s *MockPriceStream) ensureLoop() {
	if s.running || s.closed {
		return
	}
	s.running = true
	go s.runLoop()
}

// -----------------------------------------------------------------------------

func (s *MockPriceStream) runLoop() {
	ticker := time.NewTicker(time.Duration(s.Config.IntervalMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-s.kick:
			s.emitTicks()
		case <-ticker.C:
			s.emitTicks()
		}
	}
}

// -----------------------------------------------------------------------------

// emitTicks walks one perturbation round. Listeners are invoked outside the
// lock so a callback may Close the stream without deadlocking.
func (s *MockPriceStream) emitTicks() {
	now := time.Now().UnixMilli()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	ticks := make([]models.MTick, 0, len(s.order))
	for _, sym := range s.order {
		eps := (s.rng.Float64() - 0.5) * 2 * s.Config.Volatility
		next := s.prices[sym] * (1 + eps)
		if next < minMockPrice {
			next = minMockPrice
		}
		s.prices[sym] = next
		ticks = append(ticks, models.MTick{Symbol: sym, Price: next, Timestamp: now})
	}

	listeners := make([]func(models.MTick), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, tick := range ticks {
		for _, cb := range listeners {
			cb(tick)
		}
	}
}
